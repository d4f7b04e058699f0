package main

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hoangvu/educenter/core"
	"github.com/hoangvu/educenter/core/user"
)

// addAdmin updates or creates an admin user.User
func (cli *commandLine) addAdmin(email, first, last, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	found := true
	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		found = false
		now := time.Now().UTC()
		usr = user.User{
			ID:        uuid.New().String(),
			FirstName: core.CleanString(first),
			LastName:  core.CleanString(last),
			Email:     email,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	usr.Role = user.RoleEmployeeAdmin
	if usr.Employee == nil {
		usr.Employee = &user.EmployeeProfile{}
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if found {
		isActive := true
		usr.UpdatedAt = time.Now().UTC()
		_, err = cli.usrRepo.UpdateUser(ctx, usr, &isActive)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}
