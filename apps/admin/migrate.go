package main

import (
	"github.com/hoangvu/educenter/storage/database"
)

const migrationsDir = "storage/database/migrations"

var migrateFunc = database.Migrate // mockable

func (cli *commandLine) migrate() error {
	return migrateFunc(cli.db, migrationsDir)
}
