package user

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/hoangvu/educenter/core"
)

var (
	roleTag  = "role"
	roleText = "invalid role"

	wardRequiredTag  = "ward_required"
	cityRequiredTag  = "city_required"
	addrRequiredText = "this field is required for this role"

	parentPhoneRequiredTag  = "parent_phone_required"
	parentPhoneRequiredText = "a parent phone number is required for minor students"

	degreeRequiredTag  = "degree_required"
	degreeRequiredText = "at least one degree entry is required"

	experienceRequiredTag  = "experience_required"
	experienceRequiredText = "at least one experience entry is required"

	degreeYearTag  = "degree_year"
	degreeYearText = "degree year cannot be in the future"

	experienceDatesTag  = "experience_dates"
	experienceDatesText = "start date must not be in the future and must precede the end date"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"
)

func init() {
	_ = core.Validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(roleTag, roleText)

	core.Validate.RegisterStructValidation(newUserStructValidation, NewUser{})
	core.Validate.RegisterStructValidation(degreeStructValidation, Degree{})
	core.Validate.RegisterStructValidation(experienceStructValidation, Experience{})

	core.RegisterCustomTranslation(wardRequiredTag, addrRequiredText)
	core.RegisterCustomTranslation(cityRequiredTag, addrRequiredText)
	core.RegisterCustomTranslation(parentPhoneRequiredTag, parentPhoneRequiredText)
	core.RegisterCustomTranslation(degreeRequiredTag, degreeRequiredText)
	core.RegisterCustomTranslation(experienceRequiredTag, experienceRequiredText)
	core.RegisterCustomTranslation(degreeYearTag, degreeYearText)
	core.RegisterCustomTranslation(experienceDatesTag, experienceDatesText)
	core.RegisterCustomTranslation(pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(pwdAttrSimTag, pwdAttrSimText)
}

// Custom Validators

// roleValidation checks that the provided role is in AllRoles.
func roleValidation(fl validator.FieldLevel) bool {
	role, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	all := append([]string(nil), AllRoles...)
	sort.Strings(all)
	if idx := sort.SearchStrings(all, role); idx < len(all) {
		return all[idx] == role
	}
	return false
}

// ValidateAddress checks the structural completeness of an address:
// only Ward and City are ever required, and only when required is set.
// A nil address with required set fails both.
func ValidateAddress(addr *Address, required bool) []core.FieldError {
	if !required {
		return nil
	}
	var flds []core.FieldError
	if addr == nil || core.CleanString(addr.Ward) == "" {
		flds = append(flds, core.FieldError{Field: "address.ward", Error: addrRequiredText})
	}
	if addr == nil || core.CleanString(addr.City) == "" {
		flds = append(flds, core.FieldError{Field: "address.city", Error: addrRequiredText})
	}
	return flds
}

// newUserStructValidation enforces the role-conditional field requirements:
// - Parent: address with ward & city
// - Student: parent phone when minor, address when adult
// - Employee: address, at least one degree and one experience entry
func newUserStructValidation(sl validator.StructLevel) {
	nu, ok := sl.Current().Interface().(NewUser)
	if !ok {
		return
	}

	reportAddr := func() {
		for _, fld := range ValidateAddress(nu.Address, true) {
			tag := wardRequiredTag
			if strings.HasSuffix(fld.Field, "city") {
				tag = cityRequiredTag
			}
			sl.ReportError(nu.Address, fld.Field, "Address", tag, "")
		}
	}

	switch {
	case strings.HasPrefix(nu.Role, RoleParent):
		reportAddr()
	case strings.HasPrefix(nu.Role, RoleStudent):
		if nu.IsAdultStudent {
			reportAddr()
		} else if core.CleanString(nu.ParentPhoneNumber) == "" {
			sl.ReportError(nu.ParentPhoneNumber, "parent_phone_number", "ParentPhoneNumber", parentPhoneRequiredTag, "")
		}
	case strings.HasPrefix(nu.Role, RoleEmployee):
		reportAddr()
		if len(nu.Degrees) == 0 {
			sl.ReportError(nu.Degrees, "degrees", "Degrees", degreeRequiredTag, "")
		}
		if len(nu.Experience) == 0 {
			sl.ReportError(nu.Experience, "experience", "Experience", experienceRequiredTag, "")
		}
	}

	validatePassword(nu.Password, nu.FirstName+" "+nu.LastName, nu.Email, sl)
}

func degreeStructValidation(sl validator.StructLevel) {
	deg, ok := sl.Current().Interface().(Degree)
	if !ok {
		return
	}
	if deg.Year > time.Now().Year() {
		sl.ReportError(deg.Year, "year", "Year", degreeYearTag, "")
	}
}

func experienceStructValidation(sl validator.StructLevel) {
	exp, ok := sl.Current().Interface().(Experience)
	if !ok {
		return
	}
	if exp.StartDate.After(time.Now()) {
		sl.ReportError(exp.StartDate, "start_date", "StartDate", experienceDatesTag, "")
	}
	if exp.EndDate != nil && exp.EndDate.Before(exp.StartDate) {
		sl.ReportError(exp.EndDate, "end_date", "EndDate", experienceDatesTag, "")
	}
}

// validatePassword applies the password policy:
// - minLen: 8
// - no whitespace
// - no all numeric
// - no user attrs similarity
func validatePassword(pwd, name, email string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	var digitCount int

	pwdLen := len(pwd)
	if pwdLen < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == pwdLen {
		reportErr(pwdNotAllNumTag)
		return
	}

	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(usrAttr, "")).QuickRatio()
	}
	if getRatio(pwd, name) >= pwdMaxSim || getRatio(pwd, email) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
		return
	}
}
