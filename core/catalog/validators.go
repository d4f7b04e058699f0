package catalog

import (
	"github.com/go-playground/validator/v10"

	"github.com/hoangvu/educenter/core"
)

var (
	weekdayTag  = "weekday"
	weekdayText = "invalid weekday name"

	shiftTag  = "shift"
	shiftText = "invalid shift; must be one of the fixed time ranges"

	statusTag  = "coursestatus"
	statusText = "invalid course status"

	durationDatesTag  = "duration_dates"
	durationDatesText = "start date must precede the end date"
)

func init() {
	_ = core.Validate.RegisterValidation(weekdayTag, inListValidation(Weekdays))
	core.RegisterCustomTranslation(weekdayTag, weekdayText)

	_ = core.Validate.RegisterValidation(shiftTag, inListValidation(Shifts))
	core.RegisterCustomTranslation(shiftTag, shiftText)

	_ = core.Validate.RegisterValidation(statusTag, inListValidation(Statuses))
	core.RegisterCustomTranslation(statusTag, statusText)

	core.Validate.RegisterStructValidation(durationStructValidation, Duration{})
	core.RegisterCustomTranslation(durationDatesTag, durationDatesText)
}

func inListValidation(list []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		val := fl.Field().String()
		for _, s := range list {
			if s == val {
				return true
			}
		}
		return false
	}
}

func durationStructValidation(sl validator.StructLevel) {
	dur, ok := sl.Current().Interface().(Duration)
	if !ok {
		return
	}
	if dur.StartDate != nil && dur.EndDate != nil && dur.StartDate.After(*dur.EndDate) {
		sl.ReportError(dur.StartDate, "start_date", "StartDate", durationDatesTag, "")
	}
}
