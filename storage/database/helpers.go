package database

import (
	"database/sql/driver"
	"strconv"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

func pqStringArray(ss []string) driver.Valuer {
	return pq.Array(ss)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func isForeignKeyViolation(err error) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr.Code == "23503"
	}
	return false
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
