// Package repository defines error types that are reused across multiple
// repositories.  Lookups that miss return a nil record and a nil error;
// the sentinels below cover writes, where the caller must learn that
// nothing happened.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is returned by updates and deletes whose predicate matched no
// row: the id does not exist, or it belongs to another landlord.
var ErrNotFound = errors.New("not found")

// ErrPhoneExists is returned when registering a phone that is already a
// landlord's login handle.
var ErrPhoneExists = errors.New("phone already registered")

// ErrSchoolExists is returned when adding an institution whose name is taken.
var ErrSchoolExists = errors.New("school already exists")

// isDuplicate reports whether err is a unique-key violation in either
// supported driver.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return true
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "1062")
}
