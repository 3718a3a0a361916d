package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrUniqueViolation は一意制約違反を表す。
// PostgreSQLとSQLiteのどちらのドライバエラーもこのエラーに変換される。
var ErrUniqueViolation = errors.New("unique constraint violation")

// pgUniqueViolation はPostgreSQLのunique_violationのSQLSTATE。
const pgUniqueViolation = "23505"

// isUniqueViolation はドライバ固有のエラーが一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}

	return false
}

// wrapWriteError は書き込みエラーにメッセージを付与し、
// 一意制約違反の場合はErrUniqueViolationとして判定できるようにする。
func wrapWriteError(msg string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w: %w", msg, ErrUniqueViolation, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
