package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/catalogadmin/pkg/errors"
)

type constraint int

const (
	noConstraint constraint = iota
	uniqueConstraint
	foreignKeyConstraint
)

// violatedConstraint reports which integrity constraint, if any, rejected a
// write. Postgres and MySQL are matched on their error codes; SQLite only
// exposes the message text.
func violatedConstraint(err error) constraint {
	if err == nil {
		return noConstraint
	}
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return uniqueConstraint
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return foreignKeyConstraint
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return uniqueConstraint
		case "23503":
			return foreignKeyConstraint
		}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062:
			return uniqueConstraint
		case 1451, 1452:
			return foreignKeyConstraint
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"), strings.Contains(msg, "duplicate"):
		return uniqueConstraint
	case strings.Contains(msg, "foreign key constraint"):
		return foreignKeyConstraint
	}
	return noConstraint
}

// writeError turns a failed insert or update into the error returned to the
// caller. A duplicate on uniqueField becomes a field validation error.
func writeError(err error, uniqueField, op string) error {
	switch violatedConstraint(err) {
	case uniqueConstraint:
		if uniqueField != "" {
			return alreadyTaken(uniqueField)
		}
	case foreignKeyConstraint:
		return apperrors.NewBadRequest("The request references a record that does not exist.")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func alreadyTaken(field string) error {
	return apperrors.NewValidation(map[string][]string{field: {fmt.Sprintf("The %s has already been taken.", field)}})
}
