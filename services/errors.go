package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jinzhu/gorm"
)

/************************************************
/**** MARK: ERROR KINDS ****/
/************************************************/
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("store unavailable")
	ErrInternal     = errors.New("internal error")
)

var kinds = []error{ErrNotFound, ErrConflict, ErrValidation, ErrUnauthorized, ErrUnavailable, ErrInternal}

// kindError is a named failure that matches its kind through errors.Is.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }

func newKind(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

/************************************************
/**** MARK: NAMED ERRORS ****/
/************************************************/
var (
	ErrUserNotFound     = newKind(ErrNotFound, "user not found")
	ErrAgentNotFound    = newKind(ErrNotFound, "sales agent not found")
	ErrPlanNotFound     = newKind(ErrNotFound, "plan not found")
	ErrDuplicateAgent   = newKind(ErrConflict, "sales agent with this phone number already exists")
	ErrAlreadyUsedTrial = newKind(ErrConflict, "trial already used")
	ErrAlreadyActive    = newKind(ErrConflict, "user already has an active subscription")
	ErrDuplicateMessage = newKind(ErrConflict, "message already recorded")
	ErrInvalidAmount    = newKind(ErrValidation, "amount must be a positive value with at most two decimals and within the allowed maximum")
	ErrInvalidRate      = newKind(ErrValidation, "commission rate must be between 0 and 100")
	ErrInvalidPlan      = newKind(ErrValidation, "invalid plan")
)

// Validation builds a Validation error naming the offending field.
func Validation(field string) error {
	return newKind(ErrValidation, "invalid or missing field: "+field)
}

// Kind returns the taxonomy sentinel err belongs to. Unknown errors are Internal.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

// classify turns raw store failures into taxonomy errors. Errors already in the
// taxonomy pass through untouched.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return err
		}
	}
	if isUnavailable(ctx, err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrInternal, err)
}

func isUnavailable(ctx context.Context, err error) bool {
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "database is closed") ||
		strings.Contains(msg, "sql: database is closed")
}

// isUniqueViolation cobre sqlite3 e postgres.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func isNotFound(err error) bool {
	return gorm.IsRecordNotFoundError(err)
}
