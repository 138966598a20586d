// Package apperror defines the error taxonomy shared by the pricing and
// unit lifecycle code.  Every error carries a stable Code so transports can
// map it to a response without string matching.  Storage errors are not
// part of the taxonomy; they are wrapped with fmt.Errorf and propagate as is.
package apperror

import (
	"errors"
	"fmt"

	"github.com/iliyamo/realty-inventory/internal/model"
)

// Code is a stable machine-readable error identifier.
type Code string

const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeValidation        Code = "VALIDATION_FAILED"
	CodeConfiguration     Code = "CONFIGURATION_INVALID"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeInternal          Code = "INTERNAL"
)

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Entity, e.ID) }

// Code implements Coded.
func (e *NotFoundError) Code() Code { return CodeNotFound }

// NotFound builds a NotFoundError; id is formatted with %v.
func NotFound(entity string, id any) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
}

// ValidationError reports malformed caller input such as negative minutes.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Code implements Coded.
func (e *ValidationError) Code() Code { return CodeValidation }

// Validation builds a ValidationError.
func Validation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConfigurationError reports missing or structurally invalid inventory
// configuration (tower premiums, project rates, rule documents).  It points
// at a data integrity problem, not at the caller.
type ConfigurationError struct {
	Entity  string
	ID      string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s configuration: %s", e.Entity, e.Message)
	}
	return fmt.Sprintf("%s %s configuration: %s", e.Entity, e.ID, e.Message)
}

// Code implements Coded.
func (e *ConfigurationError) Code() Code { return CodeConfiguration }

// Configuration builds a ConfigurationError.
func Configuration(entity string, id any, format string, args ...any) *ConfigurationError {
	sid := ""
	if id != nil {
		sid = fmt.Sprint(id)
	}
	return &ConfigurationError{Entity: entity, ID: sid, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError reports a status change that the unit lifecycle
// does not permit from the unit's current state.
type InvalidTransitionError struct {
	UnitID uint64
	From   model.UnitStatus
	To     model.UnitStatus
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("unit %d: cannot transition from %s to %s", e.UnitID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Code implements Coded.
func (e *InvalidTransitionError) Code() Code { return CodeInvalidTransition }

// InvalidTransition builds an InvalidTransitionError.
func InvalidTransition(unitID uint64, from, to model.UnitStatus, reason string) *InvalidTransitionError {
	return &InvalidTransitionError{UnitID: unitID, From: from, To: to, Reason: reason}
}

// Coded is implemented by every error in the taxonomy.
type Coded interface {
	error
	Code() Code
}

// CodeOf returns the taxonomy code found in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var c Coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeInternal
}

// IsNotFound reports whether err's chain contains a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInvalidTransition reports whether err's chain contains an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var it *InvalidTransitionError
	return errors.As(err, &it)
}
