package app

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a DomainError so callers can map it to a response.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindDuplicate        ErrorKind = "duplicate"
	KindNotFound         ErrorKind = "not_found"
	KindInvalidRow       ErrorKind = "invalid_row"
	KindSchema           ErrorKind = "schema"
	KindCapacityExceeded ErrorKind = "capacity_exceeded"
	KindUnknownGroup     ErrorKind = "unknown_group"
	KindVotingClosed     ErrorKind = "voting_closed"
	KindNotAllowed       ErrorKind = "not_allowed"
	KindTransport        ErrorKind = "transport"
)

type DomainError struct {
	Kind    ErrorKind
	Status  int
	Code    string
	Message string
	Details any
	Err     error
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func domainError(kind ErrorKind, status int, code, message string, details any) *DomainError {
	return &DomainError{
		Kind:    kind,
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// KindOf returns the kind of the first DomainError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries a DomainError of kind k.
func IsKind(err error, k ErrorKind) bool {
	return err != nil && KindOf(err) == k
}

func validationError(message string, details any) *DomainError {
	return domainError(KindValidation, http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, details)
}

func duplicateError(message string) *DomainError {
	return domainError(KindDuplicate, http.StatusConflict, "DUPLICATE", message, nil)
}

func notFoundError(code, message string) *DomainError {
	return domainError(KindNotFound, http.StatusNotFound, code, message, nil)
}

func invalidRowError(rowIndex int) *DomainError {
	return domainError(KindInvalidRow, http.StatusBadRequest, "INVALID_ROW",
		fmt.Sprintf("row %d is not a data row", rowIndex), map[string]int{"rowIndex": rowIndex})
}

// rowOutOfRangeError reports a row the store does not have.
func rowOutOfRangeError(op string, err error) *DomainError {
	e := domainError(KindInvalidRow, http.StatusBadRequest, "INVALID_ROW", op+": row out of range", nil)
	e.Err = err
	return e
}

func schemaError(table string, missing ...string) *DomainError {
	return domainError(KindSchema, http.StatusInternalServerError, "SCHEMA_ERROR",
		fmt.Sprintf("table %s is missing required columns", table), map[string]any{"table": table, "missing": missing})
}

func capacityError(prefix string, max int) *DomainError {
	return domainError(KindCapacityExceeded, http.StatusConflict, "CAPACITY_EXCEEDED",
		fmt.Sprintf("all %d codes for prefix %s are taken", max, prefix), nil)
}

func unknownGroupError(code, name string) *DomainError {
	return domainError(KindUnknownGroup, http.StatusNotFound, code, fmt.Sprintf("unknown group %q", name), nil)
}

func votingClosedError(title string) *DomainError {
	return domainError(KindVotingClosed, http.StatusConflict, "VOTING_CLOSED",
		fmt.Sprintf("voting %q is not open", title), nil)
}

func notAllowedError(reason string) *DomainError {
	return domainError(KindNotAllowed, http.StatusForbidden, "NOT_ALLOWED",
		"voter is not allowed to vote", map[string]string{"reason": reason})
}

// transportError wraps a failed store call. It is returned verbatim and
// never retried: appends are not idempotent.
func transportError(op string, err error) *DomainError {
	e := domainError(KindTransport, http.StatusBadGateway, "TRANSPORT_ERROR", op+" failed", nil)
	e.Err = err
	return e
}
