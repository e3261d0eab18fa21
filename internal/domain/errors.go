package domain

import (
	stderrors "errors"

	apperrors "github.com/goliatone/go-errors"
)

// Text codes discriminate the failure taxonomy. Transition decisions in the
// pipelines key off these, never off error strings.
const (
	CodeAuthFailure        = "AUTH_FAILURE"
	CodeStepFailure        = "STEP_FAILURE"
	CodeRuleViolation      = "RULE_VIOLATION"
	CodeDependencyNotFound = "DEPENDENCY_NOT_FOUND"
	CodeUnexpected         = "UNEXPECTED"
)

// ErrAuth reports a rejected or expired credential bundle. Terminal for the
// account: no retry, status moves to logged_out.
func ErrAuth(message string, source error) *apperrors.Error {
	return tagged(message, source, apperrors.CategoryExternal, CodeAuthFailure)
}

// ErrStep reports an automation step that could not complete. The current
// repetition fails; the loop may continue.
func ErrStep(message string, source error) *apperrors.Error {
	return tagged(message, source, apperrors.CategoryExternal, CodeStepFailure)
}

// ErrRule reports a violated business rule, e.g. a cart total above the
// configured ceiling. The repetition fails with no retry.
func ErrRule(message string) *apperrors.Error {
	return tagged(message, nil, apperrors.CategoryValidation, CodeRuleViolation)
}

// ErrDependency reports a referenced entity (address, card, product,
// account range) that does not exist.
func ErrDependency(message string, source error) *apperrors.Error {
	return tagged(message, source, apperrors.CategoryBadInput, CodeDependencyNotFound)
}

// ErrUnexpected wraps an unclassified failure so it still carries context.
func ErrUnexpected(message string, source error) *apperrors.Error {
	return tagged(message, source, apperrors.CategoryHandler, CodeUnexpected)
}

func tagged(message string, source error, category apperrors.Category, code string) *apperrors.Error {
	e := apperrors.New(message, category).WithTextCode(code)
	if source != nil {
		e.Source = source
	}
	return e
}

// ErrorCode extracts the taxonomy code from an error chain. Unclassified
// errors report CodeUnexpected.
func ErrorCode(err error) string {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) && ge.TextCode != "" {
		return ge.TextCode
	}
	return CodeUnexpected
}

// IsAuthFailure reports whether the error chain carries an authentication
// failure.
func IsAuthFailure(err error) bool {
	return ErrorCode(err) == CodeAuthFailure
}

// IsRuleViolation reports whether the error chain carries a business rule
// violation.
func IsRuleViolation(err error) bool {
	return ErrorCode(err) == CodeRuleViolation
}

// IsDependencyNotFound reports whether the error chain carries a missing
// dependency.
func IsDependencyNotFound(err error) bool {
	return ErrorCode(err) == CodeDependencyNotFound
}
