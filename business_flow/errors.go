// Package businessflow contains the core business logic and use cases for CRM workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Auth and account errors
	ErrUserNotFound         = errors.New("user not found")
	ErrAccountInactive      = errors.New("account is inactive")
	ErrTenantNotFound       = errors.New("tenant not found")
	ErrTenantInactive       = errors.New("tenant is inactive")
	ErrIncorrectPassword    = errors.New("incorrect password")
	ErrEmailAlreadyExists   = errors.New("email already exists")
	ErrPlanNotFound         = errors.New("plan not found")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrSessionNotFound      = errors.New("session not found")
	ErrCannotDeactivateSelf = errors.New("cannot deactivate own account")

	// Lead lifecycle errors
	ErrLeadNotFound       = errors.New("lead not found")
	ErrLeadConflict       = errors.New("lead was modified by another user")
	ErrLeadNotOwned       = errors.New("lead is assigned to another user")
	ErrLeadTerminal       = errors.New("lead is already converted or lost")
	ErrLeadNameRequired   = errors.New("lead name is required")
	ErrLossReasonRequired = errors.New("loss reason is required")

	// Import errors
	ErrImportFileTooLarge   = errors.New("import file is too large")
	ErrImportFileUnreadable = errors.New("import file could not be parsed")
	ErrImportTooManyRows    = errors.New("import file has too many rows")
	ErrImportNoRows         = errors.New("import file has no data rows")

	// Contact and company errors
	ErrContactNotFound = errors.New("contact not found")
	ErrCompanyNotFound = errors.New("company not found")

	// Deal and proposal errors
	ErrDealNotFound          = errors.New("deal not found")
	ErrDealClosed            = errors.New("deal is already closed")
	ErrInvalidDealStage      = errors.New("invalid deal stage")
	ErrProposalNotFound      = errors.New("proposal not found")
	ErrProposalConflict      = errors.New("proposal was already sent or answered")
	ErrInvalidProposalStatus = errors.New("invalid proposal status")

	// Task errors
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskConflict = errors.New("task was already completed or cancelled")

	// Email quota errors
	ErrQuotaExceeded = errors.New("monthly email quota exceeded")

	// Notification errors
	ErrNotificationNotFound = errors.New("notification not found")

	// Filter errors
	ErrInvalidPage           = errors.New("page must be at least 1")
	ErrInvalidPageSize       = errors.New("page size must be between 1 and 100")
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsTenantNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound)
}

func IsTenantInactive(err error) bool {
	return errors.Is(err, ErrTenantInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsPlanNotFound(err error) bool {
	return errors.Is(err, ErrPlanNotFound)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

func IsCannotDeactivateSelf(err error) bool {
	return errors.Is(err, ErrCannotDeactivateSelf)
}

func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

func IsLeadConflict(err error) bool {
	return errors.Is(err, ErrLeadConflict)
}

func IsLeadNotOwned(err error) bool {
	return errors.Is(err, ErrLeadNotOwned)
}

func IsLeadTerminal(err error) bool {
	return errors.Is(err, ErrLeadTerminal)
}

func IsLeadNameRequired(err error) bool {
	return errors.Is(err, ErrLeadNameRequired)
}

func IsLossReasonRequired(err error) bool {
	return errors.Is(err, ErrLossReasonRequired)
}

func IsImportFileTooLarge(err error) bool {
	return errors.Is(err, ErrImportFileTooLarge)
}

func IsImportFileUnreadable(err error) bool {
	return errors.Is(err, ErrImportFileUnreadable)
}

func IsImportTooManyRows(err error) bool {
	return errors.Is(err, ErrImportTooManyRows)
}

func IsImportNoRows(err error) bool {
	return errors.Is(err, ErrImportNoRows)
}

func IsContactNotFound(err error) bool {
	return errors.Is(err, ErrContactNotFound)
}

func IsCompanyNotFound(err error) bool {
	return errors.Is(err, ErrCompanyNotFound)
}

func IsDealNotFound(err error) bool {
	return errors.Is(err, ErrDealNotFound)
}

func IsDealClosed(err error) bool {
	return errors.Is(err, ErrDealClosed)
}

func IsInvalidDealStage(err error) bool {
	return errors.Is(err, ErrInvalidDealStage)
}

func IsProposalNotFound(err error) bool {
	return errors.Is(err, ErrProposalNotFound)
}

func IsProposalConflict(err error) bool {
	return errors.Is(err, ErrProposalConflict)
}

func IsInvalidProposalStatus(err error) bool {
	return errors.Is(err, ErrInvalidProposalStatus)
}

func IsTaskNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound)
}

func IsTaskConflict(err error) bool {
	return errors.Is(err, ErrTaskConflict)
}

func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

func IsNotificationNotFound(err error) bool {
	return errors.Is(err, ErrNotificationNotFound)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}

func IsStartDateAfterEndDate(err error) bool {
	return errors.Is(err, ErrStartDateAfterEndDate)
}
