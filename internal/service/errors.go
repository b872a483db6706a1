package service

import "errors"

var (
	ErrPersistFailed   = errors.New("failed to save changes")
	ErrNoStaffAssigned = errors.New("no coach or trainer assigned")
	ErrProfileNotFound = errors.New("profile not found")
	ErrApprovalPending = errors.New("account is awaiting coach approval")
	ErrInjuryNotFound  = errors.New("injury not found")
	ErrNotConfirmed    = errors.New("record has not been saved yet")
	ErrAccessDenied    = errors.New("access denied")
	ErrInvalidInput    = errors.New("invalid input")
	ErrSessionClosed   = errors.New("session closed")
)
