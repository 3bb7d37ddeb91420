package request

import "errors"

var (
	ErrRequestNotFound         = errors.New("doctor request not found")
	ErrInvalidStatusTransition = errors.New("invalid request status transition")
	ErrInvalidStatus           = errors.New("invalid request status")
	ErrProposedSlotRequired    = errors.New("a proposed slot is required when rescheduling")
	ErrDuplicatePending        = errors.New("a pending request to this doctor already exists")
)
