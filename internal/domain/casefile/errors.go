package casefile

import "errors"

var (
	ErrRecordNotFound     = errors.New("case record not found")
	ErrRecordImmutable    = errors.New("case records cannot be modified; use addenda")
	ErrInvalidRecordType  = errors.New("invalid case record type")
	ErrFileNotFound       = errors.New("medical file not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrContentTypeDenied  = errors.New("content type is not allowed")
	ErrFileNameRequired   = errors.New("file name is required")
	ErrAssessmentNotFound = errors.New("risk assessment not found")
)
