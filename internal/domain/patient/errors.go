package patient

import "errors"

var (
	ErrPatientNotFound    = errors.New("patient not found")
	ErrProfileExists      = errors.New("a patient profile already exists for this account")
	ErrPatientDeceased    = errors.New("operation not permitted: patient is deceased")
	ErrInvalidGender      = errors.New("invalid gender value")
	ErrInvalidDateOfBirth = errors.New("date of birth cannot be in the future")
)
