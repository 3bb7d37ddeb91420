package doctor

import "errors"

var (
	ErrDoctorNotFound        = errors.New("doctor not found")
	ErrProfileExists         = errors.New("a doctor profile already exists for this account")
	ErrLicenseExists         = errors.New("a doctor with this license number already exists")
	ErrInvalidSpecialization = errors.New("invalid specialization")
)
