package patient

import "errors"

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPatientAlreadyExists = errors.New("patient profile already exists for this user")
	ErrInvalidDateOfBirth   = errors.New("date of birth cannot be in the future")
	ErrDateOfBirthRequired  = errors.New("date of birth is required")
)
