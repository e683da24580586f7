package provider

import "errors"

var (
	ErrProviderNotFound         = errors.New("provider not found")
	ErrProviderAlreadyExists    = errors.New("provider profile already exists for this user")
	ErrLicenseAlreadyExists     = errors.New("license number already registered")
	ErrNotAcceptingPatients     = errors.New("provider is not accepting new patients")
	ErrInvalidYearsOfExperience = errors.New("years of experience cannot be negative")
)
