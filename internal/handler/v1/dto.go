package v1

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/provider"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// ---- auth ----

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ---- users ----

type accountRequest struct {
	Email       string `json:"email" binding:"required,email,max=255"`
	Password    string `json:"password" binding:"required"`
	FirstName   string `json:"first_name" binding:"required,max=100"`
	LastName    string `json:"last_name" binding:"required,max=100"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,max=20"`
}

type createUserRequest struct {
	accountRequest
	Role domain.Role `json:"role" binding:"required,oneof=admin provider patient"`
}

type updateUserRequest struct {
	Email       *string `json:"email" binding:"omitempty,email,max=255"`
	FirstName   *string `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName    *string `json:"last_name" binding:"omitempty,min=1,max=100"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,max=20"`
	Password    *string `json:"password"`
	IsActive    *bool   `json:"is_active"`
}

// ---- patients ----

type conditionRequest struct {
	ICD10 string `json:"icd10" binding:"omitempty,icd10"`
	Name  string `json:"name" binding:"required"`
}

type patientProfileRequest struct {
	DateOfBirth           string                    `json:"date_of_birth" binding:"required,datetime=2006-01-02"`
	Gender                string                    `json:"gender" binding:"omitempty,max=20"`
	BloodType             string                    `json:"blood_type" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	AddressLine1          string                    `json:"address_line1" binding:"omitempty,max=200"`
	AddressLine2          string                    `json:"address_line2" binding:"omitempty,max=200"`
	City                  string                    `json:"city" binding:"omitempty,max=100"`
	PostalCode            string                    `json:"postal_code" binding:"omitempty,max=20"`
	Country               string                    `json:"country" binding:"omitempty,max=100"`
	InsuranceProvider     string                    `json:"insurance_provider" binding:"omitempty,max=100"`
	InsurancePolicyNumber string                    `json:"insurance_policy_number" binding:"omitempty,max=50"`
	Allergies             []patient.Allergy         `json:"allergies"`
	ChronicConditions     []conditionRequest        `json:"chronic_conditions" binding:"dive"`
	Medications           []patient.Medication      `json:"medications"`
	EmergencyContact      *patient.EmergencyContact `json:"emergency_contact"`
}

func (r *patientProfileRequest) toProfile() patient.Profile {
	dob, _ := time.Parse(dateLayout, r.DateOfBirth)
	return patient.Profile{
		DateOfBirth: dob,
		Gender:      r.Gender,
		BloodType:   r.BloodType,
		Address: patient.Address{
			AddressLine1: r.AddressLine1,
			AddressLine2: r.AddressLine2,
			City:         r.City,
			PostalCode:   r.PostalCode,
			Country:      r.Country,
		},
		Insurance: patient.Insurance{
			InsuranceProvider:     r.InsuranceProvider,
			InsurancePolicyNumber: r.InsurancePolicyNumber,
		},
		Allergies:         r.Allergies,
		ChronicConditions: toConditions(r.ChronicConditions),
		Medications:       r.Medications,
		EmergencyContact:  r.EmergencyContact,
	}
}

func toConditions(in []conditionRequest) []patient.ChronicCondition {
	if in == nil {
		return nil
	}
	out := make([]patient.ChronicCondition, len(in))
	for i, c := range in {
		out[i] = patient.ChronicCondition{ICD10: c.ICD10, Name: c.Name}
	}
	return out
}

type registerPatientRequest struct {
	accountRequest
	patientProfileRequest
}

type createPatientRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	patientProfileRequest
}

type updatePatientRequest struct {
	DateOfBirth           *string                   `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Gender                *string                   `json:"gender" binding:"omitempty,max=20"`
	BloodType             *string                   `json:"blood_type" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	AddressLine1          *string                   `json:"address_line1" binding:"omitempty,max=200"`
	AddressLine2          *string                   `json:"address_line2" binding:"omitempty,max=200"`
	City                  *string                   `json:"city" binding:"omitempty,max=100"`
	PostalCode            *string                   `json:"postal_code" binding:"omitempty,max=20"`
	Country               *string                   `json:"country" binding:"omitempty,max=100"`
	InsuranceProvider     *string                   `json:"insurance_provider" binding:"omitempty,max=100"`
	InsurancePolicyNumber *string                   `json:"insurance_policy_number" binding:"omitempty,max=50"`
	Allergies             *[]patient.Allergy        `json:"allergies"`
	ChronicConditions     *[]conditionRequest       `json:"chronic_conditions" binding:"omitempty,dive"`
	Medications           *[]patient.Medication     `json:"medications"`
	EmergencyContact      *patient.EmergencyContact `json:"emergency_contact"`
}

func (r *updatePatientRequest) toCommand() *patient.UpdatePatientCommand {
	cmd := &patient.UpdatePatientCommand{
		Gender:                r.Gender,
		BloodType:             r.BloodType,
		AddressLine1:          r.AddressLine1,
		AddressLine2:          r.AddressLine2,
		City:                  r.City,
		PostalCode:            r.PostalCode,
		Country:               r.Country,
		InsuranceProvider:     r.InsuranceProvider,
		InsurancePolicyNumber: r.InsurancePolicyNumber,
		Allergies:             r.Allergies,
		Medications:           r.Medications,
		EmergencyContact:      r.EmergencyContact,
	}
	if r.DateOfBirth != nil {
		dob, _ := time.Parse(dateLayout, *r.DateOfBirth)
		cmd.DateOfBirth = &dob
	}
	if r.ChronicConditions != nil {
		conditions := toConditions(*r.ChronicConditions)
		if conditions == nil {
			conditions = []patient.ChronicCondition{}
		}
		cmd.ChronicConditions = &conditions
	}
	return cmd
}

// ---- providers ----

type providerProfileRequest struct {
	Specialty            string   `json:"specialty" binding:"required,max=100"`
	LicenseNumber        string   `json:"license_number" binding:"required,max=50"`
	Credentials          string   `json:"credentials" binding:"omitempty,max=20"`
	YearsOfExperience    *int     `json:"years_of_experience"`
	AcceptingNewPatients *bool    `json:"accepting_new_patients"`
	LanguagesSpoken      []string `json:"languages_spoken"`
	AcceptedInsurances   []string `json:"accepted_insurances"`
	Certifications       []string `json:"certifications"`
}

func (r *providerProfileRequest) toProfile() provider.Profile {
	accepting := true
	if r.AcceptingNewPatients != nil {
		accepting = *r.AcceptingNewPatients
	}
	return provider.Profile{
		Specialty:            r.Specialty,
		LicenseNumber:        r.LicenseNumber,
		Credentials:          r.Credentials,
		YearsOfExperience:    r.YearsOfExperience,
		AcceptingNewPatients: accepting,
		LanguagesSpoken:      r.LanguagesSpoken,
		AcceptedInsurances:   r.AcceptedInsurances,
		Certifications:       r.Certifications,
	}
}

type registerProviderRequest struct {
	accountRequest
	providerProfileRequest
}

type createProviderRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	providerProfileRequest
}

type updateProviderRequest struct {
	Specialty            *string   `json:"specialty" binding:"omitempty,min=1,max=100"`
	LicenseNumber        *string   `json:"license_number" binding:"omitempty,min=1,max=50"`
	Credentials          *string   `json:"credentials" binding:"omitempty,max=20"`
	YearsOfExperience    *int      `json:"years_of_experience"`
	AcceptingNewPatients *bool     `json:"accepting_new_patients"`
	LanguagesSpoken      *[]string `json:"languages_spoken"`
	AcceptedInsurances   *[]string `json:"accepted_insurances"`
	Certifications       *[]string `json:"certifications"`
}

func (r *updateProviderRequest) toCommand() *provider.UpdateProviderCommand {
	return &provider.UpdateProviderCommand{
		Specialty:            r.Specialty,
		LicenseNumber:        r.LicenseNumber,
		Credentials:          r.Credentials,
		YearsOfExperience:    r.YearsOfExperience,
		AcceptingNewPatients: r.AcceptingNewPatients,
		LanguagesSpoken:      r.LanguagesSpoken,
		AcceptedInsurances:   r.AcceptedInsurances,
		Certifications:       r.Certifications,
	}
}

// ---- appointments ----

type symptomRequest struct {
	ICD10    string `json:"icd10" binding:"omitempty,icd10"`
	Name     string `json:"name" binding:"required"`
	Severity string `json:"severity" binding:"omitempty,oneof=mild moderate severe"`
}

type diagnosisRequest struct {
	ICD10 string `json:"icd10" binding:"omitempty,icd10"`
	Name  string `json:"name" binding:"required"`
}

func toSymptoms(in []symptomRequest) []appointment.Symptom {
	if in == nil {
		return nil
	}
	out := make([]appointment.Symptom, len(in))
	for i, s := range in {
		out[i] = appointment.Symptom{ICD10: s.ICD10, Name: s.Name, Severity: s.Severity}
	}
	return out
}

func toDiagnoses(in []diagnosisRequest) []appointment.Diagnosis {
	out := make([]appointment.Diagnosis, len(in))
	for i, d := range in {
		out[i] = appointment.Diagnosis{ICD10: d.ICD10, Name: d.Name}
	}
	return out
}

type createAppointmentRequest struct {
	PatientID      uuid.UUID                    `json:"patient_id" binding:"required"`
	ProviderID     uuid.UUID                    `json:"provider_id" binding:"required"`
	ScheduledAt    time.Time                    `json:"appointment_datetime" binding:"required"`
	DurationMins   *int                         `json:"duration"`
	Type           *appointment.AppointmentType `json:"type"`
	ChiefComplaint string                       `json:"chief_complaint"`
	Notes          string                       `json:"notes"`
	Symptoms       []symptomRequest             `json:"symptoms" binding:"dive"`
}

func (r *createAppointmentRequest) toCommand() *appointment.CreateAppointmentCommand {
	duration := 30
	if r.DurationMins != nil {
		duration = *r.DurationMins
	}
	return &appointment.CreateAppointmentCommand{
		PatientID:      r.PatientID,
		ProviderID:     r.ProviderID,
		ScheduledAt:    r.ScheduledAt,
		DurationMins:   duration,
		Type:           r.Type,
		ChiefComplaint: r.ChiefComplaint,
		Notes:          r.Notes,
		Symptoms:       toSymptoms(r.Symptoms),
	}
}

type cancellationRequest struct {
	CanceledBy string `json:"canceled_by" binding:"required,max=50"`
	Reason     string `json:"reason" binding:"max=500"`
}

type updateAppointmentRequest struct {
	Status         *appointment.AppointmentStatus `json:"status"`
	ScheduledAt    *time.Time                     `json:"appointment_datetime"`
	DurationMins   *int                           `json:"duration"`
	Type           *appointment.AppointmentType   `json:"type"`
	ChiefComplaint *string                        `json:"chief_complaint"`
	Notes          *string                        `json:"notes"`
	Symptoms       *[]symptomRequest              `json:"symptoms" binding:"omitempty,dive"`
	Diagnoses      *[]diagnosisRequest            `json:"diagnosis" binding:"omitempty,dive"`
	Cancellation   *cancellationRequest           `json:"canceled_by_and_why"`
}

func (r *updateAppointmentRequest) toCommand() *appointment.UpdateAppointmentCommand {
	cmd := &appointment.UpdateAppointmentCommand{
		Status:         r.Status,
		ScheduledAt:    r.ScheduledAt,
		DurationMins:   r.DurationMins,
		Type:           r.Type,
		ChiefComplaint: r.ChiefComplaint,
		Notes:          r.Notes,
	}
	if r.Symptoms != nil {
		s := toSymptoms(*r.Symptoms)
		if s == nil {
			s = []appointment.Symptom{}
		}
		cmd.Symptoms = &s
	}
	if r.Diagnoses != nil {
		d := toDiagnoses(*r.Diagnoses)
		cmd.Diagnoses = &d
	}
	if r.Cancellation != nil {
		cmd.Cancellation = &appointment.Cancellation{
			CanceledBy: r.Cancellation.CanceledBy,
			Reason:     r.Cancellation.Reason,
		}
	}
	return cmd
}

type cancelAppointmentRequest struct {
	CanceledBy string `json:"canceled_by" binding:"required,max=50"`
	Reason     string `json:"reason" binding:"max=500"`
}
