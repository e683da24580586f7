package patient

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/google/uuid"
)

type Allergy struct {
	Name     string `json:"name"`
	Severity string `json:"severity,omitempty"`
}

type ChronicCondition struct {
	ICD10 string `json:"icd10,omitempty"`
	Name  string `json:"name"`
}

type Medication struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage,omitempty"`
}

type EmergencyContact struct {
	Name         string `json:"name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

type Address struct {
	AddressLine1 string `gorm:"column:address_line1;type:varchar(200)" json:"address_line1,omitempty"`
	AddressLine2 string `gorm:"column:address_line2;type:varchar(200)" json:"address_line2,omitempty"`
	City         string `gorm:"column:city;type:varchar(100)" json:"city,omitempty"`
	PostalCode   string `gorm:"column:postal_code;type:varchar(20)" json:"postal_code,omitempty"`
	Country      string `gorm:"column:country;type:varchar(100)" json:"country,omitempty"`
}

type Insurance struct {
	InsuranceProvider     string `gorm:"column:insurance_provider;type:varchar(100)" json:"insurance_provider,omitempty"`
	InsurancePolicyNumber string `gorm:"column:insurance_policy_number;type:varchar(50)" json:"insurance_policy_number,omitempty"`
}

type Patient struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	domain.Archival

	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_patients_user_id" json:"user_id"`

	DateOfBirth time.Time `gorm:"column:date_of_birth;type:date;not null;index" json:"date_of_birth"`
	Gender      string    `gorm:"column:gender;type:varchar(20)" json:"gender,omitempty"`
	BloodType   string    `gorm:"column:blood_type;type:varchar(5)" json:"blood_type,omitempty"`

	Address
	Insurance

	Allergies         []Allergy          `gorm:"column:allergies;type:jsonb;serializer:json" json:"allergies"`
	ChronicConditions []ChronicCondition `gorm:"column:chronic_conditions;type:jsonb;serializer:json" json:"chronic_conditions"`
	Medications       []Medication       `gorm:"column:medications;type:jsonb;serializer:json" json:"medications"`
	EmergencyContact  *EmergencyContact  `gorm:"column:emergency_contact;type:jsonb;serializer:json" json:"emergency_contact,omitempty"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

func (p *Patient) Age() int {
	now := time.Now()
	years := now.Year() - p.DateOfBirth.Year()
	if now.Month() < p.DateOfBirth.Month() ||
		(now.Month() == p.DateOfBirth.Month() && now.Day() < p.DateOfBirth.Day()) {
		years--
	}
	return years
}

// Profile holds the patient fields shared by register and create.
type Profile struct {
	DateOfBirth       time.Time
	Gender            string
	BloodType         string
	Address           Address
	Insurance         Insurance
	Allergies         []Allergy
	ChronicConditions []ChronicCondition
	Medications       []Medication
	EmergencyContact  *EmergencyContact
}

// RegisterPatientCommand creates the user account and the patient profile together.
type RegisterPatientCommand struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
	Profile
}

// CreatePatientCommand attaches a patient profile to an existing user.
type CreatePatientCommand struct {
	UserID uuid.UUID
	Profile
}

type UpdatePatientCommand struct {
	DateOfBirth           *time.Time
	Gender                *string
	BloodType             *string
	AddressLine1          *string
	AddressLine2          *string
	City                  *string
	PostalCode            *string
	Country               *string
	InsuranceProvider     *string
	InsurancePolicyNumber *string
	Allergies             *[]Allergy
	ChronicConditions     *[]ChronicCondition
	Medications           *[]Medication
	EmergencyContact      *EmergencyContact
}

// ListPatientsQuery defines pagination for patient list queries.
type ListPatientsQuery struct {
	Page     int
	PageSize int
}

type PagedPatients struct {
	Patients   []*Patient
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
