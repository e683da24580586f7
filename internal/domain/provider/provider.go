package provider

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/google/uuid"
)

type Provider struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	domain.Archival

	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_providers_user_id" json:"user_id"`

	Specialty         string `gorm:"column:specialty;type:varchar(100);not null;index" json:"specialty"`
	LicenseNumber     string `gorm:"column:license_number;type:varchar(50);not null;uniqueIndex:idx_providers_license_number" json:"license_number"`
	Credentials       string `gorm:"column:credentials;type:varchar(20)" json:"credentials,omitempty"`
	YearsOfExperience *int   `gorm:"column:years_of_experience" json:"years_of_experience,omitempty"`

	AcceptingNewPatients bool `gorm:"column:accepting_new_patients;not null;default:true;index" json:"accepting_new_patients"`

	LanguagesSpoken    []string `gorm:"column:languages_spoken;type:jsonb;serializer:json" json:"languages_spoken"`
	AcceptedInsurances []string `gorm:"column:accepted_insurances;type:jsonb;serializer:json" json:"accepted_insurances"`
	Certifications     []string `gorm:"column:certifications;type:jsonb;serializer:json" json:"certifications"`
}

func (Provider) TableName() string {
	return "clinical.providers"
}

// Profile holds the provider fields shared by register and create.
type Profile struct {
	Specialty            string
	LicenseNumber        string
	Credentials          string
	YearsOfExperience    *int
	AcceptingNewPatients bool
	LanguagesSpoken      []string
	AcceptedInsurances   []string
	Certifications       []string
}

// RegisterProviderCommand creates the user account and the provider profile together.
type RegisterProviderCommand struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
	Profile
}

// CreateProviderCommand attaches a provider profile to an existing user.
type CreateProviderCommand struct {
	UserID uuid.UUID
	Profile
}

type UpdateProviderCommand struct {
	Specialty            *string
	LicenseNumber        *string
	Credentials          *string
	YearsOfExperience    *int
	AcceptingNewPatients *bool
	LanguagesSpoken      *[]string
	AcceptedInsurances   *[]string
	Certifications       *[]string
}

type ListProvidersQuery struct {
	Specialty            string
	AcceptingNewPatients *bool
	Page                 int
	PageSize             int
}

type PagedProviders struct {
	Providers  []*Provider
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
