package appointment

import (
	"slices"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/google/uuid"
)

const (
	MinDurationMins = 5
	MaxDurationMins = 480
)

type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeFollowUp     AppointmentType = "follow_up"
	TypeEmergency    AppointmentType = "emergency"
	TypeTelemedicine AppointmentType = "telemedicine"
)

func (t AppointmentType) IsValid() bool {
	switch t {
	case TypeConsultation, TypeFollowUp, TypeEmergency, TypeTelemedicine:
		return true
	}
	return false
}

// State transitions possibilities:
//
//	scheduled → confirmed → completed
//	scheduled → cancelled
//	confirmed → cancelled
//	confirmed → no_show (if patient doesn't arrive)
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled: {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

// Statuses lists every known status in lifecycle order.
var Statuses = []AppointmentStatus{StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}

func (s AppointmentStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

func (s AppointmentStatus) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// BlocksSlot reports whether an appointment in this status occupies its
// provider's time slot.
func (s AppointmentStatus) BlocksSlot() bool {
	return s != StatusCancelled && s != StatusNoShow
}

type Symptom struct {
	ICD10    string `json:"icd10,omitempty"`
	Name     string `json:"name"`
	Severity string `json:"severity,omitempty"`
}

type Diagnosis struct {
	ICD10 string `json:"icd10,omitempty"`
	Name  string `json:"name"`
}

type Cancellation struct {
	CanceledBy string `json:"canceled_by"`
	Reason     string `json:"reason,omitempty"`
}

type Appointment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	domain.Archival

	PatientID  uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	ProviderID uuid.UUID `gorm:"column:provider_id;type:uuid;not null;index" json:"provider_id"`

	ScheduledAt  time.Time         `gorm:"column:appointment_datetime;not null;index" json:"appointment_datetime"`
	DurationMins int               `gorm:"column:duration;not null;default:30" json:"duration"`
	Status       AppointmentStatus `gorm:"column:status;type:varchar(30);not null;default:'scheduled';index" json:"status"`
	Type         *AppointmentType  `gorm:"column:type;type:varchar(50)" json:"type,omitempty"`

	ChiefComplaint string `gorm:"column:chief_complaint;type:text" json:"chief_complaint,omitempty"`
	Notes          string `gorm:"column:notes;type:text" json:"notes,omitempty"`

	Symptoms  []Symptom   `gorm:"column:symptoms;type:jsonb;serializer:json" json:"symptoms"`
	Diagnoses []Diagnosis `gorm:"column:diagnosis;type:jsonb;serializer:json" json:"diagnosis"`

	Cancellation *Cancellation `gorm:"column:canceled_by_and_why;type:jsonb;serializer:json" json:"canceled_by_and_why,omitempty"`
}

func (Appointment) TableName() string {
	return "clinical.appointments"
}

// NormalizeInstant brings an instant to the precision PostgreSQL stores so
// that equality checks agree with what is persisted.
func NormalizeInstant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func ValidDuration(mins int) bool {
	return mins >= MinDurationMins && mins <= MaxDurationMins
}

func (a *Appointment) EndsAt() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMins) * time.Minute)
}

func (a *Appointment) CanTransitionTo(newStatus AppointmentStatus) bool {
	return slices.Contains(transitions[a.Status], newStatus)
}

// TransitionTo moves the appointment to newStatus or returns a *TransitionError.
func (a *Appointment) TransitionTo(newStatus AppointmentStatus) error {
	if !a.CanTransitionTo(newStatus) {
		return &TransitionError{From: a.Status, To: newStatus}
	}
	a.Status = newStatus
	return nil
}

func (a *Appointment) Cancel(canceledBy, reason string) error {
	if err := a.TransitionTo(StatusCancelled); err != nil {
		return err
	}
	a.Cancellation = &Cancellation{CanceledBy: canceledBy, Reason: reason}
	return nil
}

func (a *Appointment) Confirm() error {
	return a.TransitionTo(StatusConfirmed)
}

func (a *Appointment) Complete() error {
	return a.TransitionTo(StatusCompleted)
}

func (a *Appointment) MarkNoShow() error {
	return a.TransitionTo(StatusNoShow)
}

type CreateAppointmentCommand struct {
	PatientID      uuid.UUID
	ProviderID     uuid.UUID
	ScheduledAt    time.Time
	DurationMins   int
	Type           *AppointmentType
	ChiefComplaint string
	Notes          string
	Symptoms       []Symptom
}

type UpdateAppointmentCommand struct {
	Status         *AppointmentStatus
	ScheduledAt    *time.Time
	DurationMins   *int
	Type           *AppointmentType
	ChiefComplaint *string
	Notes          *string
	Symptoms       *[]Symptom
	Diagnoses      *[]Diagnosis
	Cancellation   *Cancellation
}

type CancelAppointmentCommand struct {
	CanceledBy string
	Reason     string
}

type ListAppointmentsQuery struct {
	PatientID  *uuid.UUID
	ProviderID *uuid.UUID
	Status     *AppointmentStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}

// UpcomingQuery selects scheduled or confirmed appointments starting at or
// after From for exactly one of PatientID / ProviderID.
type UpcomingQuery struct {
	PatientID  *uuid.UUID
	ProviderID *uuid.UUID
	From       time.Time
}

type PagedAppointments struct {
	Appointments []*Appointment
	TotalCount   int64
	Page         int
	PageSize     int
	TotalPages   int
}
