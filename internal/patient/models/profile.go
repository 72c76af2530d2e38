package models

import (
	"strings"
	"time"

	"cardiotrack/pkg/platform/validation"
)

// Gender is restricted to the two values the screening form offers.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// Profile is a patient identity. PatientID is the caller-facing identifier;
// it is unique across profiles and never changes after creation.
type Profile struct {
	ID          int64     `json:"id"`
	PatientID   string    `json:"patient_id"`
	Name        string    `json:"name"`
	DateOfBirth string    `json:"date_of_birth"`
	Gender      Gender    `json:"gender"`
	Phone       string    `json:"phone"`
	Email       *string   `json:"email,omitempty"`
	Address     *string   `json:"address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProfileInput carries the fields a caller supplies to create a profile.
type ProfileInput struct {
	PatientID   string  `json:"patient_id" validate:"required,min=3,max=50"`
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	DateOfBirth string  `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Gender      string  `json:"gender" validate:"required,oneof=Male Female"`
	Phone       string  `json:"phone" validate:"required,min=10,max=20"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Address     *string `json:"address,omitempty"`
}

// Normalize trims whitespace and drops blank optional fields.
func (in *ProfileInput) Normalize() {
	in.PatientID = strings.TrimSpace(in.PatientID)
	in.Name = strings.TrimSpace(in.Name)
	in.DateOfBirth = strings.TrimSpace(in.DateOfBirth)
	in.Gender = strings.TrimSpace(in.Gender)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = trimOptional(in.Email)
	in.Address = trimOptional(in.Address)
}

func (in *ProfileInput) Validate() error {
	return validation.Struct(in)
}

// NewProfile builds an unsaved profile from validated input. The store
// assigns the id and timestamps.
func NewProfile(in ProfileInput) *Profile {
	return &Profile{
		PatientID:   in.PatientID,
		Name:        in.Name,
		DateOfBirth: in.DateOfBirth,
		Gender:      Gender(in.Gender),
		Phone:       in.Phone,
		Email:       in.Email,
		Address:     in.Address,
	}
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
