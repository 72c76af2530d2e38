package models

import (
	"strings"

	dErrors "cardiotrack/pkg/domain-errors"
	"cardiotrack/pkg/platform/validation"
)

// Reference identifies the patient an assessment is for: either an existing
// profile by PatientID or a new one described inline. Exactly one is set.
type Reference struct {
	PatientID   *string
	ProfileData *ProfileInput
}

// Validate checks the reference shape and, for inline data, the profile fields.
// Inline field failures are reported under "profile_data.".
func (r *Reference) Validate() error {
	hasID := r.PatientID != nil && strings.TrimSpace(*r.PatientID) != ""
	hasData := r.ProfileData != nil
	switch {
	case hasID && hasData:
		return dErrors.Validation([]string{"patient_id", "profile_data"},
			"Provide either patient_id or profile_data, not both")
	case !hasID && !hasData:
		return dErrors.Validation([]string{"patient_id", "profile_data"},
			"Either patient_id or profile_data must be provided")
	case hasData:
		r.ProfileData.Normalize()
		return validation.StructAt("profile_data", r.ProfileData)
	default:
		trimmed := strings.TrimSpace(*r.PatientID)
		r.PatientID = &trimmed
		return nil
	}
}

// ResolutionKind tags how a Reference was satisfied.
type ResolutionKind int

const (
	ResolutionExisting ResolutionKind = iota + 1
	ResolutionCreated
)

// Resolution is the outcome of resolving a Reference.
type Resolution struct {
	Kind    ResolutionKind
	Profile *Profile
}

// IsNew reports whether the profile was created by this resolution.
func (r Resolution) IsNew() bool {
	return r.Kind == ResolutionCreated
}

// ProfileSummary is a profile with the number of records it owns.
type ProfileSummary struct {
	*Profile
	TotalPredictions int `json:"total_predictions"`
}
