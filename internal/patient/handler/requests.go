package handler

import "cardiotrack/internal/patient/models"

// CreateProfileRequest is the body of POST /profiles/create.
type CreateProfileRequest models.ProfileInput

func (r *CreateProfileRequest) Normalize() {
	(*models.ProfileInput)(r).Normalize()
}

func (r *CreateProfileRequest) Validate() error {
	return (*models.ProfileInput)(r).Validate()
}
