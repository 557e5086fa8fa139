package domain

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus tracks where a company's verification application sits.
type ApplicationStatus string

// Known application statuses.
const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationVerified ApplicationStatus = "verified"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Application is a company's request to be verified and issue a carbon token.
type Application struct {
	ID                 uuid.UUID         `json:"application_id"`
	CompanyName        string            `json:"company_name"`
	IndustryType       string            `json:"industry_type"`
	CompanyScale       string            `json:"company_scale"`
	RegistrationNumber string            `json:"registration_number,omitempty"`
	EmissionBaseline   float64           `json:"emission_baseline"`
	Documents          []string          `json:"documents,omitempty"`
	Status             ApplicationStatus `json:"status"`
	Score              float64           `json:"validation_score"`
	RejectionReason    string            `json:"rejection_reason,omitempty"`
	SubmittedAt        time.Time         `json:"submitted_at"`
	DecidedAt          *time.Time        `json:"decided_at,omitempty"`
}

// NewApplication creates a pending application.
func NewApplication(
	companyName, industryType, companyScale, registrationNumber string,
	emissionBaseline float64,
) (*Application, error) {
	app := &Application{
		ID:                 uuid.New(),
		CompanyName:        companyName,
		IndustryType:       industryType,
		CompanyScale:       companyScale,
		RegistrationNumber: registrationNumber,
		EmissionBaseline:   emissionBaseline,
		Status:             ApplicationPending,
		SubmittedAt:        time.Now().UTC(),
	}

	if err := app.Validate(); err != nil {
		return nil, err
	}

	return app, nil
}

// Validate checks the application carries the required fields.
func (a *Application) Validate() error {
	if a.CompanyName == "" {
		return ErrEmptyCompanyName
	}
	if a.EmissionBaseline < 0 {
		return ErrInvalidBaseline
	}
	return nil
}
