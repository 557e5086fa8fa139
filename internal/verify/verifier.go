// Package verify scores company verification applications and decides
// whether a company may issue a carbon token.
package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/platform/objectstore"
	"github.com/carboncoin/carboncoin-api/internal/store"
)

// Verification errors.
var (
	ErrAlreadyDecided  = errors.New("application has already been decided")
	ErrUnknownCriteria = errors.New("unknown verification criteria")
)

// DefaultThreshold is the minimum weighted score for approval.
const DefaultThreshold = 70.0

// Criteria names recognized by the reviewer.
const (
	CriteriaRegistrationDocs  = "registration_docs"
	CriteriaEmissionReports   = "emission_reports"
	CriteriaFinancialStatus   = "financial_status"
	CriteriaIoTInfrastructure = "iot_infrastructure"
	CriteriaReputationScore   = "reputation_score"
)

// criteriaWeights assigns the relative importance of each review criterion.
// The weights sum to 1.0.
var criteriaWeights = map[string]float64{
	CriteriaRegistrationDocs:  0.30,
	CriteriaEmissionReports:   0.25,
	CriteriaFinancialStatus:   0.20,
	CriteriaIoTInfrastructure: 0.15,
	CriteriaReputationScore:   0.10,
}

// autoScores are the per-criterion scores used when an administrator
// approves an application without a manual review.
var autoScores = map[string]float64{
	CriteriaRegistrationDocs:  85,
	CriteriaEmissionReports:   80,
	CriteriaFinancialStatus:   75,
	CriteriaIoTInfrastructure: 70,
	CriteriaReputationScore:   90,
}

// Verifier manages the application lifecycle: submission, document upload,
// scoring and the final decision.
type Verifier struct {
	apps      store.ApplicationStore
	docs      objectstore.DocumentStore
	threshold float64
	logger    *slog.Logger
}

// NewVerifier creates a verifier with the default approval threshold.
// The document store may be nil when uploads are disabled.
func NewVerifier(apps store.ApplicationStore, docs objectstore.DocumentStore, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		apps:      apps,
		docs:      docs,
		threshold: DefaultThreshold,
		logger:    logger.With(slog.String("component", "verifier")),
	}
}

// Submit records a new pending application.
func (v *Verifier) Submit(
	ctx context.Context,
	companyName, industryType, companyScale, registrationNumber string,
	emissionBaseline float64,
) (*domain.Application, error) {
	app, err := domain.NewApplication(companyName, industryType, companyScale, registrationNumber, emissionBaseline)
	if err != nil {
		return nil, err
	}

	if err := v.apps.Create(ctx, app); err != nil {
		return nil, fmt.Errorf("save application: %w", err)
	}

	v.logger.Info("application submitted",
		slog.String("application_id", app.ID.String()),
		slog.String("company_name", app.CompanyName))

	return app, nil
}

// AttachDocument uploads a supporting document and links it to the
// application. Decided applications no longer accept documents.
func (v *Verifier) AttachDocument(
	ctx context.Context,
	applicationID uuid.UUID,
	filename string,
	r io.Reader,
	size int64,
	contentType string,
) (*domain.Application, error) {
	app, err := v.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.ApplicationPending {
		return nil, ErrAlreadyDecided
	}

	key, err := v.docs.Put(ctx, app.CompanyName, filename, r, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}

	app.Documents = append(app.Documents, key)
	if err := v.apps.Update(ctx, app); err != nil {
		return nil, fmt.Errorf("link document: %w", err)
	}

	return app, nil
}

// Review scores a pending application against the weighted criteria and
// decides it. Scores are on a 0-100 scale; missing criteria score zero.
func (v *Verifier) Review(ctx context.Context, applicationID uuid.UUID, scores map[string]float64) (*domain.Application, error) {
	for name := range scores {
		if _, ok := criteriaWeights[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCriteria, name)
		}
	}

	app, err := v.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.ApplicationPending {
		return nil, ErrAlreadyDecided
	}

	total := Score(scores)
	now := time.Now().UTC()
	app.Score = total
	app.DecidedAt = &now

	if total >= v.threshold {
		app.Status = domain.ApplicationVerified
	} else {
		app.Status = domain.ApplicationRejected
		app.RejectionReason = fmt.Sprintf("validation score %.2f below required %.0f", total, v.threshold)
	}

	if err := v.apps.Update(ctx, app); err != nil {
		return nil, fmt.Errorf("save decision: %w", err)
	}

	v.logger.Info("application reviewed",
		slog.String("application_id", app.ID.String()),
		slog.Float64("score", total),
		slog.String("status", string(app.Status)))

	return app, nil
}

// AutoApprove reviews an application with the standard automated scores.
func (v *Verifier) AutoApprove(ctx context.Context, applicationID uuid.UUID) (*domain.Application, error) {
	return v.Review(ctx, applicationID, autoScores)
}

// Reject declines a pending application without scoring it.
func (v *Verifier) Reject(ctx context.Context, applicationID uuid.UUID, reason string) (*domain.Application, error) {
	app, err := v.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.ApplicationPending {
		return nil, ErrAlreadyDecided
	}

	now := time.Now().UTC()
	app.Status = domain.ApplicationRejected
	app.RejectionReason = reason
	app.DecidedAt = &now

	if err := v.apps.Update(ctx, app); err != nil {
		return nil, fmt.Errorf("save decision: %w", err)
	}

	return app, nil
}

// Pending lists applications awaiting a decision, oldest first.
func (v *Verifier) Pending(ctx context.Context) ([]*domain.Application, error) {
	return v.apps.ListByStatus(ctx, domain.ApplicationPending)
}

// Score computes the weighted total for a set of criterion scores,
// rounded to two decimals.
func Score(scores map[string]float64) float64 {
	var total float64
	for name, weight := range criteriaWeights {
		total += scores[name] * weight
	}
	return math.Round(total*100) / 100
}
