package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carboncoin/carboncoin-api/internal/api/shared"
	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/service"
	"github.com/carboncoin/carboncoin-api/internal/verify"
)

// maxDocumentSize caps uploaded verification documents at 10 MiB.
const maxDocumentSize = 10 << 20

// AdminHandler serves token administration and application review.
type AdminHandler struct {
	tokens      *service.TokenService
	verifier    *verify.Verifier
	docsEnabled bool
	validate    *validator.Validate
}

// NewAdminHandler creates an AdminHandler. docsEnabled gates document
// uploads on whether object storage is configured.
func NewAdminHandler(
	tokens *service.TokenService,
	verifier *verify.Verifier,
	docsEnabled bool,
	validate *validator.Validate,
) *AdminHandler {
	return &AdminHandler{tokens: tokens, verifier: verifier, docsEnabled: docsEnabled, validate: validate}
}

// CreateToken verifies a company and issues its token.
func (h *AdminHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req CreateTokenRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	token, err := h.tokens.Create(r.Context(), service.CreateTokenParams{
		CompanyName:        req.CompanyName,
		Symbol:             req.Symbol,
		IndustryType:       req.IndustryType,
		CompanyScale:       req.CompanyScale,
		RegistrationNumber: req.RegistrationNumber,
		EmissionBaseline:   req.EmissionBaseline,
		InitialSupply:      req.InitialSupply,
		Location:           req.Location,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to create token"), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, summarize(token))
}

// MintToken issues additional supply for an existing token. Minting past the
// token's total supply is rejected.
func (h *AdminHandler) MintToken(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	var req MintRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	token, err := h.tokens.Mint(r.Context(), symbol, req.Amount, req.ToAddress)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to mint tokens"), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, summarize(token))
}

// DeleteToken removes a token and its device registrations.
func (h *AdminHandler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	if err := h.tokens.Delete(r.Context(), symbol); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to delete token"), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: "Token deleted"})
}

// ListApplications returns applications awaiting review.
func (h *AdminHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.verifier.Pending(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to list applications"), err)
		return
	}
	if apps == nil {
		apps = []*domain.Application{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, apps)
}

// ReviewApplication scores a pending application and decides it.
func (h *AdminHandler) ReviewApplication(w http.ResponseWriter, r *http.Request) {
	appID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req ReviewRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	app, err := h.verifier.Review(r.Context(), appID, req.Scores)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to review application"), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, app)
}

// RejectApplication rejects a pending application with a reason.
func (h *AdminHandler) RejectApplication(w http.ResponseWriter, r *http.Request) {
	appID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req RejectRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	app, err := h.verifier.Reject(r.Context(), appID, req.Reason)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to reject application"), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, app)
}

// UploadDocument attaches a supporting document to a pending application.
func (h *AdminHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if !h.docsEnabled {
		shared.RespondWithError(w, r, http.StatusServiceUnavailable,
			"Document storage is not configured")
		return
	}

	appID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing document file")
		return
	}
	defer func() { _ = file.Close() }()

	app, err := h.verifier.AttachDocument(r.Context(), appID,
		header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err, "Failed to upload document"), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, app)
}
