package api_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carboncoin/carboncoin-api/internal/api"
	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/verify"
)

func TestAdminCreateToken(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	_, adminToken := ts.accountToken("admin1", domain.RoleAdmin, "")

	rec := ts.do(http.MethodPost, "/api/admin/tokens", adminToken, api.CreateTokenRequest{
		CompanyName:      "GreenTech Industries",
		Symbol:           "GTI",
		IndustryType:     "manufacturing",
		CompanyScale:     "large",
		EmissionBaseline: 1000,
		InitialSupply:    1_000_000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created api.TokenSummary
	decodeBody(t, rec, &created)
	assert.Equal(t, "GTI", created.Symbol)
	assert.True(t, created.Verified)
	assert.InDelta(t, 300_000.0, created.CirculatingSupply, 1e-9)

	t.Run("duplicate symbol conflicts", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/admin/tokens", adminToken, api.CreateTokenRequest{
			CompanyName:      "GreenTech Industries",
			Symbol:           "GTI",
			IndustryType:     "manufacturing",
			CompanyScale:     "large",
			EmissionBaseline: 1000,
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid scale fails validation", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/admin/tokens", adminToken, api.CreateTokenRequest{
			CompanyName:      "Odd Scale Inc",
			Symbol:           "OSI",
			IndustryType:     "manufacturing",
			CompanyScale:     "gigantic",
			EmissionBaseline: 100,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("trader is forbidden", func(t *testing.T) {
		_, traderToken := ts.accountToken("trader1", domain.RoleTrader, "")
		rec := ts.do(http.MethodPost, "/api/admin/tokens", traderToken, api.CreateTokenRequest{
			CompanyName:      "Sneaky Corp",
			Symbol:           "SNK",
			IndustryType:     "manufacturing",
			CompanyScale:     "small",
			EmissionBaseline: 10,
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestAdminMintToken(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.createToken("GTI", 1000)
	_, adminToken := ts.accountToken("admin1", domain.RoleAdmin, "")

	rec := ts.do(http.MethodPost, "/api/admin/tokens/gti/mint", adminToken,
		api.MintRequest{Amount: 100_000})
	require.Equal(t, http.StatusOK, rec.Code)

	var minted api.TokenSummary
	decodeBody(t, rec, &minted)
	assert.InDelta(t, 400_000.0, minted.CirculatingSupply, 1e-9)

	t.Run("issuance past the total supply is rejected", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/admin/tokens/GTI/mint", adminToken,
			api.MintRequest{Amount: 800_000})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("zero amount fails validation", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/admin/tokens/GTI/mint", adminToken,
			api.MintRequest{Amount: 0})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/admin/tokens/NOPE/mint", adminToken,
			api.MintRequest{Amount: 1000})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("trader is forbidden", func(t *testing.T) {
		_, traderToken := ts.accountToken("trader1", domain.RoleTrader, "")
		rec := ts.do(http.MethodPost, "/api/admin/tokens/GTI/mint", traderToken,
			api.MintRequest{Amount: 1000})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestAdminDeleteToken(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.createToken("GTI", 1000)
	_, adminToken := ts.accountToken("admin1", domain.RoleAdmin, "")

	rec := ts.do(http.MethodDelete, "/api/admin/tokens/gti", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/tokens/GTI", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	t.Run("second delete is a 404", func(t *testing.T) {
		rec := ts.do(http.MethodDelete, "/api/admin/tokens/GTI", adminToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestApplicationReview(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	_, adminToken := ts.accountToken("admin1", domain.RoleAdmin, "")

	app, err := ts.verifier.Submit(context.Background(),
		"Slow Steel Ltd", "steel", "medium", "REG-77", 4000)
	require.NoError(t, err)

	t.Run("pending applications are listed", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/admin/applications", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var apps []domain.Application
		decodeBody(t, rec, &apps)
		require.Len(t, apps, 1)
		assert.Equal(t, "Slow Steel Ltd", apps[0].CompanyName)
	})

	t.Run("passing review verifies", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/admin/applications/"+app.ID.String()+"/review",
			adminToken, api.ReviewRequest{Scores: map[string]float64{
				verify.CriteriaRegistrationDocs:  90,
				verify.CriteriaEmissionReports:   85,
				verify.CriteriaFinancialStatus:   80,
				verify.CriteriaIoTInfrastructure: 75,
				verify.CriteriaReputationScore:   95,
			}})
		require.Equal(t, http.StatusOK, rec.Code)

		var decided domain.Application
		decodeBody(t, rec, &decided)
		assert.Equal(t, domain.ApplicationVerified, decided.Status)
		assert.Greater(t, decided.Score, verify.DefaultThreshold)
	})

	t.Run("second decision conflicts", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/admin/applications/"+app.ID.String()+"/reject",
			adminToken, api.RejectRequest{Reason: "late filing"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("malformed application ID", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/admin/applications/not-a-uuid/review",
			adminToken, api.ReviewRequest{Scores: map[string]float64{
				verify.CriteriaRegistrationDocs: 90,
			}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("uploads are unavailable without object storage", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/admin/applications/"+app.ID.String()+"/documents",
			adminToken, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
