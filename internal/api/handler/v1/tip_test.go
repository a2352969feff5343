package v1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/tipdrop/tipdrop-api/internal/api/handler/v1"
	"github.com/tipdrop/tipdrop-api/internal/api/handler/v1/response"
	"github.com/tipdrop/tipdrop-api/internal/domain"
	"github.com/tipdrop/tipdrop-api/internal/service"
)

type stubTipService struct {
	tip          domain.Tip
	clientSecret string
	err          error
}

func (s *stubTipService) CreateTip(_ context.Context, venueID uint, amount int64, qrSlug string, chosenStaffID *uint) (domain.Tip, string, error) {
	return s.tip, s.clientSecret, s.err
}

func (s *stubTipService) GetTip(_ context.Context, tipID uint) (domain.Tip, error) {
	if s.err != nil {
		return domain.Tip{}, s.err
	}
	return s.tip, nil
}

type stubAllocationReader struct {
	allocations []domain.TipAllocation
}

func (s *stubAllocationReader) GetAllocations(_ context.Context, tipID uint) ([]domain.TipAllocation, error) {
	return s.allocations, nil
}

func newTipRouter(svc *stubTipService, reader *stubAllocationReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	handler := v1.NewTipHandler(svc, reader)
	router.POST("/venues/:venueID/tips", handler.HandleCreateTip)
	router.GET("/tips/:tipID", handler.HandleGetTip)

	return router
}

func TestHandleCreateTip(t *testing.T) {
	svc := &stubTipService{
		tip:          domain.Tip{ID: 10, VenueID: 1, Amount: 2000, NetAmount: 1900, Status: domain.TipPending},
		clientSecret: "pi_1_secret",
	}
	router := newTipRouter(svc, &stubAllocationReader{})

	body := `{"amount": 2000, "qr_slug": "qr-venue"}`
	req := httptest.NewRequest(http.MethodPost, "/venues/1/tips", strings.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var got response.TipCreatedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, uint(10), got.Tip.ID)
	assert.Equal(t, "pi_1_secret", got.ClientSecret)
}

func TestHandleCreateTip_Validation(t *testing.T) {
	router := newTipRouter(&stubTipService{}, &stubAllocationReader{})

	tests := []struct {
		name string
		body string
	}{
		{"missing amount", `{"qr_slug": "qr-venue"}`},
		{"zero amount", `{"amount": 0, "qr_slug": "qr-venue"}`},
		{"negative amount", `{"amount": -100, "qr_slug": "qr-venue"}`},
		{"missing qr slug", `{"amount": 2000}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/venues/1/tips", strings.NewReader(tc.body))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleCreateTip_BusinessErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"unknown venue", service.ErrVenueNotFound, http.StatusNotFound},
		{"foreign qr code", service.ErrQRCodeMismatch, http.StatusBadRequest},
		{"choice not allowed", service.ErrStaffChoiceNotAllowed, http.StatusUnprocessableEntity},
		{"inactive staff", service.ErrStaffInactive, http.StatusUnprocessableEntity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := newTipRouter(&stubTipService{err: tc.err}, &stubAllocationReader{})

			body := `{"amount": 2000, "qr_slug": "qr-venue"}`
			req := httptest.NewRequest(http.MethodPost, "/venues/1/tips", strings.NewReader(body))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tc.wantCode, w.Code)
		})
	}
}

func TestHandleGetTip(t *testing.T) {
	staffID := uint(2)
	svc := &stubTipService{
		tip: domain.Tip{ID: 10, VenueID: 1, NetAmount: 1900, Status: domain.TipPaid},
	}
	reader := &stubAllocationReader{
		allocations: []domain.TipAllocation{{ID: 1, TipID: 10, StaffID: &staffID, Amount: 1900}},
	}
	router := newTipRouter(svc, reader)

	req := httptest.NewRequest(http.MethodGet, "/tips/10", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var got response.TipDetailsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, uint(10), got.Tip.ID)
	require.Len(t, got.Allocations, 1)
	assert.Equal(t, int64(1900), got.Allocations[0].Amount)
}

func TestHandleGetTip_NotFound(t *testing.T) {
	router := newTipRouter(&stubTipService{err: service.ErrTipNotFound}, &stubAllocationReader{})

	req := httptest.NewRequest(http.MethodGet, "/tips/99", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
