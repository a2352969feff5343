package v1_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/tipdrop/tipdrop-api/internal/api/handler/v1"
	"github.com/tipdrop/tipdrop-api/internal/domain"
	"github.com/tipdrop/tipdrop-api/internal/service"
)

type stubLedger struct {
	confirmed []string
	failed    []string
	err       error
}

func (s *stubLedger) ConfirmPayment(_ context.Context, conf domain.PaymentConfirmation) (domain.Tip, []domain.TipAllocation, error) {
	if s.err != nil {
		return domain.Tip{}, nil, s.err
	}
	s.confirmed = append(s.confirmed, conf.PaymentRef)
	return domain.Tip{ID: 10, Status: domain.TipPaid, PaymentRef: conf.PaymentRef}, nil, nil
}

func (s *stubLedger) FailPayment(_ context.Context, conf domain.PaymentConfirmation) (domain.Tip, error) {
	if s.err != nil {
		return domain.Tip{}, s.err
	}
	s.failed = append(s.failed, conf.PaymentRef)
	return domain.Tip{ID: 10, Status: domain.TipFailed, PaymentRef: conf.PaymentRef}, nil
}

func newWebhookRouter(svc *stubLedger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhooks/stripe", v1.NewWebhookHandler(svc).HandleStripeEvent)
	return router
}

func postEvent(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleStripeEvent_PaymentSucceeded(t *testing.T) {
	svc := &stubLedger{}
	router := newWebhookRouter(svc)

	body := `{"type": "payment_intent.succeeded", "data": {"object": {"id": "pi_123"}}}`
	w := postEvent(router, body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"pi_123"}, svc.confirmed)
	assert.Empty(t, svc.failed)
}

func TestHandleStripeEvent_PaymentFailed(t *testing.T) {
	svc := &stubLedger{}
	router := newWebhookRouter(svc)

	body := `{"type": "payment_intent.payment_failed", "data": {"object": {"id": "pi_123"}}}`
	w := postEvent(router, body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"pi_123"}, svc.failed)
}

func TestHandleStripeEvent_IgnoresUnrelatedEvents(t *testing.T) {
	svc := &stubLedger{}
	router := newWebhookRouter(svc)

	body := `{"type": "customer.created", "data": {"object": {"id": "cus_1"}}}`
	w := postEvent(router, body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.confirmed)
	assert.Empty(t, svc.failed)
}

func TestHandleStripeEvent_UnknownTip(t *testing.T) {
	svc := &stubLedger{err: service.ErrTipNotFound}
	router := newWebhookRouter(svc)

	body := `{"type": "payment_intent.succeeded", "data": {"object": {"id": "pi_unknown"}}}`
	w := postEvent(router, body)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
