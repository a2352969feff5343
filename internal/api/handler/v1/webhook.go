package v1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v72"
	"go.uber.org/zap"

	"github.com/tipdrop/tipdrop-api/internal/api/handler/v1/response"
	"github.com/tipdrop/tipdrop-api/internal/domain"
	"github.com/tipdrop/tipdrop-api/internal/service"
)

type WebhookLedgerService interface {
	ConfirmPayment(ctx context.Context, conf domain.PaymentConfirmation) (domain.Tip, []domain.TipAllocation, error)
	FailPayment(ctx context.Context, conf domain.PaymentConfirmation) (domain.Tip, error)
}

// WebhookHandler consumes gateway payment events. Signature verification
// happens at the edge before requests reach this service.
type WebhookHandler struct {
	svc WebhookLedgerService
}

func NewWebhookHandler(svc WebhookLedgerService) *WebhookHandler {
	return &WebhookHandler{
		svc: svc,
	}
}

// HandleStripeEvent godoc
// @Summary      Consume a Stripe payment event
// @Description  Payment confirmations mark the tip paid and commit its allocations. Delivery is at-least-once, the processing is idempotent.
// @Tags         webhooks
// @Produce      json
// @Param        request   body      stripe.Event true "stripe event"
// @Success      200      {string}   string "OK"
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /webhooks/stripe [post]
func (h *WebhookHandler) HandleStripeEvent(ctx *gin.Context) {
	var event stripe.Event
	if err := ctx.ShouldBindJSON(&event); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if event.Data == nil {
		response.RenderErr(ctx, response.ErrBadRequest(errors.New("event has no data object")))

		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			response.RenderErr(ctx, response.ErrBadRequest(err))

			return
		}

		tip, _, err := h.svc.ConfirmPayment(ctx.Request.Context(), domain.PaymentConfirmation{
			PaymentRef: intent.ID,
		})
		if err != nil {
			h.renderEventErr(ctx, intent.ID, err)

			return
		}

		zap.L().Info("tip payment confirmed",
			zap.Uint("tip_id", tip.ID),
			zap.String("payment_ref", intent.ID),
		)

	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			response.RenderErr(ctx, response.ErrBadRequest(err))

			return
		}

		tip, err := h.svc.FailPayment(ctx.Request.Context(), domain.PaymentConfirmation{
			PaymentRef: intent.ID,
		})
		if err != nil {
			h.renderEventErr(ctx, intent.ID, err)

			return
		}

		zap.L().Info("tip payment failed",
			zap.Uint("tip_id", tip.ID),
			zap.String("payment_ref", intent.ID),
		)

	default:
		zap.L().Debug("ignoring stripe event", zap.String("type", string(event.Type)))
	}

	ctx.String(http.StatusOK, "OK")
}

func (h *WebhookHandler) renderEventErr(ctx *gin.Context, paymentRef string, err error) {
	switch {
	case errors.Is(err, service.ErrTipNotFound):
		// Events can arrive before the tip row is visible. A 404 makes the
		// gateway redeliver later.
		response.RenderErr(ctx, response.ErrNotFound("tip", "payment ref", paymentRef))
	case errors.Is(err, service.ErrTipNotPayable):
		response.RenderErr(ctx, response.ErrConflict(service.ErrTipNotPayable))
	default:
		err = fmt.Errorf("v1.HandleStripeEvent -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
	}
}
