package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tipdrop/tipdrop-api/internal/api/handler/v1/request"
	"github.com/tipdrop/tipdrop-api/internal/api/handler/v1/response"
	"github.com/tipdrop/tipdrop-api/internal/domain"
	"github.com/tipdrop/tipdrop-api/internal/service"
)

type TipService interface {
	CreateTip(ctx context.Context, venueID uint, amount int64, qrSlug string, chosenStaffID *uint) (domain.Tip, string, error)
	GetTip(ctx context.Context, tipID uint) (domain.Tip, error)
}

type AllocationReader interface {
	GetAllocations(ctx context.Context, tipID uint) ([]domain.TipAllocation, error)
}

type TipHandler struct {
	svc       TipService
	ledgerSvc AllocationReader
}

func NewTipHandler(svc TipService, ledgerSvc AllocationReader) *TipHandler {
	return &TipHandler{
		svc:       svc,
		ledgerSvc: ledgerSvc,
	}
}

// HandleCreateTip godoc
// @Summary      Create a pending tip from a QR scan
// @Description  Returns the tip and the gateway client secret. The tip stays pending until the gateway confirms payment.
// @Tags         tips
// @Produce      json
// @Param        venueID   path      int true "venue ID"
// @Param        request   body      request.CreateTipRequest true "request body"
// @Success      201      {object}   response.TipCreatedResponse
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      422      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /venues/{venueID}/tips [post]
func (h *TipHandler) HandleCreateTip(ctx *gin.Context) {
	venueID, err := parseUintParam(ctx, "venueID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	var req request.CreateTipRequest
	if err = ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err = req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	tip, clientSecret, err := h.svc.CreateTip(ctx.Request.Context(), venueID, req.Amount, req.QRSlug, req.StaffID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrVenueNotFound):
			response.RenderErr(ctx, response.ErrNotFound("venue", "ID", venueID))
		case errors.Is(err, service.ErrQRCodeNotFound):
			response.RenderErr(ctx, response.ErrNotFound("qr code", "slug", req.QRSlug))
		case errors.Is(err, service.ErrQRCodeMismatch),
			errors.Is(err, service.ErrInvalidTarget),
			errors.Is(err, service.ErrStaffNotFound):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		case errors.Is(err, service.ErrStaffChoiceNotAllowed),
			errors.Is(err, service.ErrStaffInactive):
			response.RenderErr(ctx, response.ErrUnprocessable(err))
		default:
			err = fmt.Errorf("v1.HandleCreateTip -> h.svc.CreateTip -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}

		return
	}

	ctx.JSON(http.StatusCreated, response.TipCreatedResponse{
		Tip:          tip,
		ClientSecret: clientSecret,
	})
}

// HandleGetTip godoc
// @Summary      Get a tip with its allocations
// @Tags         tips
// @Produce      json
// @Param        tipID     path      int true "tip ID"
// @Success      200      {object}   response.TipDetailsResponse
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /tips/{tipID} [get]
func (h *TipHandler) HandleGetTip(ctx *gin.Context) {
	tipID, err := parseUintParam(ctx, "tipID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	tip, err := h.svc.GetTip(ctx.Request.Context(), tipID)
	if err != nil {
		if errors.Is(err, service.ErrTipNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("tip", "ID", tipID))

			return
		}

		err = fmt.Errorf("v1.HandleGetTip -> h.svc.GetTip -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	allocations, err := h.ledgerSvc.GetAllocations(ctx.Request.Context(), tipID)
	if err != nil {
		err = fmt.Errorf("v1.HandleGetTip -> h.ledgerSvc.GetAllocations -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, response.TipDetailsResponse{
		Tip:         tip,
		Allocations: allocations,
	})
}
