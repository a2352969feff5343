package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tipdrop/tipdrop-api/internal/api/handler/v1/response"
	"github.com/tipdrop/tipdrop-api/internal/domain"
	"github.com/tipdrop/tipdrop-api/internal/service"
)

type LedgerService interface {
	GetBalance(ctx context.Context, staffID uint) (int64, error)
	Settle(ctx context.Context, staffID uint) (domain.Payout, error)
	ListPayouts(ctx context.Context, staffID uint) ([]domain.Payout, error)
	Reconcile(ctx context.Context, staffID uint) (domain.ReconciliationResult, error)
	ReconcileAll(ctx context.Context) ([]domain.ReconciliationResult, error)
}

type PayoutVenueService interface {
	GetStaff(ctx context.Context, staffID uint) (domain.Staff, error)
	IsVenueOwner(ctx context.Context, venueID, userID uint) (bool, error)
}

type PayoutUserService interface {
	GetUser(ctx context.Context, id uint) (domain.User, error)
}

type PayoutHandler struct {
	svc      LedgerService
	venueSvc PayoutVenueService
	userSvc  PayoutUserService
}

func NewPayoutHandler(svc LedgerService, venueSvc PayoutVenueService, userSvc PayoutUserService) *PayoutHandler {
	return &PayoutHandler{
		svc:      svc,
		venueSvc: venueSvc,
		userSvc:  userSvc,
	}
}

// HandleGetBalance godoc
// @Summary      Get a staff member's undistributed balance
// @Tags         payouts
// @Produce      json
// @Param        staffID   path      int true "staff ID"
// @Success      200      {object}   response.BalanceResponse
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /staff/{staffID}/balance [get]
func (h *PayoutHandler) HandleGetBalance(ctx *gin.Context) {
	staffID, ok := h.authorizeStaffAccess(ctx)
	if !ok {
		return
	}

	balance, err := h.svc.GetBalance(ctx.Request.Context(), staffID)
	if err != nil {
		err = fmt.Errorf("v1.HandleGetBalance -> h.svc.GetBalance -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, response.BalanceResponse{
		StaffID: staffID,
		Balance: balance,
	})
}

// HandleSettle godoc
// @Summary      Pay out everything a staff member has accumulated
// @Description  Claims every unpaid allocation atomically. A concurrent settle gets at most one winner.
// @Tags         payouts
// @Produce      json
// @Param        staffID   path      int true "staff ID"
// @Success      201      {object}   domain.Payout
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      422      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /staff/{staffID}/payouts [post]
func (h *PayoutHandler) HandleSettle(ctx *gin.Context) {
	staffID, ok := h.authorizeStaffAccess(ctx)
	if !ok {
		return
	}

	payout, err := h.svc.Settle(ctx.Request.Context(), staffID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNothingToPayout):
			response.RenderErr(ctx, response.ErrUnprocessable(service.ErrNothingToPayout))
		case errors.Is(err, service.ErrConflict):
			response.RenderErr(ctx, response.ErrConflict(service.ErrConflict))
		default:
			err = fmt.Errorf("v1.HandleSettle -> h.svc.Settle -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}

		return
	}

	ctx.JSON(http.StatusCreated, payout)
}

// HandleListPayouts godoc
// @Summary      List a staff member's payouts
// @Tags         payouts
// @Produce      json
// @Param        staffID   path      int true "staff ID"
// @Success      200      {object}   []domain.Payout
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /staff/{staffID}/payouts [get]
func (h *PayoutHandler) HandleListPayouts(ctx *gin.Context) {
	staffID, ok := h.authorizeStaffAccess(ctx)
	if !ok {
		return
	}

	payouts, err := h.svc.ListPayouts(ctx.Request.Context(), staffID)
	if err != nil {
		err = fmt.Errorf("v1.HandleListPayouts -> h.svc.ListPayouts -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, payouts)
}

// HandleReconcile godoc
// @Summary      Recompute a staff member's balance from allocation rows
// @Description  The allocation rows are the source of truth. The cached balance is overwritten when they disagree.
// @Tags         payouts
// @Produce      json
// @Param        staffID   path      int true "staff ID"
// @Success      200      {object}   response.ReconciliationResponse
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /staff/{staffID}/reconcile [post]
func (h *PayoutHandler) HandleReconcile(ctx *gin.Context) {
	staffID, ok := h.authorizeStaffAccess(ctx)
	if !ok {
		return
	}

	result, err := h.svc.Reconcile(ctx.Request.Context(), staffID)
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			response.RenderErr(ctx, response.ErrConflict(service.ErrConflict))

			return
		}

		err = fmt.Errorf("v1.HandleReconcile -> h.svc.Reconcile -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, response.NewReconciliationResponse(result))
}

// HandleReconcileAll godoc
// @Summary      Recompute every staff balance
// @Tags         payouts
// @Produce      json
// @Success      200      {object}   []response.ReconciliationResponse
// @Failure      403      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /admin/reconcile [post]
func (h *PayoutHandler) HandleReconcileAll(ctx *gin.Context) {
	user, err := h.userSvc.GetUser(ctx.Request.Context(), getUserID(ctx))
	if err != nil {
		err = fmt.Errorf("v1.HandleReconcileAll -> h.userSvc.GetUser -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	if user.Role != domain.RoleManager {
		response.RenderErr(ctx, response.ErrPermissionDenied())

		return
	}

	results, err := h.svc.ReconcileAll(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("v1.HandleReconcileAll -> h.svc.ReconcileAll -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	out := make([]response.ReconciliationResponse, 0, len(results))
	for _, res := range results {
		out = append(out, response.NewReconciliationResponse(res))
	}

	ctx.JSON(http.StatusOK, out)
}

// authorizeStaffAccess allows the staff member's own user and the venue
// owner through, everyone else gets 403.
func (h *PayoutHandler) authorizeStaffAccess(ctx *gin.Context) (uint, bool) {
	staffID, err := parseUintParam(ctx, "staffID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return 0, false
	}

	staff, err := h.venueSvc.GetStaff(ctx.Request.Context(), staffID)
	if err != nil {
		if errors.Is(err, service.ErrStaffNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("staff", "ID", staffID))

			return 0, false
		}

		err = fmt.Errorf("v1.authorizeStaffAccess -> h.venueSvc.GetStaff -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return 0, false
	}

	userID := getUserID(ctx)
	if staff.UserID != nil && *staff.UserID == userID {
		return staffID, true
	}

	isOwner, err := h.venueSvc.IsVenueOwner(ctx.Request.Context(), staff.VenueID, userID)
	if err != nil {
		err = fmt.Errorf("v1.authorizeStaffAccess -> h.venueSvc.IsVenueOwner -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return 0, false
	}

	if !isOwner {
		response.RenderErr(ctx, response.ErrPermissionDenied())

		return 0, false
	}

	return staffID, true
}
