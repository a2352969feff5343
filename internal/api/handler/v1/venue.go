package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tipdrop/tipdrop-api/internal/api/handler/v1/request"
	"github.com/tipdrop/tipdrop-api/internal/api/handler/v1/response"
	"github.com/tipdrop/tipdrop-api/internal/domain"
	"github.com/tipdrop/tipdrop-api/internal/service"
)

type VenueService interface {
	CreateVenue(ctx context.Context, venue domain.Venue, ownerID uint) (domain.Venue, error)
	GetVenue(ctx context.Context, venueID uint) (domain.Venue, error)
	UpdateVenueMode(ctx context.Context, venueID uint, mode domain.DistributionMode, allowStaffChoice bool, unassignedPolicy string) error
	AddStaff(ctx context.Context, staff domain.Staff) (domain.Staff, error)
	ListStaff(ctx context.Context, venueID uint, activeOnly bool) ([]domain.Staff, error)
	SetStaffActive(ctx context.Context, staffID uint, active bool) error
	CreateQRCode(ctx context.Context, venueID uint, kind domain.QRCodeKind, tableLabel string, staffID *uint) (domain.QRCode, error)
	IsVenueOwner(ctx context.Context, venueID, userID uint) (bool, error)
}

type VenueHandler struct {
	svc VenueService
}

func NewVenueHandler(svc VenueService) *VenueHandler {
	return &VenueHandler{
		svc: svc,
	}
}

// HandleCreateVenue godoc
// @Summary      Create a venue owned by the authenticated manager
// @Tags         venues
// @Produce      json
// @Param        request   body      request.CreateVenueRequest true "request body"
// @Success      201      {object}   domain.Venue
// @Failure      400      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /venues [post]
func (h *VenueHandler) HandleCreateVenue(ctx *gin.Context) {
	var req request.CreateVenueRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	venue, err := h.svc.CreateVenue(ctx.Request.Context(), domain.Venue{
		Name:             req.Name,
		Slug:             req.Slug,
		DistributionMode: domain.DistributionMode(req.DistributionMode),
		AllowStaffChoice: req.AllowStaffChoice,
	}, getUserID(ctx))
	if err != nil {
		if errors.Is(err, service.ErrVenueSlugExists) {
			response.RenderErr(ctx, response.ErrBadRequest(service.ErrVenueSlugExists))

			return
		}

		err = fmt.Errorf("v1.HandleCreateVenue -> h.svc.CreateVenue -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusCreated, venue)
}

// HandleGetVenue godoc
// @Summary      Get a venue by ID
// @Tags         venues
// @Produce      json
// @Param        venueID   path      int  true "venue ID"
// @Success      200      {object}   domain.Venue
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /venues/{venueID} [get]
func (h *VenueHandler) HandleGetVenue(ctx *gin.Context) {
	venueID, err := parseUintParam(ctx, "venueID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	venue, err := h.svc.GetVenue(ctx.Request.Context(), venueID)
	if err != nil {
		if errors.Is(err, service.ErrVenueNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("venue", "ID", venueID))

			return
		}

		err = fmt.Errorf("v1.HandleGetVenue -> h.svc.GetVenue -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, venue)
}

// HandleUpdateVenueMode godoc
// @Summary      Change a venue's distribution mode
// @Description  Mode changes only apply to tips paid afterwards. Existing allocations are never rewritten.
// @Tags         venues
// @Produce      json
// @Param        venueID   path      int  true "venue ID"
// @Param        request   body      request.UpdateVenueModeRequest true "request body"
// @Success      200      {object}   domain.Venue
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /venues/{venueID}/mode [put]
func (h *VenueHandler) HandleUpdateVenueMode(ctx *gin.Context) {
	venueID, err := parseUintParam(ctx, "venueID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	var req request.UpdateVenueModeRequest
	if err = ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err = req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if !h.requireOwner(ctx, venueID) {
		return
	}

	err = h.svc.UpdateVenueMode(ctx.Request.Context(), venueID, domain.DistributionMode(req.DistributionMode), req.AllowStaffChoice, req.UnassignedPolicy)
	if err != nil {
		err = fmt.Errorf("v1.HandleUpdateVenueMode -> h.svc.UpdateVenueMode -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	venue, err := h.svc.GetVenue(ctx.Request.Context(), venueID)
	if err != nil {
		err = fmt.Errorf("v1.HandleUpdateVenueMode -> h.svc.GetVenue -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, venue)
}

// HandleAddStaff godoc
// @Summary      Add a staff member to a venue
// @Tags         venues
// @Produce      json
// @Param        venueID   path      int  true "venue ID"
// @Param        request   body      request.AddStaffRequest true "request body"
// @Success      201      {object}   domain.Staff
// @Failure      403      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /venues/{venueID}/staff [post]
func (h *VenueHandler) HandleAddStaff(ctx *gin.Context) {
	venueID, err := parseUintParam(ctx, "venueID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	var req request.AddStaffRequest
	if err = ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err = req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if !h.requireOwner(ctx, venueID) {
		return
	}

	staff, err := h.svc.AddStaff(ctx.Request.Context(), domain.Staff{
		VenueID:     venueID,
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		err = fmt.Errorf("v1.HandleAddStaff -> h.svc.AddStaff -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusCreated, staff)
}

// HandleListStaff godoc
// @Summary      List a venue's staff members
// @Tags         venues
// @Produce      json
// @Param        venueID   path      int     true  "venue ID"
// @Param        active    query     boolean false "only active staff"
// @Success      200      {object}   []domain.Staff
// @Failure      403      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /venues/{venueID}/staff [get]
func (h *VenueHandler) HandleListStaff(ctx *gin.Context) {
	venueID, err := parseUintParam(ctx, "venueID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if !h.requireOwner(ctx, venueID) {
		return
	}

	activeOnly, _ := strconv.ParseBool(ctx.Query("active"))

	staff, err := h.svc.ListStaff(ctx.Request.Context(), venueID, activeOnly)
	if err != nil {
		err = fmt.Errorf("v1.HandleListStaff -> h.svc.ListStaff -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, staff)
}

// HandleSetStaffActive godoc
// @Summary      Activate or deactivate a staff member
// @Description  Deactivating staff never touches their balance. Remaining funds stay payable.
// @Tags         venues
// @Produce      json
// @Param        venueID   path      int  true "venue ID"
// @Param        staffID   path      int  true "staff ID"
// @Param        request   body      request.SetStaffActiveRequest true "request body"
// @Success      200      {object}   domain.Staff
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /venues/{venueID}/staff/{staffID}/active [put]
func (h *VenueHandler) HandleSetStaffActive(ctx *gin.Context) {
	venueID, err := parseUintParam(ctx, "venueID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	staffID, err := parseUintParam(ctx, "staffID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	var req request.SetStaffActiveRequest
	if err = ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err = req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if !h.requireOwner(ctx, venueID) {
		return
	}

	if err = h.svc.SetStaffActive(ctx.Request.Context(), staffID, *req.Active); err != nil {
		if errors.Is(err, service.ErrStaffNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("staff", "ID", staffID))

			return
		}

		err = fmt.Errorf("v1.HandleSetStaffActive -> h.svc.SetStaffActive -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.Status(http.StatusOK)
}

// HandleCreateQRCode godoc
// @Summary      Create a QR code for a venue, a table or a staff member
// @Tags         venues
// @Produce      json
// @Param        venueID   path      int  true "venue ID"
// @Param        request   body      request.CreateQRCodeRequest true "request body"
// @Success      201      {object}   domain.QRCode
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /venues/{venueID}/qrcodes [post]
func (h *VenueHandler) HandleCreateQRCode(ctx *gin.Context) {
	venueID, err := parseUintParam(ctx, "venueID")
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	var req request.CreateQRCodeRequest
	if err = ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err = req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if !h.requireOwner(ctx, venueID) {
		return
	}

	qrCode, err := h.svc.CreateQRCode(ctx.Request.Context(), venueID, domain.QRCodeKind(req.Kind), req.TableLabel, req.StaffID)
	if err != nil {
		if errors.Is(err, service.ErrStaffQRNeedsStaff) || errors.Is(err, service.ErrStaffNotFound) {
			response.RenderErr(ctx, response.ErrBadRequest(err))

			return
		}

		err = fmt.Errorf("v1.HandleCreateQRCode -> h.svc.CreateQRCode -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusCreated, qrCode)
}

func (h *VenueHandler) requireOwner(ctx *gin.Context, venueID uint) bool {
	isOwner, err := h.svc.IsVenueOwner(ctx.Request.Context(), venueID, getUserID(ctx))
	if err != nil {
		if errors.Is(err, service.ErrVenueNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("venue", "ID", venueID))

			return false
		}

		err = fmt.Errorf("v1.requireOwner -> h.svc.IsVenueOwner -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return false
	}

	if !isOwner {
		response.RenderErr(ctx, response.ErrPermissionDenied())

		return false
	}

	return true
}
