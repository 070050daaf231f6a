package handler

import (
	"context"
	"strconv"

	appfinance "github.com/academy/backend/internal/application/finance"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentMethodService is the part of the finance application the payment
// method endpoints use
type PaymentMethodService interface {
	Create(ctx context.Context, tc shared.TenantContext, req appfinance.CreatePaymentMethodRequest) (*appfinance.PaymentMethodResponse, error)
	Get(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*appfinance.PaymentMethodResponse, error)
	List(ctx context.Context, tc shared.TenantContext, activeOnly bool) ([]appfinance.PaymentMethodResponse, error)
	Deactivate(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*appfinance.PaymentMethodResponse, error)
}

// PaymentMethodHandler handles the forms of receipt endpoints
type PaymentMethodHandler struct {
	BaseHandler
	service PaymentMethodService
}

// NewPaymentMethodHandler creates a new PaymentMethodHandler
func NewPaymentMethodHandler(service PaymentMethodService) *PaymentMethodHandler {
	return &PaymentMethodHandler{service: service}
}

// RegisterRoutes mounts the payment method endpoints under rg
func (h *PaymentMethodHandler) RegisterRoutes(rg *gin.RouterGroup) {
	methods := rg.Group("/finance/payment-methods")
	methods.POST("", h.Create)
	methods.GET("", h.List)
	methods.GET("/:id", h.Get)
	methods.POST("/:id/deactivate", h.Deactivate)
}

// Create godoc
// @Summary      Create a form of receipt
// @Tags         finance-payment-methods
// @Accept       json
// @Produce      json
// @Param        request body appfinance.CreatePaymentMethodRequest true "Form of receipt"
// @Success      201 {object} dto.Response{data=appfinance.PaymentMethodResponse}
// @Router       /finance/payment-methods [post]
func (h *PaymentMethodHandler) Create(c *gin.Context) {
	tc, ok := h.tenantContext(c)
	if !ok {
		return
	}
	var req appfinance.CreatePaymentMethodRequest
	if !h.bindJSON(c, &req) {
		return
	}

	method, err := h.service.Create(c.Request.Context(), tc, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, method)
}

// List godoc
// @Summary      List forms of receipt
// @Tags         finance-payment-methods
// @Produce      json
// @Param        active_only query bool false "Only active methods"
// @Success      200 {object} dto.Response{data=[]appfinance.PaymentMethodResponse}
// @Router       /finance/payment-methods [get]
func (h *PaymentMethodHandler) List(c *gin.Context) {
	tc, ok := h.tenantContext(c)
	if !ok {
		return
	}
	activeOnly := false
	if raw := c.Query("active_only"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.HandleError(c, shared.NewValidationError("active_only must be a boolean"))
			return
		}
		activeOnly = v
	}

	methods, err := h.service.List(c.Request.Context(), tc, activeOnly)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, methods)
}

// Get godoc
// @Summary      Get a form of receipt
// @Tags         finance-payment-methods
// @Produce      json
// @Param        id path string true "Payment method ID" format(uuid)
// @Success      200 {object} dto.Response{data=appfinance.PaymentMethodResponse}
// @Failure      404 {object} dto.Response
// @Router       /finance/payment-methods/{id} [get]
func (h *PaymentMethodHandler) Get(c *gin.Context) {
	tc, ok := h.tenantContext(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	method, err := h.service.Get(c.Request.Context(), tc, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, method)
}

// Deactivate godoc
// @Summary      Deactivate a form of receipt
// @Description  New bills can no longer reference it; existing bills are unchanged.
// @Tags         finance-payment-methods
// @Produce      json
// @Param        id path string true "Payment method ID" format(uuid)
// @Success      200 {object} dto.Response{data=appfinance.PaymentMethodResponse}
// @Failure      404 {object} dto.Response
// @Router       /finance/payment-methods/{id}/deactivate [post]
func (h *PaymentMethodHandler) Deactivate(c *gin.Context) {
	tc, ok := h.tenantContext(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	method, err := h.service.Deactivate(c.Request.Context(), tc, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, method)
}
