package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	appfinance "github.com/academy/backend/internal/application/finance"
	"github.com/academy/backend/internal/domain/finance"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/academy/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BillService is the part of the finance application the bill endpoints use
type BillService interface {
	CreateBill(ctx context.Context, tc shared.TenantContext, req appfinance.CreateBillRequest) ([]appfinance.BillResponse, error)
	GetBill(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*appfinance.BillResponse, error)
	GetChain(ctx context.Context, tc shared.TenantContext, id uuid.UUID) ([]appfinance.BillResponse, error)
	ListBills(ctx context.Context, tc shared.TenantContext, filter appfinance.BillListFilter) ([]appfinance.BillResponse, int64, error)
	UpdateBill(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req appfinance.UpdateBillRequest) (*appfinance.BillResponse, error)
	PayBill(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req appfinance.PayBillRequest) (*appfinance.BillResponse, error)
	ReportReceipt(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req appfinance.ReportReceiptRequest) (*appfinance.BillResponse, error)
	CancelBill(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req appfinance.CancelBillRequest) (*appfinance.BillResponse, error)
	DeleteBills(ctx context.Context, tc shared.TenantContext, req appfinance.DeleteBillsRequest) (*appfinance.DeleteBillsResult, error)
	SweepOverdue(ctx context.Context, tc shared.TenantContext) (*appfinance.SweepResult, error)
}

// BillHandler handles bill API endpoints
type BillHandler struct {
	BaseHandler
	service BillService
}

// NewBillHandler creates a new BillHandler
func NewBillHandler(service BillService) *BillHandler {
	return &BillHandler{service: service}
}

// RegisterRoutes mounts the bill endpoints under rg
func (h *BillHandler) RegisterRoutes(rg *gin.RouterGroup) {
	bills := rg.Group("/finance/bills")
	bills.POST("", h.Create)
	bills.GET("", h.List)
	bills.POST("/batch-delete", h.BatchDelete)
	bills.POST("/sweep-overdue", h.SweepOverdue)
	bills.GET("/:id", h.Get)
	bills.GET("/:id/chain", h.GetChain)
	bills.PATCH("/:id", h.Update)
	bills.POST("/:id/pay", h.Pay)
	bills.POST("/:id/report-receipt", h.ReportReceipt)
	bills.POST("/:id/cancel", h.Cancel)
	bills.DELETE("/:id", h.Delete)
}

// Create godoc
// @Summary      Create a bill
// @Description  Creates a single bill, or a whole installment chain when a recurrence and an installment count are given
// @Tags         finance-bills
// @Accept       json
// @Produce      json
// @Param        request body appfinance.CreateBillRequest true "Bill template"
// @Success      201 {object} dto.Response{data=[]appfinance.BillResponse}
// @Failure      400 {object} dto.Response
// @Router       /finance/bills [post]
func (h *BillHandler) Create(c *gin.Context) {
	tc, ok := h.tenantContext(c)
	if !ok {
		return
	}
	var req appfinance.CreateBillRequest
	if !h.bindJSON(c, &req) {
		return
	}

	bills, err := h.service.CreateBill(c.Request.Context(), tc, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, bills)
}

// billListQuery is the raw query string of the list endpoint
type billListQuery struct {
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
	OrderBy    string `form:"order_by"`
	OrderDir   string `form:"order_dir"`
	Search     string `form:"search"`
	Type       string `form:"type"`
	Status     string `form:"status"`
	DueFrom    string `form:"due_from"`
	DueTo      string `form:"due_to"`
	ParentID   string `form:"parent_id"`
	SupplierID string `form:"supplier_id"`
	CategoryID string `form:"category_id"`
}

func (q billListQuery) toFilter() (appfinance.BillListFilter, error) {
	filter := appfinance.BillListFilter{
		Page:     q.Page,
		PageSize: q.PageSize,
		OrderBy:  q.OrderBy,
		OrderDir: strings.ToLower(q.OrderDir),
		Search:   q.Search,
	}

	if q.Type != "" {
		t := finance.BillType(strings.ToUpper(q.Type))
		if !t.IsValid() {
			return filter, shared.NewValidationError("invalid bill type: " + q.Type)
		}
		filter.Type = &t
	}
	if q.Status != "" {
		s := finance.BillStatus(strings.ToUpper(q.Status))
		if !s.IsValid() {
			return filter, shared.NewValidationError("invalid bill status: " + q.Status)
		}
		filter.Status = &s
	}

	var err error
	if filter.DueFrom, err = parseDateParam("due_from", q.DueFrom); err != nil {
		return filter, err
	}
	if filter.DueTo, err = parseDateParam("due_to", q.DueTo); err != nil {
		return filter, err
	}
	if filter.ParentID, err = parseUUIDParam("parent_id", q.ParentID); err != nil {
		return filter, err
	}
	if filter.SupplierID, err = parseUUIDParam("supplier_id", q.SupplierID); err != nil {
		return filter, err
	}
	if filter.CategoryID, err = parseUUIDParam("category_id", q.CategoryID); err != nil {
		return filter, err
	}
	return filter, nil
}

// parseDateParam accepts a calendar date (2006-01-02) or an RFC 3339 timestamp
func parseDateParam(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, shared.NewValidationError("invalid date for " + name + ": " + value)
}

func parseUUIDParam(name, value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, shared.NewValidationError("invalid " + name + ": " + value)
	}
	return &id, nil
}

// List godoc
// @Summary      List bills
// @Description  Paginated list of the tenant's bills ordered by due date
// @Tags         finance-bills
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(200)
// @Param        order_by query string false "Sort column" Enums(due_date, created_at, amount, installment_number, status)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Param        search query string false "Description search"
// @Param        type query string false "Bill type" Enums(RECEIVABLE, PAYABLE)
// @Param        status query string false "Status" Enums(PENDING, OVERDUE, AWAITING_RECEIPT, PAID, CANCELLED)
// @Param        due_from query string false "Due on or after" format(date)
// @Param        due_to query string false "Due on or before" format(date)
// @Param        parent_id query string false "Chain anchor" format(uuid)
// @Success      200 {object} dto.Response{data=[]appfinance.BillResponse,meta=dto.Meta}
// @Router       /finance/bills [get]
func (h *BillHandler) List(c *gin.Context) {
	tc, ok := h.tenantContext(c)
	if !ok {
		return
	}
	var query billListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ErrorWithDetails(c, http.StatusBadRequest, shared.CodeValidation, "Invalid query parameters", err.Error())
		return
	}
	filter, err := query.toFilter()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	bills, total, err := h.service.ListBills(c.Request.Context(), tc, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > shared.MaxPageSize {
		pageSize = shared.DefaultPageSize
	}
	h.SuccessWithMeta(c, bills, total, page, pageSize)
}

// Get godoc
// @Summary      Get a bill
// @Tags         finance-bills
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Success      200 {object} dto.Response{data=appfinance.BillResponse}
// @Failure      404 {object} dto.Response
// @Router       /finance/bills/{id} [get]
func (h *BillHandler) Get(c *gin.Context) {
	tc, ok := h.tenantContext(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	bill, err := h.service.GetBill(c.Request.Context(), tc, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bill)
}

// GetChain godoc
// @Summary      Get the installment chain of a bill
// @Description  Returns every live installment of the chain the bill belongs to, ordered by installment number
// @Tags         finance-bills
// @Produce      json
// @Param        id path string true "Any bill of the chain" format(uuid)
// @Success      200 {object} dto.Response{data=[]appfinance.BillResponse}
// @Router       /finance/bills/{id}/chain [get]
func (h *BillHandler) GetChain(c *gin.Context) {
	tc, ok := h.tenantContext(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	chain, err := h.service.GetChain(c.Request.Context(), tc, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, chain)
}

// Update godoc
// @Summary      Update a bill
// @Description  Partial update; omitted fields are left unchanged
// @Tags         finance-bills
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Param        request body appfinance.UpdateBillRequest true "Changes"
// @Success      200 {object} dto.Response{data=appfinance.BillResponse}
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /finance/bills/{id} [patch]
func (h *BillHandler) Update(c *gin.Context) {
	tc, ok := h.tenantContext(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req appfinance.UpdateBillRequest
	if !h.bindJSON(c, &req) {
		return
	}

	bill, err := h.service.UpdateBill(c.Request.Context(), tc, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bill)
}

// Pay godoc
// @Summary      Pay a bill
// @Description  Records a payment. Retries carrying the same Idempotency-Key are rejected with DUPLICATE_SUBMISSION.
// @Tags         finance-bills
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Param        Idempotency-Key header string false "Client generated key"
// @Param        request body appfinance.PayBillRequest true "Payment"
// @Success      200 {object} dto.Response{data=appfinance.BillResponse}
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /finance/bills/{id}/pay [post]
func (h *BillHandler) Pay(c *gin.Context) {
	tc, ok := h.tenantContext(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req appfinance.PayBillRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = strings.TrimSpace(c.GetHeader(middleware.IdempotencyKeyHeader))

	bill, err := h.service.PayBill(c.Request.Context(), tc, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bill)
}

// ReportReceipt godoc
// @Summary      Report a delayed receipt
// @Description  Records a payment collected through a form of receipt that settles later; the bill waits in AWAITING_RECEIPT
// @Tags         finance-bills
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Param        request body appfinance.ReportReceiptRequest true "Receipt"
// @Success      200 {object} dto.Response{data=appfinance.BillResponse}
// @Router       /finance/bills/{id}/report-receipt [post]
func (h *BillHandler) ReportReceipt(c *gin.Context) {
	tc, ok := h.tenantContext(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req appfinance.ReportReceiptRequest
	if !h.bindJSON(c, &req) {
		return
	}

	bill, err := h.service.ReportReceipt(c.Request.Context(), tc, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bill)
}

// Cancel godoc
// @Summary      Cancel a bill
// @Tags         finance-bills
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Param        request body appfinance.CancelBillRequest false "Reason"
// @Success      200 {object} dto.Response{data=appfinance.BillResponse}
// @Failure      422 {object} dto.Response
// @Router       /finance/bills/{id}/cancel [post]
func (h *BillHandler) Cancel(c *gin.Context) {
	tc, ok := h.tenantContext(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req appfinance.CancelBillRequest
	// the reason is optional, so an empty body is fine
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	bill, err := h.service.CancelBill(c.Request.Context(), tc, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bill)
}

// Delete godoc
// @Summary      Delete a bill
// @Description  ONE removes only this installment; ALL_FUTURE also removes every later installment of the chain
// @Tags         finance-bills
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Param        scope query string false "Deletion scope" Enums(ONE, ALL_FUTURE) default(ONE)
// @Success      200 {object} dto.Response{data=appfinance.DeleteBillsResult}
// @Router       /finance/bills/{id} [delete]
func (h *BillHandler) Delete(c *gin.Context) {
	tc, ok := h.tenantContext(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	req := appfinance.DeleteBillsRequest{IDs: []uuid.UUID{id}}
	if raw := c.Query("scope"); raw != "" {
		scope := finance.DeletionScope(strings.ToUpper(raw))
		req.Scope = &scope
	}

	result, err := h.service.DeleteBills(c.Request.Context(), tc, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// BatchDelete godoc
// @Summary      Delete several bills
// @Tags         finance-bills
// @Accept       json
// @Produce      json
// @Param        request body appfinance.DeleteBillsRequest true "Bills to delete"
// @Success      200 {object} dto.Response{data=appfinance.DeleteBillsResult}
// @Router       /finance/bills/batch-delete [post]
func (h *BillHandler) BatchDelete(c *gin.Context) {
	tc, ok := h.tenantContext(c)
	if !ok {
		return
	}
	var req appfinance.DeleteBillsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.service.DeleteBills(c.Request.Context(), tc, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SweepOverdue godoc
// @Summary      Run the overdue sweep
// @Description  Moves the caller's PENDING bills due before today to OVERDUE
// @Tags         finance-bills
// @Produce      json
// @Success      200 {object} dto.Response{data=appfinance.SweepResult}
// @Router       /finance/bills/sweep-overdue [post]
func (h *BillHandler) SweepOverdue(c *gin.Context) {
	tc, ok := h.tenantContext(c)
	if !ok {
		return
	}

	result, err := h.service.SweepOverdue(c.Request.Context(), tc)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
