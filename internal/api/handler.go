package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ciby9833/xspace-sub000/internal/service"
	"github.com/ciby9833/xspace-sub000/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orders    *service.OrderService
	ledger    *service.LedgerService
	summaries *service.SummaryService
	catalog   *service.CatalogService
	discounts *service.DiscountService
	jwtSecret string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orders *service.OrderService,
	ledger *service.LedgerService,
	summaries *service.SummaryService,
	catalog *service.CatalogService,
	discounts *service.DiscountService,
	jwtSecret string,
) *Handler {
	return &Handler{
		orders:    orders,
		ledger:    ledger,
		summaries: summaries,
		catalog:   catalog,
		discounts: discounts,
		jwtSecret: jwtSecret,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(AuthMiddleware(h.jwtSecret))
	{
		catalog := v1.Group("/catalog")
		{
			catalog.GET("/role-templates", h.listRoleTemplates)
			catalog.POST("/role-templates", RequirePermission("catalog:write"), h.createRoleTemplate)
			catalog.PUT("/role-templates/:id", RequirePermission("catalog:write"), h.updateRoleTemplate)
			catalog.DELETE("/role-templates/:id", RequirePermission("catalog:write"), h.deactivateRoleTemplate)

			catalog.GET("/calendar-entries", h.listCalendarEntries)
			catalog.POST("/calendar-entries", RequirePermission("catalog:write"), h.createCalendarEntry)
			catalog.PUT("/calendar-entries/:id", RequirePermission("catalog:write"), h.updateCalendarEntry)
			catalog.DELETE("/calendar-entries/:id", RequirePermission("catalog:write"), h.deleteCalendarEntry)
		}

		pricing := v1.Group("/pricing")
		{
			pricing.POST("/preview", h.previewDecomposition)
			pricing.POST("/role-discount", h.previewRoleDiscount)
			pricing.POST("/calendar-discount", h.previewCalendarDiscount)
		}

		orders := v1.Group("/orders")
		{
			orders.POST("", h.createOrder)
			orders.GET("/:id", h.getOrder)
			orders.DELETE("/:id", h.deleteOrder)
			orders.GET("/:id/summary", h.getOrderSummary)
			orders.GET("/:id/payments", h.listPayments)
			orders.GET("/:id/payments/audit", h.getPaymentAudit)
			orders.POST("/:id/payments/merge", h.mergePayments)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("", h.createPayment)
			payments.GET("/:id", h.getPayment)
			payments.PUT("/:id", h.updatePayment)
			payments.DELETE("/:id", h.deletePayment)
			payments.POST("/:id/confirm", h.confirmPayment)
			payments.POST("/:id/cancel", h.cancelPayment)
			payments.POST("/:id/split", h.splitPayment)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps service errors to HTTP statuses
func respondError(c *gin.Context, err error) {
	switch {
	case service.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case service.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "details": err.Error()})
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// --- catalog ---

func (h *Handler) createRoleTemplate(c *gin.Context) {
	var req service.RoleTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	tpl, err := h.catalog.CreateRoleTemplate(c.Request.Context(), companyID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func (h *Handler) updateRoleTemplate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.RoleTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	tpl, err := h.catalog.UpdateRoleTemplate(c.Request.Context(), companyID(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *Handler) deactivateRoleTemplate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.catalog.DeactivateRoleTemplate(c.Request.Context(), companyID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listRoleTemplates(c *gin.Context) {
	storeID, _ := strconv.ParseInt(c.Query("store_id"), 10, 64)
	templates, err := h.catalog.ListRoleTemplates(c.Request.Context(), companyID(c), storeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

func (h *Handler) createCalendarEntry(c *gin.Context) {
	var req service.CalendarEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	entry, err := h.catalog.CreateCalendarEntry(c.Request.Context(), companyID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) updateCalendarEntry(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.CalendarEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	entry, err := h.catalog.UpdateCalendarEntry(c.Request.Context(), companyID(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) deleteCalendarEntry(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteCalendarEntry(c.Request.Context(), companyID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listCalendarEntries(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.DefaultQuery("from", time.Now().Format("2006-01-02")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}
	to, err := time.Parse("2006-01-02", c.DefaultQuery("to", from.AddDate(0, 1, 0).Format("2006-01-02")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}

	entries, err := h.catalog.ListCalendarEntries(c.Request.Context(), companyID(c), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// --- pricing previews ---

func (h *Handler) previewDecomposition(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	req.CompanyID = companyID(c)

	items, err := h.orders.PreviewDecomposition(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	original, discount, final := service.DecompositionTotals(items)
	c.JSON(http.StatusOK, gin.H{
		"items":          items,
		"total_original": original,
		"total_discount": discount,
		"total_final":    final,
	})
}

type roleDiscountPreviewRequest struct {
	StoreID    int64     `json:"store_id" binding:"required"`
	TemplateID *int64    `json:"template_id,omitempty"`
	Amount     int64     `json:"amount" binding:"required"`
	AsOf       time.Time `json:"as_of" binding:"required" time_format:"2006-01-02"`
}

func (h *Handler) previewRoleDiscount(c *gin.Context) {
	var req roleDiscountPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	result, err := h.discounts.ResolveRoleDiscount(c.Request.Context(),
		companyID(c), req.StoreID, req.TemplateID, req.Amount, req.AsOf)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type calendarDiscountPreviewRequest struct {
	StoreID int64     `json:"store_id" binding:"required"`
	Amount  int64     `json:"amount" binding:"required"`
	Date    time.Time `json:"date" binding:"required" time_format:"2006-01-02"`
}

func (h *Handler) previewCalendarDiscount(c *gin.Context) {
	var req calendarDiscountPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	result, err := h.discounts.ResolveCalendarDiscount(c.Request.Context(),
		companyID(c), req.StoreID, req.Date, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// --- orders ---

func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	req.CompanyID = companyID(c)

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	order, players, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "players": players})
}

func (h *Handler) deleteOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.orders.DeleteOrder(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getOrderSummary(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	summary, err := h.summaries.GetOrderSummary(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// --- payments ---

func (h *Handler) createPayment(c *gin.Context) {
	var req service.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	payment, err := h.ledger.CreatePayment(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (h *Handler) getPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	payment, err := h.ledger.GetPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) listPayments(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	payments, err := h.ledger.GetPayments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (h *Handler) getPaymentAudit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	audits, err := h.ledger.GetAuditTrail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit": audits})
}

func (h *Handler) updatePayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	payment, err := h.ledger.UpdatePayment(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) confirmPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	payment, warnings, err := h.ledger.ConfirmPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment, "warnings": warnings})
}

type cancelPaymentRequest struct {
	Status string `json:"status" binding:"required,oneof=cancelled failed"`
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) cancelPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req cancelPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	payment, err := h.ledger.CancelPayment(c.Request.Context(), id, req.Status, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) mergePayments(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}
	var req service.MergePaymentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	merged, err := h.ledger.MergePayments(c.Request.Context(), orderID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, merged)
}

type splitPaymentRequest struct {
	Parts []service.SplitSpec `json:"parts" binding:"required,min=1"`
}

func (h *Handler) splitPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req splitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	result, err := h.ledger.SplitPayment(c.Request.Context(), id, req.Parts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) deletePayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.ledger.DeletePayment(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
