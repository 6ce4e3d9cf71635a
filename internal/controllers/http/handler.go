package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/saeedj2446/barton-back-sub003/internal/domain"
	"github.com/saeedj2446/barton-back-sub003/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

type Handler struct {
	orders   *services.OrderService
	payments *services.PaymentService
	rdb      *redis.Client

	// callbackBaseURL is the public origin providers redirect back to.
	callbackBaseURL string
}

func NewHandler(orders *services.OrderService, payments *services.PaymentService, rdb *redis.Client, callbackBaseURL string) *Handler {
	return &Handler{
		orders:          orders,
		payments:        payments,
		rdb:             rdb,
		callbackBaseURL: callbackBaseURL,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/orders", h.CreateOrder)
	r.GET("/orders/:id", h.GetOrder)
	r.POST("/orders/:id/cancel", h.CancelOrder)
	r.POST("/orders/:id/payments", h.InitiatePayment)
	r.GET("/users/:userId/orders", h.ListUserOrders)
	r.GET("/payments/callback/:provider", h.PaymentCallback)
	r.POST("/payments/callback/:provider", h.PaymentCallback)
	r.POST("/payments/:number/refund", h.RefundPayment)
	r.GET("/payments/:number/status", h.PaymentStatus)
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart := make([]services.CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		cart = append(cart, services.CartLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	result, err := h.orders.CreateOrder(c.Request.Context(), req.UserID, cart)
	if err != nil {
		h.writeError(c, err)
		return
	}

	childIDs := make([]uint64, 0, len(result.SellerOrders))
	for _, child := range result.SellerOrders {
		childIDs = append(childIDs, child.ID)
	}
	c.JSON(http.StatusCreated, CreateOrderResponse{
		OrderID:      result.Umbrella.ID,
		OrderNumber:  result.Umbrella.OrderNumber,
		TotalAmount:  result.Umbrella.TotalAmount,
		NetAmount:    result.Umbrella.NetAmount,
		SellerOrders: childIDs,
	})
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, items, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
}

func (h *Handler) ListUserOrders(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	ctx := c.Request.Context()
	cacheKey := "orders:user:" + strconv.FormatUint(userID, 10)
	if h.rdb != nil {
		if b, err := h.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var orders []domain.Order
			if json.Unmarshal([]byte(b), &orders) == nil {
				c.JSON(http.StatusOK, orders)
				return
			}
		}
	}

	orders, err := h.orders.ListOrdersByUser(ctx, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if h.rdb != nil {
		if data, err := json.Marshal(orders); err == nil {
			h.rdb.Set(context.Background(), cacheKey, data, 30*time.Second)
		}
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) CancelOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orders.CancelOrder(c.Request.Context(), id, req.UserID, req.Reason); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (h *Handler) InitiatePayment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	callbackURL := fmt.Sprintf("%s/payments/callback/%s", h.callbackBaseURL, req.Provider)
	result, err := h.payments.InitiatePayment(c.Request.Context(), id, req.UserID, req.Provider, callbackURL)
	if err != nil {
		h.writeError(c, err)
		return
	}

	// Provider rejections are part of the payment result, not an HTTP error,
	// so the client can render gateway-specific guidance.
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, result)
}

// PaymentCallback receives the provider redirect. Each provider names its
// correlation token and status flag differently; everything is normalized
// here before it reaches the settlement coordinator.
func (h *Handler) PaymentCallback(c *gin.Context) {
	provider := c.Param("provider")

	reference := firstNonEmpty(
		c.Query("Authority"),
		c.Query("Token"),
		c.Query("token"),
		c.PostForm("Token"),
		c.PostForm("token"),
	)
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing gateway reference"})
		return
	}
	rawStatus := firstNonEmpty(
		c.Query("Status"),
		c.Query("status"),
		c.PostForm("status"),
	)

	result, err := h.payments.VerifyPayment(c.Request.Context(), reference, callbackCancelled(provider, rawStatus))
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusOK
	if !result.Success && !result.AlreadySettled {
		status = http.StatusBadGateway
	}
	c.JSON(status, result)
}

func callbackCancelled(provider, rawStatus string) bool {
	if rawStatus == "" {
		return false
	}
	switch provider {
	case "zarinpal":
		return rawStatus != "OK"
	case "parsian":
		return rawStatus != "0"
	case "rayanpay":
		return rawStatus != "ok"
	}
	return false
}

func (h *Handler) RefundPayment(c *gin.Context) {
	var req RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.payments.RefundPayment(c.Request.Context(), c.Param("number"), req.Amount, req.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, result)
}

func (h *Handler) PaymentStatus(c *gin.Context) {
	result, err := h.payments.PaymentStatus(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case domain.IsForbidden(err):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case domain.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
