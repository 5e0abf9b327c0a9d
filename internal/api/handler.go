package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"chrisshop/internal/apperr"
	"chrisshop/internal/models"
	"chrisshop/internal/service"
	"chrisshop/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	auth     *service.AuthService
	catalog  *service.CatalogService
	cart     *service.CartService
	checkout *service.CheckoutService
	orders   *service.OrderService
	tickets  *service.TicketService
	cookies  *sessions.CookieStore
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	auth *service.AuthService,
	catalog *service.CatalogService,
	cart *service.CartService,
	checkout *service.CheckoutService,
	orders *service.OrderService,
	tickets *service.TicketService,
	sessionSecret string,
	sessionTTL time.Duration,
) *Handler {
	cookies := sessions.NewCookieStore([]byte(sessionSecret))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
	}

	return &Handler{
		auth:     auth,
		catalog:  catalog,
		cart:     cart,
		checkout: checkout,
		orders:   orders,
		tickets:  tickets,
		cookies:  cookies,
		logger:   util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())
	router.Use(sessionMiddleware(h.cookies, h.auth))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/register", h.register)
		v1.POST("/auth/login", h.login)
		v1.POST("/auth/logout", h.logout)

		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)

		customer := v1.Group("", requireAuth())
		{
			customer.GET("/cart", h.getCart)
			customer.GET("/cart/count", h.cartCount)
			customer.POST("/cart", h.addToCart)
			customer.PUT("/cart/:id", h.updateCartLine)
			customer.DELETE("/cart/:id", h.removeCartLine)

			customer.POST("/checkout", h.processCheckout)

			customer.GET("/orders", h.listOrders)
			customer.GET("/orders/:id", h.getOrder)
			customer.GET("/orders/:id/ticket", h.orderTicket)
			customer.POST("/orders/:id/cancel", h.cancelOrder)
		}

		admin := v1.Group("/admin", requireRole(models.RoleAdmin))
		{
			admin.GET("/dashboard", h.dashboard)
			admin.GET("/products", h.adminListProducts)
			admin.POST("/products", h.createProduct)
			admin.PUT("/products/:id", h.updateProduct)
			admin.DELETE("/products/:id", h.deleteProduct)
			admin.POST("/products/:id/toggle", h.toggleProduct)
			admin.PUT("/orders/:id/status", h.setOrderStatus)
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

// --- catalog ---

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.ListActive(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	product, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": product})
}

// --- cart ---

func (h *Handler) getCart(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	view, err := h.cart.List(c.Request.Context(), principal.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cart": view})
}

func (h *Handler) cartCount(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	count, err := h.cart.Count(c.Request.Context(), principal.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cartCount": count})
}

type addToCartRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

func (h *Handler) addToCart(c *gin.Context) {
	principal, _ := currentPrincipal(c)

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	count, err := h.cart.Add(c.Request.Context(), principal.UserID, req.ProductID, req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cartCount": count})
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func (h *Handler) updateCartLine(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	lineID, ok := pathID(c)
	if !ok {
		return
	}

	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	if err := h.cart.UpdateQuantity(c.Request.Context(), principal.UserID, lineID, req.Quantity); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) removeCartLine(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	lineID, ok := pathID(c)
	if !ok {
		return
	}

	count, err := h.cart.Remove(c.Request.Context(), principal.UserID, lineID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cartCount": count})
}

// --- checkout & orders ---

func (h *Handler) processCheckout(c *gin.Context) {
	principal, _ := currentPrincipal(c)

	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	resp, err := h.checkout.Checkout(c.Request.Context(), principal, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "orderId": resp.OrderID, "total": resp.Total, "status": resp.Status})
}

func (h *Handler) listOrders(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	orders, err := h.orders.History(c.Request.Context(), principal)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders, "isAdmin": principal.IsAdmin()})
}

func (h *Handler) getOrder(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	order, lines, err := h.orders.Get(c.Request.Context(), principal, orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order, "lines": lines})
}

func (h *Handler) orderTicket(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	order, lines, user, err := h.orders.TicketData(c.Request.Context(), principal, orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	pdf, err := h.tickets.Render(order, lines, user)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "inline; filename=ticket-orden-"+strconv.FormatInt(orderID, 10)+".pdf")
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *Handler) cancelOrder(c *gin.Context) {
	principal, _ := currentPrincipal(c)
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.orders.Cancel(c.Request.Context(), principal, orderID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// --- helpers ---

// pathID parses the :id path parameter, responding 400 itself on bad input
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid id"})
		return 0, false
	}
	return id, true
}

// respondError maps the error taxonomy to HTTP. Anything unrecognized is a
// generic server error; storage detail never reaches the client.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidQuantity),
		errors.Is(err, apperr.ErrInvalidStatus),
		errors.Is(err, apperr.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, apperr.ErrBadCredentials),
		errors.Is(err, apperr.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, apperr.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrNotCancellable):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, apperr.ErrEmptyCart),
		errors.Is(err, apperr.ErrProductUnavailable),
		errors.Is(err, apperr.ErrInsufficientStock),
		errors.Is(err, apperr.ErrInvalidTransition),
		errors.Is(err, apperr.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
	default:
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "server error"})
	}
}
