package simulator

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"expeditor/internal/models"
)

// Server is a stand-in POS backend for developing the kitchen display
// against. It speaks the same envelope contract as the real thing and
// enforces status transitions server-side, so a stale client sees the same
// rejections it would in production.
type Server struct {
	router *gin.Engine
	store  *Store
	hub    *Hub
}

// NewServer wires the routes over the given store.
func NewServer(store *Store) *Server {
	s := &Server{
		router: gin.Default(),
		store:  store,
		hub:    NewHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws", s.handleWebSocket)

	api := s.router.Group("/api/v1")
	{
		api.POST("/auth/login", s.handleLogin)

		authed := api.Group("", authRequired())
		{
			authed.POST("/auth/logout", s.handleLogout)
			authed.GET("/auth/me", s.handleMe)
			authed.GET("/kitchen/orders", s.handleListOrders)
			authed.PATCH("/kitchen/orders/:orderID/items/:itemID/status", s.handleItemStatus)
			authed.POST("/orders", s.handleCreateOrder)
			authed.GET("/orders/:orderID", s.handleGetOrder)
			authed.PATCH("/orders/:orderID/status", s.handleOrderStatus)
		}
	}
}

// Router returns the Gin router.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"status": "ok"}})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}

	account, ok := staff[req.Username]
	if !ok || account.Password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid credentials"})
		return
	}

	token, err := issueToken(account.User)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    models.LoginResponse{Token: token, User: account.User},
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	// Tokens are stateless; logout is a client-side affair.
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleMe(c *gin.Context) {
	claims := c.MustGet(userContextKey).(*Claims)
	account, ok := staff[claims.Username]
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unknown user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": account.User})
}

func (s *Server) handleListOrders(c *gin.Context) {
	orders, err := s.store.ListOrders(c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": orders})
}

func (s *Server) handleGetOrder(c *gin.Context) {
	order, err := s.store.GetOrder(c.Param("orderID"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "order not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
}

type createOrderRequest struct {
	models.Order
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}
	if req.Status == "" {
		req.Status = models.OrderStatusConfirmed
	}

	order, err := s.store.CreateOrder(req.Order)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}

	s.hub.Broadcast(OrderEvent{Type: "order_created", Order: order})
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": order})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

func (s *Server) handleOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}

	order, err := s.store.AdvanceOrder(c.Param("orderID"), models.OrderStatus(req.Status), req.Notes)
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "order not found"})
	case errors.Is(err, ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
	default:
		s.hub.Broadcast(OrderEvent{Type: "order_updated", Order: order})
		c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
	}
}

func (s *Server) handleItemStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}

	orderID := c.Param("orderID")
	err := s.store.AdvanceItem(orderID, c.Param("itemID"), models.ItemStatus(req.Status))
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "item not found"})
	case errors.Is(err, ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
	default:
		if order, getErr := s.store.GetOrder(orderID); getErr == nil {
			s.hub.Broadcast(OrderEvent{Type: "order_updated", Order: order})
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
