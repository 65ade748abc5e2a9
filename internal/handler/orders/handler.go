package orders

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventium/eventium/internal/handler"
	"github.com/eventium/eventium/internal/model"
	orderService "github.com/eventium/eventium/internal/orders"
)

type Handler struct {
	service *orderService.Service
}

func NewHandler(service *orderService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	orders := r.Group("/orders")
	{
		orders.POST("", h.PlacePurchase)
	}
}

type purchaseItemRequest struct {
	PoolID   string `json:"pool_id" binding:"required,uuid"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

type purchaseRequest struct {
	ShowID     string                `json:"show_id" binding:"required,uuid"`
	BuyerEmail string                `json:"buyer_email" binding:"required,email"`
	Items      []purchaseItemRequest `json:"items" binding:"required,min=1,dive"`
}

// PlacePurchase runs the synchronous purchase transaction. Insufficient
// stock is a normal business rejection reported in this same request.
func (h *Handler) PlacePurchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	showID, err := uuid.Parse(req.ShowID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid show ID"))
		return
	}

	items := make([]orderService.PurchaseItem, 0, len(req.Items))
	for _, item := range req.Items {
		poolID, err := uuid.Parse(item.PoolID)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid pool ID"))
			return
		}
		items = append(items, orderService.PurchaseItem{PoolID: poolID, Quantity: item.Quantity})
	}

	order, err := h.service.PlacePurchase(c.Request.Context(), showID, req.BuyerEmail, items)
	if err != nil {
		if errors.Is(err, model.ErrInsufficientStock) {
			c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to place order"))
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(order))
}
