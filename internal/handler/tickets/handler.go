package tickets

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventium/eventium/internal/handler"
	"github.com/eventium/eventium/internal/model"
	ticketService "github.com/eventium/eventium/internal/tickets"
)

type Handler struct {
	service *ticketService.Service
}

func NewHandler(service *ticketService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	pools := r.Group("/pools")
	{
		pools.POST("", h.CreatePool)
	}
}

type createPoolRequest struct {
	ShowID        string `json:"show_id" binding:"required,uuid"`
	Name          string `json:"name" binding:"required"`
	UnitPrice     int64  `json:"unit_price" binding:"required,min=0"`
	TotalQuantity int    `json:"total_quantity" binding:"required,min=1"`
}

func (h *Handler) CreatePool(c *gin.Context) {
	var req createPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	showID, err := uuid.Parse(req.ShowID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid show ID"))
		return
	}

	pool := &model.TicketPool{
		ShowID:            showID,
		Name:              req.Name,
		UnitPrice:         req.UnitPrice,
		TotalQuantity:     req.TotalQuantity,
		AvailableQuantity: req.TotalQuantity,
	}
	if err := h.service.CreatePool(c.Request.Context(), pool); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to create pool"))
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(pool))
}
