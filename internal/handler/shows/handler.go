package shows

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/eventium/eventium/internal/handler"
	"github.com/eventium/eventium/internal/model"
	showService "github.com/eventium/eventium/internal/shows"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("future", func(fl validator.FieldLevel) bool {
			t, ok := fl.Field().Interface().(time.Time)
			return ok && t.After(time.Now())
		})
	}
}

type Handler struct {
	service *showService.Service
}

func NewHandler(service *showService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	shows := r.Group("/shows")
	{
		shows.POST("", h.CreateShow)
		shows.GET("/:id", h.GetShow)
		shows.POST("/:id/cancel", h.CancelShow)
	}
}

type createShowRequest struct {
	Name           string    `json:"name" binding:"required"`
	OrganizerEmail string    `json:"organizer_email" binding:"required,email"`
	StartsAt       time.Time `json:"starts_at" binding:"required,future"`
}

func (h *Handler) CreateShow(c *gin.Context) {
	var req createShowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	show := &model.Show{
		Name:           req.Name,
		OrganizerEmail: req.OrganizerEmail,
		StartsAt:       req.StartsAt,
	}
	if err := h.service.CreateShow(c.Request.Context(), show); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to create show"))
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(show))
}

func (h *Handler) GetShow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid show ID"))
		return
	}

	show, err := h.service.GetShow(c.Request.Context(), id)
	if err != nil {
		c.JSON(handler.StatusForError(err), handler.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(show))
}

// CancelShow accepts the cancellation and returns immediately; refunds and
// archival catch up asynchronously through the saga.
func (h *Handler) CancelShow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid show ID"))
		return
	}

	if err := h.service.RequestCancellation(c.Request.Context(), id); err != nil {
		if errors.Is(err, model.ErrShowNotCancellable) {
			c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(handler.StatusForError(err), handler.NewErrorResponse("failed to cancel show"))
		return
	}
	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(gin.H{"show_id": id}))
}
