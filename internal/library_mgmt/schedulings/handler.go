package schedulings

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookio-backend/internal/platform/apperr"
	"bookio-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service, authed, readerOnly gin.HandlerFunc) {
	h := &Handler{svc: svc}

	r.POST("/schedulings", authed, readerOnly, h.CreateScheduling)
	r.GET("/schedulings/:scheduling_id", authed, h.GetScheduling)
	r.DELETE("/schedulings/:scheduling_id", authed, readerOnly, h.CancelScheduling)
	r.GET("/readers/:reader_id/schedulings", authed, h.ListByReader)
	r.GET("/libraries/:library_id/schedulings", authed, h.ListByLibrary)
}

func (h *Handler) CreateScheduling(c *gin.Context) {
	var req CreateSchedulingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "book_id is required"))
		return
	}

	res, err := h.svc.Create(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetScheduling(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), c.Param("scheduling_id"))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CancelScheduling(c *gin.Context) {
	err := h.svc.Cancel(c.Request.Context(), c.Param("scheduling_id"), auth.UserID(c))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListByReader(c *gin.Context) {
	res, err := h.svc.ListByReader(c.Request.Context(), c.Param("reader_id"))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListByLibrary(c *gin.Context) {
	res, err := h.svc.ListByLibrary(c.Request.Context(), c.Param("library_id"))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}
