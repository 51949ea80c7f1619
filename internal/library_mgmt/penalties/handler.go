package penalties

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookio-backend/internal/platform/apperr"
	"bookio-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service, authed, libraryOnly gin.HandlerFunc) {
	h := &Handler{svc: svc}

	r.POST("/penalties", authed, libraryOnly, h.CreatePenalty)
	r.GET("/penalties/:penalty_id", authed, h.GetPenalty)
	r.POST("/penalties/:penalty_id/pay", authed, h.PayPenalty)
	r.DELETE("/penalties/:penalty_id", authed, libraryOnly, h.DeletePenalty)
	r.GET("/readers/:reader_id/penalties", authed, h.ListByReader)
	r.GET("/libraries/:library_id/penalties", authed, libraryOnly, h.ListByLibrary)
}

func (h *Handler) CreatePenalty(c *gin.Context) {
	var req CreatePenaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "reader_id, loan_id, amount and due_date are required"))
		return
	}

	res, err := h.svc.CreatePenalty(c.Request.Context(), req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetPenalty(c *gin.Context) {
	res, err := h.svc.GetPenalty(c.Request.Context(), c.Param("penalty_id"))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) PayPenalty(c *gin.Context) {
	res, err := h.svc.PayPenalty(c.Request.Context(), c.Param("penalty_id"))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeletePenalty(c *gin.Context) {
	if err := h.svc.DeletePenalty(c.Request.Context(), c.Param("penalty_id")); err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListByReader(c *gin.Context) {
	readerID := c.Param("reader_id")
	if auth.Role(c) == auth.RoleReader && auth.UserID(c) != readerID {
		c.JSON(http.StatusForbidden, apperr.Body(apperr.CodeNotAllowed, "cannot list another reader's penalties"))
		return
	}

	res, err := h.svc.ListByReader(c.Request.Context(), readerID)
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
