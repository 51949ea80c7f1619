package libraries

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookio-backend/internal/platform/apperr"
	"bookio-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service, authed, libraryOnly gin.HandlerFunc) {
	h := &Handler{svc: svc}

	// 登録だけは未認証で受ける
	r.POST("/libraries", h.CreateLibrary)
	r.GET("/libraries/:library_id", authed, h.GetLibrary)
	r.PUT("/libraries/:library_id", authed, libraryOnly, h.UpdateLibrary)
	r.DELETE("/libraries/:library_id", authed, libraryOnly, h.DeleteLibrary)
}

func (h *Handler) CreateLibrary(c *gin.Context) {
	var req CreateLibraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "name, email, cnpj and password are required"))
		return
	}

	res, err := h.svc.CreateLibrary(c.Request.Context(), req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetLibrary(c *gin.Context) {
	res, err := h.svc.GetLibrary(c.Request.Context(), c.Param("library_id"))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// 自分のアカウントしか触れない
func (h *Handler) UpdateLibrary(c *gin.Context) {
	libraryID := c.Param("library_id")
	if auth.UserID(c) != libraryID {
		c.JSON(http.StatusForbidden, apperr.Body(apperr.CodeNotAllowed, "cannot modify another library"))
		return
	}

	var req UpdateLibraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json"))
		return
	}

	res, err := h.svc.UpdateLibrary(c.Request.Context(), libraryID, req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteLibrary(c *gin.Context) {
	libraryID := c.Param("library_id")
	if auth.UserID(c) != libraryID {
		c.JSON(http.StatusForbidden, apperr.Body(apperr.CodeNotAllowed, "cannot delete another library"))
		return
	}

	if err := h.svc.DeleteLibrary(c.Request.Context(), libraryID); err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.Status(http.StatusNoContent)
}
