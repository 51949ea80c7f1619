package readers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookio-backend/internal/platform/apperr"
	"bookio-backend/internal/platform/auth"
)

const maxPictureSize = 5 << 20

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service, authed, libraryOnly gin.HandlerFunc) {
	h := &Handler{svc: svc}

	r.POST("/readers", authed, libraryOnly, h.CreateReader)
	r.GET("/readers/:reader_id", authed, h.GetReader)
	r.PUT("/readers/:reader_id", authed, libraryOnly, h.UpdateReader)
	r.DELETE("/readers/:reader_id", authed, libraryOnly, h.DeleteReader)
	r.PATCH("/readers/:reader_id/picture", authed, h.UploadPicture)
	r.GET("/libraries/:library_id/readers", authed, libraryOnly, h.ListByLibrary)
}

func (h *Handler) CreateReader(c *gin.Context) {
	var req CreateReaderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "name, email and cpf are required"))
		return
	}

	res, err := h.svc.CreateReader(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetReader(c *gin.Context) {
	res, err := h.svc.GetReader(c.Request.Context(), c.Param("reader_id"))
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

func (h *Handler) UpdateReader(c *gin.Context) {
	var req UpdateReaderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json"))
		return
	}

	res, err := h.svc.UpdateReader(c.Request.Context(), c.Param("reader_id"), auth.UserID(c), req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteReader(c *gin.Context) {
	if err := h.svc.DeleteReader(c.Request.Context(), c.Param("reader_id"), auth.UserID(c)); err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadPicture: 本人のみ。読者トークンの subject とパスIDの一致を確認する。
func (h *Handler) UploadPicture(c *gin.Context) {
	readerID := c.Param("reader_id")
	if auth.Role(c) != auth.RoleReader || auth.UserID(c) != readerID {
		c.JSON(http.StatusForbidden, apperr.Body(apperr.CodeNotAllowed, "cannot change another reader's picture"))
		return
	}

	fileHeader, err := c.FormFile("picture")
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "picture file is required"))
		return
	}
	if fileHeader.Size > maxPictureSize {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "picture exceeds 5MB"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, apperr.Body(apperr.CodeInternal, "failed to read picture"))
		return
	}
	defer f.Close()

	res, err := h.svc.AttachPicture(c.Request.Context(), readerID, f, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}
