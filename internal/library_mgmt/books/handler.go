package books

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookio-backend/internal/platform/apperr"
	"bookio-backend/internal/platform/auth"
)

// 5MB cover limit, the frontend resizes before upload anyway
const maxImageSize = 5 << 20

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service, authed, libraryOnly gin.HandlerFunc) {
	h := &Handler{svc: svc}

	r.POST("/books", authed, libraryOnly, h.CreateBook)
	r.GET("/books/:book_id", authed, h.GetBook)
	r.PUT("/books/:book_id", authed, libraryOnly, h.UpdateBook)
	r.DELETE("/books/:book_id", authed, libraryOnly, h.DeleteBook)
	r.PATCH("/books/:book_id/image", authed, libraryOnly, h.UploadImage)

	// 図書館起点の検索系
	r.GET("/libraries/:library_id/books", authed, h.ListBooks)
	r.GET("/libraries/:library_id/books/most-borrowed", authed, h.MostBorrowed)
}

func (h *Handler) CreateBook(c *gin.Context) {
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.CreateBook(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}

	c.Header("Location", "/books/"+res.ID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetBook(c *gin.Context) {
	res, err := h.svc.GetBook(c.Request.Context(), c.Param("book_id"))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListBooks: ?title= で単一検索、?gender= で絞り込み、無指定で全件
func (h *Handler) ListBooks(c *gin.Context) {
	libraryID := c.Param("library_id")

	if title := c.Query("title"); title != "" {
		res, err := h.svc.GetBookByTitle(c.Request.Context(), title, libraryID)
		if err != nil {
			c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
			return
		}
		c.JSON(http.StatusOK, []BookResponse{*res})
		return
	}

	if gender := c.Query("gender"); gender != "" {
		res, err := h.svc.ListByGender(c.Request.Context(), libraryID, gender)
		if err != nil {
			c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
			return
		}
		c.JSON(http.StatusOK, res)
		return
	}

	res, err := h.svc.ListByLibrary(c.Request.Context(), libraryID)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) MostBorrowed(c *gin.Context) {
	res, err := h.svc.MostBorrowed(c.Request.Context(), c.Param("library_id"))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdateBook(c *gin.Context) {
	var req UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json"))
		return
	}

	res, err := h.svc.UpdateBook(c.Request.Context(), c.Param("book_id"), auth.UserID(c), req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteBook(c *gin.Context) {
	if err := h.svc.DeleteBook(c.Request.Context(), c.Param("book_id"), auth.UserID(c)); err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "image file is required"))
		return
	}
	if fileHeader.Size > maxImageSize {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "image exceeds 5MB"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, apperr.Body(apperr.CodeInternal, "failed to read image"))
		return
	}
	defer f.Close()

	res, err := h.svc.AttachImage(c.Request.Context(), c.Param("book_id"), auth.UserID(c), f, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}
