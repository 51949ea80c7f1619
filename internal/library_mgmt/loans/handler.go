package loans

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookio-backend/internal/platform/apperr"
	"bookio-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service, authed, libraryOnly gin.HandlerFunc) {
	h := &Handler{svc: svc}

	r.POST("/loans", authed, libraryOnly, h.CreateLoan)
	r.GET("/loans", authed, libraryOnly, h.ListLoans)
	r.GET("/loans/:loan_id", authed, h.GetLoan)
	r.GET("/loans/:loan_id/status", authed, libraryOnly, h.VerifyLoanStatus)
	r.PATCH("/loans/:loan_id/status", authed, libraryOnly, h.UpdateLoanStatus)
	r.DELETE("/loans/:loan_id", authed, libraryOnly, h.DeleteLoan)

	r.GET("/readers/:reader_id/loans", authed, h.ListByReader)
	r.GET("/libraries/:library_id/loans", authed, libraryOnly, h.ListByLibrary)
}

func (h *Handler) CreateLoan(c *gin.Context) {
	var req CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "book_id, reader_id and return_date are required"))
		return
	}

	res, err := h.svc.CreateLoan(c.Request.Context(), req)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GetLoan: 図書館は自館スコープ、読者は自分の貸出のみ
func (h *Handler) GetLoan(c *gin.Context) {
	loanID := c.Param("loan_id")

	var res *LoanResponse
	var err error
	if auth.Role(c) == auth.RoleLibrary {
		res, err = h.svc.GetLoanForLibrary(c.Request.Context(), loanID, auth.UserID(c))
	} else {
		res, err = h.svc.GetLoanForReader(c.Request.Context(), loanID, auth.UserID(c))
	}
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListLoans(c *gin.Context) {
	res, err := h.svc.ListLoans(c.Request.Context())
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListByReader(c *gin.Context) {
	readerID := c.Param("reader_id")
	// 読者は自分の履歴しか見られない
	if auth.Role(c) == auth.RoleReader && auth.UserID(c) != readerID {
		c.JSON(http.StatusForbidden, apperr.Body(apperr.CodeNotAllowed, "cannot list another reader's loans"))
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

func (h *Handler) UpdateLoanStatus(c *gin.Context) {
	var req UpdateLoanStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "status is required"))
		return
	}

	res, err := h.svc.UpdateLoanStatus(c.Request.Context(), c.Param("loan_id"), auth.UserID(c), req.Status)
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) VerifyLoanStatus(c *gin.Context) {
	res, err := h.svc.VerifyLoanStatus(c.Request.Context(), c.Param("loan_id"), auth.UserID(c))
	if err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteLoan(c *gin.Context) {
	if err := h.svc.DeleteLoan(c.Request.Context(), c.Param("loan_id"), auth.UserID(c)); err != nil {
		c.JSON(apperr.ToHTTPStatus(err), apperr.FromErr(err))
		return
	}
	c.Status(http.StatusNoContent)
}
