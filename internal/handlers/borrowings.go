package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"saiblibrary/internal/models"
	"saiblibrary/internal/repositories"
	"saiblibrary/internal/services"
)

type checkoutRequest struct {
	BookID     uuid.UUID    `json:"bookId"`
	MemberID   uuid.UUID    `json:"memberId"`
	BorrowDate *models.Date `json:"borrowDate"`
	DueDate    *models.Date `json:"dueDate"`
	Notes      *string      `json:"notes"`
}

func (h *LibraryHandler) checkout(c *gin.Context) {
	var req checkoutRequest
	if !bind(c, &req) {
		return
	}
	borrowing, err := h.borrowings.Checkout(c.Request.Context(), services.CheckoutInput{
		BookID:     req.BookID,
		MemberID:   req.MemberID,
		BorrowDate: req.BorrowDate,
		DueDate:    req.DueDate,
		Notes:      req.Notes,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "book borrowed successfully", gin.H{
		"id":        borrowing.ID,
		"bookTitle": borrowing.Book.Title,
	})
}

type returnRequest struct {
	ReturnDate *models.Date     `json:"returnDate"`
	FineAmount *decimal.Decimal `json:"fineAmount"`
	Notes      *string          `json:"notes"`
}

func (h *LibraryHandler) returnBorrowing(c *gin.Context) {
	id, valid := pathID(c, "id", "borrowing")
	if !valid {
		return
	}
	var req returnRequest
	// the body is optional
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	status, err := h.borrowings.Return(c.Request.Context(), id, services.ReturnInput{
		ReturnDate: req.ReturnDate,
		FineAmount: req.FineAmount,
		Notes:      req.Notes,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "book returned successfully", gin.H{"status": status})
}

type updateBorrowingRequest struct {
	DueDate    *models.Date     `json:"dueDate"`
	FineAmount *decimal.Decimal `json:"fineAmount"`
	Notes      *string          `json:"notes"`
}

func (h *LibraryHandler) updateBorrowing(c *gin.Context) {
	id, valid := pathID(c, "id", "borrowing")
	if !valid {
		return
	}
	var req updateBorrowingRequest
	if !bind(c, &req) {
		return
	}
	err := h.borrowings.Update(c.Request.Context(), id, services.UpdateBorrowingInput{
		DueDate:    req.DueDate,
		FineAmount: req.FineAmount,
		Notes:      req.Notes,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "borrowing updated", nil)
}

func (h *LibraryHandler) deleteBorrowing(c *gin.Context) {
	id, valid := pathID(c, "id", "borrowing")
	if !valid {
		return
	}
	if err := h.borrowings.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "borrowing deleted", nil)
}

// ─── Queries ──────────────────────────────────────────────────────────────────

func (h *LibraryHandler) listBorrowings(c *gin.Context) {
	filter := repositories.BorrowingFilter{OpenOnly: c.Query("open") == "true"}
	h.respondBorrowings(c, filter)
}

// publicBorrowing is the part of a ledger row anyone may see on a book's page.
type publicBorrowing struct {
	ID         uuid.UUID              `json:"id"`
	MemberID   uuid.UUID              `json:"memberId"`
	MemberName string                 `json:"memberName"`
	BorrowDate models.Date            `json:"borrowDate"`
	DueDate    models.Date            `json:"dueDate"`
	ReturnDate *models.Date           `json:"returnDate"`
	Status     models.BorrowingStatus `json:"status"`
}

// listBookBorrowings is public. Staff get the full rows; everyone else gets
// dates, status and the borrower's name.
func (h *LibraryHandler) listBookBorrowings(c *gin.Context) {
	bookID, valid := pathID(c, "bookId", "book")
	if !valid {
		return
	}
	filter := repositories.BorrowingFilter{BookID: bookID, OpenOnly: c.Query("open") == "true"}
	if who, _ := identityFrom(c); who.Role.IsStaff() {
		h.respondBorrowings(c, filter)
		return
	}
	views, err := h.borrowings.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	public := make([]publicBorrowing, 0, len(views))
	for _, v := range views {
		public = append(public, publicBorrowing{
			ID:         v.ID,
			MemberID:   v.MemberID,
			MemberName: v.MemberName,
			BorrowDate: v.BorrowDate,
			DueDate:    v.DueDate,
			ReturnDate: v.ReturnDate,
			Status:     v.Status,
		})
	}
	ok(c, http.StatusOK, "", public)
}

func (h *LibraryHandler) listMemberBorrowings(c *gin.Context) {
	memberID, valid := pathID(c, "memberId", "member")
	if !valid {
		return
	}
	if !canSee(c, memberID) {
		fail(c, services.ErrForbidden)
		return
	}
	h.respondBorrowings(c, repositories.BorrowingFilter{MemberID: memberID, OpenOnly: c.Query("open") == "true"})
}

func (h *LibraryHandler) respondBorrowings(c *gin.Context, filter repositories.BorrowingFilter) {
	views, err := h.borrowings.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", views)
}

func (h *LibraryHandler) getBorrowing(c *gin.Context) {
	id, valid := pathID(c, "id", "borrowing")
	if !valid {
		return
	}
	view, err := h.borrowings.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !canSee(c, view.MemberID) {
		fail(c, services.ErrForbidden)
		return
	}
	ok(c, http.StatusOK, "", view)
}
