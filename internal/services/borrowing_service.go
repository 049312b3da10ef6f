package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"saiblibrary/internal/models"
	"saiblibrary/internal/repositories"
)

// ─── Inputs and Views ─────────────────────────────────────────────────────────

type CheckoutInput struct {
	BookID     uuid.UUID
	MemberID   uuid.UUID
	BorrowDate *models.Date
	DueDate    *models.Date
	Notes      *string
}

type ReturnInput struct {
	ReturnDate *models.Date
	FineAmount *decimal.Decimal
	Notes      *string
}

type UpdateBorrowingInput struct {
	DueDate    *models.Date
	FineAmount *decimal.Decimal
	Notes      *string
}

// BorrowingView is a ledger row as served to clients, with its status derived for
// the current day.
type BorrowingView struct {
	models.Borrowing
	Status        models.BorrowingStatus `json:"status"`
	BookTitle     string                 `json:"bookTitle"`
	ISBN          string                 `json:"isbn"`
	MemberName    string                 `json:"memberName"`
	MemberEmail   string                 `json:"memberEmail"`
	IsOverdue     bool                   `json:"isOverdue"`
	DaysOverdue   int                    `json:"daysOverdue"`
	ReturnedLate  bool                   `json:"returnedLate"`
	SuggestedFine decimal.Decimal        `json:"suggestedFine"`
}

// CounterDrift describes a book whose available copies disagreed with the ledger.
type CounterDrift struct {
	BookID    uuid.UUID `json:"bookId"`
	Title     string    `json:"title"`
	Total     int       `json:"totalCopies"`
	Open      int       `json:"openBorrowings"`
	Was       int       `json:"was"`
	Corrected int       `json:"corrected"`
}

// ─── Service Interface ────────────────────────────────────────────────────────

// BorrowingService maintains the ledger together with the books' available copies.
type BorrowingService interface {
	Checkout(ctx context.Context, in CheckoutInput) (*models.Borrowing, error)
	Return(ctx context.Context, id uuid.UUID, in ReturnInput) (models.BorrowingStatus, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateBorrowingInput) error
	Delete(ctx context.Context, id uuid.UUID) error

	Get(ctx context.Context, id uuid.UUID) (*BorrowingView, error)
	List(ctx context.Context, filter repositories.BorrowingFilter) ([]BorrowingView, error)

	ReconcileCounters(ctx context.Context) ([]CounterDrift, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type borrowingService struct {
	db            *gorm.DB
	bookRepo      repositories.BookRepository
	borrowingRepo repositories.BorrowingRepository
	memberRepo    repositories.MemberRepository
	opts          Options
	log           *slog.Logger
}

func NewBorrowingService(db *gorm.DB, repos repositories.Repositories, opts Options) BorrowingService {
	opts = opts.withDefaults()
	return &borrowingService{
		db:            db,
		bookRepo:      repos.Books,
		borrowingRepo: repos.Borrowings,
		memberRepo:    repos.Members,
		opts:          opts,
		log:           opts.Logger.With("service", "borrowing"),
	}
}

// ─── Checkout ─────────────────────────────────────────────────────────────────

// Checkout lends one copy of a book to a member.
//
// Preconditions are checked in order and the first failure is returned: book
// exists, a copy is on the shelf, member exists and is active, member does not
// already hold the book, due date after borrow date. The decrement of the
// available copies is conditional, so the last copy cannot be lent twice even
// when the earlier read raced with another checkout.
func (s *borrowingService) Checkout(ctx context.Context, in CheckoutInput) (*models.Borrowing, error) {
	switch {
	case in.BookID == uuid.Nil:
		return nil, MissingField("book ID is required")
	case in.MemberID == uuid.Nil:
		return nil, MissingField("member ID is required")
	case in.DueDate == nil:
		return nil, MissingField("due date is required")
	}

	borrowDate := s.opts.today()
	if in.BorrowDate != nil {
		borrowDate = *in.BorrowDate
	}

	var created *models.Borrowing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Book exists; lock its row for the rest of the transaction.
		book, err := s.bookRepo.GetByIDForUpdate(tx, in.BookID)
		if err != nil {
			return notFound(err, ErrBookNotFound)
		}

		// 2. A copy is on the shelf.
		if book.AvailableCopies <= 0 {
			return ErrNoCopiesAvailable
		}

		// 3. Member exists and is active.
		member, err := s.memberRepo.GetByID(tx, in.MemberID)
		if err != nil {
			return notFound(err, ErrMemberNotFound)
		}
		if !member.IsActive {
			return ErrMemberInactive
		}

		// 4. No open borrowing of this book by this member.
		existing, err := s.borrowingRepo.FindOpen(tx, book.ID, member.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing != nil {
			return ErrAlreadyBorrowed
		}

		// 5. Due date strictly after borrow date.
		if !in.DueDate.After(borrowDate) {
			return BadDate("due date must be after the borrow date")
		}

		taken, err := s.bookRepo.DecrementAvailable(tx, book.ID)
		if err != nil {
			return err
		}
		if !taken {
			return ErrNoCopiesAvailable
		}

		borrowing := &models.Borrowing{
			BookID:     book.ID,
			MemberID:   member.ID,
			BorrowDate: borrowDate,
			DueDate:    *in.DueDate,
			Status:     models.BorrowingStatusBorrowed,
			FineAmount: decimal.Zero,
			Notes:      in.Notes,
		}
		if err := s.borrowingRepo.Create(tx, borrowing); err != nil {
			return err
		}
		book.AvailableCopies--
		borrowing.Book = book
		borrowing.Member = member
		created = borrowing
		return nil
	})
	if err != nil {
		s.logFailure("checkout", err, "book_id", in.BookID, "member_id", in.MemberID)
		return nil, err
	}

	s.log.Info("checkout created",
		"borrowing_id", created.ID,
		"book_id", created.BookID,
		"member_id", created.MemberID,
		"due", created.DueDate.String(),
		"available_copies", created.Book.AvailableCopies,
	)
	return created, nil
}

// ─── Return ───────────────────────────────────────────────────────────────────

// Return closes an open borrowing and puts the copy back on the shelf. The
// returned status is Returned, or Overdue when the copy came back after its due
// date.
func (s *borrowingService) Return(ctx context.Context, id uuid.UUID, in ReturnInput) (models.BorrowingStatus, error) {
	if in.FineAmount != nil && in.FineAmount.IsNegative() {
		return "", InvalidArgument("fine amount must not be negative")
	}

	var status models.BorrowingStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		borrowing, err := s.borrowingRepo.GetByIDForUpdate(tx, id)
		if err != nil {
			return notFound(err, ErrBorrowingNotFound)
		}
		if !borrowing.IsOpen() {
			return ErrAlreadyReturned
		}

		returnDate := s.opts.today()
		if in.ReturnDate != nil {
			returnDate = *in.ReturnDate
		}
		if returnDate.Before(borrowing.BorrowDate) {
			return BadDate("return date cannot be before the borrow date")
		}

		status = models.ReturnStatus(borrowing.DueDate, returnDate)
		closed, err := s.borrowingRepo.MarkReturned(tx, borrowing.ID, returnDate, status, in.FineAmount, in.Notes)
		if err != nil {
			return err
		}
		if !closed {
			return ErrAlreadyReturned
		}
		return s.bookRepo.IncrementAvailable(tx, borrowing.BookID)
	})
	if err != nil {
		s.logFailure("return", err, "borrowing_id", id)
		return "", err
	}

	s.log.Info("return recorded", "borrowing_id", id, "status", status)
	return status, nil
}

// ─── Update and Delete ────────────────────────────────────────────────────────

// Update changes the due date, fine or notes of a borrowing. Status is derived and
// cannot be written.
func (s *borrowingService) Update(ctx context.Context, id uuid.UUID, in UpdateBorrowingInput) error {
	if in.DueDate == nil && in.FineAmount == nil && in.Notes == nil {
		return MissingField("no fields to update")
	}
	if in.FineAmount != nil && in.FineAmount.IsNegative() {
		return InvalidArgument("fine amount must not be negative")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		borrowing, err := s.borrowingRepo.GetByIDForUpdate(tx, id)
		if err != nil {
			return notFound(err, ErrBorrowingNotFound)
		}

		fields := map[string]any{}
		if in.DueDate != nil {
			if !in.DueDate.After(borrowing.BorrowDate) {
				return BadDate("due date must be after the borrow date")
			}
			fields["due_date"] = *in.DueDate
		}
		if in.FineAmount != nil {
			fields["fine_amount"] = *in.FineAmount
		}
		if in.Notes != nil {
			fields["notes"] = *in.Notes
		}
		return s.borrowingRepo.Update(tx, borrowing.ID, fields)
	})
	if err != nil {
		s.logFailure("update", err, "borrowing_id", id)
		return err
	}
	s.log.Info("borrowing updated", "borrowing_id", id)
	return nil
}

// Delete removes a ledger row. An open row first gives its copy back so the
// counter stays consistent with the ledger.
func (s *borrowingService) Delete(ctx context.Context, id uuid.UUID) error {
	var restored bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		borrowing, err := s.borrowingRepo.GetByIDForUpdate(tx, id)
		if err != nil {
			return notFound(err, ErrBorrowingNotFound)
		}
		if borrowing.IsOpen() {
			if err := s.bookRepo.IncrementAvailable(tx, borrowing.BookID); err != nil {
				return err
			}
			restored = true
		}
		return s.borrowingRepo.Delete(tx, borrowing.ID)
	})
	if err != nil {
		s.logFailure("delete", err, "borrowing_id", id)
		return err
	}
	s.log.Info("borrowing deleted", "borrowing_id", id, "copy_restored", restored)
	return nil
}

// ─── Queries ──────────────────────────────────────────────────────────────────

func (s *borrowingService) Get(ctx context.Context, id uuid.UUID) (*BorrowingView, error) {
	borrowing, err := s.borrowingRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, notFound(err, ErrBorrowingNotFound)
	}
	view := s.view(borrowing, s.opts.today())
	return &view, nil
}

func (s *borrowingService) List(ctx context.Context, filter repositories.BorrowingFilter) ([]BorrowingView, error) {
	borrowings, err := s.borrowingRepo.List(s.db.WithContext(ctx), filter)
	if err != nil {
		return nil, err
	}
	today := s.opts.today()
	views := make([]BorrowingView, 0, len(borrowings))
	for i := range borrowings {
		views = append(views, s.view(&borrowings[i], today))
	}
	return views, nil
}

func (s *borrowingService) view(b *models.Borrowing, today models.Date) BorrowingView {
	status := models.DeriveStatus(b, today)
	days := models.DaysOverdue(b, today)
	v := BorrowingView{
		Borrowing:     *b,
		Status:        status,
		IsOverdue:     status == models.BorrowingStatusOverdue,
		DaysOverdue:   days,
		ReturnedLate:  b.ReturnDate != nil && days > 0,
		SuggestedFine: calculateFine(days, s.opts.FinePerDay),
	}
	if b.Book != nil {
		v.BookTitle = b.Book.Title
		v.ISBN = b.Book.ISBN
	}
	if b.Member != nil {
		v.MemberName = b.Member.FullName()
		v.MemberEmail = b.Member.Email
	}
	return v
}

// ─── Counter Reconciliation ───────────────────────────────────────────────────

// ReconcileCounters recomputes every book's available copies from the ledger and
// returns the books that had drifted.
func (s *borrowingService) ReconcileCounters(ctx context.Context) ([]CounterDrift, error) {
	var drifts []CounterDrift
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		books, err := s.bookRepo.List(tx, repositories.BookFilter{})
		if err != nil {
			return err
		}
		open, err := s.borrowingRepo.CountOpenByBook(tx)
		if err != nil {
			return err
		}
		for _, book := range books {
			want := book.TotalCopies - open[book.ID]
			if want < 0 {
				want = 0
			}
			if want == book.AvailableCopies {
				continue
			}
			if err := s.bookRepo.SetAvailable(tx, book.ID, want); err != nil {
				return err
			}
			drifts = append(drifts, CounterDrift{
				BookID:    book.ID,
				Title:     book.Title,
				Total:     book.TotalCopies,
				Open:      open[book.ID],
				Was:       book.AvailableCopies,
				Corrected: want,
			})
		}
		return nil
	})
	if err != nil {
		s.log.Error("reconcile failed", "err", err)
		return nil, err
	}
	for _, d := range drifts {
		s.log.Warn("available copies corrected", "book_id", d.BookID, "was", d.Was, "now", d.Corrected, "open", d.Open)
	}
	return drifts, nil
}

// ─── Internal Helpers ─────────────────────────────────────────────────────────

func (s *borrowingService) logFailure(op string, err error, attrs ...any) {
	logFailure(s.log, op, err, attrs...)
}

// calculateFine suggests a fine for a number of days overdue: FinePerDay for each
// calendar day, nothing when the copy was on time. Fines are never charged
// automatically; librarians enter them on return.
func calculateFine(daysOverdue int, finePerDay decimal.Decimal) decimal.Decimal {
	if daysOverdue <= 0 {
		return decimal.Zero
	}
	return finePerDay.Mul(decimal.NewFromInt(int64(daysOverdue)))
}
