package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"saiblibrary/internal/config"
	"saiblibrary/internal/database"
	"saiblibrary/internal/models"
	"saiblibrary/internal/repositories"
)

const testPassword = "secret123"

type fixture struct {
	db    *gorm.DB
	repos repositories.Repositories
	now   time.Time

	borrowings BorrowingService
	catalog    CatalogService
	members    MemberService
	auth       AuthService
	admins     AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.Open(config.Database{
		Driver:          config.DriverSQLite,
		URL:             filepath.Join(t.TempDir(), "library.db") + "?_busy_timeout=5000&_foreign_keys=1",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	}, log)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	f := &fixture{
		db:    db,
		repos: repositories.New(db),
		now:   time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC),
	}
	opts := Options{
		Logger:     log,
		FinePerDay: decimal.NewFromInt(10),
		BcryptCost: bcrypt.MinCost,
		Now:        func() time.Time { return f.now },
	}
	f.borrowings = NewBorrowingService(db, f.repos, opts)
	f.catalog = NewCatalogService(db, f.repos, opts)
	f.members = NewMemberService(db, f.repos, f.borrowings, opts)
	f.auth = NewAuthService(db, f.repos, f.members, opts)
	f.admins = NewAdminService(db, f.repos, opts)
	return f
}

func ptr[T any](v T) *T { return &v }

func date(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func (f *fixture) book(t *testing.T, copies int) *models.Book {
	t.Helper()
	book, err := f.catalog.CreateBook(context.Background(), BookInput{
		ISBN:        ptr("978" + uuid.NewString()[:10]),
		Title:       ptr("The Left Hand of Darkness"),
		TotalCopies: ptr(copies),
	})
	require.NoError(t, err)
	return book
}

func (f *fixture) member(t *testing.T, active bool) *models.Member {
	t.Helper()
	member, err := f.members.Create(context.Background(), MemberInput{
		FirstName: ptr("Ursula"),
		LastName:  ptr("Le Guin"),
		Email:     ptr(fmt.Sprintf("member-%s@example.com", uuid.NewString()[:8])),
		Password:  ptr(testPassword),
		IsActive:  ptr(active),
	})
	require.NoError(t, err)
	return member
}

func (f *fixture) checkout(t *testing.T, bookID, memberID uuid.UUID, due string) *models.Borrowing {
	t.Helper()
	d := date(t, due)
	b, err := f.borrowings.Checkout(context.Background(), CheckoutInput{BookID: bookID, MemberID: memberID, DueDate: &d})
	require.NoError(t, err)
	return b
}

func (f *fixture) available(t *testing.T, bookID uuid.UUID) int {
	t.Helper()
	var book models.Book
	require.NoError(t, f.db.First(&book, "id = ?", bookID).Error)
	return book.AvailableCopies
}

// assertCounter checks available = total - open and 0 <= available <= total.
func (f *fixture) assertCounter(t *testing.T, bookID uuid.UUID) {
	t.Helper()
	var book models.Book
	require.NoError(t, f.db.First(&book, "id = ?", bookID).Error)
	open, err := f.repos.Borrowings.CountOpen(nil, repositories.BorrowingFilter{BookID: bookID})
	require.NoError(t, err)
	assert.Equal(t, int64(book.TotalCopies)-open, int64(book.AvailableCopies))
	assert.GreaterOrEqual(t, book.AvailableCopies, 0)
	assert.LessOrEqual(t, book.AvailableCopies, book.TotalCopies)
}
