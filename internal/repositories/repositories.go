package repositories

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"saiblibrary/internal/models"
)

// Every method takes the handle to run on: a transaction, or nil for the
// repository's own connection.

// BookFilter narrows a catalog listing; zero values match everything.
type BookFilter struct {
	AuthorID    uuid.UUID
	GenreID     uuid.UUID
	PublisherID uuid.UUID
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	Save(db *gorm.DB, book *models.Book) error
	List(db *gorm.DB, filter BookFilter) ([]models.Book, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	DecrementAvailable(db *gorm.DB, id uuid.UUID) (bool, error)
	IncrementAvailable(db *gorm.DB, id uuid.UUID) error
	SetAvailable(db *gorm.DB, id uuid.UUID, available int) error
	ReplaceAuthors(db *gorm.DB, book *models.Book, authors []models.Author) error
	ReplaceGenres(db *gorm.DB, book *models.Book, genres []models.Genre) error
	CountByPublisher(db *gorm.DB, publisherID uuid.UUID) (int64, error)
	CountByAuthor(db *gorm.DB, authorID uuid.UUID) (int64, error)
	CountByGenre(db *gorm.DB, genreID uuid.UUID) (int64, error)
	ISBNInUse(db *gorm.DB, isbn string, except uuid.UUID) (bool, error)
	Delete(db *gorm.DB, book *models.Book) error
}

// BorrowingFilter narrows a ledger listing; zero values match everything.
type BorrowingFilter struct {
	BookID   uuid.UUID
	MemberID uuid.UUID
	OpenOnly bool
}

type BorrowingRepository interface {
	Create(db *gorm.DB, borrowing *models.Borrowing) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Borrowing, error)
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Borrowing, error)
	FindOpen(db *gorm.DB, bookID, memberID uuid.UUID) (*models.Borrowing, error)
	List(db *gorm.DB, filter BorrowingFilter) ([]models.Borrowing, error)
	CountOpen(db *gorm.DB, filter BorrowingFilter) (int64, error)
	CountOpenByBook(db *gorm.DB) (map[uuid.UUID]int, error)
	MarkReturned(db *gorm.DB, id uuid.UUID, returnDate models.Date, status models.BorrowingStatus, fine *decimal.Decimal, notes *string) (bool, error)
	Update(db *gorm.DB, id uuid.UUID, fields map[string]any) error
	Delete(db *gorm.DB, id uuid.UUID) error
}

type MemberRepository interface {
	Create(db *gorm.DB, member *models.Member) error
	List(db *gorm.DB) ([]models.Member, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Member, error)
	Update(db *gorm.DB, id uuid.UUID, fields map[string]any) error
}

type StaffRepository interface {
	CreateAdmin(db *gorm.DB, admin *models.Admin) error
	CreateSuperAdmin(db *gorm.DB, superAdmin *models.SuperAdmin) error
	ListAdmins(db *gorm.DB) ([]models.Admin, error)
	ListSuperAdmins(db *gorm.DB) ([]models.SuperAdmin, error)
	CountSuperAdmins(db *gorm.DB) (int64, error)
	DeleteSuperAdmin(db *gorm.DB, id uuid.UUID) error
}

// AccountRepository reads and writes the person columns of whichever table a role
// lives in.
type AccountRepository interface {
	FindByEmail(db *gorm.DB, role models.Role, email string) (*Account, error)
	GetByID(db *gorm.DB, role models.Role, id uuid.UUID) (*Account, error)
	EmailInUse(db *gorm.DB, email string, except uuid.UUID) (bool, error)
	Update(db *gorm.DB, role models.Role, id uuid.UUID, fields map[string]any) error
}

type AuthorRepository interface {
	Create(db *gorm.DB, author *models.Author) error
	List(db *gorm.DB) ([]models.Author, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Author, error)
	FindByIDs(db *gorm.DB, ids []uuid.UUID) ([]models.Author, error)
	Update(db *gorm.DB, id uuid.UUID, fields map[string]any) error
	Delete(db *gorm.DB, id uuid.UUID) error
}

type GenreRepository interface {
	Create(db *gorm.DB, genre *models.Genre) error
	List(db *gorm.DB) ([]models.Genre, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Genre, error)
	FindByIDs(db *gorm.DB, ids []uuid.UUID) ([]models.Genre, error)
	Update(db *gorm.DB, id uuid.UUID, fields map[string]any) error
	Delete(db *gorm.DB, id uuid.UUID) error
}

type PublisherRepository interface {
	Create(db *gorm.DB, publisher *models.Publisher) error
	List(db *gorm.DB) ([]models.Publisher, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Publisher, error)
	Update(db *gorm.DB, id uuid.UUID, fields map[string]any) error
	Delete(db *gorm.DB, id uuid.UUID) error
}

// Repositories bundles every repository over one connection.
type Repositories struct {
	Books      BookRepository
	Borrowings BorrowingRepository
	Members    MemberRepository
	Staff      StaffRepository
	Accounts   AccountRepository
	Authors    AuthorRepository
	Genres     GenreRepository
	Publishers PublisherRepository
}

func New(db *gorm.DB) Repositories {
	return Repositories{
		Books:      NewBookRepository(db),
		Borrowings: NewBorrowingRepository(db),
		Members:    NewMemberRepository(db),
		Staff:      NewStaffRepository(db),
		Accounts:   NewAccountRepository(db),
		Authors:    NewAuthorRepository(db),
		Genres:     NewGenreRepository(db),
		Publishers: NewPublisherRepository(db),
	}
}

type base struct {
	db *gorm.DB
}

func (b base) use(db *gorm.DB) *gorm.DB {
	if db == nil {
		return b.db
	}
	return db
}
