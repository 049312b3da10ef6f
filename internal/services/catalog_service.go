package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"saiblibrary/internal/models"
	"saiblibrary/internal/repositories"
)

// ─── Inputs and Views ─────────────────────────────────────────────────────────

// BookInput is used for both create and partial update; nil fields are left
// unchanged on update.
type BookInput struct {
	ISBN            *string
	Title           *string
	PublicationDate *models.Date
	Edition         *string
	Language        *string
	PageCount       *int
	Description     *string
	ImageURI        *string
	PublisherID     *uuid.UUID
	TotalCopies     *int
	AuthorIDs       *[]uuid.UUID
	GenreIDs        *[]uuid.UUID
}

type BookView struct {
	models.Book
	BorrowedCopies    int          `json:"borrowedCopies"`
	NextAvailableDate *models.Date `json:"nextAvailableDate"`
}

type AuthorInput struct {
	FirstName   *string
	LastName    *string
	MiddleName  *string
	BirthDate   *models.Date
	Nationality *string
	Biography   *string
}

type GenreInput struct {
	Name        *string
	Description *string
}

type PublisherInput struct {
	Name    *string
	Address *string
	Phone   *string
	Email   *string
	Website *string
}

type AuthorView struct {
	models.Author
	Books []models.Book `json:"books"`
}

type GenreView struct {
	models.Genre
	Books []models.Book `json:"books"`
}

type PublisherView struct {
	models.Publisher
	Books []models.Book `json:"books"`
}

// ─── Service Interface ────────────────────────────────────────────────────────

type CatalogService interface {
	ListBooks(ctx context.Context) ([]BookView, error)
	GetBook(ctx context.Context, id uuid.UUID) (*BookView, error)
	CreateBook(ctx context.Context, in BookInput) (*models.Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, in BookInput) (*models.Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error

	ListAuthors(ctx context.Context) ([]models.Author, error)
	GetAuthor(ctx context.Context, id uuid.UUID) (*AuthorView, error)
	CreateAuthor(ctx context.Context, in AuthorInput) (*models.Author, error)
	UpdateAuthor(ctx context.Context, id uuid.UUID, in AuthorInput) error
	DeleteAuthor(ctx context.Context, id uuid.UUID) error

	ListGenres(ctx context.Context) ([]models.Genre, error)
	GetGenre(ctx context.Context, id uuid.UUID) (*GenreView, error)
	CreateGenre(ctx context.Context, in GenreInput) (*models.Genre, error)
	UpdateGenre(ctx context.Context, id uuid.UUID, in GenreInput) error
	DeleteGenre(ctx context.Context, id uuid.UUID) error

	ListPublishers(ctx context.Context) ([]models.Publisher, error)
	GetPublisher(ctx context.Context, id uuid.UUID) (*PublisherView, error)
	CreatePublisher(ctx context.Context, in PublisherInput) (*models.Publisher, error)
	UpdatePublisher(ctx context.Context, id uuid.UUID, in PublisherInput) error
	DeletePublisher(ctx context.Context, id uuid.UUID) error
}

// ─── Implementation ───────────────────────────────────────────────────────────

type catalogService struct {
	db            *gorm.DB
	bookRepo      repositories.BookRepository
	borrowingRepo repositories.BorrowingRepository
	authorRepo    repositories.AuthorRepository
	genreRepo     repositories.GenreRepository
	publisherRepo repositories.PublisherRepository
	opts          Options
	log           *slog.Logger
}

func NewCatalogService(db *gorm.DB, repos repositories.Repositories, opts Options) CatalogService {
	opts = opts.withDefaults()
	return &catalogService{
		db:            db,
		bookRepo:      repos.Books,
		borrowingRepo: repos.Borrowings,
		authorRepo:    repos.Authors,
		genreRepo:     repos.Genres,
		publisherRepo: repos.Publishers,
		opts:          opts,
		log:           opts.Logger.With("service", "catalog"),
	}
}

// ─── Books ────────────────────────────────────────────────────────────────────

func (s *catalogService) ListBooks(ctx context.Context) ([]BookView, error) {
	db := s.db.WithContext(ctx)
	books, err := s.bookRepo.List(db, repositories.BookFilter{})
	if err != nil {
		return nil, err
	}
	open, err := s.borrowingRepo.List(db, repositories.BorrowingFilter{OpenOnly: true})
	if err != nil {
		return nil, err
	}
	views := make([]BookView, 0, len(books))
	for i := range books {
		views = append(views, bookView(&books[i], open))
	}
	return views, nil
}

func (s *catalogService) GetBook(ctx context.Context, id uuid.UUID) (*BookView, error) {
	db := s.db.WithContext(ctx)
	book, err := s.bookRepo.GetByID(db, id)
	if err != nil {
		return nil, notFound(err, ErrBookNotFound)
	}
	open, err := s.borrowingRepo.List(db, repositories.BorrowingFilter{BookID: id, OpenOnly: true})
	if err != nil {
		return nil, err
	}
	view := bookView(book, open)
	return &view, nil
}

func bookView(book *models.Book, open []models.Borrowing) BookView {
	borrowed := 0
	for i := range open {
		if open[i].BookID == book.ID {
			borrowed++
		}
	}
	return BookView{
		Book:              *book,
		BorrowedCopies:    borrowed,
		NextAvailableDate: models.NextAvailableDate(book, open),
	}
}

// CreateBook adds a title to the catalog with all of its copies on the shelf.
func (s *catalogService) CreateBook(ctx context.Context, in BookInput) (*models.Book, error) {
	if blank(in.ISBN) || blank(in.Title) {
		return nil, MissingField("ISBN and title are required")
	}
	total := 1
	if in.TotalCopies != nil {
		total = *in.TotalCopies
	}
	if total < 1 {
		return nil, InvalidArgument("total copies must be at least 1")
	}

	var created *models.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book := &models.Book{TotalCopies: total, AvailableCopies: total}
		applyBookInput(book, in)

		if err := s.checkPublisher(tx, book.PublisherID); err != nil {
			return err
		}
		if err := s.checkISBN(tx, book); err != nil {
			return err
		}
		if err := s.bookRepo.Create(tx, book); err != nil {
			return duplicate(err, ErrDuplicateISBN)
		}
		if err := s.replaceLinks(tx, book, in); err != nil {
			return err
		}

		var err error
		created, err = s.bookRepo.GetByID(tx, book.ID)
		return err
	})
	if err != nil {
		s.logFailure("create book", err)
		return nil, err
	}
	s.log.Info("book created", "book_id", created.ID, "isbn", created.ISBN, "copies", created.TotalCopies)
	return created, nil
}

// UpdateBook applies a partial edit. A new total re-derives the available copies
// from the open borrowings and may not fall below them.
func (s *catalogService) UpdateBook(ctx context.Context, id uuid.UUID, in BookInput) (*models.Book, error) {
	if (in.ISBN != nil && blank(in.ISBN)) || (in.Title != nil && blank(in.Title)) {
		return nil, MissingField("ISBN and title cannot be empty")
	}

	var updated *models.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := s.bookRepo.GetByIDForUpdate(tx, id)
		if err != nil {
			return notFound(err, ErrBookNotFound)
		}
		applyBookInput(book, in)

		if in.TotalCopies != nil {
			total := *in.TotalCopies
			if total < 1 {
				return InvalidArgument("total copies must be at least 1")
			}
			open, err := s.borrowingRepo.CountOpen(tx, repositories.BorrowingFilter{BookID: id})
			if err != nil {
				return err
			}
			if int64(total) < open {
				return ErrCopiesBelowOpen
			}
			book.TotalCopies = total
			book.AvailableCopies = total - int(open)
		}

		if err := s.checkPublisher(tx, book.PublisherID); err != nil {
			return err
		}
		if err := s.checkISBN(tx, book); err != nil {
			return err
		}
		if err := s.bookRepo.Save(tx, book); err != nil {
			return duplicate(err, ErrDuplicateISBN)
		}
		if err := s.replaceLinks(tx, book, in); err != nil {
			return err
		}

		updated, err = s.bookRepo.GetByID(tx, id)
		return err
	})
	if err != nil {
		s.logFailure("update book", err, "book_id", id)
		return nil, err
	}
	s.log.Info("book updated", "book_id", id, "total_copies", updated.TotalCopies, "available_copies", updated.AvailableCopies)
	return updated, nil
}

// DeleteBook removes a title that has no copy out.
func (s *catalogService) DeleteBook(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := s.bookRepo.GetByIDForUpdate(tx, id)
		if err != nil {
			return notFound(err, ErrBookNotFound)
		}
		open, err := s.borrowingRepo.CountOpen(tx, repositories.BorrowingFilter{BookID: id})
		if err != nil {
			return err
		}
		if open > 0 {
			return ErrBookHasOpenBorrowings
		}
		return s.bookRepo.Delete(tx, book)
	})
	if err != nil {
		s.logFailure("delete book", err, "book_id", id)
		return err
	}
	s.log.Info("book deleted", "book_id", id)
	return nil
}

func applyBookInput(book *models.Book, in BookInput) {
	if in.ISBN != nil {
		book.ISBN = strings.TrimSpace(*in.ISBN)
	}
	if in.Title != nil {
		book.Title = strings.TrimSpace(*in.Title)
	}
	if in.PublicationDate != nil {
		book.PublicationDate = in.PublicationDate
	}
	if in.Edition != nil {
		book.Edition = in.Edition
	}
	if in.Language != nil && *in.Language != "" {
		book.Language = *in.Language
	}
	if in.PageCount != nil {
		book.PageCount = in.PageCount
	}
	if in.Description != nil {
		book.Description = in.Description
	}
	if in.ImageURI != nil {
		book.ImageURI = in.ImageURI
	}
	if in.PublisherID != nil {
		book.PublisherID = in.PublisherID
	}
}

func (s *catalogService) checkPublisher(tx *gorm.DB, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	_, err := s.publisherRepo.GetByID(tx, *id)
	return notFound(err, ErrPublisherNotFound)
}

func (s *catalogService) checkISBN(tx *gorm.DB, book *models.Book) error {
	taken, err := s.bookRepo.ISBNInUse(tx, book.ISBN, book.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateISBN
	}
	return nil
}

func (s *catalogService) replaceLinks(tx *gorm.DB, book *models.Book, in BookInput) error {
	if in.AuthorIDs != nil {
		authors, err := s.authorRepo.FindByIDs(tx, *in.AuthorIDs)
		if err != nil {
			return notFound(err, ErrAuthorNotFound)
		}
		if err := s.bookRepo.ReplaceAuthors(tx, book, authors); err != nil {
			return err
		}
	}
	if in.GenreIDs != nil {
		genres, err := s.genreRepo.FindByIDs(tx, *in.GenreIDs)
		if err != nil {
			return notFound(err, ErrGenreNotFound)
		}
		if err := s.bookRepo.ReplaceGenres(tx, book, genres); err != nil {
			return err
		}
	}
	return nil
}

// ─── Authors ──────────────────────────────────────────────────────────────────

func (s *catalogService) ListAuthors(ctx context.Context) ([]models.Author, error) {
	return s.authorRepo.List(s.db.WithContext(ctx))
}

func (s *catalogService) GetAuthor(ctx context.Context, id uuid.UUID) (*AuthorView, error) {
	db := s.db.WithContext(ctx)
	author, err := s.authorRepo.GetByID(db, id)
	if err != nil {
		return nil, notFound(err, ErrAuthorNotFound)
	}
	books, err := s.bookRepo.List(db, repositories.BookFilter{AuthorID: id})
	if err != nil {
		return nil, err
	}
	return &AuthorView{Author: *author, Books: books}, nil
}

func (s *catalogService) CreateAuthor(ctx context.Context, in AuthorInput) (*models.Author, error) {
	if blank(in.FirstName) || blank(in.LastName) {
		return nil, MissingField("first name and last name are required")
	}
	author := &models.Author{
		FirstName:   strings.TrimSpace(*in.FirstName),
		LastName:    strings.TrimSpace(*in.LastName),
		MiddleName:  in.MiddleName,
		BirthDate:   in.BirthDate,
		Nationality: in.Nationality,
		Biography:   in.Biography,
	}
	if err := s.authorRepo.Create(s.db.WithContext(ctx), author); err != nil {
		s.logFailure("create author", err)
		return nil, err
	}
	s.log.Info("author created", "author_id", author.ID)
	return author, nil
}

func (s *catalogService) UpdateAuthor(ctx context.Context, id uuid.UUID, in AuthorInput) error {
	if (in.FirstName != nil && blank(in.FirstName)) || (in.LastName != nil && blank(in.LastName)) {
		return MissingField("first name and last name cannot be empty")
	}
	fields := map[string]any{}
	setString(fields, "first_name", in.FirstName)
	setString(fields, "last_name", in.LastName)
	setString(fields, "middle_name", in.MiddleName)
	setString(fields, "nationality", in.Nationality)
	setString(fields, "biography", in.Biography)
	if in.BirthDate != nil {
		fields["birth_date"] = *in.BirthDate
	}
	if len(fields) == 0 {
		return MissingField("no fields to update")
	}
	if err := s.authorRepo.Update(s.db.WithContext(ctx), id, fields); err != nil {
		err = notFound(err, ErrAuthorNotFound)
		s.logFailure("update author", err, "author_id", id)
		return err
	}
	s.log.Info("author updated", "author_id", id)
	return nil
}

func (s *catalogService) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.authorRepo.GetByID(tx, id); err != nil {
			return notFound(err, ErrAuthorNotFound)
		}
		n, err := s.bookRepo.CountByAuthor(tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrAuthorInUse
		}
		return s.authorRepo.Delete(tx, id)
	})
	if err != nil {
		s.logFailure("delete author", err, "author_id", id)
		return err
	}
	s.log.Info("author deleted", "author_id", id)
	return nil
}

// ─── Genres ───────────────────────────────────────────────────────────────────

func (s *catalogService) ListGenres(ctx context.Context) ([]models.Genre, error) {
	return s.genreRepo.List(s.db.WithContext(ctx))
}

func (s *catalogService) GetGenre(ctx context.Context, id uuid.UUID) (*GenreView, error) {
	db := s.db.WithContext(ctx)
	genre, err := s.genreRepo.GetByID(db, id)
	if err != nil {
		return nil, notFound(err, ErrGenreNotFound)
	}
	books, err := s.bookRepo.List(db, repositories.BookFilter{GenreID: id})
	if err != nil {
		return nil, err
	}
	return &GenreView{Genre: *genre, Books: books}, nil
}

func (s *catalogService) CreateGenre(ctx context.Context, in GenreInput) (*models.Genre, error) {
	if blank(in.Name) {
		return nil, MissingField("genre name is required")
	}
	genre := &models.Genre{Name: strings.TrimSpace(*in.Name), Description: in.Description}
	if err := s.genreRepo.Create(s.db.WithContext(ctx), genre); err != nil {
		err = duplicate(err, ErrDuplicateName)
		s.logFailure("create genre", err)
		return nil, err
	}
	s.log.Info("genre created", "genre_id", genre.ID, "name", genre.Name)
	return genre, nil
}

func (s *catalogService) UpdateGenre(ctx context.Context, id uuid.UUID, in GenreInput) error {
	if in.Name != nil && blank(in.Name) {
		return MissingField("genre name cannot be empty")
	}
	fields := map[string]any{}
	setString(fields, "name", in.Name)
	setString(fields, "description", in.Description)
	if len(fields) == 0 {
		return MissingField("no fields to update")
	}
	if err := s.genreRepo.Update(s.db.WithContext(ctx), id, fields); err != nil {
		err = duplicate(notFound(err, ErrGenreNotFound), ErrDuplicateName)
		s.logFailure("update genre", err, "genre_id", id)
		return err
	}
	s.log.Info("genre updated", "genre_id", id)
	return nil
}

func (s *catalogService) DeleteGenre(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.genreRepo.GetByID(tx, id); err != nil {
			return notFound(err, ErrGenreNotFound)
		}
		n, err := s.bookRepo.CountByGenre(tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrGenreInUse
		}
		return s.genreRepo.Delete(tx, id)
	})
	if err != nil {
		s.logFailure("delete genre", err, "genre_id", id)
		return err
	}
	s.log.Info("genre deleted", "genre_id", id)
	return nil
}

// ─── Publishers ───────────────────────────────────────────────────────────────

func (s *catalogService) ListPublishers(ctx context.Context) ([]models.Publisher, error) {
	return s.publisherRepo.List(s.db.WithContext(ctx))
}

func (s *catalogService) GetPublisher(ctx context.Context, id uuid.UUID) (*PublisherView, error) {
	db := s.db.WithContext(ctx)
	publisher, err := s.publisherRepo.GetByID(db, id)
	if err != nil {
		return nil, notFound(err, ErrPublisherNotFound)
	}
	books, err := s.bookRepo.List(db, repositories.BookFilter{PublisherID: id})
	if err != nil {
		return nil, err
	}
	return &PublisherView{Publisher: *publisher, Books: books}, nil
}

func (s *catalogService) CreatePublisher(ctx context.Context, in PublisherInput) (*models.Publisher, error) {
	if blank(in.Name) {
		return nil, MissingField("publisher name is required")
	}
	publisher := &models.Publisher{
		Name:    strings.TrimSpace(*in.Name),
		Address: in.Address,
		Phone:   in.Phone,
		Email:   in.Email,
		Website: in.Website,
	}
	if err := s.publisherRepo.Create(s.db.WithContext(ctx), publisher); err != nil {
		err = duplicate(err, ErrDuplicateName)
		s.logFailure("create publisher", err)
		return nil, err
	}
	s.log.Info("publisher created", "publisher_id", publisher.ID, "name", publisher.Name)
	return publisher, nil
}

func (s *catalogService) UpdatePublisher(ctx context.Context, id uuid.UUID, in PublisherInput) error {
	if in.Name != nil && blank(in.Name) {
		return MissingField("publisher name cannot be empty")
	}
	fields := map[string]any{}
	setString(fields, "name", in.Name)
	setString(fields, "address", in.Address)
	setString(fields, "phone", in.Phone)
	setString(fields, "email", in.Email)
	setString(fields, "website", in.Website)
	if len(fields) == 0 {
		return MissingField("no fields to update")
	}
	if err := s.publisherRepo.Update(s.db.WithContext(ctx), id, fields); err != nil {
		err = duplicate(notFound(err, ErrPublisherNotFound), ErrDuplicateName)
		s.logFailure("update publisher", err, "publisher_id", id)
		return err
	}
	s.log.Info("publisher updated", "publisher_id", id)
	return nil
}

func (s *catalogService) DeletePublisher(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.publisherRepo.GetByID(tx, id); err != nil {
			return notFound(err, ErrPublisherNotFound)
		}
		n, err := s.bookRepo.CountByPublisher(tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrPublisherInUse
		}
		return s.publisherRepo.Delete(tx, id)
	})
	if err != nil {
		s.logFailure("delete publisher", err, "publisher_id", id)
		return err
	}
	s.log.Info("publisher deleted", "publisher_id", id)
	return nil
}

func (s *catalogService) logFailure(op string, err error, attrs ...any) {
	logFailure(s.log, op, err, attrs...)
}
