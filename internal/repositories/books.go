package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"saiblibrary/internal/models"
)

type bookRepository struct {
	base
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{base{db: db}}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	return r.use(db).Omit(clause.Associations).Create(book).Error
}

// Save writes the scalar columns; associations are managed by Replace*.
func (r *bookRepository) Save(db *gorm.DB, book *models.Book) error {
	return r.use(db).Omit(clause.Associations).Save(book).Error
}

func (r *bookRepository) List(db *gorm.DB, filter BookFilter) ([]models.Book, error) {
	db = r.use(db)
	q := db.Model(&models.Book{})
	if filter.AuthorID != uuid.Nil {
		q = q.Where("id IN (?)", db.Table("book_authors").Select("book_id").Where("author_id = ?", filter.AuthorID))
	}
	if filter.GenreID != uuid.Nil {
		q = q.Where("id IN (?)", db.Table("book_genres").Select("book_id").Where("genre_id = ?", filter.GenreID))
	}
	if filter.PublisherID != uuid.Nil {
		q = q.Where("publisher_id = ?", filter.PublisherID)
	}
	var books []models.Book
	err := q.
		Preload("Publisher").
		Preload("Authors").
		Preload("Genres").
		Order("created_at DESC").
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	err := r.use(db).
		Preload("Publisher").
		Preload("Authors").
		Preload("Genres").
		First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	err := r.use(db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// DecrementAvailable takes one copy off the shelf. It reports false, without
// writing, when no copy is left at the moment of the update.
func (r *bookRepository) DecrementAvailable(db *gorm.DB, id uuid.UUID) (bool, error) {
	res := r.use(db).Model(&models.Book{}).
		Where("id = ? AND available_copies > 0", id).
		UpdateColumn("available_copies", gorm.Expr("available_copies - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *bookRepository) IncrementAvailable(db *gorm.DB, id uuid.UUID) error {
	return r.use(db).Model(&models.Book{}).
		Where("id = ?", id).
		UpdateColumn("available_copies", gorm.Expr("available_copies + 1")).
		Error
}

func (r *bookRepository) SetAvailable(db *gorm.DB, id uuid.UUID, available int) error {
	return r.use(db).Model(&models.Book{}).
		Where("id = ?", id).
		UpdateColumn("available_copies", available).
		Error
}

func (r *bookRepository) ReplaceAuthors(db *gorm.DB, book *models.Book, authors []models.Author) error {
	return r.use(db).Model(book).Association("Authors").Replace(authors)
}

func (r *bookRepository) ReplaceGenres(db *gorm.DB, book *models.Book, genres []models.Genre) error {
	return r.use(db).Model(book).Association("Genres").Replace(genres)
}

func (r *bookRepository) CountByPublisher(db *gorm.DB, publisherID uuid.UUID) (int64, error) {
	var n int64
	err := r.use(db).Model(&models.Book{}).Where("publisher_id = ?", publisherID).Count(&n).Error
	return n, err
}

func (r *bookRepository) CountByAuthor(db *gorm.DB, authorID uuid.UUID) (int64, error) {
	var n int64
	err := r.use(db).Table("book_authors").Where("author_id = ?", authorID).Count(&n).Error
	return n, err
}

func (r *bookRepository) CountByGenre(db *gorm.DB, genreID uuid.UUID) (int64, error) {
	var n int64
	err := r.use(db).Table("book_genres").Where("genre_id = ?", genreID).Count(&n).Error
	return n, err
}

// Delete removes the book, its author/genre links and its closed ledger rows.
func (r *bookRepository) Delete(db *gorm.DB, book *models.Book) error {
	db = r.use(db)
	if err := db.Model(book).Association("Authors").Clear(); err != nil {
		return err
	}
	if err := db.Model(book).Association("Genres").Clear(); err != nil {
		return err
	}
	if err := db.Where("book_id = ?", book.ID).Delete(&models.Borrowing{}).Error; err != nil {
		return err
	}
	return db.Delete(&models.Book{}, "id = ?", book.ID).Error
}

func (r *bookRepository) ISBNInUse(db *gorm.DB, isbn string, except uuid.UUID) (bool, error) {
	var n int64
	err := r.use(db).Model(&models.Book{}).Where("isbn = ? AND id <> ?", isbn, except).Count(&n).Error
	return n > 0, err
}
