package repositories

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"saiblibrary/internal/models"
)

type borrowingRepository struct {
	base
}

func NewBorrowingRepository(db *gorm.DB) BorrowingRepository {
	return &borrowingRepository{base{db: db}}
}

func (r *borrowingRepository) Create(db *gorm.DB, borrowing *models.Borrowing) error {
	return r.use(db).Omit(clause.Associations).Create(borrowing).Error
}

func (r *borrowingRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Borrowing, error) {
	var borrowing models.Borrowing
	err := r.use(db).
		Preload("Book").
		Preload("Member").
		First(&borrowing, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &borrowing, nil
}

func (r *borrowingRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Borrowing, error) {
	var borrowing models.Borrowing
	err := r.use(db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&borrowing, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &borrowing, nil
}

func (r *borrowingRepository) FindOpen(db *gorm.DB, bookID, memberID uuid.UUID) (*models.Borrowing, error) {
	var borrowing models.Borrowing
	err := r.use(db).
		Where("book_id = ? AND member_id = ? AND return_date IS NULL", bookID, memberID).
		First(&borrowing).Error
	if err != nil {
		return nil, err
	}
	return &borrowing, nil
}

func (r *borrowingRepository) scope(db *gorm.DB, filter BorrowingFilter) *gorm.DB {
	q := r.use(db).Model(&models.Borrowing{})
	if filter.BookID != uuid.Nil {
		q = q.Where("book_id = ?", filter.BookID)
	}
	if filter.MemberID != uuid.Nil {
		q = q.Where("member_id = ?", filter.MemberID)
	}
	if filter.OpenOnly {
		q = q.Where("return_date IS NULL")
	}
	return q
}

func (r *borrowingRepository) List(db *gorm.DB, filter BorrowingFilter) ([]models.Borrowing, error) {
	var borrowings []models.Borrowing
	err := r.scope(db, filter).
		Preload("Book").
		Preload("Member").
		Order("borrow_date DESC, created_at DESC").
		Find(&borrowings).Error
	if err != nil {
		return nil, err
	}
	return borrowings, nil
}

func (r *borrowingRepository) CountOpen(db *gorm.DB, filter BorrowingFilter) (int64, error) {
	filter.OpenOnly = true
	var n int64
	err := r.scope(db, filter).Count(&n).Error
	return n, err
}

func (r *borrowingRepository) CountOpenByBook(db *gorm.DB) (map[uuid.UUID]int, error) {
	var rows []struct {
		BookID    uuid.UUID
		OpenCount int
	}
	err := r.use(db).Model(&models.Borrowing{}).
		Select("book_id, COUNT(*) AS open_count").
		Where("return_date IS NULL").
		Group("book_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		counts[row.BookID] = row.OpenCount
	}
	return counts, nil
}

// MarkReturned closes an open row. It reports false when the row was already closed.
func (r *borrowingRepository) MarkReturned(
	db *gorm.DB,
	id uuid.UUID,
	returnDate models.Date,
	status models.BorrowingStatus,
	fine *decimal.Decimal,
	notes *string,
) (bool, error) {
	fields := map[string]any{
		"return_date": returnDate,
		"status":      status,
	}
	if fine != nil {
		fields["fine_amount"] = *fine
	}
	if notes != nil {
		fields["notes"] = *notes
	}
	res := r.use(db).Model(&models.Borrowing{}).
		Where("id = ? AND return_date IS NULL", id).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *borrowingRepository) Update(db *gorm.DB, id uuid.UUID, fields map[string]any) error {
	return r.use(db).Model(&models.Borrowing{}).Where("id = ?", id).Updates(fields).Error
}

func (r *borrowingRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	return r.use(db).Delete(&models.Borrowing{}, "id = ?", id).Error
}
