package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"saiblibrary/internal/models"
)

// entityRepository implements the plain CRUD shared by authors, genres and publishers.
type entityRepository[T any] struct {
	base
	order string
}

func (r *entityRepository[T]) Create(db *gorm.DB, entity *T) error {
	return r.use(db).Create(entity).Error
}

func (r *entityRepository[T]) List(db *gorm.DB) ([]T, error) {
	var entities []T
	if err := r.use(db).Order(r.order).Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *entityRepository[T]) GetByID(db *gorm.DB, id uuid.UUID) (*T, error) {
	var entity T
	if err := r.use(db).First(&entity, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// FindByIDs returns gorm.ErrRecordNotFound unless every id exists.
func (r *entityRepository[T]) FindByIDs(db *gorm.DB, ids []uuid.UUID) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	unique := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	var entities []T
	if err := r.use(db).Where("id IN ?", ids).Find(&entities).Error; err != nil {
		return nil, err
	}
	if len(entities) != len(unique) {
		return nil, gorm.ErrRecordNotFound
	}
	return entities, nil
}

func (r *entityRepository[T]) Update(db *gorm.DB, id uuid.UUID, fields map[string]any) error {
	var model T
	res := r.use(db).Model(&model).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *entityRepository[T]) Delete(db *gorm.DB, id uuid.UUID) error {
	var model T
	return deleteOne(r.use(db), &model, id)
}

func NewAuthorRepository(db *gorm.DB) AuthorRepository {
	return &entityRepository[models.Author]{base: base{db: db}, order: "last_name, first_name"}
}

func NewGenreRepository(db *gorm.DB) GenreRepository {
	return &entityRepository[models.Genre]{base: base{db: db}, order: "name"}
}

func NewPublisherRepository(db *gorm.DB) PublisherRepository {
	return &entityRepository[models.Publisher]{base: base{db: db}, order: "name"}
}
