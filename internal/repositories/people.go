package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"saiblibrary/internal/models"
)

type memberRepository struct {
	base
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{base{db: db}}
}

func (r *memberRepository) Create(db *gorm.DB, member *models.Member) error {
	return r.use(db).Create(member).Error
}

func (r *memberRepository) List(db *gorm.DB) ([]models.Member, error) {
	var members []models.Member
	if err := r.use(db).Order("created_at DESC").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *memberRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Member, error) {
	var member models.Member
	if err := r.use(db).First(&member, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) Update(db *gorm.DB, id uuid.UUID, fields map[string]any) error {
	return r.use(db).Model(&models.Member{}).Where("id = ?", id).Updates(fields).Error
}

type staffRepository struct {
	base
}

func NewStaffRepository(db *gorm.DB) StaffRepository {
	return &staffRepository{base{db: db}}
}

func (r *staffRepository) CreateAdmin(db *gorm.DB, admin *models.Admin) error {
	return r.use(db).Create(admin).Error
}

func (r *staffRepository) CreateSuperAdmin(db *gorm.DB, superAdmin *models.SuperAdmin) error {
	return r.use(db).Create(superAdmin).Error
}

func (r *staffRepository) ListAdmins(db *gorm.DB) ([]models.Admin, error) {
	var admins []models.Admin
	if err := r.use(db).Order("created_at DESC").Find(&admins).Error; err != nil {
		return nil, err
	}
	return admins, nil
}

func (r *staffRepository) ListSuperAdmins(db *gorm.DB) ([]models.SuperAdmin, error) {
	var superAdmins []models.SuperAdmin
	if err := r.use(db).Order("created_at DESC").Find(&superAdmins).Error; err != nil {
		return nil, err
	}
	return superAdmins, nil
}

// CountSuperAdmins locks the super admin rows so that two concurrent deletions
// cannot both observe a count of two.
func (r *staffRepository) CountSuperAdmins(db *gorm.DB) (int64, error) {
	var ids []uuid.UUID
	if err := r.use(db).Model(&models.SuperAdmin{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func (r *staffRepository) DeleteSuperAdmin(db *gorm.DB, id uuid.UUID) error {
	return deleteOne(r.use(db), &models.SuperAdmin{}, id)
}

func deleteOne(db *gorm.DB, model any, id uuid.UUID) error {
	res := db.Delete(model, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Account is the identity view shared by the three people tables.
type Account struct {
	Role     models.Role
	ID       uuid.UUID
	Person   models.Person
	IsActive bool
}

type accountRepository struct {
	base
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{base{db: db}}
}

// accountRow is scanned from any of the three tables.
type accountRow struct {
	ID uuid.UUID
	models.Person
	IsActive *bool
}

func tableFor(role models.Role) (any, bool, error) {
	switch role {
	case models.RoleSuperAdmin:
		return &models.SuperAdmin{}, false, nil
	case models.RoleAdmin:
		return &models.Admin{}, true, nil
	case models.RoleMember:
		return &models.Member{}, true, nil
	default:
		return nil, false, fmt.Errorf("unknown role %q", role)
	}
}

func (r *accountRepository) find(db *gorm.DB, role models.Role, query string, arg any) (*Account, error) {
	model, hasActive, err := tableFor(role)
	if err != nil {
		return nil, err
	}
	columns := []string{"id", "first_name", "last_name", "email", "password", "phone", "address", "date_of_birth"}
	if hasActive {
		columns = append(columns, "is_active")
	}
	var row accountRow
	res := r.use(db).Model(model).Select(columns).Where(query, arg).Limit(1).Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	account := &Account{Role: role, ID: row.ID, Person: row.Person, IsActive: true}
	if row.IsActive != nil {
		account.IsActive = *row.IsActive
	}
	return account, nil
}

func (r *accountRepository) FindByEmail(db *gorm.DB, role models.Role, email string) (*Account, error) {
	return r.find(db, role, "email = ?", email)
}

func (r *accountRepository) GetByID(db *gorm.DB, role models.Role, id uuid.UUID) (*Account, error) {
	return r.find(db, role, "id = ?", id)
}

func (r *accountRepository) EmailInUse(db *gorm.DB, email string, except uuid.UUID) (bool, error) {
	for _, role := range []models.Role{models.RoleSuperAdmin, models.RoleAdmin, models.RoleMember} {
		account, err := r.FindByEmail(db, role, email)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		if account.ID != except {
			return true, nil
		}
	}
	return false, nil
}

func (r *accountRepository) Update(db *gorm.DB, role models.Role, id uuid.UUID, fields map[string]any) error {
	model, _, err := tableFor(role)
	if err != nil {
		return err
	}
	res := r.use(db).Model(model).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
