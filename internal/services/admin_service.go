package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"saiblibrary/internal/models"
	"saiblibrary/internal/repositories"
)

type StaffInput struct {
	Role      models.Role
	FirstName *string
	LastName  *string
	Email     *string
	Password  *string
	Phone     *string
	Address   *string
}

// StaffUpdateInput is a partial edit of a staff account. IsActive applies to
// admins only.
type StaffUpdateInput struct {
	FirstName   *string
	LastName    *string
	Email       *string
	Password    *string
	Phone       *string
	Address     *string
	DateOfBirth *models.Date
	IsActive    *bool
}

// Staff is an admin or super admin as listed to super admins.
type Staff struct {
	ID   uuid.UUID   `json:"id"`
	Role models.Role `json:"role"`
	models.Person
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type AdminService interface {
	List(ctx context.Context) ([]Staff, error)
	Get(ctx context.Context, id uuid.UUID) (*Staff, error)
	Create(ctx context.Context, in StaffInput) (*Staff, error)
	Update(ctx context.Context, id uuid.UUID, in StaffUpdateInput) (*Staff, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, actor Identity, id uuid.UUID) error
}

type adminService struct {
	db          *gorm.DB
	staffRepo   repositories.StaffRepository
	accountRepo repositories.AccountRepository
	opts        Options
	log         *slog.Logger
}

func NewAdminService(db *gorm.DB, repos repositories.Repositories, opts Options) AdminService {
	opts = opts.withDefaults()
	return &adminService{
		db:          db,
		staffRepo:   repos.Staff,
		accountRepo: repos.Accounts,
		opts:        opts,
		log:         opts.Logger.With("service", "admin"),
	}
}

// List returns super admins and admins, newest first.
func (s *adminService) List(ctx context.Context) ([]Staff, error) {
	db := s.db.WithContext(ctx)
	superAdmins, err := s.staffRepo.ListSuperAdmins(db)
	if err != nil {
		return nil, err
	}
	admins, err := s.staffRepo.ListAdmins(db)
	if err != nil {
		return nil, err
	}

	staff := make([]Staff, 0, len(superAdmins)+len(admins))
	for _, a := range superAdmins {
		staff = append(staff, Staff{ID: a.ID, Role: models.RoleSuperAdmin, Person: a.Person, IsActive: true, CreatedAt: a.CreatedAt})
	}
	for _, a := range admins {
		staff = append(staff, Staff{ID: a.ID, Role: models.RoleAdmin, Person: a.Person, IsActive: a.IsActive, CreatedAt: a.CreatedAt})
	}
	sort.SliceStable(staff, func(i, j int) bool { return staff[i].CreatedAt.After(staff[j].CreatedAt) })
	return staff, nil
}

func (s *adminService) Get(ctx context.Context, id uuid.UUID) (*Staff, error) {
	account, err := s.find(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return &Staff{ID: account.ID, Role: account.Role, Person: account.Person, IsActive: account.IsActive}, nil
}

// find looks the id up among super admins, then admins.
func (s *adminService) find(db *gorm.DB, id uuid.UUID) (*repositories.Account, error) {
	for _, role := range []models.Role{models.RoleSuperAdmin, models.RoleAdmin} {
		account, err := s.accountRepo.GetByID(db, role, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		return account, err
	}
	return nil, ErrAdminNotFound
}

// Create adds an admin or super admin. The email must be unused across all roles.
func (s *adminService) Create(ctx context.Context, in StaffInput) (*Staff, error) {
	if !in.Role.IsStaff() {
		return nil, InvalidArgument("role must be admin or superadmin")
	}
	if blank(in.FirstName) || blank(in.LastName) || blank(in.Email) || in.Password == nil || *in.Password == "" {
		return nil, MissingField("first name, last name, email and password are required")
	}
	if err := validatePassword(*in.Password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(*in.Password, s.opts.BcryptCost)
	if err != nil {
		return nil, err
	}

	person := models.Person{
		FirstName:    strings.TrimSpace(*in.FirstName),
		LastName:     strings.TrimSpace(*in.LastName),
		Email:        normalizeEmail(*in.Email),
		PasswordHash: hash,
		Phone:        in.Phone,
		Address:      in.Address,
	}

	var created Staff
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.accountRepo.EmailInUse(tx, person.Email, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}
		if in.Role == models.RoleSuperAdmin {
			row := &models.SuperAdmin{Person: person}
			if err := s.staffRepo.CreateSuperAdmin(tx, row); err != nil {
				return duplicate(err, ErrEmailTaken)
			}
			created = Staff{ID: row.ID, Role: in.Role, Person: row.Person, IsActive: true, CreatedAt: row.CreatedAt}
			return nil
		}
		row := &models.Admin{Person: person, IsActive: true}
		if err := s.staffRepo.CreateAdmin(tx, row); err != nil {
			return duplicate(err, ErrEmailTaken)
		}
		created = Staff{ID: row.ID, Role: in.Role, Person: row.Person, IsActive: true, CreatedAt: row.CreatedAt}
		return nil
	})
	if err != nil {
		logFailure(s.log, "create staff", err, "role", in.Role)
		return nil, err
	}
	s.log.Info("staff created", "role", created.Role, "account_id", created.ID)
	return &created, nil
}

// Update applies a partial edit to an admin or super admin. The email must stay
// unused across all roles.
func (s *adminService) Update(ctx context.Context, id uuid.UUID, in StaffUpdateInput) (*Staff, error) {
	if (in.FirstName != nil && blank(in.FirstName)) || (in.LastName != nil && blank(in.LastName)) || (in.Email != nil && blank(in.Email)) {
		return nil, MissingField("name and email cannot be empty")
	}

	fields := map[string]any{}
	setString(fields, "first_name", in.FirstName)
	setString(fields, "last_name", in.LastName)
	setString(fields, "phone", in.Phone)
	setString(fields, "address", in.Address)
	if in.Email != nil {
		fields["email"] = normalizeEmail(*in.Email)
	}
	if in.DateOfBirth != nil {
		fields["date_of_birth"] = *in.DateOfBirth
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := HashPassword(*in.Password, s.opts.BcryptCost)
		if err != nil {
			return nil, err
		}
		fields["password"] = hash
	}
	if len(fields) == 0 && in.IsActive == nil {
		return nil, MissingField("no fields to update")
	}

	var updated *Staff
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.find(tx, id)
		if err != nil {
			return err
		}
		if in.IsActive != nil {
			if account.Role != models.RoleAdmin {
				return InvalidArgument("only admins can be activated or deactivated")
			}
			fields["is_active"] = *in.IsActive
		}
		if email, ok := fields["email"].(string); ok && email != account.Person.Email {
			taken, err := s.accountRepo.EmailInUse(tx, email, id)
			if err != nil {
				return err
			}
			if taken {
				return ErrEmailTaken
			}
		}
		if err := s.accountRepo.Update(tx, account.Role, id, fields); err != nil {
			return duplicate(notFound(err, ErrAdminNotFound), ErrEmailTaken)
		}
		fresh, err := s.accountRepo.GetByID(tx, account.Role, id)
		if err != nil {
			return err
		}
		updated = &Staff{ID: fresh.ID, Role: fresh.Role, Person: fresh.Person, IsActive: fresh.IsActive}
		return nil
	})
	if err != nil {
		logFailure(s.log, "update staff", err, "account_id", id)
		return nil, err
	}
	s.log.Info("staff updated", "role", updated.Role, "account_id", id)
	return updated, nil
}

// SetActive enables or disables an admin. Super admins have no active flag.
func (s *adminService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	err := s.accountRepo.Update(s.db.WithContext(ctx), models.RoleAdmin, id, map[string]any{"is_active": active})
	if err != nil {
		err = notFound(err, ErrAdminNotFound)
		logFailure(s.log, "set admin active", err, "account_id", id)
		return err
	}
	s.log.Info("admin active flag changed", "account_id", id, "active", active)
	return nil
}

// Delete removes a staff account. Admins are deactivated and kept; super admins
// are deleted. Nobody can delete their own account, and the last super admin is
// kept.
func (s *adminService) Delete(ctx context.Context, actor Identity, id uuid.UUID) error {
	if actor.ID == id {
		return ErrSelfDelete
	}
	var role models.Role
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.find(tx, id)
		if err != nil {
			return err
		}
		role = account.Role
		if role == models.RoleAdmin {
			err := s.accountRepo.Update(tx, models.RoleAdmin, id, map[string]any{"is_active": false})
			return notFound(err, ErrAdminNotFound)
		}
		n, err := s.staffRepo.CountSuperAdmins(tx)
		if err != nil {
			return err
		}
		if n <= 1 {
			return ErrLastSuperAdmin
		}
		return notFound(s.staffRepo.DeleteSuperAdmin(tx, id), ErrAdminNotFound)
	})
	if err != nil {
		logFailure(s.log, "delete staff", err, "account_id", id)
		return err
	}
	if role == models.RoleAdmin {
		s.log.Info("admin deactivated", "account_id", id, "by", actor.ID)
		return nil
	}
	s.log.Info("super admin deleted", "account_id", id, "by", actor.ID)
	return nil
}
