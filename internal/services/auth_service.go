package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"saiblibrary/internal/models"
	"saiblibrary/internal/repositories"
)

// MinPasswordLength is the shortest password accepted on register or change.
const MinPasswordLength = 6

// Identity is who a session belongs to.
type Identity struct {
	ID    uuid.UUID   `json:"id"`
	Role  models.Role `json:"role"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
}

// Profile is the account of the current identity.
type Profile struct {
	ID   uuid.UUID   `json:"id"`
	Role models.Role `json:"role"`
	models.Person
	IsActive bool `json:"isActive"`
}

type ProfileInput struct {
	FirstName   *string
	LastName    *string
	Email       *string
	Phone       *string
	Address     *string
	DateOfBirth *models.Date
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*Identity, error)
	Register(ctx context.Context, in MemberInput) (*Identity, error)
	Verify(ctx context.Context, who Identity) (*Identity, error)

	Profile(ctx context.Context, who Identity) (*Profile, error)
	UpdateProfile(ctx context.Context, who Identity, in ProfileInput) (*Profile, error)
	ChangePassword(ctx context.Context, who Identity, current, next string) error
}

type authService struct {
	db          *gorm.DB
	accountRepo repositories.AccountRepository
	members     MemberService
	opts        Options
	log         *slog.Logger
}

func NewAuthService(db *gorm.DB, repos repositories.Repositories, members MemberService, opts Options) AuthService {
	opts = opts.withDefaults()
	return &authService{
		db:          db,
		accountRepo: repos.Accounts,
		members:     members,
		opts:        opts,
		log:         opts.Logger.With("service", "auth"),
	}
}

// loginOrder is the order in which the people tables are searched.
var loginOrder = []models.Role{models.RoleSuperAdmin, models.RoleAdmin, models.RoleMember}

// Login checks super admins first, then active admins, then active members. An
// inactive account is skipped as if it did not exist.
func (s *authService) Login(ctx context.Context, email, password string) (*Identity, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, MissingField("email and password are required")
	}
	email = normalizeEmail(email)
	db := s.db.WithContext(ctx)

	for _, role := range loginOrder {
		account, err := s.accountRepo.FindByEmail(db, role, email)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !account.IsActive {
			continue
		}
		if !checkPassword(account.Person.PasswordHash, password) {
			s.log.Info("login rejected", "role", role, "account_id", account.ID)
			return nil, ErrInvalidCredentials
		}
		s.log.Info("login", "role", role, "account_id", account.ID)
		return identityOf(account), nil
	}
	s.log.Info("login rejected", "reason", "unknown email")
	return nil, ErrInvalidCredentials
}

// Register creates an active member and returns its identity.
func (s *authService) Register(ctx context.Context, in MemberInput) (*Identity, error) {
	active := true
	in.IsActive = &active
	in.MembershipStartDate = nil
	in.MembershipEndDate = nil

	member, err := s.members.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return &Identity{
		ID:    member.ID,
		Role:  models.RoleMember,
		Email: member.Email,
		Name:  member.FullName(),
	}, nil
}

// Verify reloads a session's identity; it fails once the account is gone or
// deactivated.
func (s *authService) Verify(ctx context.Context, who Identity) (*Identity, error) {
	account, err := s.account(ctx, who)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, ErrInvalidCredentials
	}
	return identityOf(account), nil
}

func (s *authService) Profile(ctx context.Context, who Identity) (*Profile, error) {
	account, err := s.account(ctx, who)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profileOf(account), nil
}

func (s *authService) UpdateProfile(ctx context.Context, who Identity, in ProfileInput) (*Profile, error) {
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
	if len(fields) == 0 {
		return nil, MissingField("no fields to update")
	}

	var profile *Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if email, ok := fields["email"].(string); ok {
			taken, err := s.accountRepo.EmailInUse(tx, email, who.ID)
			if err != nil {
				return err
			}
			if taken {
				return ErrEmailTaken
			}
		}
		if err := s.accountRepo.Update(tx, who.Role, who.ID, fields); err != nil {
			return duplicate(notFound(err, ErrProfileNotFound), ErrEmailTaken)
		}
		account, err := s.accountRepo.GetByID(tx, who.Role, who.ID)
		if err != nil {
			return notFound(err, ErrProfileNotFound)
		}
		profile = profileOf(account)
		return nil
	})
	if err != nil {
		logFailure(s.log, "update profile", err, "account_id", who.ID)
		return nil, err
	}
	s.log.Info("profile updated", "role", who.Role, "account_id", who.ID)
	return profile, nil
}

func (s *authService) ChangePassword(ctx context.Context, who Identity, current, next string) error {
	if current == "" || next == "" {
		return MissingField("current and new password are required")
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	account, err := s.account(ctx, who)
	if err != nil {
		return err
	}
	if !checkPassword(account.Person.PasswordHash, current) {
		return ErrWrongPassword
	}
	hash, err := HashPassword(next, s.opts.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.accountRepo.Update(s.db.WithContext(ctx), who.Role, who.ID, map[string]any{"password": hash}); err != nil {
		logFailure(s.log, "change password", err, "account_id", who.ID)
		return notFound(err, ErrProfileNotFound)
	}
	s.log.Info("password changed", "role", who.Role, "account_id", who.ID)
	return nil
}

func (s *authService) account(ctx context.Context, who Identity) (*repositories.Account, error) {
	if !who.Role.Valid() {
		return nil, ErrInvalidCredentials
	}
	account, err := s.accountRepo.GetByID(s.db.WithContext(ctx), who.Role, who.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	return account, err
}

func identityOf(a *repositories.Account) *Identity {
	return &Identity{ID: a.ID, Role: a.Role, Email: a.Person.Email, Name: a.Person.FullName()}
}

func profileOf(a *repositories.Account) *Profile {
	return &Profile{ID: a.ID, Role: a.Role, Person: a.Person, IsActive: a.IsActive}
}

// ─── Passwords ────────────────────────────────────────────────────────────────

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return InvalidArgument(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	// bcrypt only reads the first 72 bytes.
	if len(password) > 72 {
		return InvalidArgument("password must be at most 72 bytes")
	}
	return nil
}

// HashPassword hashes a password with bcrypt at the given cost.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
