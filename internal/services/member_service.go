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

// MemberInput is used for both create and partial update.
type MemberInput struct {
	FirstName           *string
	LastName            *string
	Email               *string
	Password            *string
	Phone               *string
	Address             *string
	DateOfBirth         *models.Date
	MembershipStartDate *models.Date
	MembershipEndDate   *models.Date
	IsActive            *bool
}

// MemberView is a member together with their borrowing history.
type MemberView struct {
	models.Member
	Borrowings []BorrowingView `json:"borrowings"`
}

type MemberService interface {
	List(ctx context.Context) ([]models.Member, error)
	Get(ctx context.Context, id uuid.UUID) (*MemberView, error)
	Create(ctx context.Context, in MemberInput) (*models.Member, error)
	Update(ctx context.Context, id uuid.UUID, in MemberInput) (*models.Member, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type memberService struct {
	db            *gorm.DB
	memberRepo    repositories.MemberRepository
	accountRepo   repositories.AccountRepository
	borrowingRepo repositories.BorrowingRepository
	borrowings    BorrowingService
	opts          Options
	log           *slog.Logger
}

func NewMemberService(db *gorm.DB, repos repositories.Repositories, borrowings BorrowingService, opts Options) MemberService {
	opts = opts.withDefaults()
	return &memberService{
		db:            db,
		memberRepo:    repos.Members,
		accountRepo:   repos.Accounts,
		borrowingRepo: repos.Borrowings,
		borrowings:    borrowings,
		opts:          opts,
		log:           opts.Logger.With("service", "member"),
	}
}

func (s *memberService) List(ctx context.Context) ([]models.Member, error) {
	return s.memberRepo.List(s.db.WithContext(ctx))
}

func (s *memberService) Get(ctx context.Context, id uuid.UUID) (*MemberView, error) {
	member, err := s.memberRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, notFound(err, ErrMemberNotFound)
	}
	history, err := s.borrowings.List(ctx, repositories.BorrowingFilter{MemberID: id})
	if err != nil {
		return nil, err
	}
	return &MemberView{Member: *member, Borrowings: history}, nil
}

// Create registers a member. The email must not be used by any account of any
// role. New members are active unless the input says otherwise.
func (s *memberService) Create(ctx context.Context, in MemberInput) (*models.Member, error) {
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

	member := &models.Member{
		Person: models.Person{
			FirstName:    strings.TrimSpace(*in.FirstName),
			LastName:     strings.TrimSpace(*in.LastName),
			Email:        normalizeEmail(*in.Email),
			PasswordHash: hash,
			Phone:        in.Phone,
			Address:      in.Address,
			DateOfBirth:  in.DateOfBirth,
		},
		MembershipStartDate: s.opts.today(),
		MembershipEndDate:   in.MembershipEndDate,
		IsActive:            true,
	}
	if in.MembershipStartDate != nil {
		member.MembershipStartDate = *in.MembershipStartDate
	}
	if in.IsActive != nil {
		member.IsActive = *in.IsActive
	}
	if member.MembershipEndDate != nil && member.MembershipEndDate.Before(member.MembershipStartDate) {
		return nil, BadDate("membership end date cannot be before its start date")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.accountRepo.EmailInUse(tx, member.Email, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}
		return duplicate(s.memberRepo.Create(tx, member), ErrEmailTaken)
	})
	if err != nil {
		logFailure(s.log, "create member", err)
		return nil, err
	}
	s.log.Info("member created", "member_id", member.ID)
	return member, nil
}

// Update applies a partial edit. Callers decide beforehand who may change
// IsActive; turning it off is refused while the member has a copy out, as in
// Deactivate.
func (s *memberService) Update(ctx context.Context, id uuid.UUID, in MemberInput) (*models.Member, error) {
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
	if in.MembershipStartDate != nil {
		fields["membership_start_date"] = *in.MembershipStartDate
	}
	if in.MembershipEndDate != nil {
		fields["membership_end_date"] = *in.MembershipEndDate
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
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
	if len(fields) == 0 {
		return nil, MissingField("no fields to update")
	}

	var updated *models.Member
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := s.memberRepo.GetByID(tx, id)
		if err != nil {
			return notFound(err, ErrMemberNotFound)
		}
		if active, ok := fields["is_active"].(bool); ok && !active && member.IsActive {
			open, err := s.borrowingRepo.CountOpen(tx, repositories.BorrowingFilter{MemberID: id})
			if err != nil {
				return err
			}
			if open > 0 {
				return ErrMemberHasOpenBorrowings
			}
		}
		if email, ok := fields["email"].(string); ok && email != member.Email {
			taken, err := s.accountRepo.EmailInUse(tx, email, id)
			if err != nil {
				return err
			}
			if taken {
				return ErrEmailTaken
			}
		}
		if err := s.memberRepo.Update(tx, id, fields); err != nil {
			return duplicate(err, ErrEmailTaken)
		}
		updated, err = s.memberRepo.GetByID(tx, id)
		return err
	})
	if err != nil {
		logFailure(s.log, "update member", err, "member_id", id)
		return nil, err
	}
	s.log.Info("member updated", "member_id", id)
	return updated, nil
}

// Deactivate is the member delete: the row is kept for the ledger and flagged
// inactive. A member with a copy still out cannot be deactivated.
func (s *memberService) Deactivate(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.memberRepo.GetByID(tx, id); err != nil {
			return notFound(err, ErrMemberNotFound)
		}
		open, err := s.borrowingRepo.CountOpen(tx, repositories.BorrowingFilter{MemberID: id})
		if err != nil {
			return err
		}
		if open > 0 {
			return ErrMemberHasOpenBorrowings
		}
		return s.memberRepo.Update(tx, id, map[string]any{"is_active": false})
	})
	if err != nil {
		logFailure(s.log, "deactivate member", err, "member_id", id)
		return err
	}
	s.log.Info("member deactivated", "member_id", id)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
