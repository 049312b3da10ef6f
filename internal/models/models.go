package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleMember     Role = "member"
)

// IsStaff reports whether the role may manage the catalog and the ledger.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleMember:
		return true
	}
	return false
}

type BorrowingStatus string

const (
	BorrowingStatusBorrowed BorrowingStatus = "Borrowed"
	BorrowingStatusOverdue  BorrowingStatus = "Overdue"
	BorrowingStatusReturned BorrowingStatus = "Returned"
)

// Model carries the identity and timestamps shared by every table.
type Model struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *Model) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Person holds the columns common to members, admins and super admins.
type Person struct {
	FirstName    string  `gorm:"size:100;not null" json:"firstName"`
	LastName     string  `gorm:"size:100;not null" json:"lastName"`
	Email        string  `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string  `gorm:"column:password;size:255;not null" json:"-"`
	Phone        *string `gorm:"size:50" json:"phone"`
	Address      *string `gorm:"size:255" json:"address"`
	DateOfBirth  *Date   `json:"dateOfBirth"`
}

func (p Person) FullName() string {
	return p.FirstName + " " + p.LastName
}

type Member struct {
	Model
	Person
	MembershipStartDate Date  `gorm:"not null" json:"joinedDate"`
	MembershipEndDate   *Date `json:"membershipEndDate"`
	IsActive            bool  `gorm:"not null" json:"isActive"`
}

type Admin struct {
	Model
	Person
	IsActive bool `gorm:"not null" json:"isActive"`
}

type SuperAdmin struct {
	Model
	Person
}

type Publisher struct {
	Model
	Name    string  `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Address *string `gorm:"size:255" json:"address"`
	Phone   *string `gorm:"size:50" json:"phone"`
	Email   *string `gorm:"size:255" json:"email"`
	Website *string `gorm:"size:255" json:"website"`
}

type Author struct {
	Model
	FirstName   string  `gorm:"size:100;not null" json:"firstName"`
	LastName    string  `gorm:"size:100;not null" json:"lastName"`
	MiddleName  *string `gorm:"size:100" json:"middleName"`
	BirthDate   *Date   `json:"birthDate"`
	Nationality *string `gorm:"size:100" json:"nationality"`
	Biography   *string `gorm:"type:text" json:"biography"`
}

func (a Author) FullName() string {
	return a.FirstName + " " + a.LastName
}

type Genre struct {
	Model
	Name        string  `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description *string `gorm:"type:text" json:"description"`
}

type Book struct {
	Model
	ISBN            string     `gorm:"column:isbn;size:20;not null;uniqueIndex" json:"isbn"`
	Title           string     `gorm:"size:255;not null" json:"title"`
	PublicationDate *Date      `json:"publicationDate"`
	Edition         *string    `gorm:"size:50" json:"edition"`
	Language        string     `gorm:"size:50;not null;default:English" json:"language"`
	PageCount       *int       `json:"pageCount"`
	Description     *string    `gorm:"type:text" json:"description"`
	ImageURI        *string    `gorm:"column:image_uri;size:500" json:"imageUri"`
	PublisherID     *uuid.UUID `gorm:"type:uuid;index" json:"publisherId"`
	Publisher       *Publisher `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"publisher"`
	Authors         []Author   `gorm:"many2many:book_authors;constraint:OnDelete:CASCADE;" json:"authors"`
	Genres          []Genre    `gorm:"many2many:book_genres;constraint:OnDelete:CASCADE;" json:"genres"`
	TotalCopies     int        `gorm:"not null" json:"totalCopies"`
	AvailableCopies int        `gorm:"not null" json:"availableCopies"`
}

// Borrowing is one row of the ledger. Status holds the label written by the last
// mutation; readers must use DeriveStatus instead.
type Borrowing struct {
	Model
	BookID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"bookId"`
	Book       *Book           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	MemberID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"memberId"`
	Member     *Member         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	BorrowDate Date            `gorm:"not null" json:"borrowDate"`
	DueDate    Date            `gorm:"not null" json:"dueDate"`
	ReturnDate *Date           `json:"returnDate"`
	Status     BorrowingStatus `gorm:"size:20;not null;index" json:"status"`
	FineAmount decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"fineAmount"`
	Notes      *string         `gorm:"type:text" json:"notes"`
}

// IsOpen reports whether the copy is still out.
func (b *Borrowing) IsOpen() bool {
	return b.ReturnDate == nil
}

// AllModels lists every table in migration order.
func AllModels() []any {
	return []any{
		&SuperAdmin{},
		&Admin{},
		&Member{},
		&Publisher{},
		&Author{},
		&Genre{},
		&Book{},
		&Borrowing{},
	}
}
