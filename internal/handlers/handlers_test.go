package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"saiblibrary/internal/config"
	"saiblibrary/internal/database"
	"saiblibrary/internal/models"
	"saiblibrary/internal/repositories"
	"saiblibrary/internal/services"
)

const (
	testPassword  = "secret123"
	sessionCookie = "library_session"
	validISBN     = "9780441478125"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler

	catalog services.CatalogService
	members services.MemberService
	admins  services.AdminService
}

// client carries one session cookie across requests.
type client struct {
	srv    *testServer
	cookie *http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.Open(config.Database{
		Driver:          config.DriverSQLite,
		URL:             filepath.Join(t.TempDir(), "library.db") + "?_busy_timeout=5000&_foreign_keys=1",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	}, log)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	repos := repositories.New(db)
	opts := services.Options{
		Logger:     log,
		FinePerDay: decimal.NewFromInt(10),
		BcryptCost: bcrypt.MinCost,
		Now:        func() time.Time { return time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC) },
	}
	borrowings := services.NewBorrowingService(db, repos, opts)
	catalog := services.NewCatalogService(db, repos, opts)
	members := services.NewMemberService(db, repos, borrowings, opts)
	auth := services.NewAuthService(db, repos, members, opts)
	admins := services.NewAdminService(db, repos, opts)

	sessions := scs.New()
	sessions.Store = memstore.New()
	sessions.Cookie.Name = sessionCookie

	handler := NewRouter(Deps{
		Borrowings: borrowings,
		Catalog:    catalog,
		Members:    members,
		Auth:       auth,
		Admins:     admins,
		Sessions:   sessions,
		Logger:     log,
		Ping:       func(ctx context.Context) error { return database.Ping(ctx, db) },
	})
	return &testServer{t: t, handler: handler, catalog: catalog, members: members, admins: admins}
}

func ptr[T any](v T) *T { return &v }

func (s *testServer) superAdmin(email string) {
	s.t.Helper()
	_, err := s.admins.Create(context.Background(), services.StaffInput{
		Role:      models.RoleSuperAdmin,
		FirstName: ptr("Root"),
		LastName:  ptr("Admin"),
		Email:     ptr(email),
		Password:  ptr(testPassword),
	})
	require.NoError(s.t, err)
}

func (s *testServer) member(email string) *models.Member {
	s.t.Helper()
	m, err := s.members.Create(context.Background(), services.MemberInput{
		FirstName: ptr("Ursula"),
		LastName:  ptr("Le Guin"),
		Email:     ptr(email),
		Password:  ptr(testPassword),
	})
	require.NoError(s.t, err)
	return m
}

func (s *testServer) client() *client {
	return &client{srv: s}
}

func (cl *client) do(method, path string, body any) (*httptest.ResponseRecorder, apiResponse) {
	t := cl.srv.t
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.cookie != nil {
		req.AddCookie(cl.cookie)
	}
	w := httptest.NewRecorder()
	cl.srv.handler.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie {
			cl.cookie = c
		}
	}
	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func (cl *client) login(email string) {
	cl.srv.t.Helper()
	w, resp := cl.do(http.MethodPost, "/api/auth/login", gin.H{"email": email, "password": testPassword})
	require.Equal(cl.srv.t, http.StatusOK, w.Code, resp.Message)
	require.NotNil(cl.srv.t, cl.cookie)
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	w, resp := srv.client().do(http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "ok", decode[map[string]string](t, resp.Data)["status"])
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w, resp = srv.client().do(http.MethodGet, "/api/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, resp.Success)
}

func TestBorrowingLifecycle(t *testing.T) {
	srv := newTestServer(t)
	srv.superAdmin("root@example.com")
	first := srv.member("first@example.com")
	second := srv.member("second@example.com")

	staff := srv.client()
	staff.login("root@example.com")

	w, resp := staff.do(http.MethodPost, "/api/books", gin.H{"isbn": validISBN, "title": "The Left Hand of Darkness", "totalCopies": 1})
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)
	book := decode[models.Book](t, resp.Data)
	assert.Equal(t, 1, book.AvailableCopies)

	w, resp = staff.do(http.MethodPost, "/api/borrowings", gin.H{"bookId": book.ID, "memberId": first.ID, "dueDate": "2024-06-01"})
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)
	created := decode[struct {
		ID        uuid.UUID `json:"id"`
		BookTitle string    `json:"bookTitle"`
	}](t, resp.Data)
	assert.Equal(t, "The Left Hand of Darkness", created.BookTitle)

	w, resp = staff.do(http.MethodPost, "/api/borrowings", gin.H{"bookId": book.ID, "memberId": second.ID, "dueDate": "2024-06-01"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, services.ErrNoCopiesAvailable.Message, resp.Message)

	w, resp = srv.client().do(http.MethodGet, "/api/borrowings/book/"+book.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	views := decode[[]services.BorrowingView](t, resp.Data)
	require.Len(t, views, 1)
	assert.Equal(t, models.BorrowingStatusBorrowed, views[0].Status)

	path := "/api/borrowings/" + created.ID.String()
	w, resp = staff.do(http.MethodPut, path+"/return", gin.H{"returnDate": "2024-06-10", "fineAmount": "90.00"})
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	assert.Equal(t, "Overdue", decode[map[string]string](t, resp.Data)["status"])

	w, _ = staff.do(http.MethodPut, path+"/return", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, resp = staff.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[services.BorrowingView](t, resp.Data)
	assert.Equal(t, models.BorrowingStatusReturned, view.Status)
	assert.True(t, view.ReturnedLate)
	assert.True(t, decimal.NewFromInt(90).Equal(view.FineAmount))

	w, resp = staff.do(http.MethodGet, "/api/books/"+book.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[services.BookView](t, resp.Data).AvailableCopies)

	w, _ = staff.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = staff.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookBorrowingsHideMemberDetails(t *testing.T) {
	srv := newTestServer(t)
	srv.superAdmin("root@example.com")
	reader := srv.member("private@example.com")

	staff := srv.client()
	staff.login("root@example.com")
	w, resp := staff.do(http.MethodPost, "/api/books", gin.H{"isbn": validISBN, "title": "Kindred", "totalCopies": 2})
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)
	book := decode[models.Book](t, resp.Data)
	w, resp = staff.do(http.MethodPost, "/api/borrowings", gin.H{
		"bookId": book.ID, "memberId": reader.ID, "dueDate": "2024-06-01", "notes": "private note",
	})
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)

	path := "/api/borrowings/book/" + book.ID.String()

	member := srv.client()
	member.login("private@example.com")
	for name, cl := range map[string]*client{"anonymous": srv.client(), "member": member} {
		t.Run(name, func(t *testing.T) {
			w, resp := cl.do(http.MethodGet, path, nil)
			require.Equal(t, http.StatusOK, w.Code)
			rows := decode[[]map[string]any](t, resp.Data)
			require.Len(t, rows, 1)
			row := rows[0]
			for _, hidden := range []string{"memberEmail", "notes", "fineAmount", "suggestedFine", "isbn", "daysOverdue"} {
				assert.NotContains(t, row, hidden)
			}
			assert.Equal(t, "Ursula Le Guin", row["memberName"])
			assert.Equal(t, reader.ID.String(), row["memberId"])
			assert.Equal(t, "Borrowed", row["status"])
			assert.Equal(t, "2024-05-20", row["borrowDate"])
			assert.Equal(t, "2024-06-01", row["dueDate"])
			assert.NotContains(t, w.Body.String(), "private@example.com")
			assert.NotContains(t, w.Body.String(), "private note")
		})
	}

	w, resp = staff.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	views := decode[[]services.BorrowingView](t, resp.Data)
	require.Len(t, views, 1)
	assert.Equal(t, "private@example.com", views[0].MemberEmail)
	require.NotNil(t, views[0].Notes)
	assert.Equal(t, "private note", *views[0].Notes)
}

func TestStaffManagement(t *testing.T) {
	srv := newTestServer(t)
	srv.superAdmin("root@example.com")
	root := srv.client()
	root.login("root@example.com")

	w, resp := root.do(http.MethodPost, "/api/admins", gin.H{
		"role": "admin", "firstName": "Desk", "lastName": "Clerk", "email": "desk@example.com", "password": testPassword,
	})
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)
	admin := decode[services.Staff](t, resp.Data)
	adminPath := "/api/admins/" + admin.ID.String()

	w, resp = root.do(http.MethodPut, adminPath, gin.H{"firstName": "Front", "email": "front@example.com", "dateOfBirth": "1985-07-01"})
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	updated := decode[services.Staff](t, resp.Data)
	assert.Equal(t, "Front", updated.FirstName)
	assert.Equal(t, "front@example.com", updated.Email)

	w, resp = root.do(http.MethodPut, adminPath, gin.H{"email": "root@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, services.ErrEmailTaken.Message, resp.Message)

	clerk := srv.client()
	clerk.login("front@example.com")
	w, _ = clerk.do(http.MethodPut, adminPath, gin.H{"firstName": "Self"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = root.do(http.MethodDelete, adminPath, nil)
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	w, resp = root.do(http.MethodGet, adminPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[services.Staff](t, resp.Data).IsActive)

	w, _ = srv.client().do(http.MethodPost, "/api/auth/login", gin.H{"email": "front@example.com", "password": testPassword})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccessControl(t *testing.T) {
	srv := newTestServer(t)
	srv.superAdmin("root@example.com")
	me := srv.member("me@example.com")
	other := srv.member("other@example.com")

	anonymous := srv.client()
	w, _ := anonymous.do(http.MethodPost, "/api/books", gin.H{"isbn": validISBN, "title": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = anonymous.do(http.MethodGet, "/api/books", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	member := srv.client()
	member.login("me@example.com")

	w, _ = member.do(http.MethodPost, "/api/books", gin.H{"isbn": validISBN, "title": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = member.do(http.MethodGet, "/api/borrowings", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = member.do(http.MethodGet, "/api/admins", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = member.do(http.MethodGet, "/api/borrowings/member/"+me.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = member.do(http.MethodGet, "/api/borrowings/member/"+other.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = member.do(http.MethodGet, "/api/members/"+other.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp := member.do(http.MethodPut, "/api/members/"+me.ID.String(), gin.H{"phone": "555-0100"})
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	w, _ = member.do(http.MethodPut, "/api/members/"+me.ID.String(), gin.H{"isActive": false})
	assert.Equal(t, http.StatusForbidden, w.Code)

	staff := srv.client()
	staff.login("root@example.com")
	w, resp = staff.do(http.MethodGet, "/api/admins", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]services.Staff](t, resp.Data), 1)
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	srv.member("me@example.com")
	cl := srv.client()

	w, resp := cl.do(http.MethodPost, "/api/auth/login", gin.H{"email": "me@example.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, services.ErrInvalidCredentials.Message, resp.Message)

	cl.login("me@example.com")
	w, resp = cl.do(http.MethodGet, "/api/auth/verify", nil)
	require.Equal(t, http.StatusOK, w.Code)
	who := decode[services.Identity](t, resp.Data)
	assert.Equal(t, models.RoleMember, who.Role)
	assert.Equal(t, "me@example.com", who.Email)

	w, _ = cl.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = cl.do(http.MethodGet, "/api/auth/verify", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterAndProfile(t *testing.T) {
	srv := newTestServer(t)
	cl := srv.client()

	w, resp := cl.do(http.MethodPost, "/api/auth/register", gin.H{
		"firstName": "Grace", "lastName": "Hopper", "email": "grace@example.com", "password": testPassword,
	})
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)

	w, resp = cl.do(http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[services.Profile](t, resp.Data)
	assert.Equal(t, "Grace", profile.FirstName)

	w, _ = cl.do(http.MethodPut, "/api/profile/password", gin.H{"currentPassword": "nope", "newPassword": "another1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = cl.do(http.MethodPut, "/api/profile/password", gin.H{"currentPassword": testPassword, "newPassword": "another1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = srv.client().do(http.MethodPost, "/api/auth/register", gin.H{
		"firstName": "Grace", "lastName": "Hopper", "email": "grace@example.com", "password": testPassword,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, services.ErrEmailTaken.Message, resp.Message)
}

func TestBadRequests(t *testing.T) {
	srv := newTestServer(t)
	srv.superAdmin("root@example.com")
	staff := srv.client()
	staff.login("root@example.com")

	tests := []struct {
		name    string
		method  string
		path    string
		body    any
		message string
	}{
		{name: "bad path id", method: http.MethodGet, path: "/api/books/not-a-uuid", message: "invalid book id"},
		{name: "invalid isbn", method: http.MethodPost, path: "/api/books", body: gin.H{"isbn": "12345", "title": "x"}, message: "isbn must be a valid ISBN-10 or ISBN-13"},
		{name: "blank title", method: http.MethodPost, path: "/api/books", body: gin.H{"isbn": validISBN, "title": "  "}, message: "title is required"},
		{name: "missing title", method: http.MethodPost, path: "/api/books", body: gin.H{"isbn": validISBN}, message: "ISBN and title are required"},
		{name: "malformed json", method: http.MethodPost, path: "/api/genres", body: `{"name": }`, message: "malformed JSON body"},
		{name: "missing due date", method: http.MethodPost, path: "/api/borrowings", body: gin.H{"bookId": uuid.New(), "memberId": uuid.New()}, message: "due date is required"},
		{name: "unparseable due date", method: http.MethodPost, path: "/api/borrowings", body: gin.H{"bookId": uuid.New(), "memberId": uuid.New(), "dueDate": "next week"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := staff.do(tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, resp.Success)
			if tt.message != "" {
				assert.Equal(t, tt.message, resp.Message)
			}
		})
	}

	w, _ := staff.do(http.MethodPost, "/api/borrowings", gin.H{"bookId": uuid.New(), "memberId": uuid.New(), "dueDate": "2024-06-01"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrBookNotFound, http.StatusNotFound},
		{services.ErrAlreadyReturned, http.StatusConflict},
		{services.MissingField("x"), http.StatusBadRequest},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrForbidden, http.StatusForbidden},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(services.KindOf(tt.err)), tt.err.Error())
	}
}
