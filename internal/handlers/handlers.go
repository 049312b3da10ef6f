package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"

	"saiblibrary/internal/services"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Borrowings services.BorrowingService
	Catalog    services.CatalogService
	Members    services.MemberService
	Auth       services.AuthService
	Admins     services.AdminService

	Sessions  *scs.SessionManager
	Logger    *slog.Logger
	Ping      func(ctx context.Context) error
	StaticDir string
}

type LibraryHandler struct {
	borrowings services.BorrowingService
	catalog    services.CatalogService
	members    services.MemberService
	auth       services.AuthService
	admins     services.AdminService

	sessions *scs.SessionManager
	log      *slog.Logger
	ping     func(ctx context.Context) error
}

// NewRouter builds the gin engine and wraps it with the session middleware.
func NewRouter(deps Deps) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(deps.Logger))
	RegisterRoutes(r, deps)
	return deps.Sessions.LoadAndSave(r)
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	registerValidations()

	h := &LibraryHandler{
		borrowings: deps.Borrowings,
		catalog:    deps.Catalog,
		members:    deps.Members,
		auth:       deps.Auth,
		admins:     deps.Admins,
		sessions:   deps.Sessions,
		log:        deps.Logger,
		ping:       deps.Ping,
	}

	api := r.Group("/api", h.authenticate())
	api.GET("/health", h.health)

	// Auth endpoints
	api.POST("/auth/login", h.login)
	api.POST("/auth/register", h.register)
	api.POST("/auth/logout", h.requireAuth(), h.logout)
	api.GET("/auth/verify", h.requireAuth(), h.verify)

	// Profile endpoints
	profile := api.Group("/profile", h.requireAuth())
	profile.GET("", h.getProfile)
	profile.PUT("", h.updateProfile)
	profile.PUT("/password", h.changePassword)

	// Catalog endpoints: reads are public, writes need staff
	staff := api.Group("", h.requireAuth(), h.requireStaff())

	api.GET("/books", h.listBooks)
	api.GET("/books/:id", h.getBook)
	staff.POST("/books", h.createBook)
	staff.PUT("/books/:id", h.updateBook)
	staff.DELETE("/books/:id", h.deleteBook)

	api.GET("/authors", h.listAuthors)
	api.GET("/authors/:id", h.getAuthor)
	staff.POST("/authors", h.createAuthor)
	staff.PUT("/authors/:id", h.updateAuthor)
	staff.DELETE("/authors/:id", h.deleteAuthor)

	api.GET("/genres", h.listGenres)
	api.GET("/genres/:id", h.getGenre)
	staff.POST("/genres", h.createGenre)
	staff.PUT("/genres/:id", h.updateGenre)
	staff.DELETE("/genres/:id", h.deleteGenre)

	api.GET("/publishers", h.listPublishers)
	api.GET("/publishers/:id", h.getPublisher)
	staff.POST("/publishers", h.createPublisher)
	staff.PUT("/publishers/:id", h.updatePublisher)
	staff.DELETE("/publishers/:id", h.deletePublisher)

	// Borrowing endpoints
	api.GET("/borrowings/book/:bookId", h.listBookBorrowings)
	api.GET("/borrowings/member/:memberId", h.requireAuth(), h.listMemberBorrowings)
	api.GET("/borrowings/:id", h.requireAuth(), h.getBorrowing)
	staff.GET("/borrowings", h.listBorrowings)
	staff.POST("/borrowings", h.checkout)
	staff.PUT("/borrowings/:id/return", h.returnBorrowing)
	staff.PUT("/borrowings/:id", h.updateBorrowing)
	staff.DELETE("/borrowings/:id", h.deleteBorrowing)

	// Member endpoints
	staff.GET("/members", h.listMembers)
	staff.POST("/members", h.createMember)
	staff.DELETE("/members/:id", h.deleteMember)
	api.GET("/members/:id", h.requireAuth(), h.getMember)
	api.PUT("/members/:id", h.requireAuth(), h.updateMember)

	// Staff management, super admins only
	admins := api.Group("/admins", h.requireAuth(), h.requireSuperAdmin())
	admins.GET("", h.listAdmins)
	admins.GET("/:id", h.getAdmin)
	admins.POST("", h.createAdmin)
	admins.PUT("/:id", h.updateAdmin)
	admins.PUT("/:id/active", h.setAdminActive)
	admins.DELETE("/:id", h.deleteAdmin)

	if deps.StaticDir != "" {
		files := http.FileServer(http.Dir(deps.StaticDir))
		r.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") || c.Request.Method != http.MethodGet {
				fail(c, errRouteNotFound)
				return
			}
			files.ServeHTTP(c.Writer, c.Request)
		})
	} else {
		r.NoRoute(func(c *gin.Context) { fail(c, errRouteNotFound) })
	}
}

func (h *LibraryHandler) health(c *gin.Context) {
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			h.log.Error("health check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, envelope{Success: false, Message: "database unavailable"})
			return
		}
	}
	ok(c, http.StatusOK, "", gin.H{"status": "ok"})
}
