package handlers

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"saiblibrary/internal/models"
	"saiblibrary/internal/services"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"
	loggerKey       = "logger"
	identityKey     = "identity"

	sessionIDKey    = "identityID"
	sessionRoleKey  = "identityRole"
	sessionEmailKey = "identityEmail"
	sessionNameKey  = "identityName"
)

// requestID reuses the caller's X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Header(requestIDHeader, rid)
		c.Next()
	}
}

// requestLogger writes one line per request.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(loggerKey, log.With("req_id", c.GetString(requestIDKey)))
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		log.Info("http",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"req_id", c.GetString(requestIDKey),
			"ip", c.ClientIP(),
			"ua", c.Request.UserAgent(),
		)
	}
}

func loggerFrom(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if log, ok := v.(*slog.Logger); ok {
			return log
		}
	}
	return slog.Default()
}

// authenticate loads the session identity, if any, into the gin context.
func (h *LibraryHandler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		raw := h.sessions.GetString(ctx, sessionIDKey)
		if raw == "" {
			c.Next()
			return
		}
		id, err := uuid.Parse(raw)
		role := models.Role(h.sessions.GetString(ctx, sessionRoleKey))
		if err != nil || !role.Valid() {
			// stale or foreign session data
			h.clearSession(c)
			c.Next()
			return
		}
		c.Set(identityKey, services.Identity{
			ID:    id,
			Role:  role,
			Email: h.sessions.GetString(ctx, sessionEmailKey),
			Name:  h.sessions.GetString(ctx, sessionNameKey),
		})
		c.Next()
	}
}

func (h *LibraryHandler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := identityFrom(c); !ok {
			fail(c, errNotLoggedIn)
			return
		}
		c.Next()
	}
}

func (h *LibraryHandler) requireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		who, _ := identityFrom(c)
		if !who.Role.IsStaff() {
			fail(c, services.ErrForbidden)
			return
		}
		c.Next()
	}
}

func (h *LibraryHandler) requireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		who, _ := identityFrom(c)
		if who.Role != models.RoleSuperAdmin {
			fail(c, services.ErrForbidden)
			return
		}
		c.Next()
	}
}

var errNotLoggedIn = &services.Error{Kind: services.KindUnauthorized, Reason: "notLoggedIn", Message: "not logged in"}

func identityFrom(c *gin.Context) (services.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return services.Identity{}, false
	}
	who, ok := v.(services.Identity)
	return who, ok
}

// canSee reports whether the caller is staff or the member the resource belongs to.
func canSee(c *gin.Context, memberID uuid.UUID) bool {
	who, ok := identityFrom(c)
	if !ok {
		return false
	}
	return who.Role.IsStaff() || (who.Role == models.RoleMember && who.ID == memberID)
}

func (h *LibraryHandler) startSession(c *gin.Context, who *services.Identity) error {
	ctx := c.Request.Context()
	if err := h.sessions.RenewToken(ctx); err != nil {
		return err
	}
	h.sessions.Put(ctx, sessionIDKey, who.ID.String())
	h.sessions.Put(ctx, sessionRoleKey, string(who.Role))
	h.sessions.Put(ctx, sessionEmailKey, who.Email)
	h.sessions.Put(ctx, sessionNameKey, who.Name)
	return nil
}

func (h *LibraryHandler) clearSession(c *gin.Context) {
	ctx := c.Request.Context()
	for _, key := range []string{sessionIDKey, sessionRoleKey, sessionEmailKey, sessionNameKey} {
		h.sessions.Remove(ctx, key)
	}
}
