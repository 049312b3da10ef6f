package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"saiblibrary/internal/models"
	"saiblibrary/internal/services"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *LibraryHandler) login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	who, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.startSession(c, who); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "login successful", who)
}

type registerRequest struct {
	FirstName   *string      `json:"firstName" binding:"omitempty,notblank,max=100"`
	LastName    *string      `json:"lastName" binding:"omitempty,notblank,max=100"`
	Email       *string      `json:"email" binding:"omitempty,email"`
	Password    *string      `json:"password"`
	Phone       *string      `json:"phone" binding:"omitempty,max=50"`
	Address     *string      `json:"address" binding:"omitempty,max=255"`
	DateOfBirth *models.Date `json:"dateOfBirth"`
}

func (h *LibraryHandler) register(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req) {
		return
	}
	who, err := h.auth.Register(c.Request.Context(), services.MemberInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		Phone:       req.Phone,
		Address:     req.Address,
		DateOfBirth: req.DateOfBirth,
	})
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.startSession(c, who); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "registration successful", who)
}

func (h *LibraryHandler) logout(c *gin.Context) {
	if err := h.sessions.Destroy(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "logged out", nil)
}

// verify re-reads the account so that deactivated users lose their session.
func (h *LibraryHandler) verify(c *gin.Context) {
	who, _ := identityFrom(c)
	fresh, err := h.auth.Verify(c.Request.Context(), who)
	if err != nil {
		if services.KindOf(err) == services.KindUnauthorized {
			h.clearSession(c)
		}
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", fresh)
}

// ─── Profile ──────────────────────────────────────────────────────────────────

func (h *LibraryHandler) getProfile(c *gin.Context) {
	who, _ := identityFrom(c)
	profile, err := h.auth.Profile(c.Request.Context(), who)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", profile)
}

type profileRequest struct {
	FirstName   *string      `json:"firstName" binding:"omitempty,notblank,max=100"`
	LastName    *string      `json:"lastName" binding:"omitempty,notblank,max=100"`
	Email       *string      `json:"email" binding:"omitempty,email"`
	Phone       *string      `json:"phone" binding:"omitempty,max=50"`
	Address     *string      `json:"address" binding:"omitempty,max=255"`
	DateOfBirth *models.Date `json:"dateOfBirth"`
}

func (h *LibraryHandler) updateProfile(c *gin.Context) {
	var req profileRequest
	if !bind(c, &req) {
		return
	}
	who, _ := identityFrom(c)
	profile, err := h.auth.UpdateProfile(c.Request.Context(), who, services.ProfileInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		DateOfBirth: req.DateOfBirth,
	})
	if err != nil {
		fail(c, err)
		return
	}
	if req.Email != nil || req.FirstName != nil || req.LastName != nil {
		ctx := c.Request.Context()
		h.sessions.Put(ctx, sessionEmailKey, profile.Email)
		h.sessions.Put(ctx, sessionNameKey, profile.FullName())
	}
	ok(c, http.StatusOK, "profile updated", profile)
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func (h *LibraryHandler) changePassword(c *gin.Context) {
	var req passwordRequest
	if !bind(c, &req) {
		return
	}
	who, _ := identityFrom(c)
	if err := h.auth.ChangePassword(c.Request.Context(), who, req.CurrentPassword, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "password changed", nil)
}
