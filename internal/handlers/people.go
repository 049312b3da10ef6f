package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"saiblibrary/internal/models"
	"saiblibrary/internal/services"
)

// ─── Members ──────────────────────────────────────────────────────────────────

type memberRequest struct {
	FirstName           *string      `json:"firstName" binding:"omitempty,notblank,max=100"`
	LastName            *string      `json:"lastName" binding:"omitempty,notblank,max=100"`
	Email               *string      `json:"email" binding:"omitempty,email"`
	Password            *string      `json:"password"`
	Phone               *string      `json:"phone" binding:"omitempty,max=50"`
	Address             *string      `json:"address" binding:"omitempty,max=255"`
	DateOfBirth         *models.Date `json:"dateOfBirth"`
	MembershipStartDate *models.Date `json:"joinedDate"`
	MembershipEndDate   *models.Date `json:"membershipEndDate"`
	IsActive            *bool        `json:"isActive"`
}

func (r memberRequest) input() services.MemberInput {
	return services.MemberInput{
		FirstName:           r.FirstName,
		LastName:            r.LastName,
		Email:               r.Email,
		Password:            r.Password,
		Phone:               r.Phone,
		Address:             r.Address,
		DateOfBirth:         r.DateOfBirth,
		MembershipStartDate: r.MembershipStartDate,
		MembershipEndDate:   r.MembershipEndDate,
		IsActive:            r.IsActive,
	}
}

func (h *LibraryHandler) listMembers(c *gin.Context) {
	members, err := h.members.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", members)
}

func (h *LibraryHandler) getMember(c *gin.Context) {
	id, valid := pathID(c, "id", "member")
	if !valid {
		return
	}
	if !canSee(c, id) {
		fail(c, services.ErrForbidden)
		return
	}
	member, err := h.members.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", member)
}

func (h *LibraryHandler) createMember(c *gin.Context) {
	var req memberRequest
	if !bind(c, &req) {
		return
	}
	member, err := h.members.Create(c.Request.Context(), req.input())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "member created", member)
}

// updateMember lets staff edit any member and members edit themselves. Only staff
// may change membership dates or the active flag.
func (h *LibraryHandler) updateMember(c *gin.Context) {
	id, valid := pathID(c, "id", "member")
	if !valid {
		return
	}
	if !canSee(c, id) {
		fail(c, services.ErrForbidden)
		return
	}
	var req memberRequest
	if !bind(c, &req) {
		return
	}
	who, _ := identityFrom(c)
	if !who.Role.IsStaff() && (req.IsActive != nil || req.MembershipStartDate != nil || req.MembershipEndDate != nil) {
		fail(c, services.ErrForbidden)
		return
	}
	member, err := h.members.Update(c.Request.Context(), id, req.input())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "member updated", member)
}

func (h *LibraryHandler) deleteMember(c *gin.Context) {
	id, valid := pathID(c, "id", "member")
	if !valid {
		return
	}
	if err := h.members.Deactivate(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "member deactivated", nil)
}

// ─── Staff ────────────────────────────────────────────────────────────────────

type staffRequest struct {
	Role      models.Role `json:"role" binding:"required,oneof=admin superadmin"`
	FirstName *string     `json:"firstName" binding:"omitempty,notblank,max=100"`
	LastName  *string     `json:"lastName" binding:"omitempty,notblank,max=100"`
	Email     *string     `json:"email" binding:"omitempty,email"`
	Password  *string     `json:"password"`
	Phone     *string     `json:"phone" binding:"omitempty,max=50"`
	Address   *string     `json:"address" binding:"omitempty,max=255"`
}

func (h *LibraryHandler) listAdmins(c *gin.Context) {
	staff, err := h.admins.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", staff)
}

func (h *LibraryHandler) getAdmin(c *gin.Context) {
	id, valid := pathID(c, "id", "admin")
	if !valid {
		return
	}
	staff, err := h.admins.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", staff)
}

func (h *LibraryHandler) createAdmin(c *gin.Context) {
	var req staffRequest
	if !bind(c, &req) {
		return
	}
	staff, err := h.admins.Create(c.Request.Context(), services.StaffInput{
		Role:      req.Role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "staff account created", staff)
}

type staffUpdateRequest struct {
	FirstName   *string      `json:"firstName" binding:"omitempty,notblank,max=100"`
	LastName    *string      `json:"lastName" binding:"omitempty,notblank,max=100"`
	Email       *string      `json:"email" binding:"omitempty,email"`
	Password    *string      `json:"password"`
	Phone       *string      `json:"phone" binding:"omitempty,max=50"`
	Address     *string      `json:"address" binding:"omitempty,max=255"`
	DateOfBirth *models.Date `json:"dateOfBirth"`
	IsActive    *bool        `json:"isActive"`
}

func (h *LibraryHandler) updateAdmin(c *gin.Context) {
	id, valid := pathID(c, "id", "admin")
	if !valid {
		return
	}
	var req staffUpdateRequest
	if !bind(c, &req) {
		return
	}
	staff, err := h.admins.Update(c.Request.Context(), id, services.StaffUpdateInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		Phone:       req.Phone,
		Address:     req.Address,
		DateOfBirth: req.DateOfBirth,
		IsActive:    req.IsActive,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "staff account updated", staff)
}

type activeRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

func (h *LibraryHandler) setAdminActive(c *gin.Context) {
	id, valid := pathID(c, "id", "admin")
	if !valid {
		return
	}
	var req activeRequest
	if !bind(c, &req) {
		return
	}
	if err := h.admins.SetActive(c.Request.Context(), id, *req.IsActive); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "admin updated", nil)
}

func (h *LibraryHandler) deleteAdmin(c *gin.Context) {
	id, valid := pathID(c, "id", "admin")
	if !valid {
		return
	}
	who, _ := identityFrom(c)
	if err := h.admins.Delete(c.Request.Context(), who, id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "staff account deleted", nil)
}
