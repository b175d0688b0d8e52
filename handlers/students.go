package handlers

import (
	"errors"
	"net/http"

	"github.com/Ceasar-x/sschool/models"
	"github.com/Ceasar-x/sschool/service"
	"github.com/Ceasar-x/sschool/store"
)

// StudentsHandler serves the self-service student routes. Every route except
// Register runs behind Auth and a student role gate.
type StudentsHandler struct {
	Users     UserStore
	Materials MaterialStore
	Hasher    *service.Hasher
	Notifier  service.Notifier
}

// profileUpdate carries the fields a student may change on their own account.
// Email and role are not accepted.
type profileUpdate struct {
	Name      *string `json:"name"`
	Course    *string `json:"course"`
	StudentID *string `json:"studentId"`
	Semester  *string `json:"semester"`
	Faculty   *string `json:"faculty"`
	Password  *string `json:"password" validate:"omitempty,min=6,passwordmax"`
}

type materialRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type materialResponse struct {
	Message  string               `json:"message"`
	Material *models.MaterialView `json:"material"`
}

func (h *StudentsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.normalize()
	if err := validateRequest(&req, signupMessages); err != nil {
		writeError(w, err)
		return
	}

	user := req.user(models.RoleStudent)
	if err := createAccount(r.Context(), h.Users, h.Hasher, user, req.Password); err != nil {
		writeFailure(w, "student register", err, "Server error while creating student account")
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{Message: "Student account created successfully", User: user})
	notify(h.Notifier, service.WelcomeNotification(user))
}

func (h *StudentsHandler) Profile(w http.ResponseWriter, r *http.Request) {
	me, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}
	user, err := h.Users.UserByID(r.Context(), me.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, models.NewNotFoundError("User profile not found"))
		return
	}
	if err != nil {
		writeInternal(w, "get profile", err, "Server error while fetching profile")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile applies a partial update. An empty name or password is
// ignored; the other text fields may be cleared.
func (h *StudentsHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	me, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req profileUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	trimOrDrop(&req.Name)
	trim(req.Course)
	trim(req.StudentID)
	trim(req.Semester)
	trim(req.Faculty)
	if req.Password != nil && *req.Password == "" {
		req.Password = nil
	}
	if err := validateRequest(&req, tagMessages{
		"min":         msgShortPassword,
		"passwordmax": msgLongPassword,
	}); err != nil {
		writeError(w, err)
		return
	}

	update := store.UserUpdate{
		Name:      req.Name,
		Course:    req.Course,
		StudentID: req.StudentID,
		Semester:  req.Semester,
		Faculty:   req.Faculty,
	}
	if req.Password != nil {
		digest, err := h.Hasher.Hash(*req.Password)
		if err != nil {
			writeInternal(w, "update profile: hash", err, "Server error while updating profile")
			return
		}
		update.Password = &digest
	}

	user, err := h.Users.UpdateUser(r.Context(), me.ID, update)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, models.NewNotFoundError("User not found"))
		return
	}
	if err != nil {
		writeInternal(w, "update profile", err, "Server error while updating profile")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Message: "Profile updated successfully", User: user})
	if update.Password != nil {
		notify(h.Notifier, service.AccountUpdatedNotification(user))
	}
}

func (h *StudentsHandler) AddMaterial(w http.ResponseWriter, r *http.Request) {
	me, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req materialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	trim(&req.Title)
	trim(&req.Content)
	if err := validateRequest(&req, tagMessages{"required": "Title and content are required"}); err != nil {
		writeError(w, err)
		return
	}

	material := &models.Material{UserID: me.ID, Title: req.Title, Content: req.Content}
	if err := h.Materials.InsertMaterial(r.Context(), material); err != nil {
		writeInternal(w, "add material", err, "Server error while adding material")
		return
	}
	view, err := h.Materials.MaterialByID(r.Context(), material.ID)
	if err != nil {
		writeInternal(w, "add material: reload", err, "Server error while adding material")
		return
	}
	writeJSON(w, http.StatusCreated, materialResponse{Message: "Material added successfully", Material: view})
}

// ListMaterials pages through the caller's own materials, newest first.
func (h *StudentsHandler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	me, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p := parsePage(r)
	materials, total, err := h.Materials.ListMaterials(r.Context(), store.MaterialQuery{
		OwnerID: me.ID,
		Search:  p.Search,
		Page:    p.store(),
	})
	if err != nil {
		writeInternal(w, "list materials", err, "Server error while fetching materials")
		return
	}
	writeJSON(w, http.StatusOK, newPage(materials, total, p))
}

// GetMaterial returns one of the caller's materials. Someone else's material
// is reported as missing.
func (h *StudentsHandler) GetMaterial(w http.ResponseWriter, r *http.Request) {
	me, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "material")
	if err != nil {
		writeError(w, err)
		return
	}
	material, err := h.Materials.MaterialByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && material.UserID != me.ID) {
		writeError(w, models.NewNotFoundError("Material not found"))
		return
	}
	if err != nil {
		writeInternal(w, "get material", err, "Server error while fetching material")
		return
	}
	writeJSON(w, http.StatusOK, material)
}

func (h *StudentsHandler) DeleteMaterial(w http.ResponseWriter, r *http.Request) {
	me, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "material")
	if err != nil {
		writeError(w, err)
		return
	}
	err = h.Materials.DeleteMaterial(r.Context(), id, me.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, models.NewNotFoundError("Material not found"))
		return
	}
	if err != nil {
		writeInternal(w, "delete material", err, "Server error while deleting material")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Material deleted successfully"})
}
