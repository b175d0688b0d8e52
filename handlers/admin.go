package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Ceasar-x/sschool/models"
	"github.com/Ceasar-x/sschool/service"
	"github.com/Ceasar-x/sschool/store"
	"golang.org/x/sync/errgroup"
)

const recentUsersOnDashboard = 5

// AdminHandler serves /api/admin user management and the dashboard. All
// routes run behind Auth and an admin role gate.
type AdminHandler struct {
	Users     UserStore
	Books     BookStore
	Materials MaterialStore
	EmailLogs EmailLogStore
	Hasher    *service.Hasher
	Notifier  service.Notifier
}

type createAdminRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,schoolemail"`
	Password string `json:"password" validate:"required,min=6,passwordmax"`
	Course   string `json:"course" validate:"required"`
	Faculty  string `json:"faculty" validate:"required"`
}

// adminUserUpdate is a partial update. Empty strings leave a field as it is,
// except studentId which may be cleared.
type adminUserUpdate struct {
	Name      *string `json:"name"`
	Email     *string `json:"email" validate:"omitempty,schoolemail"`
	Course    *string `json:"course"`
	StudentID *string `json:"studentId"`
	Semester  *string `json:"semester"`
	Faculty   *string `json:"faculty"`
	Role      *string `json:"role" validate:"omitempty,oneof=student admin"`
	Password  *string `json:"password" validate:"omitempty,min=6,passwordmax"`
}

type DashboardStats struct {
	TotalUsers     int64         `json:"totalUsers"`
	TotalStudents  int64         `json:"totalStudents"`
	TotalAdmins    int64         `json:"totalAdmins"`
	TotalBooks     int64         `json:"totalBooks"`
	TotalMaterials int64         `json:"totalMaterials"`
	RecentUsers    []models.User `json:"recentUsers"`
}

func (h *AdminHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req createAdminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	trim(&req.Name)
	req.Email = normalizeEmail(req.Email)
	trim(&req.Course)
	trim(&req.Faculty)
	if err := validateRequest(&req, tagMessages{
		"required":    "Name, email, password, course, and faculty are required",
		"schoolemail": msgInvalidEmail,
		"min":         msgShortPassword,
		"passwordmax": msgLongPassword,
	}); err != nil {
		writeError(w, err)
		return
	}

	user := &models.User{
		Name:    req.Name,
		Email:   req.Email,
		Role:    models.RoleAdmin,
		Course:  req.Course,
		Faculty: req.Faculty,
	}
	if err := createAccount(r.Context(), h.Users, h.Hasher, user, req.Password); err != nil {
		writeFailure(w, "create admin", err, "Server error while creating admin")
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{Message: "Admin created successfully", User: user})
	notify(h.Notifier, service.WelcomeNotification(user))
}

// ListUsers pages through all users. An unknown role filter is ignored.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p := parsePage(r)
	q := store.UserQuery{Search: p.Search, Page: p.store()}
	if role, ok := models.ParseRole(r.URL.Query().Get("role")); ok {
		q.Role = role
	}
	users, total, err := h.Users.ListUsers(r.Context(), q)
	if err != nil {
		writeInternal(w, "list users", err, "Server error while fetching users")
		return
	}
	writeJSON(w, http.StatusOK, newPage(users, total, p))
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "user")
	if err != nil {
		writeError(w, err)
		return
	}
	user, err := h.Users.UserByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, models.NewNotFoundError("User not found"))
		return
	}
	if err != nil {
		writeInternal(w, "get user", err, "Server error while fetching user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "user")
	if err != nil {
		writeError(w, err)
		return
	}
	var req adminUserUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	trimOrDrop(&req.Name)
	trimOrDrop(&req.Email)
	trimOrDrop(&req.Course)
	trim(req.StudentID)
	trimOrDrop(&req.Semester)
	trimOrDrop(&req.Faculty)
	trimOrDrop(&req.Role)
	if req.Password != nil && *req.Password == "" {
		req.Password = nil
	}
	if req.Email != nil {
		e := normalizeEmail(*req.Email)
		req.Email = &e
	}
	if err := validateRequest(&req, tagMessages{
		"schoolemail": msgInvalidEmail,
		"min":         msgShortPassword,
		"passwordmax": msgLongPassword,
		"oneof":       msgInvalidRole,
	}); err != nil {
		writeError(w, err)
		return
	}

	update := store.UserUpdate{
		Name:      req.Name,
		Email:     req.Email,
		Course:    req.Course,
		StudentID: req.StudentID,
		Semester:  req.Semester,
		Faculty:   req.Faculty,
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		update.Role = &role
	}

	if req.Email != nil {
		existing, err := h.Users.UserByEmail(r.Context(), *req.Email)
		switch {
		case err == nil && existing.ID != id:
			writeError(w, models.NewConflictError(msgEmailExists))
			return
		case err != nil && !errors.Is(err, store.ErrNotFound):
			writeInternal(w, "update user: email check", err, "Server error while updating user")
			return
		}
	}

	if req.Password != nil {
		digest, err := h.Hasher.Hash(*req.Password)
		if err != nil {
			writeInternal(w, "update user: hash", err, "Server error while updating user")
			return
		}
		update.Password = &digest
	}

	user, err := h.Users.UpdateUser(r.Context(), id, update)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, models.NewNotFoundError("User not found"))
		return
	case errors.Is(err, store.ErrDuplicateKey):
		writeError(w, models.NewConflictError(msgEmailExists))
		return
	case err != nil:
		writeInternal(w, "update user", err, "Server error while updating user")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Message: "User updated successfully", User: user})
	notify(h.Notifier, service.AccountUpdatedNotification(user))
}

// DeleteUser removes the user and then their materials. The two deletes are
// separate store calls; if the second fails the user is already gone and the
// leftover materials are logged.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	me, err := identity(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "user")
	if err != nil {
		writeError(w, err)
		return
	}
	if id == me.ID {
		writeError(w, models.NewValidationError("You cannot delete your own account"))
		return
	}

	user, err := h.Users.UserByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, models.NewNotFoundError("User not found"))
		return
	}
	if err != nil {
		writeInternal(w, "delete user: load", err, "Server error while deleting user")
		return
	}

	err = h.Users.DeleteUser(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, models.NewNotFoundError("User not found"))
		return
	}
	if err != nil {
		writeInternal(w, "delete user", err, "Server error while deleting user")
		return
	}

	if _, err := h.Materials.DeleteMaterialsByOwner(r.Context(), id); err != nil {
		slog.Error("delete user: orphaned materials",
			slog.String("user_id", id.Hex()),
			slog.String("error", err.Error()),
		)
		writeError(w, models.NewInternalError("Server error while deleting user"))
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "User and associated materials deleted successfully"})
	notify(h.Notifier, service.AccountDeletedNotification(user))
}

// UserNotifications lists the account emails sent to a user, newest first.
func (h *AdminHandler) UserNotifications(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "user")
	if err != nil {
		writeError(w, err)
		return
	}
	logs := []models.EmailLog{}
	if h.EmailLogs != nil {
		logs, err = h.EmailLogs.EmailLogsForUser(r.Context(), id)
		if err != nil {
			writeInternal(w, "user notifications", err, "Server error while fetching notifications")
			return
		}
	}
	writeJSON(w, http.StatusOK, logs)
}

// DashboardStats runs the six read-only queries concurrently. Any failure
// fails the whole response.
func (h *AdminHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	var stats DashboardStats
	g, ctx := errgroup.WithContext(r.Context())

	g.Go(func() (err error) {
		stats.TotalUsers, err = h.Users.CountUsers(ctx, "")
		return err
	})
	g.Go(func() (err error) {
		stats.TotalStudents, err = h.Users.CountUsers(ctx, models.RoleStudent)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalAdmins, err = h.Users.CountUsers(ctx, models.RoleAdmin)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalBooks, err = h.Books.CountBooks(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalMaterials, err = h.Materials.CountMaterials(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.RecentUsers, err = h.Users.RecentUsers(ctx, recentUsersOnDashboard)
		return err
	})

	if err := g.Wait(); err != nil {
		writeInternal(w, "dashboard stats", err, "Server error while fetching dashboard statistics")
		return
	}
	if stats.RecentUsers == nil {
		stats.RecentUsers = []models.User{}
	}
	writeJSON(w, http.StatusOK, stats)
}
