package client

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/Ceasar-x/sschool/models"
)

// Registration is the body for both sign-up routes and create-admin.
type Registration struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Course    string `json:"course,omitempty"`
	StudentID string `json:"studentId,omitempty"`
	Semester  string `json:"semester,omitempty"`
	Faculty   string `json:"faculty,omitempty"`
	Role      string `json:"role,omitempty"`
}

// ProfileUpdate changes the caller's own profile. Nil fields are left alone.
type ProfileUpdate struct {
	Name      *string `json:"name,omitempty"`
	Course    *string `json:"course,omitempty"`
	StudentID *string `json:"studentId,omitempty"`
	Semester  *string `json:"semester,omitempty"`
	Faculty   *string `json:"faculty,omitempty"`
	Password  *string `json:"password,omitempty"`
}

// UserUpdate is an admin edit of any account. Nil fields are left alone.
type UserUpdate struct {
	Name      *string `json:"name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Password  *string `json:"password,omitempty"`
	Course    *string `json:"course,omitempty"`
	StudentID *string `json:"studentId,omitempty"`
	Semester  *string `json:"semester,omitempty"`
	Faculty   *string `json:"faculty,omitempty"`
	Role      *string `json:"role,omitempty"`
}

type BookInput struct {
	BookName    string `json:"bookName"`
	Author      string `json:"author"`
	Description string `json:"description,omitempty"`
}

type BookUpdate struct {
	BookName    *string `json:"bookName,omitempty"`
	Author      *string `json:"author,omitempty"`
	Description *string `json:"description,omitempty"`
}

type DashboardStats struct {
	TotalUsers     int64         `json:"totalUsers"`
	TotalStudents  int64         `json:"totalStudents"`
	TotalAdmins    int64         `json:"totalAdmins"`
	TotalBooks     int64         `json:"totalBooks"`
	TotalMaterials int64         `json:"totalMaterials"`
	RecentUsers    []models.User `json:"recentUsers"`
}

type CoverURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type userEnvelope struct {
	User *models.User `json:"user"`
}

type bookEnvelope struct {
	Book *models.BookView `json:"book"`
}

type materialEnvelope struct {
	Material *models.MaterialView `json:"material"`
}

func (c *Client) Register(ctx context.Context, r Registration) (*models.User, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, r, &env); err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *Client) RegisterStudent(ctx context.Context, r Registration) (*models.User, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodPost, "/students/register", nil, r, &env); err != nil {
		return nil, err
	}
	return env.User, nil
}

// Student routes.

func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/students/profile", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile saves the changes and refreshes the user kept in the session.
func (c *Client) UpdateProfile(ctx context.Context, up ProfileUpdate) (*models.User, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodPut, "/students/profile", nil, up, &env); err != nil {
		return nil, err
	}
	if s, err := c.sessions.Load(); err == nil && env.User != nil {
		s.User = *env.User
		if err := c.sessions.Save(s); err != nil {
			return env.User, err
		}
	}
	return env.User, nil
}

func (c *Client) AddMaterial(ctx context.Context, title, content string) (*models.MaterialView, error) {
	var env materialEnvelope
	body := map[string]string{"title": title, "content": content}
	if err := c.do(ctx, http.MethodPost, "/students/materials", nil, body, &env); err != nil {
		return nil, err
	}
	return env.Material, nil
}

func (c *Client) ListMaterials(ctx context.Context, opts ListOptions) (*Page[models.MaterialView], error) {
	var page Page[models.MaterialView]
	if err := c.do(ctx, http.MethodGet, "/students/materials", opts.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetMaterial(ctx context.Context, id string) (*models.MaterialView, error) {
	var m models.MaterialView
	if err := c.do(ctx, http.MethodGet, "/students/materials/"+id, nil, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) DeleteMaterial(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/students/materials/"+id, nil, nil, nil)
}

// Books. List and Get use the public catalogue routes.

func (c *Client) ListBooks(ctx context.Context, opts ListOptions) (*Page[models.BookView], error) {
	var page Page[models.BookView]
	if err := c.do(ctx, http.MethodGet, "/books", opts.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetBook(ctx context.Context, id string) (*models.BookView, error) {
	var b models.BookView
	if err := c.do(ctx, http.MethodGet, "/books/"+id, nil, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) BookCover(ctx context.Context, id string) (*CoverURL, error) {
	var u CoverURL
	if err := c.do(ctx, http.MethodGet, "/books/"+id+"/cover", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Admin routes.

func (c *Client) CreateAdmin(ctx context.Context, r Registration) (*models.User, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodPost, "/admin/create-admin", nil, r, &env); err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *Client) ListUsers(ctx context.Context, opts ListOptions) (*Page[models.User], error) {
	var page Page[models.User]
	if err := c.do(ctx, http.MethodGet, "/admin/users", opts.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/admin/users/"+id, nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, up UserUpdate) (*models.User, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodPut, "/admin/users/"+id, nil, up, &env); err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+id, nil, nil, nil)
}

func (c *Client) UserNotifications(ctx context.Context, id string) ([]models.EmailLog, error) {
	var logs []models.EmailLog
	if err := c.do(ctx, http.MethodGet, "/admin/users/"+id+"/notifications", nil, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var s DashboardStats
	if err := c.do(ctx, http.MethodGet, "/admin/dashboard/stats", nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) CreateBook(ctx context.Context, in BookInput) (*models.BookView, error) {
	var env bookEnvelope
	if err := c.do(ctx, http.MethodPost, "/admin/books", nil, in, &env); err != nil {
		return nil, err
	}
	return env.Book, nil
}

func (c *Client) UpdateBook(ctx context.Context, id string, up BookUpdate) (*models.BookView, error) {
	var env bookEnvelope
	if err := c.do(ctx, http.MethodPut, "/admin/books/"+id, nil, up, &env); err != nil {
		return nil, err
	}
	return env.Book, nil
}

func (c *Client) DeleteBook(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/books/"+id, nil, nil, nil)
}

func (c *Client) TotalBooks(ctx context.Context) (int64, error) {
	var out struct {
		Total int64 `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/books/stats/total", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Total, nil
}

func (c *Client) UploadCover(ctx context.Context, id, filename string, image io.Reader) (*models.BookView, error) {
	var env bookEnvelope
	if err := c.upload(ctx, "/admin/books/"+id+"/cover", "cover", filename, image, &env); err != nil {
		return nil, err
	}
	return env.Book, nil
}
