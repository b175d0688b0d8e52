package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Ceasar-x/sschool/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *MemorySessionStore) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	sessions := &MemorySessionStore{}
	return NewClient(srv.URL+"/api", srv.Client(), sessions, nil), sessions
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestLogin_StoresSessionAndReturnsLanding(t *testing.T) {
	tests := []struct {
		role models.Role
		want string
	}{
		{models.RoleStudent, "/student"},
		{models.RoleAdmin, "/admin"},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			c, sessions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/auth/login" || r.Method != http.MethodPost {
					t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
				}
				if r.Header.Get("Authorization") != "" {
					t.Error("login must not send a token when none is stored")
				}
				var body map[string]string
				json.NewDecoder(r.Body).Decode(&body)
				if body["email"] != "ann@x.com" || body["password"] != "secret123" {
					t.Errorf("body = %v", body)
				}
				writeJSON(w, http.StatusOK, map[string]any{
					"message": "Login successful",
					"token":   "tok-1",
					"user":    map[string]any{"name": "Ann", "email": "ann@x.com", "role": tt.role},
				})
			})

			landing, err := c.Login(context.Background(), "ann@x.com", "secret123")
			if err != nil {
				t.Fatal(err)
			}
			if landing != tt.want {
				t.Errorf("landing = %q, want %q", landing, tt.want)
			}
			s, err := sessions.Load()
			if err != nil || s.Token != "tok-1" || s.User.Role != tt.role {
				t.Fatalf("session = %+v, %v", s, err)
			}
		})
	}
}

func TestLogin_FailureKeepsNoSession(t *testing.T) {
	c, sessions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	})

	_, err := c.Login(context.Background(), "ann@x.com", "nope")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 401 || apiErr.Message != "Invalid credentials" {
		t.Fatalf("err = %v", err)
	}
	if _, err := sessions.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatal("failed login must not store a session")
	}
}

func TestRequests_CarryBearerAndDoNotRetry401(t *testing.T) {
	var calls atomic.Int32
	c, sessions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.Header.Get("Authorization"); got != "Bearer stale" {
			t.Errorf("Authorization = %q", got)
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Token has expired"})
	})
	sessions.Save(&Session{Token: "stale", User: models.User{Role: models.RoleStudent}})

	_, err := c.Profile(context.Background())
	if !IsUnauthorized(err) {
		t.Fatalf("err = %v, want 401", err)
	}
	if err.(*APIError).Message != "Token has expired" {
		t.Fatalf("message = %q", err.(*APIError).Message)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("calls = %d, want exactly 1", n)
	}
}

func TestAPIError_FallsBackToStatusText(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>proxy</html>")
	})
	_, err := c.ListBooks(context.Background(), ListOptions{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Bad Gateway" {
		t.Fatalf("err = %v", err)
	}
}

func TestListMaterials_EncodesOptionsAndDecodesPage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/api/students/materials" || q.Get("page") != "2" || q.Get("limit") != "5" || q.Get("search") != "ohm's law" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if q.Has("role") {
			t.Error("empty role must not be sent")
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": []map[string]any{
				{"id": "65a000000000000000000001", "title": "Ohm's law", "content": "V=IR", "userId": nil},
			},
			"totalPages": 3, "currentPage": 2, "total": 11,
		})
	})

	page, err := c.ListMaterials(context.Background(), ListOptions{Page: 2, Limit: 5, Search: "ohm's law"})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 11 || page.TotalPages != 3 || len(page.Items) != 1 || page.Items[0].Title != "Ohm's law" {
		t.Fatalf("page = %+v", page)
	}
	if page.Items[0].ID.Hex() != "65a000000000000000000001" {
		t.Fatalf("id = %s", page.Items[0].ID.Hex())
	}
}

func TestUpdateProfile_RefreshesSessionUser(t *testing.T) {
	c, sessions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["course"]; ok {
			t.Error("nil fields must be omitted")
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Profile updated successfully",
			"user":    map[string]any{"name": body["name"], "role": "student"},
		})
	})
	sessions.Save(&Session{Token: "t", User: models.User{Name: "Old", Role: models.RoleStudent}})

	name := "New"
	if _, err := c.UpdateProfile(context.Background(), ProfileUpdate{Name: &name}); err != nil {
		t.Fatal(err)
	}
	s, _ := sessions.Load()
	if s.User.Name != "New" || s.Token != "t" {
		t.Fatalf("session = %+v", s)
	}
}

func TestUploadCover_SendsMultipart(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/admin/books/b1/cover" {
			t.Errorf("path = %s", r.URL.Path)
		}
		file, header, err := r.FormFile("cover")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b, _ := io.ReadAll(file)
		if header.Filename != "dune.png" || string(b) != "png-bytes" {
			t.Errorf("got %q = %q", header.Filename, b)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Cover uploaded successfully",
			"book":    map[string]any{"bookName": "Dune", "hasCover": true},
		})
	})

	book, err := c.UploadCover(context.Background(), "b1", "dune.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if !book.HasCover || book.BookName != "Dune" {
		t.Fatalf("book = %+v", book)
	}
}

func TestDeleteUser_NoBodyNeeded(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/admin/users/u1" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "User and associated materials deleted successfully"})
	})
	if err := c.DeleteUser(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
}

func TestRedirect(t *testing.T) {
	student := &Session{Token: "t", User: models.User{Role: models.RoleStudent}}
	admin := &Session{Token: "t", User: models.User{Role: models.RoleAdmin}}
	tests := []struct {
		name     string
		session  *Session
		required models.Role
		want     string
	}{
		{"no session", nil, models.RoleStudent, "/login"},
		{"empty token", &Session{}, "", "/login"},
		{"student on student page", student, models.RoleStudent, ""},
		{"student on admin page", student, models.RoleAdmin, "/student"},
		{"admin on student page", admin, models.RoleStudent, "/admin"},
		{"any role", admin, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Redirect(tt.session, tt.required); got != tt.want {
				t.Fatalf("Redirect = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileSessionStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := &FileSessionStore{Path: path}

	if _, err := store.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Load on empty = %v", err)
	}
	want := &Session{Token: "tok", User: models.User{Name: "Ann", Email: "ann@x.com", Role: models.RoleAdmin, Password: "digest"}}
	if err := store.Save(want); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
	raw, _ := os.ReadFile(path)
	if strings.Contains(string(raw), "digest") {
		t.Error("password digest must not be written")
	}

	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Token != "tok" || got.User.Email != "ann@x.com" || got.User.Role != models.RoleAdmin {
		t.Fatalf("loaded = %+v", got)
	}

	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("second Clear = %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Load after Clear = %v", err)
	}
}
