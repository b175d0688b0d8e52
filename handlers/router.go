package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Ceasar-x/sschool/metrics"
	"github.com/Ceasar-x/sschool/middleware"
	"github.com/Ceasar-x/sschool/models"
	"github.com/Ceasar-x/sschool/service"
	"github.com/Ceasar-x/sschool/store"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserStore is the user collection as the handlers see it. *store.DB
// implements it.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ListUsers(ctx context.Context, q store.UserQuery) ([]models.User, int64, error)
	RecentUsers(ctx context.Context, n int64) ([]models.User, error)
	CountUsers(ctx context.Context, role models.Role) (int64, error)
	UpdateUser(ctx context.Context, id primitive.ObjectID, update store.UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
}

type BookStore interface {
	InsertBook(ctx context.Context, book *models.Book) error
	BookByNameAuthor(ctx context.Context, name, author string) (*models.Book, error)
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.BookView, error)
	ListBooks(ctx context.Context, q store.BookQuery) ([]models.BookView, int64, error)
	CountBooks(ctx context.Context) (int64, error)
	UpdateBook(ctx context.Context, id primitive.ObjectID, update store.BookUpdate) (*models.BookView, error)
	SetBookCover(ctx context.Context, id primitive.ObjectID, key string) (string, error)
	DeleteBook(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
}

type MaterialStore interface {
	InsertMaterial(ctx context.Context, m *models.Material) error
	MaterialByID(ctx context.Context, id primitive.ObjectID) (*models.MaterialView, error)
	ListMaterials(ctx context.Context, q store.MaterialQuery) ([]models.MaterialView, int64, error)
	CountMaterials(ctx context.Context) (int64, error)
	DeleteMaterial(ctx context.Context, id, ownerID primitive.ObjectID) error
	DeleteMaterialsByOwner(ctx context.Context, ownerID primitive.ObjectID) (int64, error)
}

type EmailLogStore interface {
	EmailLogsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.EmailLog, error)
}

// ObjectStorage holds book cover images. *service.S3Service implements it.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// RouterDeps collects everything NewRouter wires together. Notifier, Storage,
// Metrics and Gatherer are optional.
type RouterDeps struct {
	Users     UserStore
	Books     BookStore
	Materials MaterialStore
	EmailLogs EmailLogStore

	Hasher *service.Hasher
	Tokens *service.TokenIssuer

	Notifier       service.Notifier
	Storage        ObjectStorage
	MaxUploadBytes int64

	Logger      *slog.Logger
	CORSOrigins []string
	Metrics     metrics.Recorder
	Gatherer    prometheus.Gatherer
}

// NewRouter builds the HTTP API. Middleware order:
//
//	RequestID → RealIP → Logging → Metrics → Recoverer → CORS → (Auth → RequireRoles)
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	authHandler := &AuthHandler{Users: deps.Users, Hasher: deps.Hasher, Tokens: deps.Tokens, Notifier: deps.Notifier, Metrics: deps.Metrics}
	studentsHandler := &StudentsHandler{Users: deps.Users, Materials: deps.Materials, Hasher: deps.Hasher, Notifier: deps.Notifier}
	adminHandler := &AdminHandler{Users: deps.Users, Books: deps.Books, Materials: deps.Materials, EmailLogs: deps.EmailLogs, Hasher: deps.Hasher, Notifier: deps.Notifier}
	booksHandler := &BooksHandler{Books: deps.Books, Storage: deps.Storage, MaxUploadBytes: deps.MaxUploadBytes}

	authenticate := middleware.Auth(deps.Tokens, deps.Users)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(metrics.Middleware(deps.Metrics))
	}
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(deps.CORSOrigins))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, messageResponse{Message: "SSchool API running"})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Get("/books", booksHandler.List)
		r.Get("/books/{id}", booksHandler.Get)
		r.Get("/books/{id}/cover", booksHandler.Cover)

		r.Route("/students", func(r chi.Router) {
			r.Post("/register", studentsHandler.Register)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Use(middleware.RequireRoles(models.RoleStudent))

				r.Get("/profile", studentsHandler.Profile)
				r.Put("/profile", studentsHandler.UpdateProfile)

				r.Post("/materials", studentsHandler.AddMaterial)
				r.Get("/materials", studentsHandler.ListMaterials)
				r.Get("/materials/{id}", studentsHandler.GetMaterial)
				r.Delete("/materials/{id}", studentsHandler.DeleteMaterial)

				r.Get("/books", booksHandler.List)
				r.Get("/books/{id}", booksHandler.Get)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequireRoles(models.RoleAdmin))

			r.Post("/create-admin", adminHandler.CreateAdmin)
			r.Get("/users", adminHandler.ListUsers)
			r.Get("/users/{id}", adminHandler.GetUser)
			r.Put("/users/{id}", adminHandler.UpdateUser)
			r.Delete("/users/{id}", adminHandler.DeleteUser)
			r.Get("/users/{id}/notifications", adminHandler.UserNotifications)
			r.Get("/dashboard/stats", adminHandler.DashboardStats)

			r.Get("/books", booksHandler.List)
			r.Post("/books", booksHandler.Create)
			r.Get("/books/stats/total", booksHandler.Total)
			r.Get("/books/{id}", booksHandler.Get)
			r.Put("/books/{id}", booksHandler.Update)
			r.Delete("/books/{id}", booksHandler.Delete)
			r.Post("/books/{id}/cover", booksHandler.UploadCover)
		})
	})

	return r
}
