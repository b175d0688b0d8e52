package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Ceasar-x/sschool/models"
	"github.com/Ceasar-x/sschool/service"
	"github.com/Ceasar-x/sschool/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is an in-memory stand-in for *store.DB.
type memStore struct {
	mu        sync.Mutex
	seq       int
	users     map[primitive.ObjectID]models.User
	books     map[primitive.ObjectID]models.Book
	materials map[primitive.ObjectID]models.Material
	logs      []models.EmailLog

	deleteMaterialsErr error
	countErr           error
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[primitive.ObjectID]models.User{},
		books:     map[primitive.ObjectID]models.Book{},
		materials: map[primitive.ObjectID]models.Material{},
	}
}

var baseTime = time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)

func (m *memStore) tick() time.Time {
	m.seq++
	return baseTime.Add(time.Duration(m.seq) * time.Second)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func matchesAny(term string, fields ...string) bool {
	if term == "" {
		return true
	}
	for _, f := range fields {
		if containsFold(f, term) {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, p store.Page) []T {
	if p.Skip >= int64(len(items)) {
		return []T{}
	}
	items = items[p.Skip:]
	if p.Limit > 0 && int64(len(items)) > p.Limit {
		items = items[:p.Limit]
	}
	return items
}

func (m *memStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return fmt.Errorf("create user: %w", store.ErrDuplicateKey)
		}
	}
	now := m.tick()
	user.ID = primitive.NewObjectID()
	user.CreatedAt, user.UpdatedAt = now, now
	if user.Role == "" {
		user.Role = models.RoleStudent
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			c := u
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) UserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.Password = ""
	return &u, nil
}

func (m *memStore) sortedUsers(role models.Role, search string) []models.User {
	var out []models.User
	for _, u := range m.users {
		if role != "" && u.Role != role {
			continue
		}
		if !matchesAny(search, u.Name, u.Email, u.Course, u.Faculty) {
			continue
		}
		u.Password = ""
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) ListUsers(_ context.Context, q store.UserQuery) ([]models.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sortedUsers(q.Role, q.Search)
	return paginate(all, q.Page), int64(len(all)), nil
}

func (m *memStore) RecentUsers(ctx context.Context, n int64) ([]models.User, error) {
	users, _, err := m.ListUsers(ctx, store.UserQuery{Page: store.Page{Limit: n}})
	return users, err
}

func (m *memStore) CountUsers(_ context.Context, role models.Role) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	return int64(len(m.sortedUsers(role, ""))), nil
}

func (m *memStore) UpdateUser(_ context.Context, id primitive.ObjectID, up store.UserUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if up.Email != nil {
		for oid, other := range m.users {
			if oid != id && other.Email == *up.Email {
				return nil, fmt.Errorf("update user: %w", store.ErrDuplicateKey)
			}
		}
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&u.Name, up.Name)
	set(&u.Email, up.Email)
	set(&u.Password, up.Password)
	set(&u.Course, up.Course)
	set(&u.StudentID, up.StudentID)
	set(&u.Semester, up.Semester)
	set(&u.Faculty, up.Faculty)
	if up.Role != nil {
		u.Role = *up.Role
	}
	u.UpdatedAt = m.tick()
	m.users[id] = u
	u.Password = ""
	return &u, nil
}

func (m *memStore) DeleteUser(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) summary(id primitive.ObjectID, withRole bool) *models.UserSummary {
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	s := &models.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
	if withRole {
		s.Role = u.Role
	}
	return s
}

func (m *memStore) bookView(b models.Book) models.BookView {
	v := models.BookView{Book: b, HasCover: b.CoverKey != ""}
	if b.UserID != nil {
		v.Owner = m.summary(*b.UserID, true)
	}
	return v
}

func (m *memStore) InsertBook(_ context.Context, book *models.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	book.ID = primitive.NewObjectID()
	book.CreatedAt, book.UpdatedAt = now, now
	m.books[book.ID] = *book
	return nil
}

func (m *memStore) BookByNameAuthor(_ context.Context, name, author string) (*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.books {
		if b.BookName == name && b.Author == author {
			c := b
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) BookByID(_ context.Context, id primitive.ObjectID) (*models.BookView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	v := m.bookView(b)
	return &v, nil
}

func (m *memStore) ListBooks(_ context.Context, q store.BookQuery) ([]models.BookView, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.BookView
	for _, b := range m.books {
		if matchesAny(q.Search, b.BookName, b.Author, b.Description) {
			all = append(all, m.bookView(b))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, q.Page), int64(len(all)), nil
}

func (m *memStore) CountBooks(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.books)), nil
}

func (m *memStore) UpdateBook(_ context.Context, id primitive.ObjectID, up store.BookUpdate) (*models.BookView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if up.BookName != nil {
		b.BookName = *up.BookName
	}
	if up.Author != nil {
		b.Author = *up.Author
	}
	if up.Description != nil {
		b.Description = *up.Description
	}
	b.UpdatedAt = m.tick()
	m.books[id] = b
	v := m.bookView(b)
	return &v, nil
}

func (m *memStore) SetBookCover(_ context.Context, id primitive.ObjectID, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return "", store.ErrNotFound
	}
	prev := b.CoverKey
	b.CoverKey = key
	m.books[id] = b
	return prev, nil
}

func (m *memStore) DeleteBook(_ context.Context, id primitive.ObjectID) (*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(m.books, id)
	return &b, nil
}

func (m *memStore) InsertMaterial(_ context.Context, mat *models.Material) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	mat.ID = primitive.NewObjectID()
	mat.CreatedAt, mat.UpdatedAt = now, now
	m.materials[mat.ID] = *mat
	return nil
}

func (m *memStore) MaterialByID(_ context.Context, id primitive.ObjectID) (*models.MaterialView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mat, ok := m.materials[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &models.MaterialView{Material: mat, Owner: m.summary(mat.UserID, false)}, nil
}

func (m *memStore) ListMaterials(_ context.Context, q store.MaterialQuery) ([]models.MaterialView, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.MaterialView
	for _, mat := range m.materials {
		if mat.UserID == q.OwnerID && matchesAny(q.Search, mat.Title, mat.Content) {
			all = append(all, models.MaterialView{Material: mat, Owner: m.summary(mat.UserID, false)})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, q.Page), int64(len(all)), nil
}

func (m *memStore) CountMaterials(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.materials)), nil
}

func (m *memStore) DeleteMaterial(_ context.Context, id, ownerID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mat, ok := m.materials[id]
	if !ok || mat.UserID != ownerID {
		return store.ErrNotFound
	}
	delete(m.materials, id)
	return nil
}

func (m *memStore) DeleteMaterialsByOwner(_ context.Context, ownerID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteMaterialsErr != nil {
		return 0, m.deleteMaterialsErr
	}
	var n int64
	for id, mat := range m.materials {
		if mat.UserID == ownerID {
			delete(m.materials, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) materialsOwnedBy(ownerID primitive.ObjectID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, mat := range m.materials {
		if mat.UserID == ownerID {
			n++
		}
	}
	return n
}

func (m *memStore) EmailLogsForUser(_ context.Context, userID primitive.ObjectID) ([]models.EmailLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.EmailLog{}
	for _, l := range m.logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []service.Notification
}

func (f *fakeNotifier) Enqueue(n service.Notification) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, n)
	return true
}

func (f *fakeNotifier) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.notes))
	for i, n := range f.notes {
		out[i] = n.Kind
	}
	return out
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeStorage) Upload(_ context.Context, key string, body io.Reader, contentType string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	f.types[key] = contentType
	return nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) PresignedGetURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	return "https://covers.test/" + key + "?expires=" + expiry.String(), nil
}

// testEnv is a router wired to in-memory dependencies.
type testEnv struct {
	t        *testing.T
	store    *memStore
	notifier *fakeNotifier
	storage  *fakeStorage
	tokens   *service.TokenIssuer
	hasher   *service.Hasher
	router   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	hasher, err := service.NewHasher(4)
	if err != nil {
		t.Fatal(err)
	}
	env := &testEnv{
		t:        t,
		store:    newMemStore(),
		notifier: &fakeNotifier{},
		storage:  newFakeStorage(),
		tokens:   service.NewTokenIssuer("test-secret"),
		hasher:   hasher,
	}
	env.router = NewRouter(&RouterDeps{
		Users:          env.store,
		Books:          env.store,
		Materials:      env.store,
		EmailLogs:      env.store,
		Hasher:         env.hasher,
		Tokens:         env.tokens,
		Notifier:       env.notifier,
		Storage:        env.storage,
		MaxUploadBytes: 1 << 20,
		Logger:         slogDiscard(),
	})
	return env
}

// seedUser stores a user with a hashed password and returns it with a token.
func (e *testEnv) seedUser(name, email string, role models.Role) (*models.User, string) {
	e.t.Helper()
	digest, err := e.hasher.Hash("secret123")
	if err != nil {
		e.t.Fatal(err)
	}
	u := &models.User{Name: name, Email: email, Password: digest, Role: role}
	if err := e.store.CreateUser(context.Background(), u); err != nil {
		e.t.Fatal(err)
	}
	token, err := e.tokens.Issue(u.ID.Hex(), role)
	if err != nil {
		e.t.Fatal(err)
	}
	return u, token
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			e.t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doRaw(method, path, token, contentType string, body io.Reader) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v\nbody: %s", v, err, w.Body.String())
	}
	return v
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["error"]
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", w.Code, want, w.Body.String())
	}
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
