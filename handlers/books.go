package handlers

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Ceasar-x/sschool/middleware"
	"github.com/Ceasar-x/sschool/models"
	"github.com/Ceasar-x/sschool/service"
	"github.com/Ceasar-x/sschool/store"
)

const (
	coverURLTTL          = 15 * time.Minute
	defaultMaxCoverBytes = 5 << 20
)

var coverContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// BooksHandler serves the catalogue. The same List and Get back the public,
// student and admin mounts.
type BooksHandler struct {
	Books          BookStore
	Storage        ObjectStorage // nil disables covers
	MaxUploadBytes int64
}

type bookRequest struct {
	BookName    string `json:"bookName" validate:"required"`
	Author      string `json:"author" validate:"required"`
	Description string `json:"description"`
}

// bookUpdate is partial; empty name or author is ignored, description may be
// cleared.
type bookUpdate struct {
	BookName    *string `json:"bookName"`
	Author      *string `json:"author"`
	Description *string `json:"description"`
}

type bookResponse struct {
	Message string           `json:"message"`
	Book    *models.BookView `json:"book"`
}

type coverURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	p := parsePage(r)
	books, total, err := h.Books.ListBooks(r.Context(), store.BookQuery{Search: p.Search, Page: p.store()})
	if err != nil {
		writeInternal(w, "list books", err, "Server error while fetching books")
		return
	}
	writeJSON(w, http.StatusOK, newPage(books, total, p))
}

func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "book")
	if err != nil {
		writeError(w, err)
		return
	}
	book, err := h.Books.BookByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, models.NewNotFoundError("Book not found"))
		return
	}
	if err != nil {
		writeInternal(w, "get book", err, "Server error while fetching book")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// Create adds a book owned by the calling admin. Name and author together
// must be new.
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	trim(&req.BookName)
	trim(&req.Author)
	trim(&req.Description)
	if err := validateRequest(&req, tagMessages{"required": "Book name and author are required"}); err != nil {
		writeError(w, err)
		return
	}

	_, err := h.Books.BookByNameAuthor(r.Context(), req.BookName, req.Author)
	switch {
	case err == nil:
		writeError(w, models.NewConflictError("Book with this name and author already exists"))
		return
	case !errors.Is(err, store.ErrNotFound):
		writeInternal(w, "create book: duplicate check", err, "Server error while creating book")
		return
	}

	book := &models.Book{BookName: req.BookName, Author: req.Author, Description: req.Description}
	if me, ok := middleware.IdentityFromContext(r.Context()); ok {
		owner := me.ID
		book.UserID = &owner
	}
	if err := h.Books.InsertBook(r.Context(), book); err != nil {
		writeInternal(w, "create book", err, "Server error while creating book")
		return
	}
	view, err := h.Books.BookByID(r.Context(), book.ID)
	if err != nil {
		writeInternal(w, "create book: reload", err, "Server error while creating book")
		return
	}
	writeJSON(w, http.StatusCreated, bookResponse{Message: "Book created successfully", Book: view})
}

func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "book")
	if err != nil {
		writeError(w, err)
		return
	}
	var req bookUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	trimOrDrop(&req.BookName)
	trimOrDrop(&req.Author)
	trim(req.Description)

	book, err := h.Books.UpdateBook(r.Context(), id, store.BookUpdate{
		BookName:    req.BookName,
		Author:      req.Author,
		Description: req.Description,
	})
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, models.NewNotFoundError("Book not found"))
		return
	}
	if err != nil {
		writeInternal(w, "update book", err, "Server error while updating book")
		return
	}
	writeJSON(w, http.StatusOK, bookResponse{Message: "Book updated successfully", Book: book})
}

func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "book")
	if err != nil {
		writeError(w, err)
		return
	}
	book, err := h.Books.DeleteBook(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, models.NewNotFoundError("Book not found"))
		return
	}
	if err != nil {
		writeInternal(w, "delete book", err, "Server error while deleting book")
		return
	}
	h.removeCover(r, book.CoverKey)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Book deleted successfully"})
}

func (h *BooksHandler) Total(w http.ResponseWriter, r *http.Request) {
	total, err := h.Books.CountBooks(r.Context())
	if err != nil {
		writeInternal(w, "count books", err, "Server error while counting books")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"total": total})
}

// Cover returns a short-lived download URL for the book's cover image.
func (h *BooksHandler) Cover(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "book")
	if err != nil {
		writeError(w, err)
		return
	}
	book, err := h.Books.BookByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, models.NewNotFoundError("Book not found"))
		return
	}
	if err != nil {
		writeInternal(w, "book cover", err, "Server error while fetching cover")
		return
	}
	if book.CoverKey == "" || h.Storage == nil {
		writeError(w, models.NewNotFoundError("Book has no cover"))
		return
	}
	url, err := h.Storage.PresignedGetURL(r.Context(), book.CoverKey, coverURLTTL)
	if err != nil {
		writeInternal(w, "book cover: presign", err, "Server error while fetching cover")
		return
	}
	writeJSON(w, http.StatusOK, coverURLResponse{URL: url, ExpiresAt: time.Now().UTC().Add(coverURLTTL)})
}

// UploadCover stores a multipart "cover" image for the book and replaces any
// previous one.
func (h *BooksHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "book")
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Storage == nil {
		writeError(w, models.NewInternalError("Cover storage is not configured"))
		return
	}
	if _, err := h.Books.BookByID(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, models.NewNotFoundError("Book not found"))
			return
		}
		writeInternal(w, "upload cover: load", err, "Server error while uploading cover")
		return
	}

	maxBytes := h.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxCoverBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, models.NewValidationError("Cover image is required"))
		return
	}
	file, header, err := r.FormFile("cover")
	if err != nil {
		writeError(w, models.NewValidationError("Cover image is required"))
		return
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		writeError(w, models.NewValidationError("Cover image is required"))
		return
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	if !coverContentTypes[contentType] {
		writeError(w, models.NewValidationError("Cover must be a JPEG, PNG or WebP image"))
		return
	}

	key := service.CoverKey(id.Hex(), header.Filename)
	if err := h.Storage.Upload(r.Context(), key, io.MultiReader(bytes.NewReader(head), file), contentType); err != nil {
		writeInternal(w, "upload cover: put", err, "Server error while uploading cover")
		return
	}

	prev, err := h.Books.SetBookCover(r.Context(), id, key)
	if err != nil {
		h.removeCover(r, key)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, models.NewNotFoundError("Book not found"))
			return
		}
		writeInternal(w, "upload cover: save key", err, "Server error while uploading cover")
		return
	}
	h.removeCover(r, prev)

	book, err := h.Books.BookByID(r.Context(), id)
	if err != nil {
		writeInternal(w, "upload cover: reload", err, "Server error while uploading cover")
		return
	}
	writeJSON(w, http.StatusOK, bookResponse{Message: "Cover uploaded successfully", Book: book})
}

// removeCover deletes an object best-effort; a leftover object only costs
// storage.
func (h *BooksHandler) removeCover(r *http.Request, key string) {
	if key == "" || h.Storage == nil {
		return
	}
	if err := h.Storage.Delete(r.Context(), key); err != nil {
		slog.Warn("delete cover object", slog.String("key", key), slog.String("error", err.Error()))
	}
}
