package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRun_LoginThenListBooks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/auth/login":
			json.NewEncoder(w).Encode(map[string]any{
				"token": "tok",
				"user":  map[string]any{"email": "ada@x.com", "role": "admin"},
			})
		case "/api/books":
			if r.Header.Get("Authorization") != "Bearer tok" {
				t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
			}
			if r.URL.Query().Get("search") != "dune" {
				t.Errorf("query = %s", r.URL.RawQuery)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{{"bookName": "Dune"}}, "total": 1, "totalPages": 1, "currentPage": 1,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
		}
	}))
	defer srv.Close()

	var out bytes.Buffer
	if err := run([]string{"-api", srv.URL + "/api", "login", "-email", "ada@x.com", "-password", "secret123"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "landing /admin") {
		t.Fatalf("login output = %q", out.String())
	}

	out.Reset()
	if err := run([]string{"-api", srv.URL + "/api", "books", "-search", "dune"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"bookName": "Dune"`) {
		t.Fatalf("books output = %q", out.String())
	}

	out.Reset()
	if err := run([]string{"-api", srv.URL + "/api", "logout"}, &out); err != nil {
		t.Fatal(err)
	}
	if err := run([]string{"-api", srv.URL + "/api", "whoami"}, &out); err == nil {
		t.Fatal("whoami after logout should fail")
	}
}

func TestRun_BadInvocation(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	var out bytes.Buffer
	if err := run(nil, &out); err == nil {
		t.Fatal("missing command should fail")
	}
	if err := run([]string{"frobnicate"}, &out); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("err = %v", err)
	}
}
