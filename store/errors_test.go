package store

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestClassify_Nil(t *testing.T) {
	if err := classify("op", nil); err != nil {
		t.Fatalf("classify(nil) = %v, want nil", err)
	}
}

func TestClassify_NoDocuments(t *testing.T) {
	err := classify("user by id", mongo.ErrNoDocuments)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClassify_DuplicateKey(t *testing.T) {
	we := mongo.WriteException{
		WriteErrors: []mongo.WriteError{{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}},
	}
	err := classify("create user", we)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("duplicate key must not classify as not found")
	}
}

func TestClassify_OtherErrorIsWrapped(t *testing.T) {
	base := errors.New("connection reset")
	err := classify("list books", base)
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
	if errors.Is(err, ErrDuplicateKey) || errors.Is(err, ErrNotFound) {
		t.Fatalf("unexpected tag on %v", err)
	}
}
