package handlers

import (
	"context"
	"errors"

	"github.com/Ceasar-x/sschool/models"
	"github.com/Ceasar-x/sschool/service"
	"github.com/Ceasar-x/sschool/store"
)

const msgEmailExists = "Email already exists"

// accountRequest is the body shared by every sign-up route.
type accountRequest struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,schoolemail"`
	Password  string `json:"password" validate:"required,min=6,passwordmax"`
	Course    string `json:"course"`
	StudentID string `json:"studentId"`
	Semester  string `json:"semester"`
	Faculty   string `json:"faculty"`
	Role      string `json:"role"`
}

func (req *accountRequest) normalize() {
	trim(&req.Name)
	req.Email = normalizeEmail(req.Email)
	trim(&req.Course)
	trim(&req.StudentID)
	trim(&req.Semester)
	trim(&req.Faculty)
	trim(&req.Role)
}

func (req *accountRequest) user(role models.Role) *models.User {
	return &models.User{
		Name:      req.Name,
		Email:     req.Email,
		Role:      role,
		Course:    req.Course,
		StudentID: req.StudentID,
		Semester:  req.Semester,
		Faculty:   req.Faculty,
	}
}

var signupMessages = tagMessages{
	"required":    "Name, email, and password are required",
	"schoolemail": msgInvalidEmail,
	"min":         msgShortPassword,
	"passwordmax": msgLongPassword,
}

// createAccount checks the email is free, hashes plaintext into user and
// inserts it. A taken email is a Conflict whether the pre-check or the unique
// index catches it.
func createAccount(ctx context.Context, users UserStore, hasher *service.Hasher, user *models.User, plaintext string) error {
	_, err := users.UserByEmail(ctx, user.Email)
	switch {
	case err == nil:
		return models.NewConflictError(msgEmailExists)
	case !errors.Is(err, store.ErrNotFound):
		return err
	}

	digest, err := hasher.Hash(plaintext)
	if err != nil {
		return err
	}
	user.Password = digest

	if err := users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return models.NewConflictError(msgEmailExists)
		}
		return err
	}
	user.Password = ""
	return nil
}

type userResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

// notify hands n to the mail queue. It never blocks and never fails the
// request.
func notify(n service.Notifier, note service.Notification) {
	if n != nil {
		n.Enqueue(note)
	}
}
