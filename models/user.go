package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

var ValidRoles = []Role{RoleStudent, RoleAdmin}

// ParseRole returns the role named by s and whether it is valid.
func ParseRole(s string) (Role, bool) {
	for _, r := range ValidRoles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

func (r Role) String() string { return string(r) }

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password,omitempty" json:"-"` // bcrypt hash
	Role      Role               `bson:"role" json:"role"`
	Course    string             `bson:"course" json:"course"`
	StudentID string             `bson:"studentId" json:"studentId"`
	Semester  string             `bson:"semester" json:"semester"`
	Faculty   string             `bson:"faculty" json:"faculty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Sanitized returns a copy without the password digest.
func (u User) Sanitized() User {
	u.Password = ""
	return u
}

// UserSummary is the owner shape embedded in books and materials.
type UserSummary struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`
	Role  Role               `bson:"role,omitempty" json:"role,omitempty"`
}
