package models

import (
	"strings"

	"go-storefront/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles recognised by the system.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Address represents a user's address for delivery
type Address struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	ZipCode string `bson:"zipcode" json:"zipcode"`
}

// Validate checks that every address field is populated.
func (a Address) Validate() error {
	fields := []struct{ name, value string }{
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"zipcode", a.ZipCode},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return apperr.Validationf("shipping address is missing %s", f.name)
		}
	}
	return nil
}

// User represents a user in the system
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name     string             `bson:"name" json:"name"`
	Email    string             `bson:"email" json:"email"`
	Password string             `bson:"password,omitempty" json:"-"`
	Address  Address            `bson:"address" json:"address"`
	Role     string             `bson:"role" json:"role"` // "user" or "admin"
}

// Principal is the authenticated identity attached to a request. The core
// consults it for ownership and admin checks only.
type Principal struct {
	ID   primitive.ObjectID
	Role string
}

// IsAdmin reports whether the principal may bypass ownership checks.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
