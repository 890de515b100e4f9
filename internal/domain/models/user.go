package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role enumerates the dashboards a user can sign in to.
type Role string

const (
	RoleFarmer     Role = "Farmer"
	RoleVet        Role = "Vet"
	RolePharmacist Role = "Pharmacist"
	RoleManager    Role = "Manager"
	RoleAdmin      Role = "Admin"
	RoleRegistrar  Role = "Registrar"
)

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleVet, RolePharmacist, RoleManager, RoleAdmin, RoleRegistrar:
		return true
	default:
		return false
	}
}

// Professional reports whether the role may look at other farmers' herds.
func (r Role) Professional() bool {
	switch r {
	case RoleVet, RoleAdmin, RoleRegistrar, RolePharmacist:
		return true
	default:
		return false
	}
}

// GeoPoint is a GeoJSON point, coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// User is an account in the user directory.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name         string             `bson:"name" json:"name"`
	Phone        string             `bson:"phone" json:"phone"`
	PasswordHash string             `bson:"password" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	City         string             `bson:"city" json:"city"`
	Location     *GeoPoint          `bson:"location,omitempty" json:"location,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// UserSummary is the public projection used when populating references.
type UserSummary struct {
	ID    primitive.ObjectID `json:"_id"`
	Name  string             `json:"name"`
	Role  Role               `json:"role"`
	City  string             `json:"city,omitempty"`
	Phone string             `json:"phone,omitempty"`
}

// Summary projects the user without credentials.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Role: u.Role, City: u.City, Phone: u.Phone}
}

// Identity is the authenticated caller extracted from a token.
type Identity struct {
	UserID primitive.ObjectID
	Role   Role
}
