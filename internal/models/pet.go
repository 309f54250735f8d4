package models

import (
	"time"

	"github.com/google/uuid"
)

// PetType is the kind of animal a pet is.
type PetType string

const (
	PetTypeCat PetType = "cat"
	PetTypeDog PetType = "dog"
)

// Gender of a pet. Optional on the profile.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// Breed is a catalog entry pets reference.
type Breed struct {
	ID   int64   `json:"id" db:"id"`
	Name string  `json:"name" db:"name"`
	Type PetType `json:"type" db:"type"`
}

// MaxPetWeightKg caps the weight field; nothing heavier than the largest dog.
const MaxPetWeightKg = 200.0

// Pet is an animal profile owned by exactly one user.
type Pet struct {
	ID            int64      `json:"id" db:"id"`
	OwnerID       uuid.UUID  `json:"owner_id" db:"owner_id"`
	Name          string     `json:"name" db:"name"`
	Type          PetType    `json:"pet_type" db:"pet_type"`
	BreedID       int64      `json:"breed_id" db:"breed_id"`
	Breed         *Breed     `json:"breed,omitempty"`
	Weight        float64    `json:"weight" db:"weight"`
	Birthday      *time.Time `json:"birthday,omitempty" db:"birthday"`
	Color         string     `json:"color" db:"color"`
	Gender        Gender     `json:"gender,omitempty" db:"gender"`
	HasCastration bool       `json:"has_castration" db:"has_castration"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Validate checks the profile fields that are not enforced by the schema.
func (p *Pet) Validate() error {
	if p.Name == "" {
		return invalid("name", "is required")
	}
	if p.Type != PetTypeCat && p.Type != PetTypeDog {
		return invalid("pet_type", "must be %q or %q", PetTypeCat, PetTypeDog)
	}
	if p.BreedID <= 0 {
		return invalid("breed_id", "is required")
	}
	if p.Weight <= 0 {
		return invalid("weight", "must be positive")
	}
	if p.Weight > MaxPetWeightKg {
		return invalid("weight", "must not exceed %.0f kg", MaxPetWeightKg)
	}
	if p.Gender != "" && p.Gender != GenderMale && p.Gender != GenderFemale {
		return invalid("gender", "must be %q or %q", GenderMale, GenderFemale)
	}
	return nil
}
