package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pawtrack/pawtrack/internal/models"
)

// ErrNotFound means the requested record does not exist or is not visible
// to the requesting user. Ownership misses deliberately look identical to
// missing records.
var ErrNotFound = errors.New("not found")

// CreatePet validates and stores a new pet profile for the owner.
func (s *Service) CreatePet(ctx context.Context, ownerID uuid.UUID, pet *models.Pet) (*models.Pet, error) {
	pet.OwnerID = ownerID

	if err := pet.Validate(); err != nil {
		return nil, err
	}

	breed, err := s.Pets.GetBreed(ctx, pet.BreedID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup breed: %w", err)
	}
	if breed == nil {
		return nil, &models.ValidationError{Field: "breed_id", Message: "unknown breed"}
	}
	if breed.Type != pet.Type {
		return nil, &models.ValidationError{Field: "breed_id", Message: "breed does not match pet type"}
	}

	created, err := s.Pets.Create(ctx, pet)
	if err != nil {
		return nil, fmt.Errorf("failed to create pet: %w", err)
	}
	created.Breed = breed

	s.logger.Infof("Created pet %q (id=%d) for user %s", created.Name, created.ID, ownerID)
	return created, nil
}

// GetPet returns the pet if it belongs to the owner.
func (s *Service) GetPet(ctx context.Context, ownerID uuid.UUID, petID int64) (*models.Pet, error) {
	pet, err := s.Pets.GetByID(ctx, petID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pet %d: %w", petID, err)
	}
	if pet == nil || pet.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return pet, nil
}

// ListPets returns all pets belonging to the owner.
func (s *Service) ListPets(ctx context.Context, ownerID uuid.UUID) ([]*models.Pet, error) {
	pets, err := s.Pets.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pets: %w", err)
	}
	return pets, nil
}

// UpdatePet replaces the pet profile with a new validated value.
func (s *Service) UpdatePet(ctx context.Context, ownerID uuid.UUID, pet *models.Pet) (*models.Pet, error) {
	existing, err := s.GetPet(ctx, ownerID, pet.ID)
	if err != nil {
		return nil, err
	}

	pet.OwnerID = existing.OwnerID
	pet.CreatedAt = existing.CreatedAt

	if err := pet.Validate(); err != nil {
		return nil, err
	}

	breed, err := s.Pets.GetBreed(ctx, pet.BreedID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup breed: %w", err)
	}
	if breed == nil {
		return nil, &models.ValidationError{Field: "breed_id", Message: "unknown breed"}
	}
	if breed.Type != pet.Type {
		return nil, &models.ValidationError{Field: "breed_id", Message: "breed does not match pet type"}
	}

	updated, err := s.Pets.Update(ctx, pet)
	if err != nil {
		return nil, fmt.Errorf("failed to update pet %d: %w", pet.ID, err)
	}
	updated.Breed = breed

	return updated, nil
}

// DeletePet removes the pet and, through cascades, its events and ledgers.
func (s *Service) DeletePet(ctx context.Context, ownerID uuid.UUID, petID int64) error {
	if _, err := s.GetPet(ctx, ownerID, petID); err != nil {
		return err
	}

	if err := s.Pets.Delete(ctx, petID); err != nil {
		return fmt.Errorf("failed to delete pet %d: %w", petID, err)
	}

	s.logger.Infof("Deleted pet %d for user %s", petID, ownerID)
	return nil
}

// ListBreeds returns the breed catalog, optionally filtered by pet type.
func (s *Service) ListBreeds(ctx context.Context, petType models.PetType) ([]*models.Breed, error) {
	if petType != "" && petType != models.PetTypeCat && petType != models.PetTypeDog {
		return nil, &models.ValidationError{Field: "pet_type", Message: "must be cat or dog"}
	}

	breeds, err := s.Pets.ListBreeds(ctx, petType)
	if err != nil {
		return nil, fmt.Errorf("failed to list breeds: %w", err)
	}
	return breeds, nil
}
