package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pawtrack/pawtrack/internal/models"
	"github.com/pawtrack/pawtrack/internal/repository"
)

type petRepository struct {
	db *sql.DB
}

// NewPetRepository creates a new pet repository
func NewPetRepository(db *sql.DB) repository.PetRepository {
	return &petRepository{db: db}
}

// Pets are read joined with their breed so callers get the catalog entry
// without a second query.
const petSelect = `
	SELECT p.id, p.owner_id, p.name, p.pet_type, p.breed_id, p.weight, p.birthday, p.color, p.gender, p.has_castration, p.created_at, p.updated_at,
	       b.id, b.name, b.type
	FROM pets p
	JOIN breeds b ON b.id = p.breed_id`

func (r *petRepository) Create(ctx context.Context, pet *models.Pet) (*models.Pet, error) {
	query := `
		INSERT INTO pets (owner_id, name, pet_type, breed_id, weight, birthday, color, gender, has_castration, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	pet.CreatedAt = now
	pet.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, query,
		pet.OwnerID,
		pet.Name,
		pet.Type,
		pet.BreedID,
		pet.Weight,
		pet.Birthday,
		pet.Color,
		nullString(string(pet.Gender)),
		pet.HasCastration,
		pet.CreatedAt,
		pet.UpdatedAt,
	).Scan(&pet.ID, &pet.CreatedAt, &pet.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create pet: %w", err)
	}

	return pet, nil
}

func (r *petRepository) GetByID(ctx context.Context, id int64) (*models.Pet, error) {
	row := r.db.QueryRowContext(ctx, petSelect+` WHERE p.id = $1`, id)

	pet, err := scanPet(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pet: %w", err)
	}

	return pet, nil
}

func (r *petRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Pet, error) {
	query := petSelect + ` WHERE p.owner_id = $1 ORDER BY p.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pets by owner: %w", err)
	}
	defer rows.Close()

	var pets []*models.Pet
	for rows.Next() {
		pet, err := scanPet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pet: %w", err)
		}
		pets = append(pets, pet)
	}

	return pets, rows.Err()
}

func (r *petRepository) Update(ctx context.Context, pet *models.Pet) (*models.Pet, error) {
	query := `
		UPDATE pets
		SET name = $2, pet_type = $3, breed_id = $4, weight = $5, birthday = $6, color = $7, gender = $8, has_castration = $9, updated_at = $10
		WHERE id = $1
		RETURNING updated_at`

	pet.UpdatedAt = time.Now()

	err := r.db.QueryRowContext(ctx, query,
		pet.ID,
		pet.Name,
		pet.Type,
		pet.BreedID,
		pet.Weight,
		pet.Birthday,
		pet.Color,
		nullString(string(pet.Gender)),
		pet.HasCastration,
		pet.UpdatedAt,
	).Scan(&pet.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to update pet: %w", err)
	}

	return pet, nil
}

func (r *petRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pet: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("pet with ID %d not found", id)
	}

	return nil
}

func (r *petRepository) GetBreed(ctx context.Context, id int64) (*models.Breed, error) {
	query := `SELECT id, name, type FROM breeds WHERE id = $1`

	breed := &models.Breed{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&breed.ID, &breed.Name, &breed.Type)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get breed: %w", err)
	}

	return breed, nil
}

func (r *petRepository) ListBreeds(ctx context.Context, petType models.PetType) ([]*models.Breed, error) {
	query := `SELECT id, name, type FROM breeds`
	args := []any{}
	if petType != "" {
		query += ` WHERE type = $1`
		args = append(args, petType)
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query breeds: %w", err)
	}
	defer rows.Close()

	var breeds []*models.Breed
	for rows.Next() {
		breed := &models.Breed{}
		if err := rows.Scan(&breed.ID, &breed.Name, &breed.Type); err != nil {
			return nil, fmt.Errorf("failed to scan breed: %w", err)
		}
		breeds = append(breeds, breed)
	}

	return breeds, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPet(row rowScanner) (*models.Pet, error) {
	pet := &models.Pet{Breed: &models.Breed{}}
	var gender sql.NullString

	err := row.Scan(
		&pet.ID,
		&pet.OwnerID,
		&pet.Name,
		&pet.Type,
		&pet.BreedID,
		&pet.Weight,
		&pet.Birthday,
		&pet.Color,
		&gender,
		&pet.HasCastration,
		&pet.CreatedAt,
		&pet.UpdatedAt,
		&pet.Breed.ID,
		&pet.Breed.Name,
		&pet.Breed.Type,
	)
	if err != nil {
		return nil, err
	}

	if gender.Valid {
		pet.Gender = models.Gender(gender.String)
	}
	return pet, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
