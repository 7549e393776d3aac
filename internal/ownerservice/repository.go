package ownerservice

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/Mikkkkkkka/cat-accounts-api/internal/models"
	"github.com/Mikkkkkkka/cat-accounts-api/internal/rpc"
)

// Repository is the storage abstraction the owner service is written
// against.
type Repository interface {
	Create(owner *models.Owner) error
	GetByID(id int64) (*models.Owner, error)
	Update(owner *models.Owner) error
	Delete(id int64) error
	List(filter models.OwnerFilter, page, size int) ([]models.Owner, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the owners table if it does not exist.
func (r *PostgresRepository) EnsureSchema() error {
	ddl := `
		CREATE TABLE IF NOT EXISTS owners (
			id       BIGSERIAL PRIMARY KEY,
			name     TEXT NOT NULL,
			birthday DATE
		);
	`
	if _, err := r.db.Exec(ddl); err != nil {
		return fmt.Errorf("failed to ensure owner schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Create(owner *models.Owner) error {
	query := `INSERT INTO owners (name, birthday) VALUES ($1, $2) RETURNING id`
	if err := r.db.QueryRow(query, owner.Name, owner.Birthday).Scan(&owner.ID); err != nil {
		return fmt.Errorf("failed to create owner: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(id int64) (*models.Owner, error) {
	query := `SELECT id, name, birthday FROM owners WHERE id = $1`
	var owner models.Owner
	err := r.db.QueryRow(query, id).Scan(&owner.ID, &owner.Name, &owner.Birthday)
	if err == sql.ErrNoRows {
		return nil, rpc.NotFound("Owner not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get owner: %w", err)
	}
	return &owner, nil
}

func (r *PostgresRepository) Update(owner *models.Owner) error {
	query := `UPDATE owners SET name = $2, birthday = $3 WHERE id = $1`
	result, err := r.db.Exec(query, owner.ID, owner.Name, owner.Birthday)
	if err != nil {
		return fmt.Errorf("failed to update owner: %w", err)
	}
	return checkFound(result)
}

func (r *PostgresRepository) Delete(id int64) error {
	result, err := r.db.Exec(`DELETE FROM owners WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete owner: %w", err)
	}
	return checkFound(result)
}

func (r *PostgresRepository) List(filter models.OwnerFilter, page, size int) ([]models.Owner, error) {
	where, args := buildOwnerFilter(filter)
	args = append(args, size, page*size)
	query := fmt.Sprintf(
		`SELECT id, name, birthday FROM owners%s ORDER BY id LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	defer rows.Close()

	owners := []models.Owner{}
	for rows.Next() {
		var owner models.Owner
		if err := rows.Scan(&owner.ID, &owner.Name, &owner.Birthday); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	return owners, nil
}

// buildOwnerFilter renders the conjunctive WHERE clause for a filter.
func buildOwnerFilter(filter models.OwnerFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.BirthdayAfter != nil {
		args = append(args, *filter.BirthdayAfter)
		conds = append(conds, fmt.Sprintf("birthday >= $%d", len(args)))
	}
	if filter.BirthdayBefore != nil {
		args = append(args, *filter.BirthdayBefore)
		conds = append(conds, fmt.Sprintf("birthday <= $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func checkFound(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return rpc.NotFound("Owner not found")
	}
	return nil
}
