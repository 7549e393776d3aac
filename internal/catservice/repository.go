package catservice

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/Mikkkkkkka/cat-accounts-api/internal/models"
	"github.com/Mikkkkkkka/cat-accounts-api/internal/rpc"
)

// Repository is the storage abstraction the cat service is written against.
// Implementations must provide per-row atomicity; the service layer adds no
// locking of its own.
type Repository interface {
	Create(cat *models.Cat) error
	GetByID(id int64) (*models.Cat, error)
	Update(cat *models.Cat) error
	Delete(id int64) error
	List(filter models.CatFilter, page, size int) ([]models.Cat, error)
	ListByOwner(ownerID int64) ([]models.Cat, error)
	SetOwner(catID int64, ownerID *int64) error
	AddFriendship(id1, id2 int64) error
	RemoveFriendship(id1, id2 int64) error
}

// PostgresRepository stores cats in the cats table and friendships as
// mirrored edge pairs in the friendships table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the cat tables if they do not exist.
func (r *PostgresRepository) EnsureSchema() error {
	ddl := `
		CREATE TABLE IF NOT EXISTS cats (
			id       BIGSERIAL PRIMARY KEY,
			name     TEXT NOT NULL,
			birthday DATE,
			breed    TEXT,
			color    TEXT NOT NULL,
			owner_id BIGINT
		);
		CREATE TABLE IF NOT EXISTS friendships (
			friender_id BIGINT NOT NULL REFERENCES cats (id) ON DELETE CASCADE,
			friendee_id BIGINT NOT NULL REFERENCES cats (id) ON DELETE CASCADE,
			PRIMARY KEY (friender_id, friendee_id)
		);
		CREATE INDEX IF NOT EXISTS idx_cats_owner_id ON cats (owner_id);
	`
	if _, err := r.db.Exec(ddl); err != nil {
		return fmt.Errorf("failed to ensure cat schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Create(cat *models.Cat) error {
	query := `
		INSERT INTO cats (name, birthday, breed, color, owner_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRow(query, cat.Name, cat.Birthday, cat.Breed, string(cat.Color), cat.OwnerID).
		Scan(&cat.ID)
	if err != nil {
		return fmt.Errorf("failed to create cat: %w", err)
	}
	if cat.Friends == nil {
		cat.Friends = []int64{}
	}
	return nil
}

func (r *PostgresRepository) GetByID(id int64) (*models.Cat, error) {
	query := `SELECT id, name, birthday, breed, color, owner_id FROM cats WHERE id = $1`
	cat, err := scanCat(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, rpc.NotFound("Cat not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cat: %w", err)
	}
	friends, err := r.loadFriends([]int64{cat.ID})
	if err != nil {
		return nil, err
	}
	cat.Friends = friends[cat.ID]
	return cat, nil
}

func (r *PostgresRepository) Update(cat *models.Cat) error {
	query := `
		UPDATE cats
		SET name = $2, birthday = $3, breed = $4, color = $5, owner_id = $6
		WHERE id = $1
	`
	result, err := r.db.Exec(query, cat.ID, cat.Name, cat.Birthday, cat.Breed, string(cat.Color), cat.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update cat: %w", err)
	}
	return checkFound(result, "Cat not found")
}

func (r *PostgresRepository) Delete(id int64) error {
	result, err := r.db.Exec(`DELETE FROM cats WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete cat: %w", err)
	}
	return checkFound(result, "Cat not found")
}

func (r *PostgresRepository) List(filter models.CatFilter, page, size int) ([]models.Cat, error) {
	where, args := buildCatFilter(filter)
	args = append(args, size, page*size)
	query := fmt.Sprintf(
		`SELECT id, name, birthday, breed, color, owner_id FROM cats%s ORDER BY id LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))
	return r.queryCats(query, args...)
}

func (r *PostgresRepository) ListByOwner(ownerID int64) ([]models.Cat, error) {
	query := `SELECT id, name, birthday, breed, color, owner_id FROM cats WHERE owner_id = $1 ORDER BY id`
	return r.queryCats(query, ownerID)
}

func (r *PostgresRepository) SetOwner(catID int64, ownerID *int64) error {
	result, err := r.db.Exec(`UPDATE cats SET owner_id = $2 WHERE id = $1`, catID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to set owner: %w", err)
	}
	return checkFound(result, "Cat not found")
}

// AddFriendship inserts both directions of the edge in one transaction.
// Re-adding an existing friendship is a no-op.
func (r *PostgresRepository) AddFriendship(id1, id2 int64) error {
	return r.mutateFriendship(id1, id2, `
		INSERT INTO friendships (friender_id, friendee_id)
		VALUES ($1, $2), ($2, $1)
		ON CONFLICT DO NOTHING
	`)
}

// RemoveFriendship deletes both directions of the edge in one transaction.
// Removing an absent friendship is a no-op.
func (r *PostgresRepository) RemoveFriendship(id1, id2 int64) error {
	return r.mutateFriendship(id1, id2, `
		DELETE FROM friendships
		WHERE (friender_id = $1 AND friendee_id = $2)
		   OR (friender_id = $2 AND friendee_id = $1)
	`)
}

func (r *PostgresRepository) mutateFriendship(id1, id2 int64, query string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.Exec(query, id1, id2); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to mutate friendship: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit friendship: %w", err)
	}
	return nil
}

func (r *PostgresRepository) queryCats(query string, args ...any) ([]models.Cat, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cats: %w", err)
	}
	defer rows.Close()

	cats := []models.Cat{}
	ids := []int64{}
	for rows.Next() {
		cat, err := scanCat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cat: %w", err)
		}
		cats = append(cats, *cat)
		ids = append(ids, cat.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list cats: %w", err)
	}

	friends, err := r.loadFriends(ids)
	if err != nil {
		return nil, err
	}
	for i := range cats {
		cats[i].Friends = friends[cats[i].ID]
	}
	return cats, nil
}

// loadFriends fetches the friend ids for a batch of cats in one query.
// Every requested id gets an entry, so friendless cats serialise as [].
func (r *PostgresRepository) loadFriends(ids []int64) (map[int64][]int64, error) {
	friends := make(map[int64][]int64, len(ids))
	for _, id := range ids {
		friends[id] = []int64{}
	}
	if len(ids) == 0 {
		return friends, nil
	}

	query := `
		SELECT friender_id, friendee_id
		FROM friendships
		WHERE friender_id = ANY($1)
		ORDER BY friendee_id
	`
	rows, err := r.db.Query(query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load friendships: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var frienderID, friendeeID int64
		if err := rows.Scan(&frienderID, &friendeeID); err != nil {
			return nil, fmt.Errorf("failed to scan friendship: %w", err)
		}
		friends[frienderID] = append(friends[frienderID], friendeeID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load friendships: %w", err)
	}
	return friends, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCat(row rowScanner) (*models.Cat, error) {
	var cat models.Cat
	var ownerID sql.NullInt64
	err := row.Scan(&cat.ID, &cat.Name, &cat.Birthday, &cat.Breed, &cat.Color, &ownerID)
	if err != nil {
		return nil, err
	}
	if ownerID.Valid {
		cat.OwnerID = &ownerID.Int64
	}
	return &cat, nil
}

// buildCatFilter renders the conjunctive WHERE clause for a filter. Absent
// fields impose no constraint; an empty filter yields an empty clause.
func buildCatFilter(filter models.CatFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		conds = append(conds, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if len(filter.Colors) > 0 {
		colors := make([]string, len(filter.Colors))
		for i, c := range filter.Colors {
			colors[i] = string(c)
		}
		args = append(args, pq.Array(colors))
		conds = append(conds, fmt.Sprintf("color = ANY($%d)", len(args)))
	}
	if filter.BirthdateAfter != nil {
		args = append(args, *filter.BirthdateAfter)
		conds = append(conds, fmt.Sprintf("birthday >= $%d", len(args)))
	}
	if filter.BirthdateBefore != nil {
		args = append(args, *filter.BirthdateBefore)
		conds = append(conds, fmt.Sprintf("birthday <= $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func checkFound(result sql.Result, message string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return rpc.NotFound(message)
	}
	return nil
}
