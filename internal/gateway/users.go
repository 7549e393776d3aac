package gateway

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Mikkkkkkka/cat-accounts-api/internal/models"
	"github.com/Mikkkkkkka/cat-accounts-api/internal/rpc"
)

// UserStore persists authentication identities. It lives in the gateway's
// own database; the domain services never see users.
type UserStore interface {
	Create(user *models.User) error
	FindByUsername(username string) (*models.User, error)
}

type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

// EnsureSchema creates the users table if it does not exist.
func (s *PostgresUserStore) EnsureSchema() error {
	ddl := `
		CREATE TABLE IF NOT EXISTS users (
			id            BIGSERIAL PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL,
			owner_id      BIGINT UNIQUE
		);
	`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("failed to ensure user schema: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) Create(user *models.User) error {
	query := `
		INSERT INTO users (username, password_hash, role, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := s.db.QueryRow(query, user.Username, user.PasswordHash, string(user.Role), user.OwnerID).
		Scan(&user.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("username already exists")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) FindByUsername(username string) (*models.User, error) {
	query := `SELECT id, username, password_hash, role, owner_id FROM users WHERE username = $1`
	var user models.User
	var ownerID sql.NullInt64
	err := s.db.QueryRow(query, username).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &ownerID)
	if err == sql.ErrNoRows {
		return nil, rpc.NotFound("Username %s not found", username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if ownerID.Valid {
		user.OwnerID = &ownerID.Int64
	}
	return &user, nil
}
