package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kiko-app/kiko-matching/internal/domain/shared"
	"github.com/kiko-app/kiko-matching/internal/domain/user"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

// Create creates a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (
			id, display_name, gender, gender_preference, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	prefJSON, err := json.Marshal(u.Preference)
	if err != nil {
		return fmt.Errorf("failed to marshal gender preference: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		string(u.ID),
		u.DisplayName,
		string(u.Gender),
		prefJSON,
		string(u.Status),
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID returns a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id shared.UserID) (*user.User, error) {
	query := `
		SELECT id, display_name, gender, gender_preference, status, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, string(id))
	u, err := r.scanUser(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

// Update updates a user.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users SET
			display_name = $1,
			gender = $2,
			gender_preference = $3,
			status = $4,
			updated_at = $5
		WHERE id = $6
	`

	prefJSON, err := json.Marshal(u.Preference)
	if err != nil {
		return fmt.Errorf("failed to marshal gender preference: %w", err)
	}

	result, err := r.conn.Exec(ctx, query,
		u.DisplayName,
		string(u.Gender),
		prefJSON,
		string(u.Status),
		u.UpdatedAt,
		string(u.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}

	return nil
}

// ListActive returns all active users ordered by ascending ID.
// The stable order matters: it is the tie-break for equal match scores.
func (r *UserRepository) ListActive(ctx context.Context) ([]*user.User, error) {
	query := `
		SELECT id, display_name, gender, gender_preference, status, created_at, updated_at
		FROM users
		WHERE status = 'active'
		ORDER BY id ASC
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// scanUser scans a user from a row.
func (r *UserRepository) scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	var id, gender, status string
	var prefJSON []byte

	err := row.Scan(
		&id,
		&u.DisplayName,
		&gender,
		&prefJSON,
		&status,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.ID = shared.UserID(id)
	u.Gender = user.Gender(gender)
	u.Status = user.Status(status)

	if len(prefJSON) > 0 {
		if err := json.Unmarshal(prefJSON, &u.Preference); err != nil {
			return nil, fmt.Errorf("failed to unmarshal gender preference: %w", err)
		}
	}

	return &u, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BLOCK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// BlockRepository implements user.BlockRepository for PostgreSQL.
type BlockRepository struct {
	conn *Connection
}

// NewBlockRepository creates a new BlockRepository.
func NewBlockRepository(conn *Connection) *BlockRepository {
	return &BlockRepository{conn: conn}
}

// Create creates a block edge blocker -> blocked.
func (r *BlockRepository) Create(ctx context.Context, blockerID, blockedID shared.UserID) error {
	query := `
		INSERT INTO blocks (blocker_id, blocked_id)
		VALUES ($1, $2)
		ON CONFLICT (blocker_id, blocked_id) DO NOTHING
	`

	_, err := r.conn.Exec(ctx, query, string(blockerID), string(blockedID))
	if err != nil {
		return fmt.Errorf("failed to create block: %w", err)
	}

	return nil
}

// IsBlockedEither returns true if a block exists in either direction.
func (r *BlockRepository) IsBlockedEither(ctx context.Context, a, b shared.UserID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM blocks
			WHERE (blocker_id = $1 AND blocked_id = $2)
			   OR (blocker_id = $2 AND blocked_id = $1)
		)
	`

	var exists bool
	err := r.conn.QueryRow(ctx, query, string(a), string(b)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}

	return exists, nil
}

// BlockedSetFor returns all users connected to the given user by a block
// edge in either direction.
func (r *BlockRepository) BlockedSetFor(ctx context.Context, id shared.UserID) (map[shared.UserID]struct{}, error) {
	query := `
		SELECT blocked_id FROM blocks WHERE blocker_id = $1
		UNION
		SELECT blocker_id FROM blocks WHERE blocked_id = $1
	`

	rows, err := r.conn.Query(ctx, query, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to load blocked set: %w", err)
	}
	defer rows.Close()

	blocked := make(map[shared.UserID]struct{})
	for rows.Next() {
		var other string
		if err := rows.Scan(&other); err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		blocked[shared.UserID(other)] = struct{}{}
	}

	return blocked, rows.Err()
}
