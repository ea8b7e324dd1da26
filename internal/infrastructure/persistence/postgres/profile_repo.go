package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kiko-app/kiko-matching/internal/domain/profile"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE VECTOR REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// VectorRepository implements profile.Repository for PostgreSQL.
type VectorRepository struct {
	conn *Connection
}

// NewVectorRepository creates a new VectorRepository.
func NewVectorRepository(conn *Connection) *VectorRepository {
	return &VectorRepository{conn: conn}
}

// GetVector returns the current vector for a user.
func (r *VectorRepository) GetVector(ctx context.Context, userID shared.UserID) (*profile.UserVector, error) {
	query := `
		SELECT user_id, battery_version, answers, single_choice, multi_choice,
			   dimensions, valid, contradictions, captured_at
		FROM profile_vectors
		WHERE user_id = $1
	`

	var v profile.UserVector
	var id string
	var answersJSON, singleJSON, multiJSON, dimsJSON []byte

	err := r.conn.QueryRow(ctx, query, string(userID)).Scan(
		&id,
		&v.BatteryVersion,
		&answersJSON,
		&singleJSON,
		&multiJSON,
		&dimsJSON,
		&v.Valid,
		&v.Contradictions,
		&v.CapturedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrVectorNotFound
		}
		return nil, fmt.Errorf("failed to get vector: %w", err)
	}

	v.UserID = shared.UserID(id)

	if err := json.Unmarshal(answersJSON, &v.Answers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
	}
	if err := json.Unmarshal(singleJSON, &v.SingleChoice); err != nil {
		return nil, fmt.Errorf("failed to unmarshal single choice: %w", err)
	}
	if err := json.Unmarshal(multiJSON, &v.MultiChoice); err != nil {
		return nil, fmt.Errorf("failed to unmarshal multi choice: %w", err)
	}
	if err := json.Unmarshal(dimsJSON, &v.Dimensions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dimensions: %w", err)
	}

	return &v, nil
}

// Save stores a vector, replacing the user's previous snapshot.
func (r *VectorRepository) Save(ctx context.Context, v *profile.UserVector) error {
	query := `
		INSERT INTO profile_vectors (
			user_id, battery_version, answers, single_choice, multi_choice,
			dimensions, valid, contradictions, captured_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			battery_version = EXCLUDED.battery_version,
			answers = EXCLUDED.answers,
			single_choice = EXCLUDED.single_choice,
			multi_choice = EXCLUDED.multi_choice,
			dimensions = EXCLUDED.dimensions,
			valid = EXCLUDED.valid,
			contradictions = EXCLUDED.contradictions,
			captured_at = EXCLUDED.captured_at
	`

	answersJSON, err := json.Marshal(v.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	singleJSON, err := json.Marshal(v.SingleChoice)
	if err != nil {
		return fmt.Errorf("failed to marshal single choice: %w", err)
	}
	multiJSON, err := json.Marshal(v.MultiChoice)
	if err != nil {
		return fmt.Errorf("failed to marshal multi choice: %w", err)
	}
	dimsJSON, err := json.Marshal(v.Dimensions)
	if err != nil {
		return fmt.Errorf("failed to marshal dimensions: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		string(v.UserID),
		v.BatteryVersion,
		answersJSON,
		singleJSON,
		multiJSON,
		dimsJSON,
		v.Valid,
		v.Contradictions,
		v.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save vector: %w", err)
	}

	return nil
}

// Delete removes a user's vector.
func (r *VectorRepository) Delete(ctx context.Context, userID shared.UserID) error {
	result, err := r.conn.Exec(ctx,
		`DELETE FROM profile_vectors WHERE user_id = $1`,
		string(userID),
	)
	if err != nil {
		return fmt.Errorf("failed to delete vector: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrVectorNotFound
	}

	return nil
}
