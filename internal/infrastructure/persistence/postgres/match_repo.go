package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MATCH REPOSITORY IMPLEMENTATION
//
// The two write paths that carry the engine's correctness contract live here:
// CreateWithProposal (the generator's idempotency anchor) and
// AcceptWithMutualCheck (the exactly-once mutual flip). Both run as a single
// transaction with an in-transaction re-check, and both are backed by unique
// constraints so a lost race degrades to a clean error instead of bad data.
// ══════════════════════════════════════════════════════════════════════════════

// MatchRepository implements matching.Repository for PostgreSQL.
type MatchRepository struct {
	batches   *BatchRepository
	proposals *ProposalRepository
}

// NewMatchRepository creates a new MatchRepository.
func NewMatchRepository(conn *Connection) *MatchRepository {
	return &MatchRepository{
		batches:   &BatchRepository{conn: conn},
		proposals: &ProposalRepository{conn: conn},
	}
}

// Batches returns the batch repository.
func (r *MatchRepository) Batches() matching.BatchRepository {
	return r.batches
}

// Proposals returns the proposal repository.
func (r *MatchRepository) Proposals() matching.ProposalRepository {
	return r.proposals
}

// ─────────────────────────────────────────────────────────────────────────────
// Batch Repository
// ─────────────────────────────────────────────────────────────────────────────

// BatchRepository implements matching.BatchRepository for PostgreSQL.
type BatchRepository struct {
	conn *Connection
}

// GetByUserAndRoundKey returns a user's batch for a round key.
func (r *BatchRepository) GetByUserAndRoundKey(ctx context.Context, userID shared.UserID, key matching.RoundKey) (*matching.Batch, error) {
	query := `
		SELECT id, user_id, week_key, round, round_key, policy, created_at
		FROM match_batches
		WHERE user_id = $1 AND round_key = $2
	`

	b, err := scanBatch(r.conn.QueryRow(ctx, query, string(userID), string(key)))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return b, nil
}

// CreateWithProposal atomically creates a batch and its single child proposal
// (nil when no candidate survived). The batch's existence is re-checked
// inside the transaction: if a concurrent call won the race, nothing is
// written and shared.ErrBatchAlreadyExists is returned.
func (r *BatchRepository) CreateWithProposal(ctx context.Context, batch *matching.Batch, proposal *matching.Proposal) error {
	policyJSON, err := json.Marshal(batch.Policy)
	if err != nil {
		return fmt.Errorf("failed to marshal policy: %w", err)
	}

	var reasonsJSON []byte
	if proposal != nil {
		reasonsJSON, err = json.Marshal(proposal.Reasons)
		if err != nil {
			return fmt.Errorf("failed to marshal reasons: %w", err)
		}
	}

	err = r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		// Re-check under the transaction. The unique constraint on
		// (user_id, round_key) is the last line of defense.
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM match_batches WHERE user_id = $1 AND round_key = $2)`,
			string(batch.UserID), string(batch.RoundKey),
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to re-check batch existence: %w", err)
		}
		if exists {
			return shared.ErrBatchAlreadyExists
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO match_batches (
				id, user_id, week_key, round, round_key, algorithm_version, policy, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			batch.ID,
			string(batch.UserID),
			string(batch.WeekKey),
			string(batch.Round),
			string(batch.RoundKey),
			batch.Policy.AlgorithmVersion,
			policyJSON,
			batch.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}

		if proposal == nil {
			return nil
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO match_proposals (
				id, batch_id, proposer_id, candidate_id, week_key, round,
				score, reasons, rank, status, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			proposal.ID,
			proposal.BatchID,
			string(proposal.ProposerID),
			string(proposal.CandidateID),
			string(proposal.WeekKey),
			string(proposal.Round),
			int(proposal.Score),
			reasonsJSON,
			proposal.Rank,
			string(proposal.Status),
			proposal.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert proposal: %w", err)
		}

		return nil
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrBatchAlreadyExists
		}
		return err
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Proposal Repository
// ─────────────────────────────────────────────────────────────────────────────

// ProposalRepository implements matching.ProposalRepository for PostgreSQL.
type ProposalRepository struct {
	conn *Connection
}

const proposalColumns = `
	id, batch_id, proposer_id, candidate_id, week_key, round,
	score, reasons, rank, status, rejection_reason, created_at, acted_at
`

// GetByID returns a proposal by ID.
func (r *ProposalRepository) GetByID(ctx context.Context, id string) (*matching.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM match_proposals WHERE id = $1`

	p, err := scanProposal(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProposalNotFound
		}
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}

	return p, nil
}

// GetByProposerAndRound returns a user's proposal for a (week, round).
func (r *ProposalRepository) GetByProposerAndRound(ctx context.Context, proposerID shared.UserID, week matching.WeekKey, round matching.Round) (*matching.Proposal, error) {
	query := `SELECT ` + proposalColumns + `
		FROM match_proposals
		WHERE proposer_id = $1 AND week_key = $2 AND round = $3`

	p, err := scanProposal(r.conn.QueryRow(ctx, query, string(proposerID), string(week), string(round)))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProposalNotFound
		}
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}

	return p, nil
}

// GetMirror returns the mirror proposal (candidate -> proposer) of the same
// week, regardless of round. When both rounds produced a mirror, the one
// closest to a match wins.
func (r *ProposalRepository) GetMirror(ctx context.Context, proposerID, candidateID shared.UserID, week matching.WeekKey) (*matching.Proposal, error) {
	query := `SELECT ` + proposalColumns + `
		FROM match_proposals
		WHERE proposer_id = $1 AND candidate_id = $2 AND week_key = $3
		ORDER BY CASE status
			WHEN 'mutual_accepted' THEN 0
			WHEN 'accepted' THEN 1
			WHEN 'pending' THEN 2
			ELSE 3
		END, round ASC
		LIMIT 1`

	p, err := scanProposal(r.conn.QueryRow(ctx, query, string(candidateID), string(proposerID), string(week)))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProposalNotFound
		}
		return nil, fmt.Errorf("failed to get mirror proposal: %w", err)
	}

	return p, nil
}

// Reject moves a pending proposal to rejected, stamping acted_at.
func (r *ProposalRepository) Reject(ctx context.Context, id string, reason string) error {
	query := `
		UPDATE match_proposals
		SET status = 'rejected', rejection_reason = NULLIF($1, ''), acted_at = $2
		WHERE id = $3 AND status = 'pending'
	`

	result, err := r.conn.Exec(ctx, query, reason, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to reject proposal: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Either the proposal is gone or it left pending under our feet.
		var status string
		err := r.conn.QueryRow(ctx, `SELECT status FROM match_proposals WHERE id = $1`, id).Scan(&status)
		if err != nil {
			if IsNoRows(err) {
				return shared.ErrProposalNotFound
			}
			return fmt.Errorf("failed to check proposal status: %w", err)
		}
		return shared.ErrProposalTerminal
	}

	return nil
}

// AcceptWithMutualCheck atomically processes an accept. Inside one
// transaction it locks every proposal of the pair for the week in a single
// statement, in deterministic id order and with no status filter, so two
// concurrent accepts serialize on the same rows: the second transaction
// waits on the first's locks and re-reads the committed statuses after the
// wait. A status filter here would let a racing accept slip past the
// mirror's uncommitted update under read committed and strand the pair at
// accepted/accepted. The decision is then made from the post-lock statuses:
// an accepted mirror means a single conditional bulk update guarded by
// status != 'mutual_accepted' moves both rows to mutual_accepted, otherwise
// only this proposal moves to accepted. Exactly one of two racing accepts
// observes MutualFlipped = true.
func (r *ProposalRepository) AcceptWithMutualCheck(ctx context.Context, p *matching.Proposal) (*matching.AcceptOutcome, error) {
	outcome := &matching.AcceptOutcome{}
	now := time.Now().UTC()

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		// The mirror lookup is round-unconstrained: a Thursday accept can
		// complete mutuality with a Friday accept and vice versa.
		rows, err := tx.Query(ctx, `
			SELECT id, proposer_id, status FROM match_proposals
			WHERE week_key = $1
			  AND ((proposer_id = $2 AND candidate_id = $3)
			    OR (proposer_id = $3 AND candidate_id = $2))
			ORDER BY id
			FOR UPDATE`,
			string(p.WeekKey), string(p.ProposerID), string(p.CandidateID),
		)
		if err != nil {
			return fmt.Errorf("failed to lock proposal pair: %w", err)
		}

		var ownStatus string
		var ownFound bool
		var mirrorID string
		for rows.Next() {
			var id, proposerID, status string
			if err := rows.Scan(&id, &proposerID, &status); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan proposal pair: %w", err)
			}
			if id == p.ID {
				ownFound = true
				ownStatus = status
				continue
			}
			if proposerID == string(p.CandidateID) &&
				status == string(matching.ProposalStatusAccepted) && mirrorID == "" {
				mirrorID = id
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to read proposal pair: %w", err)
		}

		if !ownFound {
			return shared.ErrProposalNotFound
		}

		switch matching.ProposalStatus(ownStatus) {
		case matching.ProposalStatusPending, matching.ProposalStatusAccepted:
			// proceed
		case matching.ProposalStatusMutualAccepted:
			outcome.Status = matching.ProposalStatusMutualAccepted
			return nil
		default:
			return shared.ErrProposalTerminal
		}

		if mirrorID != "" {
			result, err := tx.Exec(ctx, `
				UPDATE match_proposals
				SET status = 'mutual_accepted', acted_at = $1
				WHERE id = ANY($2) AND status != 'mutual_accepted'`,
				now, []string{p.ID, mirrorID},
			)
			if err != nil {
				return fmt.Errorf("failed to flip mutual match: %w", err)
			}

			outcome.Status = matching.ProposalStatusMutualAccepted
			outcome.MutualFlipped = result.RowsAffected() == 2
			outcome.MirrorProposalID = mirrorID
			return nil
		}

		// No accepted mirror yet: plain accept.
		_, err = tx.Exec(ctx, `
			UPDATE match_proposals
			SET status = 'accepted', acted_at = $1
			WHERE id = $2`,
			now, p.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to accept proposal: %w", err)
		}

		outcome.Status = matching.ProposalStatusAccepted
		return nil
	})
	if err != nil {
		return nil, err
	}

	return outcome, nil
}

// ExpirePending moves all pending proposals of a round older than cutoff to
// expired in one bulk update. Re-running touches zero rows.
func (r *ProposalRepository) ExpirePending(ctx context.Context, week matching.WeekKey, round matching.Round, cutoff time.Time) (int64, error) {
	query := `
		UPDATE match_proposals
		SET status = 'expired', acted_at = $1
		WHERE week_key = $2 AND round = $3 AND status = 'pending' AND created_at < $4
	`

	result, err := r.conn.Exec(ctx, query, time.Now().UTC(), string(week), string(round), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire proposals: %w", err)
	}

	return result.RowsAffected(), nil
}

// RecentlyRejectedCandidateIDs returns candidates the user explicitly
// rejected since the given time. This feeds the cooldown window.
func (r *ProposalRepository) RecentlyRejectedCandidateIDs(ctx context.Context, proposerID shared.UserID, since time.Time) ([]shared.UserID, error) {
	query := `
		SELECT candidate_id FROM match_proposals
		WHERE proposer_id = $1 AND status = 'rejected' AND acted_at >= $2
	`

	rows, err := r.conn.Query(ctx, query, string(proposerID), since)
	if err != nil {
		return nil, fmt.Errorf("failed to list rejected candidates: %w", err)
	}
	defer rows.Close()

	var ids []shared.UserID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan candidate id: %w", err)
		}
		ids = append(ids, shared.UserID(id))
	}

	return ids, rows.Err()
}

// AcceptedProposerIDs returns users whose (week, round) proposal is in
// status accepted.
func (r *ProposalRepository) AcceptedProposerIDs(ctx context.Context, week matching.WeekKey, round matching.Round) ([]shared.UserID, error) {
	query := `
		SELECT proposer_id FROM match_proposals
		WHERE week_key = $1 AND round = $2 AND status = 'accepted'
	`

	rows, err := r.conn.Query(ctx, query, string(week), string(round))
	if err != nil {
		return nil, fmt.Errorf("failed to list accepted proposers: %w", err)
	}
	defer rows.Close()

	var ids []shared.UserID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan proposer id: %w", err)
		}
		ids = append(ids, shared.UserID(id))
	}

	return ids, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan Helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanBatch(row pgx.Row) (*matching.Batch, error) {
	var b matching.Batch
	var userID, weekKey, round, roundKey string
	var policyJSON []byte

	err := row.Scan(
		&b.ID,
		&userID,
		&weekKey,
		&round,
		&roundKey,
		&policyJSON,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.UserID = shared.UserID(userID)
	b.WeekKey = matching.WeekKey(weekKey)
	b.Round = matching.Round(round)
	b.RoundKey = matching.RoundKey(roundKey)

	if err := json.Unmarshal(policyJSON, &b.Policy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal policy: %w", err)
	}

	return &b, nil
}

func scanProposal(row pgx.Row) (*matching.Proposal, error) {
	var p matching.Proposal
	var proposerID, candidateID, weekKey, round, status string
	var score int
	var reasonsJSON []byte
	var rejectReason *string

	err := row.Scan(
		&p.ID,
		&p.BatchID,
		&proposerID,
		&candidateID,
		&weekKey,
		&round,
		&score,
		&reasonsJSON,
		&p.Rank,
		&status,
		&rejectReason,
		&p.CreatedAt,
		&p.ActedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ProposerID = shared.UserID(proposerID)
	p.CandidateID = shared.UserID(candidateID)
	p.WeekKey = matching.WeekKey(weekKey)
	p.Round = matching.Round(round)
	p.Score = matching.MatchScore(score)
	p.Status = matching.ProposalStatus(status)

	if rejectReason != nil {
		p.RejectReason = *rejectReason
	}

	if err := json.Unmarshal(reasonsJSON, &p.Reasons); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reasons: %w", err)
	}

	return &p, nil
}
