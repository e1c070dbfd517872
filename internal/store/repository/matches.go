package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/fortuna/pitchside/internal/store"
)

// MatchRepository handles tracked match data access
type MatchRepository struct {
	db *store.Database
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *store.Database) *MatchRepository {
	return &MatchRepository{db: db}
}

// Upsert inserts or updates tracked matches in one transaction
func (r *MatchRepository) Upsert(ctx context.Context, matches []store.TrackedMatch) error {
	if len(matches) == 0 {
		return nil
	}

	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tracked_matches (match_id, match_date, home_team, home_team_id, away_team, away_team_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (match_id) DO UPDATE SET
			match_date = EXCLUDED.match_date,
			home_team = EXCLUDED.home_team,
			home_team_id = EXCLUDED.home_team_id,
			away_team = EXCLUDED.away_team,
			away_team_id = EXCLUDED.away_team_id,
			updated_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, m := range matches {
		if _, err := stmt.ExecContext(ctx, m.MatchID, m.MatchDate, m.HomeTeam, m.HomeTeamID, m.AwayTeam, m.AwayTeamID); err != nil {
			return fmt.Errorf("upsert match %d: %w", m.MatchID, err)
		}
	}

	return tx.Commit()
}

// Prune deletes matches older than cutoff and any match not in keep. It
// returns the number of rows removed.
func (r *MatchRepository) Prune(ctx context.Context, cutoff time.Time, keep []int64) (int64, error) {
	res, err := r.db.DB().ExecContext(ctx, `
		DELETE FROM tracked_matches
		WHERE match_date < $1 OR NOT (match_id = ANY($2))
	`, cutoff, pq.Array(keep))
	if err != nil {
		return 0, fmt.Errorf("prune matches: %w", err)
	}
	return res.RowsAffected()
}

// List returns tracked matches, most recent first
func (r *MatchRepository) List(ctx context.Context, limit int) ([]*store.TrackedMatch, error) {
	rows, err := r.db.DB().QueryContext(ctx, `
		SELECT match_id, match_date, home_team, home_team_id, away_team, away_team_id, updated_at
		FROM tracked_matches
		ORDER BY match_date DESC, match_id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	defer rows.Close()

	var matches []*store.TrackedMatch
	for rows.Next() {
		m := &store.TrackedMatch{}
		if err := rows.Scan(&m.MatchID, &m.MatchDate, &m.HomeTeam, &m.HomeTeamID, &m.AwayTeam, &m.AwayTeamID, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}
