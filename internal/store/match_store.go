package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MatchStore struct {
	db *sqlx.DB
}

func NewMatchStore(db *sqlx.DB) *MatchStore {
	return &MatchStore{db: db}
}

const (
	getMatchQuery   = "SELECT * FROM matches WHERE id = ?"
	getMatchesQuery = "SELECT * FROM matches WHERE tournament_id = ? ORDER BY round_number ASC, bracket_position ASC"

	insertMatchQuery = `INSERT INTO matches (id, tournament_id, round_number, round_name, bracket_position, match_type,
		player1_id, player2_id, player1_score, player2_score, race_to, status, winner_id, loser_id,
		next_match_id, next_match_slot, loser_next_match_id, loser_next_slot, expires_at, created_at, updated_at)
		VALUES (:id, :tournament_id, :round_number, :round_name, :bracket_position, :match_type,
		:player1_id, :player2_id, :player1_score, :player2_score, :race_to, :status, :winner_id, :loser_id,
		:next_match_id, :next_match_slot, :loser_next_match_id, :loser_next_slot, :expires_at, :created_at, :updated_at)`

	updateMatchQuery = `UPDATE matches SET
		match_type = ?, player1_id = ?, player2_id = ?, player1_score = ?, player2_score = ?,
		status = ?, winner_id = ?, loser_id = ?,
		submitted_by = ?, submitted_at = ?, confirmed_by = ?, confirmed_at = ?,
		disputed_by = ?, disputed_at = ?, dispute_reason = ?, dispute_evidence_url = ?,
		resolved_by = ?, resolved_at = ?, resolution_notes = ?,
		played_at = ?, expires_at = ?, confirmation_deadline = ?, updated_at = ?
		WHERE id = ? AND status = ?`
)

// CreateMatches inserts the matches in order. Callers pass parents before
// the matches that feed them.
func (s *MatchStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []*bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}

	stmt, err := tx.PrepareNamedContext(ctx, insertMatchQuery)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range matches {
		if _, err := stmt.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("failed to insert match %s: %w", m.ID, err)
		}
	}
	return nil
}

func (s *MatchStore) GetMatch(ctx context.Context, id uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	err := s.db.GetContext(ctx, &match, getMatchQuery, id)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *MatchStore) GetMatchTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	err := tx.GetContext(ctx, &match, getMatchQuery, id)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *MatchStore) GetMatches(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := s.db.SelectContext(ctx, &matches, getMatchesQuery, tournamentID)
	return matches, err
}

func (s *MatchStore) GetMatchesTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := tx.SelectContext(ctx, &matches, getMatchesQuery, tournamentID)
	return matches, err
}

// Deadlines are compared with julianday so the stored offset never matters.
const (
	getExpiringMatchesQuery = `SELECT * FROM matches
		WHERE status = ? AND expires_at IS NOT NULL AND julianday(expires_at) <= julianday(?)
		ORDER BY created_at ASC, id ASC`
	getOverdueConfirmationsQuery = `SELECT * FROM matches
		WHERE status = ? AND confirmation_deadline IS NOT NULL AND julianday(confirmation_deadline) <= julianday(?)
		ORDER BY created_at ASC, id ASC`
	getRemindableMatchesQuery = `SELECT * FROM matches
		WHERE status = ? AND reminded_at IS NULL
			AND player1_id IS NOT NULL AND player2_id IS NOT NULL
			AND expires_at IS NOT NULL
			AND julianday(expires_at) > julianday(?) AND julianday(expires_at) <= julianday(?)
		ORDER BY created_at ASC, id ASC`
)

// GetExpiringMatches returns the scheduled matches whose play deadline is at
// or before now.
func (s *MatchStore) GetExpiringMatches(ctx context.Context, now time.Time) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := s.db.SelectContext(ctx, &matches, getExpiringMatchesQuery, bracket.MatchScheduled, now)
	return matches, err
}

// GetOverdueConfirmations returns the pending results whose confirmation
// deadline is at or before now.
func (s *MatchStore) GetOverdueConfirmations(ctx context.Context, now time.Time) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := s.db.SelectContext(ctx, &matches, getOverdueConfirmationsQuery, bracket.MatchPendingConfirmation, now)
	return matches, err
}

// GetRemindableMatches returns the ready scheduled matches not reminded yet
// whose play deadline falls in (now, now+lead].
func (s *MatchStore) GetRemindableMatches(ctx context.Context, now time.Time, lead time.Duration) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := s.db.SelectContext(ctx, &matches, getRemindableMatchesQuery, bracket.MatchScheduled, now, now.Add(lead))
	return matches, err
}

// UpdateMatchTx writes the mutable columns of m, but only while the stored
// row is still in expected. It reports false when another writer got there
// first.
func (s *MatchStore) UpdateMatchTx(ctx context.Context, tx *sqlx.Tx, m *bracket.Match, expected bracket.MatchStatus) (bool, error) {
	res, err := tx.ExecContext(ctx, updateMatchQuery,
		m.MatchType, m.Player1ID, m.Player2ID, m.Player1Score, m.Player2Score,
		m.Status, m.WinnerID, m.LoserID,
		m.SubmittedBy, m.SubmittedAt, m.ConfirmedBy, m.ConfirmedAt,
		m.DisputedBy, m.DisputedAt, m.DisputeReason, m.DisputeEvidenceURL,
		m.ResolvedBy, m.ResolvedAt, m.ResolutionNotes,
		m.PlayedAt, m.ExpiresAt, m.ConfirmationDeadline, m.UpdatedAt,
		m.ID, expected,
	)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// FillSlotTx puts participantID into one slot of a match unless the slot
// already holds somebody else. Writing the same participant again succeeds.
func (s *MatchStore) FillSlotTx(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID, slot bracket.Slot, participantID uuid.UUID, at time.Time) (bool, error) {
	var query string
	switch slot {
	case bracket.SlotPlayer1:
		query = "UPDATE matches SET player1_id = ?, updated_at = ? WHERE id = ? AND (player1_id IS NULL OR player1_id = ?)"
	case bracket.SlotPlayer2:
		query = "UPDATE matches SET player2_id = ?, updated_at = ? WHERE id = ? AND (player2_id IS NULL OR player2_id = ?)"
	default:
		return false, fmt.Errorf("unknown slot %q", slot)
	}

	res, err := tx.ExecContext(ctx, query, participantID, at, matchID, participantID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// SetExpiryTx starts the play deadline of a match once both players are in.
func (s *MatchStore) SetExpiryTx(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID, expiresAt time.Time) error {
	_, err := tx.ExecContext(ctx, "UPDATE matches SET expires_at = ? WHERE id = ? AND expires_at IS NULL AND status = ?",
		expiresAt, matchID, bracket.MatchScheduled)
	return err
}

// MarkRemindedTx records that the reminder for a match went out. It reports
// false when it was already sent or the match was played in the meantime.
func (s *MatchStore) MarkRemindedTx(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID, at time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, "UPDATE matches SET reminded_at = ? WHERE id = ? AND reminded_at IS NULL AND status = ?",
		at, matchID, bracket.MatchScheduled)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
