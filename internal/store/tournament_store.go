package store

import (
	"context"
	"time"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TournamentStore persists tournaments and their participants.
type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

const (
	getTournamentQuery   = "SELECT * FROM tournaments WHERE id = ?"
	getParticipantsQuery = "SELECT * FROM participants WHERE tournament_id = ? ORDER BY registered_at ASC, id ASC"
)

func (s *TournamentStore) CreateTournament(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO tournaments (id, owner_id, name, format, status, race_to, finals_race_to, confirmation_hours, match_expiry_hours, winners_count, created_at)
        VALUES (:id, :owner_id, :name, :format, :status, :race_to, :finals_race_to, :confirmation_hours, :match_expiry_hours, :winners_count, :created_at)`, tournament)
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	err := s.db.GetContext(ctx, &tournament, getTournamentQuery, id)
	if err != nil {
		return nil, err
	}
	return &tournament, nil
}

func (s *TournamentStore) GetTournamentTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	err := tx.GetContext(ctx, &tournament, getTournamentQuery, id)
	if err != nil {
		return nil, err
	}
	return &tournament, nil
}

func (s *TournamentStore) GetTournamentsByOwner(ctx context.Context, ownerID uuid.UUID) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	err := s.db.SelectContext(ctx, &tournaments, "SELECT * FROM tournaments WHERE owner_id = ? ORDER BY created_at DESC", ownerID)
	return tournaments, err
}

// UpdateTournamentStatusTx moves the tournament from one status to another.
// It reports false when the tournament was not in the expected status.
func (s *TournamentStore) UpdateTournamentStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from, to bracket.TournamentStatus) (bool, error) {
	res, err := tx.ExecContext(ctx, "UPDATE tournaments SET status = ? WHERE id = ? AND status = ?", to, id, from)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// MarkTournamentStartedTx is the registration to active switch done while
// the bracket is written.
func (s *TournamentStore) MarkTournamentStartedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, startedAt time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, "UPDATE tournaments SET status = ?, started_at = ? WHERE id = ? AND status = ?",
		bracket.TournamentActive, startedAt, id, bracket.TournamentRegistration)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// CompleteTournamentTx closes a tournament. from is the status it is expected
// to be in, registration for a lone entrant and active otherwise.
func (s *TournamentStore) CompleteTournamentTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from bracket.TournamentStatus, winner *uuid.UUID, completedAt time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE tournaments SET status = ?, winner_participant_id = ?, completed_at = ?,
		started_at = COALESCE(started_at, ?)
		WHERE id = ? AND status = ?`,
		bracket.TournamentCompleted, winner, completedAt, completedAt, id, from)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *TournamentStore) CancelTournamentTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, "UPDATE tournaments SET status = ?, completed_at = ? WHERE id = ? AND status NOT IN (?, ?)",
		bracket.TournamentCancelled, at, id, bracket.TournamentCompleted, bracket.TournamentCancelled)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *TournamentStore) CreateParticipant(ctx context.Context, tx *sqlx.Tx, p *bracket.Participant) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO participants (id, tournament_id, player_id, name, rating, status, manual_seed, registered_at)
		VALUES (:id, :tournament_id, :player_id, :name, :rating, :status, :manual_seed, :registered_at)`, p)
	return err
}

func (s *TournamentStore) GetParticipants(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Participant, error) {
	var participants []bracket.Participant
	err := s.db.SelectContext(ctx, &participants, getParticipantsQuery, tournamentID)
	return participants, err
}

func (s *TournamentStore) GetParticipantsTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) ([]bracket.Participant, error) {
	var participants []bracket.Participant
	err := tx.SelectContext(ctx, &participants, getParticipantsQuery, tournamentID)
	return participants, err
}

func (s *TournamentStore) GetParticipantTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*bracket.Participant, error) {
	var p bracket.Participant
	err := tx.GetContext(ctx, &p, "SELECT * FROM participants WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *TournamentStore) GetParticipantByPlayerTx(ctx context.Context, tx *sqlx.Tx, tournamentID, playerID uuid.UUID) (*bracket.Participant, error) {
	var p bracket.Participant
	err := tx.GetContext(ctx, &p, "SELECT * FROM participants WHERE tournament_id = ? AND player_id = ?", tournamentID, playerID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ApplySeedsTx writes the generated seeds and activates every seeded
// participant.
func (s *TournamentStore) ApplySeedsTx(ctx context.Context, tx *sqlx.Tx, seeds []bracket.SeedAssignment) error {
	stmt, err := tx.PreparexContext(ctx, "UPDATE participants SET seed = ?, status = ? WHERE id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, seed := range seeds {
		if _, err := stmt.ExecContext(ctx, seed.Seed, bracket.ParticipantActive, seed.ParticipantID); err != nil {
			return err
		}
	}
	return nil
}

func (s *TournamentStore) UpdateParticipantStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status bracket.ParticipantStatus) error {
	_, err := tx.ExecContext(ctx, "UPDATE participants SET status = ? WHERE id = ?", status, id)
	return err
}

func (s *TournamentStore) UpdateParticipantResultTx(ctx context.Context, tx *sqlx.Tx, p *bracket.Participant) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE participants SET
		status = :status,
		matches_played = :matches_played,
		matches_won = :matches_won,
		frames_won = :frames_won,
		frames_lost = :frames_lost
		WHERE id = :id`, p)
	return err
}
