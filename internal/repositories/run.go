package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/otv/internal/models"
	"github.com/desertthunder/otv/internal/shared"
	"github.com/desertthunder/otv/internal/tasks"
)

var (
	_ models.Repository[*models.Run] = (*RunRepository)(nil)
	_ tasks.Recorder                 = (*RunRepository)(nil)
)

const runColumns = `
	r.id, s.id, r.service, r.state, r.dry_run,
	r.playlists_examined, r.playlists_transformed, r.playlists_failed,
	r.tracks_examined, r.tracks_classified, r.tracks_replaced, r.substitutions,
	r.no_match, r.search_failed, r.started_at, r.finished_at, r.created_at
`

// RunRepository implements models.Repository[*models.Run] for run history.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run and its playlist outcomes, assigning its sequence number.
func (r *RunRepository) Create(run *models.Run) error {
	return r.create(context.Background(), run)
}

// Record stores a finished report. It satisfies [tasks.Recorder].
func (r *RunRepository) Record(ctx context.Context, report *tasks.Report) error {
	return r.create(ctx, report.Run())
}

func (r *RunRepository) create(ctx context.Context, run *models.Run) error {
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO runs (id, service, state, dry_run,
			playlists_examined, playlists_transformed, playlists_failed,
			tracks_examined, tracks_classified, tracks_replaced, substitutions,
			no_match, search_failed, started_at, finished_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		run.ID,
		run.Service,
		run.State,
		run.DryRun,
		run.PlaylistsExamined,
		run.PlaylistsTransformed,
		run.PlaylistsFailed,
		run.TracksExamined,
		run.TracksClassified,
		run.TracksReplaced,
		run.Substitutions,
		run.NoMatch,
		run.SearchFailed,
		run.StartedAt,
		run.FinishedAt,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	sequence, err := NextSequence(tx, "runs", run.ID)
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	for i, p := range run.Playlists {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_playlists (run_id, position, source_id, source_name, created_id, created_name, replaced, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, i, p.SourceID, p.SourceName, nullString(p.CreatedID), nullString(p.CreatedName), p.Replaced, nullString(p.Error))
		if err != nil {
			return fmt.Errorf("failed to insert run playlist %s: %w", p.SourceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	run.Sequence = sequence
	return nil
}

// Get retrieves a run with its playlist outcomes by ID.
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := `SELECT ` + runColumns + `
		FROM runs r
		JOIN runs_sequence s ON s.run_id = r.id
		WHERE r.id = ?
	`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if run.Playlists, err = r.playlists(run.ID); err != nil {
		return nil, err
	}
	return run, nil
}

// GetBySequence retrieves a run by its sequence number.
func (r *RunRepository) GetBySequence(sequence int64) (*models.Run, error) {
	var id string
	err := r.db.QueryRow("SELECT run_id FROM runs_sequence WHERE id = ?", sequence).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: #%d", shared.ErrRunNotFound, sequence)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run sequence: %w", err)
	}
	return r.Get(id)
}

// List retrieves the most recent runs, newest first. Playlist outcomes are not loaded.
// A limit of zero or less returns every run.
func (r *RunRepository) List(limit int) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + `
		FROM runs r
		JOIN runs_sequence s ON s.run_id = r.id
		ORDER BY s.id DESC
	`

	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// Delete removes a run and, through cascading foreign keys, its playlist outcomes.
func (r *RunRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM run_playlists WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete run playlists: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM runs_sequence WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete run sequence: %w", err)
	}

	result, err := tx.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return tx.Commit()
}

func (r *RunRepository) playlists(runID string) ([]models.RunPlaylist, error) {
	rows, err := r.db.Query(`
		SELECT source_id, source_name, created_id, created_name, replaced, error
		FROM run_playlists
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.RunPlaylist
	for rows.Next() {
		var (
			p                           models.RunPlaylist
			createdID, createdName, msg sql.NullString
		)
		if err := rows.Scan(&p.SourceID, &p.SourceName, &createdID, &createdName, &p.Replaced, &msg); err != nil {
			return nil, fmt.Errorf("failed to scan run playlist: %w", err)
		}
		p.CreatedID = createdID.String
		p.CreatedName = createdName.String
		p.Error = msg.String
		playlists = append(playlists, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return playlists, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single row from [sql.Row] or [sql.Rows] into a [models.Run]
func scanRun(row scanner) (*models.Run, error) {
	var run models.Run

	err := row.Scan(
		&run.ID,
		&run.Sequence,
		&run.Service,
		&run.State,
		&run.DryRun,
		&run.PlaylistsExamined,
		&run.PlaylistsTransformed,
		&run.PlaylistsFailed,
		&run.TracksExamined,
		&run.TracksClassified,
		&run.TracksReplaced,
		&run.Substitutions,
		&run.NoMatch,
		&run.SearchFailed,
		&run.StartedAt,
		&run.FinishedAt,
		&run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
