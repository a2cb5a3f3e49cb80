package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewAssetParams describes an asset to register, normally supplied by the
// upstream ingestion pipeline.
type NewAssetParams struct {
	ProjectID        string
	SourceLocation   string
	Format           string
	Codec            string
	Width            int
	Height           int
	NeedsTranscoding bool
	AssignedSection  string
}

// Ingest inserts a new ready asset. The media location starts out pointing at
// the original upload.
func (s *Store) Ingest(ctx context.Context, params NewAssetParams) (*Asset, error) {
	project := strings.TrimSpace(params.ProjectID)
	if project == "" {
		return nil, errors.New("project id is required")
	}
	source := strings.TrimSpace(params.SourceLocation)
	if source == "" {
		return nil, errors.New("source location is required")
	}

	now := timestamp(time.Now())
	key := uuid.NewString()

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO assets (
            asset_key, project_id, source_location, media_location, status,
            needs_transcoding, assigned_section, format, codec, width, height,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key,
		project,
		source,
		source,
		StatusReady,
		boolToInt(params.NeedsTranscoding),
		nullableString(strings.TrimSpace(params.AssignedSection)),
		nullableString(strings.ToLower(strings.TrimSpace(params.Format))),
		nullableString(strings.ToLower(strings.TrimSpace(params.Codec))),
		params.Width,
		params.Height,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches an asset by its internal identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Asset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return asset, nil
}

// GetByKey fetches an asset by its opaque external key.
func (s *Store) GetByKey(ctx context.Context, key string) (*Asset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE asset_key = ?`, key)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset by key: %w", err)
	}
	return asset, nil
}

// CandidatesForTranscode returns up to limit assets eligible for a transcode
// submission, optionally scoped to a project. Read-only; ordering follows
// creation time so repeated calls see a stable prefix.
func (s *Store) CandidatesForTranscode(ctx context.Context, projectID string, limit int) ([]*Asset, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `SELECT ` + assetColumns + ` FROM assets
        WHERE status = ? AND needs_transcoding = 1 AND assigned_section IS NULL`
	args := []any{StatusReady}
	if projectID = strings.TrimSpace(projectID); projectID != "" {
		query += ` AND project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	return collectAssets(rows)
}

// ProcessingAssets returns assets with an in-flight transcode job, oldest
// submission first, optionally scoped to a project.
func (s *Store) ProcessingAssets(ctx context.Context, projectID string) ([]*Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE status = ?`
	args := []any{StatusProcessing}
	if projectID = strings.TrimSpace(projectID); projectID != "" {
		query += ` AND project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY job_submitted_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processing assets: %w", err)
	}
	defer rows.Close()

	return collectAssets(rows)
}

// List returns assets filtered by status set (or all assets when no status is
// provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Asset, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + assetColumns + ` FROM assets`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	return collectAssets(rows)
}

// Stats returns a count of assets grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM assets GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("asset stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates asset state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	var health HealthSummary
	row := s.db.QueryRowContext(ctx, `SELECT
        COUNT(1),
        SUM(CASE WHEN status = 'ready' THEN 1 ELSE 0 END),
        SUM(CASE WHEN status = 'ready' AND needs_transcoding = 1 THEN 1 ELSE 0 END),
        SUM(CASE WHEN status = 'processing' THEN 1 ELSE 0 END),
        SUM(CASE WHEN status = 'processing' AND possibly_stuck = 1 THEN 1 ELSE 0 END),
        SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END)
        FROM assets`)
	var ready, needs, processing, stuck, errored sql.NullInt64
	if err := row.Scan(&health.Total, &ready, &needs, &processing, &stuck, &errored); err != nil {
		return HealthSummary{}, fmt.Errorf("asset health: %w", err)
	}
	health.Ready = int(ready.Int64)
	health.NeedsTranscoding = int(needs.Int64)
	health.Processing = int(processing.Int64)
	health.PossiblyStuck = int(stuck.Int64)
	health.Errored = int(errored.Int64)
	return health, nil
}

// Remove deletes an asset by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete asset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearErrored removes only errored assets.
func (s *Store) ClearErrored(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM assets WHERE status = ?`, StatusError)
	if err != nil {
		return 0, fmt.Errorf("clear errored: %w", err)
	}
	return res.RowsAffected()
}

func collectAssets(rows *sql.Rows) ([]*Asset, error) {
	var items []*Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, asset)
	}
	return items, rows.Err()
}
