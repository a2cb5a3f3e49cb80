package assets

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ClaimForTranscode atomically moves a candidate asset from ready to
// processing, stamping the submission timestamp and incrementing the attempt
// counter. The WHERE clause repeats the full candidacy predicate so a
// concurrent claim, section assignment, or flag change makes this a no-op;
// callers get ErrNotClaimable instead of a double submission.
func (s *Store) ClaimForTranscode(ctx context.Context, id int64, targetHeight int) (*Asset, error) {
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE assets SET
            status = ?,
            target_height = ?,
            job_submitted_at = ?,
            attempts = attempts + 1,
            last_error = NULL,
            possibly_stuck = 0,
            stuck_detected_at = NULL,
            updated_at = ?
        WHERE id = ? AND status = ? AND needs_transcoding = 1 AND assigned_section IS NULL`,
		StatusProcessing,
		targetHeight,
		now,
		now,
		id,
		StatusReady,
	)
	if err != nil {
		return nil, fmt.Errorf("claim asset %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotClaimable
	}
	claimed, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if claimed == nil {
		// Row deleted between the update and the read-back.
		return nil, ErrNotClaimable
	}
	return claimed, nil
}

// SetJobHandle records the encoder job identifier and expected output for a
// claimed asset. Guarded on processing status so a late write after a
// reconciler transition cannot resurrect a finished asset.
func (s *Store) SetJobHandle(ctx context.Context, id int64, jobID, expectedOutput string) error {
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE assets SET
            job_id = ?,
            expected_output = ?,
            updated_at = ?
        WHERE id = ? AND status = ?`,
		jobID,
		nullableString(expectedOutput),
		now,
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("set job handle for asset %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteTranscode finalizes a successful job: the asset returns to ready,
// media location moves to the transcoded output, and the transcoding flag
// clears. The guard on status and job id makes repeated completion for the
// same job a harmless no-op.
func (s *Store) CompleteTranscode(ctx context.Context, id int64, jobID, outputLocation string, width, height int) error {
	now := timestamp(time.Now())
	_, err := s.execWithRetry(
		ctx,
		`UPDATE assets SET
            status = ?,
            media_location = ?,
            needs_transcoding = 0,
            format = 'mp4',
            codec = 'h264',
            width = ?,
            height = ?,
            job_id = NULL,
            job_submitted_at = NULL,
            target_height = 0,
            last_error = NULL,
            possibly_stuck = 0,
            stuck_detected_at = NULL,
            updated_at = ?
        WHERE id = ? AND status = ? AND job_id = ?`,
		StatusReady,
		outputLocation,
		width,
		height,
		now,
		id,
		StatusProcessing,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("complete transcode for asset %d: %w", id, err)
	}
	return nil
}

// FailTranscode moves an asset to the error state with a diagnostic message.
// The job handle is kept for postmortems.
func (s *Store) FailTranscode(ctx context.Context, id int64, message string) error {
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE assets SET
            status = ?,
            last_error = ?,
            possibly_stuck = 0,
            stuck_detected_at = NULL,
            updated_at = ?
        WHERE id = ?`,
		StatusError,
		strings.TrimSpace(message),
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("fail transcode for asset %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkPossiblyStuck flags a processing asset whose job has been outstanding
// past the stuck threshold. Advisory only; the asset keeps its processing
// status and job handle.
func (s *Store) MarkPossiblyStuck(ctx context.Context, id int64) error {
	now := timestamp(time.Now())
	_, err := s.execWithRetry(
		ctx,
		`UPDATE assets SET
            possibly_stuck = 1,
            stuck_detected_at = COALESCE(stuck_detected_at, ?),
            updated_at = ?
        WHERE id = ? AND status = ? AND possibly_stuck = 0`,
		now,
		now,
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark asset %d possibly stuck: %w", id, err)
	}
	return nil
}

// RetryErrored resets errored assets back to ready so the next processing
// pass picks them up again. Scoped to one asset when id is non-zero.
func (s *Store) RetryErrored(ctx context.Context, id int64) (int64, error) {
	now := timestamp(time.Now())
	query := `UPDATE assets SET
        status = ?,
        job_id = NULL,
        job_submitted_at = NULL,
        target_height = 0,
        expected_output = NULL,
        last_error = NULL,
        possibly_stuck = 0,
        stuck_detected_at = NULL,
        updated_at = ?
    WHERE status = ?`
	args := []any{StatusReady, now, StatusError}
	if id > 0 {
		query += ` AND id = ?`
		args = append(args, id)
	}

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry errored assets: %w", err)
	}
	return res.RowsAffected()
}

// ForceFail abandons an in-flight job by operator request, typically after a
// possibly-stuck advisory. The asset lands in the error state and becomes
// eligible for retry.
func (s *Store) ForceFail(ctx context.Context, id int64, message string) error {
	now := timestamp(time.Now())
	if strings.TrimSpace(message) == "" {
		message = "transcode abandoned by operator"
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE assets SET
            status = ?,
            last_error = ?,
            possibly_stuck = 0,
            stuck_detected_at = NULL,
            updated_at = ?
        WHERE id = ? AND status = ?`,
		StatusError,
		strings.TrimSpace(message),
		now,
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("force fail asset %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotClaimable
	}
	return nil
}

// AssignSection attaches an asset to a report section, removing it from the
// transcode candidate pool.
func (s *Store) AssignSection(ctx context.Context, id int64, section string) error {
	section = strings.TrimSpace(section)
	if section == "" {
		return fmt.Errorf("section is required")
	}
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE assets SET assigned_section = ?, updated_at = ? WHERE id = ?`,
		section,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("assign section for asset %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
