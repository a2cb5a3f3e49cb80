package assets

import (
	"database/sql"
	"errors"
	"time"
)

const assetColumns = "id, asset_key, project_id, source_location, media_location, status, needs_transcoding, assigned_section, format, codec, width, height, job_id, job_submitted_at, target_height, expected_output, attempts, last_error, possibly_stuck, stuck_detected_at, created_at, updated_at"

func scanAsset(scanner interface{ Scan(dest ...any) error }) (*Asset, error) {
	var (
		id              int64
		key             string
		projectID       string
		sourceLocation  string
		mediaLocation   string
		statusStr       string
		needsTranscode  sql.NullInt64
		assignedSection sql.NullString
		format          sql.NullString
		codec           sql.NullString
		width           sql.NullInt64
		height          sql.NullInt64
		jobID           sql.NullString
		jobSubmittedRaw sql.NullString
		targetHeight    sql.NullInt64
		expectedOutput  sql.NullString
		attempts        sql.NullInt64
		lastError       sql.NullString
		possiblyStuck   sql.NullInt64
		stuckRaw        sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&key,
		&projectID,
		&sourceLocation,
		&mediaLocation,
		&statusStr,
		&needsTranscode,
		&assignedSection,
		&format,
		&codec,
		&width,
		&height,
		&jobID,
		&jobSubmittedRaw,
		&targetHeight,
		&expectedOutput,
		&attempts,
		&lastError,
		&possiblyStuck,
		&stuckRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	asset := &Asset{
		ID:              id,
		Key:             key,
		ProjectID:       projectID,
		SourceLocation:  sourceLocation,
		MediaLocation:   mediaLocation,
		Status:          Status(statusStr),
		AssignedSection: assignedSection.String,
		Format:          format.String,
		Codec:           codec.String,
		Width:           int(width.Int64),
		Height:          int(height.Int64),
		JobID:           jobID.String,
		TargetHeight:    int(targetHeight.Int64),
		ExpectedOutput:  expectedOutput.String,
		Attempts:        int(attempts.Int64),
		LastError:       lastError.String,
	}
	if needsTranscode.Valid {
		asset.NeedsTranscoding = needsTranscode.Int64 != 0
	}
	if possiblyStuck.Valid {
		asset.PossiblyStuck = possiblyStuck.Int64 != 0
	}

	if submitted, err := parseTimeString(jobSubmittedRaw.String); err == nil {
		asset.JobSubmittedAt = &submitted
	}
	if stuck, err := parseTimeString(stuckRaw.String); err == nil {
		asset.StuckDetectedAt = &stuck
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		asset.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		asset.UpdatedAt = updated
	}
	return asset, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
