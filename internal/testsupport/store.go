package testsupport

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"mainline/internal/assets"
	"mainline/internal/config"
)

// MustOpenStore opens an assets.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *assets.Store {
	t.Helper()

	store, err := assets.Open(cfg)
	if err != nil {
		t.Fatalf("assets.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedAsset ingests a transcode candidate for tests using the provided store.
// Defaults describe a typical crawler capture that needs re-encoding.
func SeedAsset(t testing.TB, store *assets.Store, project, source string) *assets.Asset {
	t.Helper()

	asset, err := store.Ingest(context.Background(), assets.NewAssetParams{
		ProjectID:        project,
		SourceLocation:   source,
		Format:           "avi",
		Codec:            "mpeg2",
		Width:            720,
		Height:           576,
		NeedsTranscoding: true,
	})
	if err != nil {
		t.Fatalf("store.Ingest: %v", err)
	}
	return asset
}

// BackdateJob rewrites an asset's submission timestamp so age-based behavior
// can be exercised without sleeping. It writes to the database file directly.
func BackdateJob(t testing.TB, store *assets.Store, id int64, age time.Duration) {
	t.Helper()

	db, err := sql.Open("sqlite", store.Path())
	if err != nil {
		t.Fatalf("open store db: %v", err)
	}
	defer db.Close()

	past := time.Now().UTC().Add(-age).Format(time.RFC3339Nano)
	if _, err := db.Exec(`UPDATE assets SET job_submitted_at = ? WHERE id = ?`, past, id); err != nil {
		t.Fatalf("backdate submission: %v", err)
	}
}
