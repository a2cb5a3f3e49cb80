package transcode

// ProcessSummary reports the outcome of one submission pass.
type ProcessSummary struct {
	// Eligible is the number of candidates the pass considered.
	Eligible int
	// Started counts assets with a job successfully submitted.
	Started int
	// Skipped counts candidates lost to a concurrent claim.
	Skipped int
	// Failed counts assets moved to the error state during submission.
	Failed int
}

// ReconcileSummary reports the outcome of one reconciliation pass.
type ReconcileSummary struct {
	// Checked counts status lookups performed against the encoder.
	Checked int
	// Completed counts assets finalized from COMPLETE jobs.
	Completed int
	// Failed counts assets moved to error from ERROR or CANCELED jobs.
	Failed int
	// PossiblyStuck counts fresh advisory flags set this pass.
	PossiblyStuck int
	// Healed counts assets failed because their job handle was missing or
	// unknown to the encoder.
	Healed int
	// RateLimitHits counts 429 responses absorbed during the pass.
	RateLimitHits int
	// CheckErrors counts transient lookup failures that left assets
	// untouched.
	CheckErrors int
	// Remaining counts in-flight assets left for a later pass, either
	// unchecked past the poll budget or skipped after a rate-limited
	// lookup.
	Remaining int
}
