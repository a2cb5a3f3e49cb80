package assets

import "errors"

var (
	// ErrNotClaimable indicates a conditional ready→processing transition
	// matched no row: the asset was already claimed, reassigned, or no longer
	// needs transcoding.
	ErrNotClaimable = errors.New("asset not claimable")

	// ErrNotFound indicates the referenced asset does not exist.
	ErrNotFound = errors.New("asset not found")
)
