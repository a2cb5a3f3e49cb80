// Package outputpath derives where transcoded media lands. Paths are a pure
// function of asset identity and target height so any component, before or
// after the encoder runs, can compute the same location without coordination.
package outputpath

import (
	"fmt"
	"path"
	"strings"
)

// Resolver computes output locations under a fixed base.
type Resolver struct {
	base string
}

// NewResolver returns a resolver rooted at base. Trailing slashes are
// normalized away so equivalent bases resolve identically.
func NewResolver(base string) Resolver {
	return Resolver{base: strings.TrimRight(strings.TrimSpace(base), "/")}
}

// Resolve returns the output location for an asset's transcode at the given
// height. The same inputs always produce the same path. Scheme bases such as
// s3:// or https:// keep their prefix intact; path.Clean would collapse the
// double slash, so only the portion after the scheme is joined.
func (r Resolver) Resolve(projectID, assetKey string, height int) string {
	file := fmt.Sprintf("%s_%dp.mp4", assetKey, height)
	if scheme, rest, ok := splitScheme(r.base); ok {
		return scheme + "://" + path.Join(rest, "projects", projectID, "transcodes", file)
	}
	return path.Join(r.base, "projects", projectID, "transcodes", file)
}

func splitScheme(location string) (scheme, rest string, ok bool) {
	i := strings.Index(location, "://")
	if i <= 0 {
		return "", "", false
	}
	return location[:i], location[i+len("://"):], true
}
