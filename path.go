package kvfs

import (
	"net/url"
	"strings"

	"github.com/hviana/kvfs/internal/errors"
)

// EncodePath maps a path (an ordered sequence of non-empty segments) to its
// URI-component string: each segment percent-encoded, joined with "/". It is
// the inverse of DecodePath.
func EncodePath(path []string) string {
	parts := make([]string, len(path))
	for i, s := range path {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

// DecodePath splits uri on "/" and percent-decodes each segment, recovering
// the path EncodePath produced it from.
func DecodePath(uri string) ([]string, error) {
	if uri == "" {
		return []string{}, nil
	}
	parts := strings.Split(uri, "/")
	path := make([]string, len(parts))
	for i, p := range parts {
		s, err := url.PathUnescape(p)
		if err != nil {
			return nil, errors.Wrapf(err, "decode path segment %q", p)
		}
		path[i] = s
	}
	return path, nil
}
