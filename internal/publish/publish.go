// Package publish stores rendered previews somewhere a reviewer can reach
// them: a local directory or an S3-compatible bucket.
package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("colorgrade.publish")

// ErrNotConfigured is returned by New when neither a directory nor a bucket
// is configured.
var ErrNotConfigured = errors.New("no publish target configured")

// Store persists one preview under a key and reports where it went.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (location string, err error)
}

// New picks the store for a configuration. A bucket takes precedence over a
// directory.
func New(dir string, s3cfg S3Config) (Store, error) {
	switch {
	case s3cfg.IsConfigured():
		return NewS3Store(s3cfg)
	case dir != "":
		return NewDirStore(dir), nil
	default:
		return nil, ErrNotConfigured
	}
}

// Key builds a content-addressed object name for a rendered preview:
// "<kebab-recipe-name>-<first 12 hex digits of sha256>.<ext>". Rendering the
// same recipe twice gives the same key, and any change to the output gives a
// new one.
func Key(recipeName string, data []byte, ext string) string {
	sum := sha256.Sum256(data)
	return slug(recipeName) + "-" + hex.EncodeToString(sum[:])[:12] + "." + strings.TrimPrefix(ext, ".")
}

// slug reduces a recipe name to lower-case letters, digits and single dashes.
func slug(name string) string {
	kebab := strcase.ToKebab(strings.TrimSpace(name))

	var b strings.Builder
	dash := false
	for _, r := range kebab {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}

	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "graded"
	}
	return s
}
