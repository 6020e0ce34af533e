package upload

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	apperrors "github.com/jrsteele09/go-content-admin/internal/errors"
)

// Kind selects the bucket and limits of an upload
type Kind string

const (
	KindImage Kind = "image"
	KindFile  Kind = "file"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(s)) {
	case KindImage:
		return KindImage, nil
	case KindFile:
		return KindFile, nil
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownKind, s)
}

// Policy is what an upload of a Kind may contain and where it is stored
type Policy struct {
	Bucket     string
	MaxBytes   int64
	Extensions []string // lower case, with leading dot
}

// DefaultPolicies returns the policy for every Kind
func DefaultPolicies() map[Kind]Policy {
	return map[Kind]Policy{
		KindImage: {
			Bucket:     "images",
			MaxBytes:   5 << 20,
			Extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg"},
		},
		KindFile: {
			Bucket:     "files",
			MaxBytes:   10 << 20,
			Extensions: []string{".pdf", ".doc", ".docx", ".ppt", ".pptx", ".xls", ".xlsx", ".txt", ".zip", ".png", ".jpg", ".jpeg"},
		},
	}
}

// Check validates the name and size of a file against the policy
func (p Policy) Check(name string, size int64) error {
	if size <= 0 {
		return ErrEmpty
	}
	if size > p.MaxBytes {
		return fmt.Errorf("%w: %s is %s, the limit is %s", ErrTooLarge, name, humanSize(size), humanSize(p.MaxBytes))
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(p.Extensions, ext) {
		return fmt.Errorf("%w: %q, allowed: %s", ErrExtensionNotAllowed, ext, strings.Join(p.Extensions, " "))
	}
	return nil
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
