// Package upload validates and stores files and images picked in resource
// forms. Validation happens before anything is sent to storage.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-content-admin/gateway"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmpty               = errors.New("file is empty")
	ErrTooLarge            = errors.New("file is too large")
	ErrExtensionNotAllowed = errors.New("file type not allowed")
	ErrNotAnImage          = errors.New("file is not an image")
)

const sniffLen = 3072

// File is a file picked for upload
type File struct {
	Name string
	Size int64
	Body io.Reader
}

// Ref locates an uploaded object
type Ref struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
	URL    string `json:"url"`
}

type Uploader struct {
	storage   gateway.Storage
	policies  map[Kind]Policy
	uploading atomic.Int32
	newID     func() string
}

type Option func(*Uploader)

// WithMaxBytes overrides the size limit of a kind
func WithMaxBytes(kind Kind, maxBytes int64) Option {
	return func(u *Uploader) {
		p := u.policies[kind]
		p.MaxBytes = maxBytes
		u.policies[kind] = p
	}
}

// WithIDFunc sets the generator of object names (primarily for testing)
func WithIDFunc(newID func() string) Option {
	return func(u *Uploader) {
		u.newID = newID
	}
}

func NewUploader(storage gateway.Storage, options ...Option) *Uploader {
	u := &Uploader{
		storage:  storage,
		policies: DefaultPolicies(),
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range options {
		opt(u)
	}
	return u
}

func (u *Uploader) Policy(kind Kind) (Policy, error) {
	p, ok := u.policies[kind]
	if !ok {
		return Policy{}, fmt.Errorf("no upload policy for kind %q", kind)
	}
	return p, nil
}

// Validate checks a file against the policy of kind without reading it
func (u *Uploader) Validate(kind Kind, file File) error {
	p, err := u.Policy(kind)
	if err != nil {
		return err
	}
	return p.Check(file.Name, file.Size)
}

// Upload stores file in the bucket of kind under "<uuid><ext>" and returns
// its public URL.
func (u *Uploader) Upload(ctx context.Context, kind Kind, file File) (Ref, error) {
	if err := u.Validate(kind, file); err != nil {
		return Ref{}, err
	}
	p, _ := u.Policy(kind)

	u.uploading.Add(1)
	defer u.uploading.Add(-1)

	body := io.LimitReader(file.Body, file.Size)
	head := make([]byte, min(int64(sniffLen), file.Size))
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Ref{}, fmt.Errorf("failed to read %s: %w", file.Name, err)
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	if kind == KindImage && !strings.HasPrefix(mt.String(), "image/") {
		return Ref{}, fmt.Errorf("%w: %s is %s", ErrNotAnImage, file.Name, mt.String())
	}

	ref := Ref{
		Bucket: p.Bucket,
		Path:   u.newID() + strings.ToLower(filepath.Ext(file.Name)),
	}
	err = u.storage.Upload(ctx, ref.Bucket, ref.Path, io.MultiReader(bytes.NewReader(head), body), file.Size, mt.String())
	if err != nil {
		return Ref{}, fmt.Errorf("failed to upload %s: %w", file.Name, err)
	}
	ref.URL = u.storage.PublicURL(ref.Bucket, ref.Path)

	log.Debug().Str("bucket", ref.Bucket).Str("path", ref.Path).Str("content_type", mt.String()).Int64("size", file.Size).Msg("uploaded")
	return ref, nil
}

// Uploading reports whether an upload is in progress
func (u *Uploader) Uploading() bool {
	return u.uploading.Load() > 0
}

// Discard removes an uploaded object that is no longer referenced
func (u *Uploader) Discard(ctx context.Context, ref Ref) error {
	if err := u.storage.Remove(ctx, ref.Bucket, ref.Path); err != nil {
		return fmt.Errorf("failed to remove %s/%s: %w", ref.Bucket, ref.Path, err)
	}
	return nil
}
