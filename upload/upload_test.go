package upload_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jrsteele09/go-content-admin/gateway/gatewayfake"
	apperrors "github.com/jrsteele09/go-content-admin/internal/errors"
	"github.com/jrsteele09/go-content-admin/upload"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)

func setupStorage(t *testing.T) *gatewayfake.FakeStorage {
	t.Helper()
	storage := gatewayfake.NewFakeStorage("")
	srv := httptest.NewServer(storage)
	t.Cleanup(srv.Close)
	storage.SetBaseURL(srv.URL)
	return storage
}

func fileOf(name string, data []byte) upload.File {
	return upload.File{Name: name, Size: int64(len(data)), Body: bytes.NewReader(data)}
}

func TestParseKind(t *testing.T) {
	kind, err := upload.ParseKind("Image")
	require.NoError(t, err)
	require.Equal(t, upload.KindImage, kind)

	_, err = upload.ParseKind("video")
	require.ErrorIs(t, err, apperrors.ErrUnknownKind)
}

func TestUploadImageIsPubliclyReadable(t *testing.T) {
	storage := setupStorage(t)
	u := upload.NewUploader(storage, upload.WithIDFunc(func() string { return "fixed-id" }))

	ref, err := u.Upload(context.Background(), upload.KindImage, fileOf("Banner.PNG", pngBytes))
	require.NoError(t, err)
	require.Equal(t, "images", ref.Bucket)
	require.Equal(t, "fixed-id.png", ref.Path)
	require.True(t, strings.HasSuffix(ref.URL, "/images/fixed-id.png"))

	resp, err := http.Get(ref.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, pngBytes, body)
}

func TestUploadFileGoesToFilesBucket(t *testing.T) {
	storage := setupStorage(t)
	u := upload.NewUploader(storage)

	ref, err := u.Upload(context.Background(), upload.KindFile, fileOf("notes.txt", []byte("agenda for the launch")))
	require.NoError(t, err)
	require.Equal(t, "files", ref.Bucket)
	require.True(t, strings.HasSuffix(ref.Path, ".txt"))

	data, ok := storage.Object(ref.Bucket, ref.Path)
	require.True(t, ok)
	require.Equal(t, "agenda for the launch", string(data))
}

func TestUploadRejectsBeforeNetworkCall(t *testing.T) {
	tests := []struct {
		name    string
		kind    upload.Kind
		file    upload.File
		wantErr error
	}{
		{
			name:    "oversized image",
			kind:    upload.KindImage,
			file:    upload.File{Name: "huge.png", Size: 5<<20 + 1, Body: bytes.NewReader(pngBytes)},
			wantErr: upload.ErrTooLarge,
		},
		{
			name:    "oversized file",
			kind:    upload.KindFile,
			file:    upload.File{Name: "huge.pdf", Size: 10<<20 + 1, Body: bytes.NewReader(nil)},
			wantErr: upload.ErrTooLarge,
		},
		{
			name:    "extension not allowed for images",
			kind:    upload.KindImage,
			file:    fileOf("report.pdf", []byte("%PDF-1.4")),
			wantErr: upload.ErrExtensionNotAllowed,
		},
		{
			name:    "executable",
			kind:    upload.KindFile,
			file:    fileOf("setup.exe", []byte("MZ")),
			wantErr: upload.ErrExtensionNotAllowed,
		},
		{
			name:    "empty",
			kind:    upload.KindFile,
			file:    fileOf("empty.txt", nil),
			wantErr: upload.ErrEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := setupStorage(t)
			u := upload.NewUploader(storage)

			require.ErrorIs(t, u.Validate(tt.kind, tt.file), tt.wantErr)
			_, err := u.Upload(context.Background(), tt.kind, tt.file)
			require.ErrorIs(t, err, tt.wantErr)
			require.Zero(t, storage.Uploads())
		})
	}
}

func TestUploadRejectsImageWithForeignContent(t *testing.T) {
	storage := setupStorage(t)
	u := upload.NewUploader(storage)

	_, err := u.Upload(context.Background(), upload.KindImage, fileOf("photo.jpg", []byte("plain text, not a jpeg")))
	require.ErrorIs(t, err, upload.ErrNotAnImage)
	require.Zero(t, storage.Uploads())
}

func TestWithMaxBytes(t *testing.T) {
	storage := setupStorage(t)
	u := upload.NewUploader(storage, upload.WithMaxBytes(upload.KindImage, 16))

	_, err := u.Upload(context.Background(), upload.KindImage, fileOf("banner.png", pngBytes))
	require.ErrorIs(t, err, upload.ErrTooLarge)

	p, err := u.Policy(upload.KindImage)
	require.NoError(t, err)
	require.Equal(t, "images", p.Bucket)
	require.EqualValues(t, 16, p.MaxBytes)
}

type observingReader struct {
	r       io.Reader
	u       *upload.Uploader
	sawFlag bool
}

func (o *observingReader) Read(p []byte) (int, error) {
	if o.u.Uploading() {
		o.sawFlag = true
	}
	return o.r.Read(p)
}

func TestUploadingFlag(t *testing.T) {
	storage := setupStorage(t)
	u := upload.NewUploader(storage)
	body := &observingReader{r: bytes.NewReader(pngBytes), u: u}

	require.False(t, u.Uploading())
	_, err := u.Upload(context.Background(), upload.KindImage, upload.File{Name: "a.png", Size: int64(len(pngBytes)), Body: body})
	require.NoError(t, err)
	require.True(t, body.sawFlag)
	require.False(t, u.Uploading())
}

func TestDiscard(t *testing.T) {
	storage := setupStorage(t)
	u := upload.NewUploader(storage)

	ref, err := u.Upload(context.Background(), upload.KindImage, fileOf("a.png", pngBytes))
	require.NoError(t, err)
	require.Equal(t, 1, storage.Len())

	require.NoError(t, u.Discard(context.Background(), ref))
	require.Zero(t, storage.Len())
	require.Error(t, u.Discard(context.Background(), ref))
}
