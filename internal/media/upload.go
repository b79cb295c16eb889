// AngelaMos | 2026
// upload.go

package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/repuestospro/backend/internal/core"
)

const (
	DefaultMaxBytes = 5 << 20
	multipartSlack  = 1 << 20
	FormField       = "image"
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var (
	ErrStorageDisabled = core.UnavailableError("image storage is not configured")
	ErrUnsupportedType = core.NewAppError(
		core.ErrInvalidInput,
		"only jpeg, png and webp images are accepted",
		http.StatusUnsupportedMediaType,
		"UNSUPPORTED_MEDIA_TYPE",
	)
	ErrEmptyFile = core.ValidationError("image file is empty")
)

func tooLarge(maxBytes int64) *core.AppError {
	return core.NewAppError(
		core.ErrInvalidInput,
		fmt.Sprintf("image exceeds %d bytes", maxBytes),
		http.StatusRequestEntityTooLarge,
		"FILE_TOO_LARGE",
	)
}

type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Uploader validates images and hands them to a Storage. A nil Uploader,
// or one without storage, rejects every upload with ErrStorageDisabled.
type Uploader struct {
	storage  Storage
	maxBytes int64
}

func NewUploader(storage Storage, maxBytes int64) *Uploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Uploader{storage: storage, maxBytes: maxBytes}
}

func (u *Uploader) Enabled() bool {
	return u != nil && u.storage != nil
}

// UploadImage stores the image under prefix/<uuid>.<ext>. The type is
// detected from the content, never from the client's header.
func (u *Uploader) UploadImage(ctx context.Context, prefix string, r io.Reader) (*Object, error) {
	if !u.Enabled() {
		return nil, ErrStorageDisabled
	}

	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > u.maxBytes {
		return nil, tooLarge(u.maxBytes)
	}

	contentType := mimetype.Detect(data).String()
	ext, ok := allowedTypes[contentType]
	if !ok {
		return nil, ErrUnsupportedType
	}

	key := prefix + "/" + uuid.New().String() + ext
	url, err := u.storage.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	return &Object{
		Key:         key,
		URL:         url,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// FromRequest reads the FormField file of a multipart request and uploads it.
func (u *Uploader) FromRequest(
	w http.ResponseWriter,
	r *http.Request,
	prefix string,
) (*Object, error) {
	if !u.Enabled() {
		return nil, ErrStorageDisabled
	}

	r.Body = http.MaxBytesReader(w, r.Body, u.maxBytes+multipartSlack)
	if err := r.ParseMultipartForm(u.maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, tooLarge(u.maxBytes)
		}
		return nil, core.ValidationError("expected a multipart form with an image field")
	}
	defer func() {
		//nolint:errcheck // temp file cleanup
		_ = r.MultipartForm.RemoveAll()
	}()

	file, _, err := r.FormFile(FormField)
	if err != nil {
		return nil, core.ValidationError("image field is required")
	}
	defer file.Close() //nolint:errcheck // read-only

	return u.UploadImage(r.Context(), prefix, file)
}

// RemoveURL deletes an object previously returned by UploadImage. URLs that
// do not belong to the bucket are ignored.
func (u *Uploader) RemoveURL(ctx context.Context, url string) error {
	if !u.Enabled() || url == "" {
		return nil
	}
	key, ok := u.storage.KeyFromURL(url)
	if !ok {
		return nil
	}
	return u.storage.Delete(ctx, key)
}
