package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/fr0stylo/venuecal/internal/app/ports"
	"github.com/fr0stylo/venuecal/internal/observability"
)

// MaxImageBytes is the ceiling for both declared and actual image size.
const MaxImageBytes = 10 << 20

// ImageErrorKind classifies image rejections for transport-specific mapping.
type ImageErrorKind string

const (
	// ImageErrorInvalidURL indicates an unparseable or non-http(s) URL.
	ImageErrorInvalidURL ImageErrorKind = "invalid_url"
	// ImageErrorBadStatus indicates a non-success response status.
	ImageErrorBadStatus ImageErrorKind = "bad_status"
	// ImageErrorNotImage indicates the response does not declare an image type.
	ImageErrorNotImage ImageErrorKind = "not_image"
	// ImageErrorTooLarge indicates the declared or actual size exceeds the ceiling.
	ImageErrorTooLarge ImageErrorKind = "too_large"
	// ImageErrorTimeout indicates the fetch ran past its deadline.
	ImageErrorTimeout ImageErrorKind = "timeout"
	// ImageErrorFetchFailed indicates any other transport failure.
	ImageErrorFetchFailed ImageErrorKind = "fetch_failed"
	// ImageErrorUnknown is used when the error is nil or not an image rejection.
	ImageErrorUnknown ImageErrorKind = "unknown"
)

// ImageError is a single image rejection reason.
type ImageError struct {
	Kind ImageErrorKind
	URL  string
	Err  error
}

func (e *ImageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("image %s: %s", e.Kind, e.URL)
	}
	return fmt.Sprintf("image %s: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// ClassifyImageError returns the rejection kind carried by err.
func ClassifyImageError(err error) ImageErrorKind {
	var imgErr *ImageError
	if errors.As(err, &imgErr) {
		return imgErr.Kind
	}
	return ImageErrorUnknown
}

// Image is a downloaded image ready for upload.
type Image struct {
	Data        []byte
	ContentType string
	Filename    string
	SourceURL   string
}

// RemoteImageFetcher downloads a remote image.
type RemoteImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (Image, error)
}

// ImageFetcher downloads images with fixed size and time limits.
type ImageFetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// NewImageFetcher builds a fetcher with a traced transport.
func NewImageFetcher(timeout time.Duration) *ImageFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &ImageFetcher{
		client:   newTracedClient(),
		timeout:  timeout,
		maxBytes: MaxImageBytes,
	}
}

// Fetch validates and downloads one image. Checks run in a fixed order and
// the first failure is returned as an *ImageError.
func (f *ImageFetcher) Fetch(ctx context.Context, rawURL string) (Image, error) {
	target, err := parseHTTPURL(rawURL)
	if err != nil {
		return Image{}, &ImageError{Kind: ImageErrorInvalidURL, URL: rawURL, Err: err}
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return Image{}, &ImageError{Kind: ImageErrorInvalidURL, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return Image{}, transportError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Image{}, &ImageError{Kind: ImageErrorBadStatus, URL: rawURL, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	contentType, ok := imageContentType(resp.Header.Get("Content-Type"))
	if !ok {
		return Image{}, &ImageError{Kind: ImageErrorNotImage, URL: rawURL, Err: fmt.Errorf("content type %q", resp.Header.Get("Content-Type"))}
	}
	if resp.ContentLength > f.maxBytes {
		return Image{}, &ImageError{Kind: ImageErrorTooLarge, URL: rawURL, Err: fmt.Errorf("declared %d bytes", resp.ContentLength)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return Image{}, transportError(rawURL, err)
	}
	if int64(len(data)) > f.maxBytes {
		return Image{}, &ImageError{Kind: ImageErrorTooLarge, URL: rawURL, Err: fmt.Errorf("body exceeds %d bytes", f.maxBytes)}
	}

	return Image{
		Data:        data,
		ContentType: contentType,
		Filename:    SafeFilename(target.Path, contentType),
		SourceURL:   target.String(),
	}, nil
}

func transportError(rawURL string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ImageError{Kind: ImageErrorTimeout, URL: rawURL, Err: err}
	}
	return &ImageError{Kind: ImageErrorFetchFailed, URL: rawURL, Err: err}
}

func imageContentType(header string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return "", false
	}
	mediaType = strings.ToLower(mediaType)
	return mediaType, strings.HasPrefix(mediaType, "image/")
}

var imageExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/avif":    ".avif",
	"image/svg+xml": ".svg",
}

const maxFilenameLen = 100

// SafeFilename reduces a URL path basename to [A-Za-z0-9._-]. When nothing
// usable remains it falls back to "image" plus an extension for contentType.
func SafeFilename(urlPath, contentType string) string {
	base := path.Base("/" + strings.TrimSpace(urlPath))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	name := strings.TrimLeft(b.String(), ".")
	if len(name) > maxFilenameLen {
		name = name[len(name)-maxFilenameLen:]
	}
	ext := extensionFor(contentType)
	if strings.Trim(name, "._-") == "" {
		return "image" + ext
	}
	if path.Ext(name) == "" {
		name += ext
	}
	return name
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	if ext, ok := imageExtensions[strings.ToLower(mediaType)]; ok {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// ImageImporter copies a remote image into local storage.
type ImageImporter struct {
	fetcher  RemoteImageFetcher
	uploader ports.ImageUploader
}

// NewImageImporter builds an importer from a fetcher and an uploader.
func NewImageImporter(fetcher RemoteImageFetcher, uploader ports.ImageUploader) *ImageImporter {
	return &ImageImporter{fetcher: fetcher, uploader: uploader}
}

// Import downloads rawURL and returns the uploaded reference.
func (i *ImageImporter) Import(ctx context.Context, rawURL string) (string, error) {
	ctx, span := observability.StartIngestSpan(ctx, "image", rawURL)
	defer span.End()

	img, err := i.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	ref, err := i.uploader.Upload(ctx, img.Data, img.Filename, img.ContentType)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("upload image: %w", err)
	}
	return ref, nil
}
