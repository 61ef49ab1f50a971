package downloader

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif" // decoded only so the format check can reject it
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	errs "inatscraper/pkg/errors"
	"inatscraper/pkg/inaturalist"
	"inatscraper/pkg/logger"
	"inatscraper/pkg/metrics"
	"inatscraper/pkg/storage"
)

// Photo result statuses
const (
	StatusSaved    = "saved"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

// Rejection and failure reasons
const (
	ReasonRequest     = "request"
	ReasonHTTPStatus  = "http_status"
	ReasonContentType = "content_type"
	ReasonTooLarge    = "too_large"
	ReasonDecode      = "decode"
	ReasonFormat      = "format"
	ReasonDimensions  = "dimensions"
	ReasonEncode      = "encode"
	ReasonSave        = "save"
)

const (
	// DefaultPhotoTimeout bounds a single photo GET
	DefaultPhotoTimeout = 30 * time.Second

	// DefaultMaxPhotoBytes caps the body read for a single photo
	DefaultMaxPhotoBytes = 50 << 20

	jpegQuality = 95
)

// PhotoResult is the outcome of one photo download. Path is set only when
// Status is StatusSaved.
type PhotoResult struct {
	Ref      inaturalist.PhotoReference
	Path     string
	Status   string
	Reason   string
	Err      error
	Duration time.Duration
}

// Saved reports whether the photo landed on disk
func (r PhotoResult) Saved() bool {
	return r.Status == StatusSaved
}

// PhotoStorage stores validated photo bytes
type PhotoStorage interface {
	SavePhoto(r io.Reader, folderKey, name string) (string, error)
}

// PhotoDownloader fetches one photo, validates it and writes it to disk.
// It never retries.
type PhotoDownloader struct {
	client    *http.Client
	storage   PhotoStorage
	userAgent string
	maxBytes  int64
	metrics   *metrics.Harvest
	logger    logger.Logger
}

// NewPhotoDownloader creates a downloader. A timeout of zero uses
// DefaultPhotoTimeout.
func NewPhotoDownloader(store PhotoStorage, timeout time.Duration, log logger.Logger) *PhotoDownloader {
	if timeout <= 0 {
		timeout = DefaultPhotoTimeout
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &PhotoDownloader{
		client:   &http.Client{Timeout: timeout},
		storage:  store,
		maxBytes: DefaultMaxPhotoBytes,
		logger:   log.WithField("component", "photo_downloader"),
	}
}

// SetUserAgent sets the User-Agent sent with photo requests
func (d *PhotoDownloader) SetUserAgent(ua string) {
	d.userAgent = ua
}

// SetMaxBytes sets the largest photo body accepted; n <= 0 restores the default
func (d *PhotoDownloader) SetMaxBytes(n int64) {
	if n <= 0 {
		n = DefaultMaxPhotoBytes
	}
	d.maxBytes = n
}

// SetMetrics attaches harvest metrics; nil disables them
func (d *PhotoDownloader) SetMetrics(m *metrics.Harvest) {
	d.metrics = m
}

// Fetch downloads url and saves it as photo_<index>.<format> in the
// folderKey directory. Every early exit is reported in the result.
func (d *PhotoDownloader) Fetch(ctx context.Context, url, folderKey string, index int) PhotoResult {
	start := time.Now()
	res := d.fetch(ctx, url, folderKey, index)
	res.Duration = time.Since(start)

	d.metrics.ObservePhoto(res.Status, res.Duration)
	var logErr error
	if res.Status == StatusFailed {
		logErr = res.Err
	}
	logger.LogPhoto(d.logger, folderKey, index, res.Status, res.Reason, logErr)
	return res
}

func (d *PhotoDownloader) fetch(ctx context.Context, url, folderKey string, index int) PhotoResult {
	res := PhotoResult{Ref: inaturalist.PhotoReference{URL: url, Index: index}}
	fail := func(status, reason string, err error) PhotoResult {
		res.Status, res.Reason, res.Err = status, reason, err
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fail(StatusFailed, ReasonRequest, errs.Network(err, "failed to create request: %v", err))
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fail(StatusFailed, ReasonRequest, errs.Network(err, "GET %s failed: %v", url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e := errs.New(errs.ErrorTypeNetwork, "GET %s returned %d", url, resp.StatusCode)
		e.Code = resp.StatusCode
		return fail(StatusFailed, ReasonHTTPStatus, e)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "image") {
		return fail(StatusRejected, ReasonContentType, errs.InvalidContent("content type %q is not an image", contentType))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return fail(StatusFailed, ReasonRequest, errs.Network(err, "failed to read photo body: %v", err))
	}
	if int64(len(data)) > d.maxBytes {
		return fail(StatusRejected, ReasonTooLarge, errs.InvalidContent("photo body exceeds %d bytes", d.maxBytes))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fail(StatusRejected, ReasonDecode, errs.InvalidContent("cannot decode image: %v", err))
	}
	if format != "jpeg" && format != "png" {
		return fail(StatusRejected, ReasonFormat, errs.InvalidContent("unsupported image format %q", format))
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return fail(StatusRejected, ReasonDimensions, errs.InvalidContent("image has zero dimension %dx%d", bounds.Dx(), bounds.Dy()))
	}

	if format == "jpeg" && !isRGBCompatible(img) {
		converted, err := toRGBJPEG(img)
		if err != nil {
			return fail(StatusFailed, ReasonEncode, fmt.Errorf("failed to convert jpeg to rgb: %w", err))
		}
		data = converted
	}

	path, err := d.storage.SavePhoto(bytes.NewReader(data), folderKey, storage.PhotoFileName(index, format))
	if err != nil {
		return fail(StatusFailed, ReasonSave, err)
	}

	res.Status = StatusSaved
	res.Path = path
	return res
}

// isRGBCompatible reports whether a decoded JPEG is already three-channel colour
func isRGBCompatible(img image.Image) bool {
	switch img.(type) {
	case *image.YCbCr, *image.RGBA, *image.NRGBA:
		return true
	default:
		return false
	}
}

// toRGBJPEG redraws img on an RGBA canvas and encodes it as a colour JPEG
func toRGBJPEG(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
