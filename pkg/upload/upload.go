package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

// ErrNotFound is returned when a spooled attachment does not exist.
var ErrNotFound = errors.New("upload: attachment not found")

// ErrTooLarge is returned when an attachment exceeds the size limit.
var ErrTooLarge = errors.New("upload: attachment too large")

// Store is a spool for attachments awaiting send.
type Store interface {
	// Save spools the attachment and returns its id.
	Save(ctx context.Context, filename, contentType string, size int64, r io.Reader) (string, error)

	// Claim retrieves and consumes a spooled attachment.
	Claim(ctx context.Context, id string) (*Attachment, error)

	// Cleanup removes spooled attachments older than maxAge.
	Cleanup(ctx context.Context, maxAge time.Duration) error
}

// Attachment is one spooled file.
type Attachment struct {
	// ID is the spool identifier.
	ID string

	// Filename is the original name from the client.
	Filename string

	// ContentType is the MIME type.
	ContentType string

	// Size is the byte length.
	Size int64

	// Path is the local path, when spooled on disk.
	Path string

	// URL is a fetchable location, when spooled remotely.
	URL string

	// Reader streams the contents. May be nil for disk spools; use
	// Path instead.
	Reader io.ReadCloser
}

// Close closes the attachment reader if open.
func (a *Attachment) Close() error {
	if a.Reader != nil {
		return a.Reader.Close()
	}
	return nil
}

// Config controls the upload handler.
type Config struct {
	// MaxSize is the largest accepted attachment. Default 10MB.
	MaxSize int64

	// Expiry is how long unclaimed attachments live. Default 1h.
	Expiry time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxSize: 10 << 20,
		Expiry:  time.Hour,
	}
}

// Handler accepts multipart attachment uploads and spools them. The
// response carries the id to reference in a message:
//
//	{"id": "abc123", "url": "..."}
func Handler(store Store, config *Config) http.Handler {
	if config == nil {
		config = DefaultConfig()
	}
	maxSize := config.MaxSize
	if maxSize <= 0 {
		maxSize = 10 << 20
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Cap the body before parsing.
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "Attachment too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "Bad multipart form", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "No file provided", http.StatusBadRequest)
			return
		}
		defer file.Close()

		id, err := store.Save(r.Context(),
			header.Filename,
			header.Header.Get("Content-Type"),
			header.Size,
			file,
		)
		if err != nil {
			if errors.Is(err, ErrTooLarge) {
				http.Error(w, "Attachment too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "Upload failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"id": id})
	})
}
