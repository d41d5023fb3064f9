package upload

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Disk spools attachments on the local filesystem. Metadata rides in
// a sidecar file so spools survive a restart.
type Disk struct {
	dir     string
	maxSize int64

	mu    sync.Mutex
	metas map[string]*diskMeta
}

type diskMeta struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewDisk creates a disk spool under dir. maxSize of 0 means no
// limit.
func NewDisk(dir string, maxSize int64) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Disk{
		dir:     dir,
		maxSize: maxSize,
		metas:   make(map[string]*diskMeta),
	}, nil
}

// Save implements Store.
func (d *Disk) Save(_ context.Context, filename, contentType string, size int64, r io.Reader) (string, error) {
	if d.maxSize > 0 && size > d.maxSize {
		return "", ErrTooLarge
	}

	id := newSpoolID()
	path := filepath.Join(d.dir, id)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader := r
	if d.maxSize > 0 {
		// One extra byte so an over-limit stream is detectable.
		reader = io.LimitReader(r, d.maxSize+1)
	}
	written, err := io.Copy(f, reader)
	if err != nil {
		os.Remove(path)
		return "", err
	}
	if d.maxSize > 0 && written > d.maxSize {
		os.Remove(path)
		return "", ErrTooLarge
	}

	meta := &diskMeta{
		Filename:    filename,
		ContentType: contentType,
		Size:        written,
		CreatedAt:   time.Now(),
	}
	d.mu.Lock()
	d.metas[id] = meta
	d.mu.Unlock()
	d.saveMeta(id, meta)

	return id, nil
}

// Claim implements Store. The spooled file is removed once the
// returned reader closes.
func (d *Disk) Claim(_ context.Context, id string) (*Attachment, error) {
	d.mu.Lock()
	meta, ok := d.metas[id]
	if ok {
		delete(d.metas, id)
	}
	d.mu.Unlock()

	if !ok {
		var err error
		meta, err = d.loadMeta(id)
		if err != nil {
			return nil, ErrNotFound
		}
	}

	path := filepath.Join(d.dir, id)
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrNotFound
	}
	return &Attachment{
		ID:          id,
		Filename:    meta.Filename,
		ContentType: meta.ContentType,
		Size:        meta.Size,
		Path:        path,
		Reader:      &removeOnClose{File: f, paths: []string{path, d.metaPath(id)}},
	}, nil
}

// Cleanup implements Store.
func (d *Disk) Cleanup(_ context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	d.mu.Lock()
	for id, meta := range d.metas {
		if meta.CreatedAt.Before(cutoff) {
			delete(d.metas, id)
			os.Remove(filepath.Join(d.dir, id))
			os.Remove(d.metaPath(id))
		}
	}
	d.mu.Unlock()

	// Sweep orphans left by a previous process.
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(d.dir, entry.Name()))
		}
	}
	return nil
}

func (d *Disk) metaPath(id string) string {
	return filepath.Join(d.dir, id+".meta")
}

func (d *Disk) saveMeta(id string, meta *diskMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(d.metaPath(id), data, 0o644)
}

func (d *Disk) loadMeta(id string) (*diskMeta, error) {
	data, err := os.ReadFile(d.metaPath(id))
	if err != nil {
		return nil, err
	}
	var meta diskMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func newSpoolID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// removeOnClose deletes the spool files when the reader closes.
type removeOnClose struct {
	*os.File
	paths []string
}

func (r *removeOnClose) Close() error {
	err := r.File.Close()
	for _, p := range r.paths {
		os.Remove(p)
	}
	return err
}
