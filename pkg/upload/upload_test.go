package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func TestDiskSaveClaim(t *testing.T) {
	d, err := NewDisk(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	id, err := d.Save(ctx, "notes.txt", "text/plain", 5, strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	att, err := d.Claim(ctx, id)
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	if att.Filename != "notes.txt" || att.ContentType != "text/plain" || att.Size != 5 {
		t.Errorf("Claim() = %+v", att)
	}
	data, err := io.ReadAll(att.Reader)
	if err != nil || string(data) != "hello" {
		t.Errorf("contents = %q, %v", data, err)
	}
	att.Close()

	// Claimed spools are consumed.
	if _, err := os.Stat(att.Path); !os.IsNotExist(err) {
		t.Errorf("spool file still present after claim: %v", err)
	}
	if _, err := d.Claim(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Claim() = %v, want ErrNotFound", err)
	}
}

func TestDiskSizeLimit(t *testing.T) {
	d, err := NewDisk(t.TempDir(), 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Save(context.Background(), "big", "application/octet-stream", 5, strings.NewReader("hello")); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Save() = %v, want ErrTooLarge", err)
	}
	// Declared size can lie; the stream itself is also checked.
	if _, err := d.Save(context.Background(), "big", "application/octet-stream", 1, strings.NewReader("hello")); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Save() with lying size = %v, want ErrTooLarge", err)
	}
}

func TestDiskClaimSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	id, err := d.Save(context.Background(), "a.png", "image/png", 3, strings.NewReader("img"))
	if err != nil {
		t.Fatal(err)
	}

	// A fresh store on the same directory finds the sidecar.
	d2, err := NewDisk(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	att, err := d2.Claim(context.Background(), id)
	if err != nil {
		t.Fatalf("Claim() after restart: %v", err)
	}
	if att.Filename != "a.png" {
		t.Errorf("Filename = %q", att.Filename)
	}
	att.Close()
}

func TestDiskCleanup(t *testing.T) {
	d, err := NewDisk(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	id, err := d.Save(context.Background(), "old", "text/plain", 1, strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	d.metas[id].CreatedAt = time.Now().Add(-2 * time.Hour)

	if err := d.Cleanup(context.Background(), time.Hour); err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if _, err := d.Claim(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Claim() after cleanup = %v, want ErrNotFound", err)
	}
}

func multipartBody(t *testing.T, field, filename, contents string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(fw, contents)
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestHandler(t *testing.T) {
	d, err := NewDisk(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	h := Handler(d, nil)

	body, contentType := multipartBody(t, "file", "shot.png", "pngdata")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"id"`) {
		t.Errorf("body = %q, want id field", rr.Body.String())
	}
}

func TestHandlerRejectsWrongMethod(t *testing.T) {
	d, err := NewDisk(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/upload", nil)
	rr := httptest.NewRecorder()
	Handler(d, nil).ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestHandlerRejectsMissingFile(t *testing.T) {
	d, err := NewDisk(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	body, contentType := multipartBody(t, "wrong_field", "a.txt", "x")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	Handler(d, nil).ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rr.Code)
	}
}
