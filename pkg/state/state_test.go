package state

import (
	"bytes"
	"errors"
	"testing"
)

func testStore(t *testing.T, s Store) {
	t.Helper()

	if _, err := s.Load("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(missing) = %v, want ErrNotFound", err)
	}

	if err := s.Save("engine", []byte(`{"stream":"abc"}`)); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := s.Load("engine")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !bytes.Equal(got, []byte(`{"stream":"abc"}`)) {
		t.Errorf("Load() = %q", got)
	}

	// Overwrite replaces the previous value.
	if err := s.Save("engine", []byte(`{"stream":"def"}`)); err != nil {
		t.Fatalf("Save() overwrite error: %v", err)
	}
	got, _ = s.Load("engine")
	if !bytes.Equal(got, []byte(`{"stream":"def"}`)) {
		t.Errorf("Load() after overwrite = %q", got)
	}

	if err := s.Delete("engine"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.Load("engine"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() after delete = %v, want ErrNotFound", err)
	}

	// Deleting a missing key is fine.
	if err := s.Delete("engine"); err != nil {
		t.Errorf("Delete(missing) = %v", err)
	}
}

func TestMemory(t *testing.T) {
	testStore(t, NewMemory())
}

func TestDisk(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, d)
}

func TestDiskSanitizesKeys(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Save("../escape/attempt", []byte("x")); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := d.Load("../escape/attempt")
	if err != nil || string(got) != "x" {
		t.Errorf("Load() = %q, %v", got, err)
	}
}

func TestBadger(t *testing.T) {
	b, err := OpenBadger(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	testStore(t, b)
}
