package audiostore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestFSStore(t *testing.T) *FSStore {
	t.Helper()
	s, err := NewFSStore(filepath.Join(t.TempDir(), "data"), testLogger())
	if err != nil {
		t.Fatalf("NewFSStore() ошибка: %v", err)
	}
	return s
}

func readAll(t *testing.T, obj *Object) string {
	t.Helper()
	defer obj.Close()
	data, err := io.ReadAll(obj.Content)
	if err != nil {
		t.Fatalf("чтение объекта: %v", err)
	}
	return string(data)
}

func TestFSStorePutOpen(t *testing.T) {
	s := newTestFSStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "a.wav", []byte("RIFF-data")); err != nil {
		t.Fatalf("Put() ошибка: %v", err)
	}

	obj, err := s.Open(ctx, "a.wav")
	if err != nil {
		t.Fatalf("Open() ошибка: %v", err)
	}
	if obj.Size != int64(len("RIFF-data")) {
		t.Errorf("Size = %d", obj.Size)
	}
	if got := readAll(t, obj); got != "RIFF-data" {
		t.Errorf("содержимое = %q", got)
	}

	// Временный файл не остаётся после записи.
	if _, err := os.Stat(filepath.Join(s.dataDir, "a.wav.tmp")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("временный файл остался: %v", err)
	}
}

func TestFSStoreCopyDelete(t *testing.T) {
	s := newTestFSStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "src.wav", []byte("audio")); err != nil {
		t.Fatalf("Put() ошибка: %v", err)
	}
	if err := s.Copy(ctx, "src.wav", "dst.wav"); err != nil {
		t.Fatalf("Copy() ошибка: %v", err)
	}
	obj, err := s.Open(ctx, "dst.wav")
	if err != nil {
		t.Fatalf("Open(dst) ошибка: %v", err)
	}
	if got := readAll(t, obj); got != "audio" {
		t.Errorf("копия = %q", got)
	}

	if err := s.Delete(ctx, "src.wav"); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if err := s.Delete(ctx, "src.wav"); err != nil {
		t.Errorf("повторный Delete() = %v, ожидали nil", err)
	}
	if _, err := s.Open(ctx, "src.wav"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open(удалённый) = %v, ожидали ErrNotFound", err)
	}
	if err := s.Copy(ctx, "missing.wav", "x.wav"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Copy(missing) = %v, ожидали ErrNotFound", err)
	}
}

func TestFSStoreRejectsInvalidKeys(t *testing.T) {
	s := newTestFSStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "..", "../etc/passwd", "a/b.wav", `a\b.wav`} {
		t.Run(key, func(t *testing.T) {
			if err := s.Put(ctx, key, []byte("x")); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("Put(%q) = %v, ожидали ErrInvalidKey", key, err)
			}
		})
	}
}

func TestFSStoreCheckReady(t *testing.T) {
	s := newTestFSStore(t)
	if status, msg := s.CheckReady(); status != "ok" {
		t.Errorf("CheckReady() = %s, %s", status, msg)
	}

	os.RemoveAll(s.dataDir)
	if status, _ := s.CheckReady(); status != "fail" {
		t.Errorf("CheckReady() без каталога = %s, ожидали fail", status)
	}
}

func TestNewKey(t *testing.T) {
	a, b := NewKey("wav"), NewKey(".wav")
	if a == b {
		t.Error("NewKey() вернул одинаковые ключи")
	}
	for _, k := range []string{a, b} {
		if !strings.HasSuffix(k, ".wav") || strings.Contains(k, "..") {
			t.Errorf("NewKey() = %q", k)
		}
		if err := validateKey(k); err != nil {
			t.Errorf("validateKey(%q) = %v", k, err)
		}
	}
}
