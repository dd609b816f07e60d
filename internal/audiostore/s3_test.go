package audiostore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 — минимальный S3 API в path-style адресации.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(p, "/")
	if bucket != f.bucket {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket")
		return
	}

	switch {
	case r.Method == http.MethodHead && key == "":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && r.Header.Get("X-Amz-Copy-Source") != "":
		src, _ := url.PathUnescape(r.Header.Get("X-Amz-Copy-Source"))
		_, srcKey, _ := strings.Cut(strings.TrimPrefix(src, "/"), "/")
		data, ok := f.objects[srcKey]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		f.objects[key] = append([]byte(nil), data...)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><CopyObjectResult><ETag>"etag"</ETag></CopyObjectResult>`)
	case r.Method == http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = data
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Last-Modified", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat))
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(data)
	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>`+code+`</Code><Message>`+code+`</Message></Error>`)
}

func newTestS3Store(t *testing.T) (*S3Store, *fakeS3) {
	t.Helper()
	t.Setenv("AWS_CONFIG_FILE", "/dev/null")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/dev/null")

	fake := &fakeS3{bucket: "audio", objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewS3Store(context.Background(), S3Options{
		Endpoint:  srv.URL,
		Region:    "us-east-1",
		Bucket:    "audio",
		AccessKey: "test",
		SecretKey: "test",
		Prefix:    "records",
	}, testLogger())
	require.NoError(t, err)
	return s, fake
}

func TestS3StoreRoundTrip(t *testing.T) {
	s, fake := newTestS3Store(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a.wav", []byte("RIFF-data")))
	assert.Contains(t, fake.objects, "records/a.wav")

	obj, err := s.Open(ctx, "a.wav")
	require.NoError(t, err)
	assert.Equal(t, "RIFF-data", readAll(t, obj))
	assert.Equal(t, int64(9), obj.Size)
	assert.False(t, obj.ModTime.IsZero())

	require.NoError(t, s.Copy(ctx, "a.wav", "b.wav"))
	assert.Equal(t, []byte("RIFF-data"), fake.objects["records/b.wav"])

	require.NoError(t, s.Delete(ctx, "a.wav"))
	_, err = s.Open(ctx, "a.wav")
	assert.True(t, errors.Is(err, ErrNotFound), "Open(удалённый) = %v", err)

	err = s.Copy(ctx, "missing.wav", "c.wav")
	assert.ErrorIs(t, err, ErrNotFound)

	status, msg := s.CheckReady()
	assert.Equal(t, "ok", status, msg)
}

func TestS3StoreRejectsInvalidKeys(t *testing.T) {
	s, _ := newTestS3Store(t)
	err := s.Put(context.Background(), "../x.wav", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}
