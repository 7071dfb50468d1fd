package s3

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if _, ok := f.objects[r.URL.Path]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3(t *testing.T) (ItfS3, *fakeStore, string) {
	t.Helper()

	store := &fakeStore{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(store)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		Region:          "ap-southeast-1",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		BucketName:      "voice-archive",
		Endpoint:        srv.URL,
	})
	require.NoError(t, err)

	return client, store, srv.URL
}

func TestUploadBytesPresignAndDelete(t *testing.T) {
	client, store, endpoint := newTestS3(t)
	ctx := context.Background()

	location, err := client.UploadBytes(ctx, "voice-failures/run-1.wav", []byte("RIFF"), "audio/wav")
	require.NoError(t, err)
	assert.Contains(t, location, endpoint+"/voice-archive/voice-failures/run-1.wav")
	assert.Equal(t, []byte("RIFF"), store.objects["/voice-archive/voice-failures/run-1.wav"])
	assert.Equal(t, "audio/wav", store.types["/voice-archive/voice-failures/run-1.wav"])

	signed, err := client.PresignUrl(ctx, location)
	require.NoError(t, err)
	assert.Contains(t, signed, "/voice-archive/voice-failures/run-1.wav")
	assert.Contains(t, signed, "X-Amz-Signature=")

	require.NoError(t, client.DeleteFile(ctx, "voice-failures/run-1.wav"))
	_, err = client.PresignUrl(ctx, location)
	require.Error(t, err)
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(Config{Region: "ap-southeast-1"})
	require.Error(t, err)
}
