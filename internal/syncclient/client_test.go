package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/snapsync/internal/domain"
)

// fakeRemote is a minimal in-memory remote store.
type fakeRemote struct {
	mu      sync.Mutex
	files   map[string][]byte
	order   []string
	reject  map[string]bool
	listErr bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{files: map[string][]byte{}, reject: map[string]bool{}}
}

func (f *fakeRemote) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/storage/upload/{session}", func(w http.ResponseWriter, r *http.Request) {
		file, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "No file provided"})
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)

		f.mu.Lock()
		defer f.mu.Unlock()
		f.order = append(f.order, hdr.Filename)
		if f.reject[hdr.Filename] {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "disk full"})
			return
		}
		f.files[r.PathValue("session")+"/"+hdr.Filename] = data
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "filename": hdr.Filename})
	})
	mux.HandleFunc("GET /api/storage/list/{session}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.listErr {
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "listing failed"})
			return
		}
		files := []domain.RemoteFileEntry{}
		prefix := r.PathValue("session") + "/"
		for k, v := range f.files {
			if len(k) > len(prefix) && k[:len(prefix)] == prefix {
				files = append(files, domain.RemoteFileEntry{Name: k[len(prefix):], Size: int64(len(v))})
			}
		}
		sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
		_ = json.NewEncoder(w).Encode(map[string]any{"files": files})
	})
	mux.HandleFunc("GET /api/storage/stats/{session}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.StorageStats{TotalFiles: 2, TotalSize: 30, TotalSizeMB: 0})
	})
	mux.HandleFunc("GET /api/gallery/{session}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"gallery": []domain.GalleryEntry{
			{Name: "a.jpg", Type: domain.MediaImage, Path: "/api/storage/download/s/a.jpg", Size: 3},
		}})
	})
	return mux
}

func newTestClient(t *testing.T, remote *fakeRemote) *Client {
	t.Helper()
	server := httptest.NewServer(remote.handler())
	t.Cleanup(server.Close)
	return New(server.URL, "S")
}

func TestUploadThenList(t *testing.T) {
	remote := newFakeRemote()
	c := newTestClient(t, remote)
	ctx := context.Background()

	res := c.UploadBatch(ctx, []UploadFile{
		FromBytes("a.txt", make([]byte, 10)),
		FromBytes("b.txt", make([]byte, 20)),
	})
	require.Empty(t, res.Failed)
	assert.Equal(t, []string{"a.txt", "b.txt"}, res.Uploaded)

	files, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.RemoteFileEntry{{Name: "a.txt", Size: 10}, {Name: "b.txt", Size: 20}}, files)
}

func TestUploadBatchContinuesPastFailure(t *testing.T) {
	remote := newFakeRemote()
	remote.reject["two.txt"] = true
	c := newTestClient(t, remote)

	res := c.UploadBatch(context.Background(), []UploadFile{
		FromBytes("one.txt", []byte("1")),
		FromBytes("two.txt", []byte("2")),
		FromBytes("three.txt", []byte("3")),
	})

	assert.Equal(t, []string{"one.txt", "three.txt"}, res.Uploaded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "two.txt", res.Failed[0].Name)

	var remoteErr *RemoteError
	require.True(t, errors.As(res.Failed[0].Err, &remoteErr))
	assert.Equal(t, http.StatusInternalServerError, remoteErr.StatusCode)
	assert.Equal(t, "disk full", remoteErr.Message)

	// Sequential: the server saw them in submission order.
	assert.Equal(t, []string{"one.txt", "two.txt", "three.txt"}, remote.order)
}

func TestUploadBatchRecordsOpenFailure(t *testing.T) {
	c := newTestClient(t, newFakeRemote())
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	require.NoError(t, os.WriteFile(good, []byte("ok"), 0o600))

	res := c.UploadBatch(context.Background(), []UploadFile{
		FromPath(filepath.Join(dir, "missing.txt")),
		FromPath(good),
	})

	assert.Equal(t, []string{"good.txt"}, res.Uploaded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "missing.txt", res.Failed[0].Name)
}

func TestListEmpty(t *testing.T) {
	c := newTestClient(t, newFakeRemote())

	files, err := c.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestListErrorField(t *testing.T) {
	remote := newFakeRemote()
	remote.listErr = true
	c := newTestClient(t, remote)

	_, err := c.List(context.Background())
	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "list", remoteErr.Op)
	assert.Equal(t, "listing failed", remoteErr.Message)
}

func TestStatsAndGallery(t *testing.T) {
	c := newTestClient(t, newFakeRemote())
	ctx := context.Background()

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, int64(30), stats.TotalSize)

	gallery, err := c.Gallery(ctx)
	require.NoError(t, err)
	require.Len(t, gallery, 1)
	assert.Equal(t, domain.MediaImage, gallery[0].Type)
}

func TestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := New(url, "S").List(context.Background())
	require.Error(t, err)
	var remoteErr *RemoteError
	assert.False(t, errors.As(err, &remoteErr))
}

func TestNonJSONErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL, "S").Stats(context.Background())
	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusBadGateway, remoteErr.StatusCode)
}

func TestUploadNotAcknowledged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer server.Close()

	err := New(server.URL, "S").Upload(context.Background(), "a.txt", strings.NewReader("a"))
	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "upload", remoteErr.Op)
	assert.Equal(t, http.StatusOK, remoteErr.StatusCode)
}

func TestLinkConstruction(t *testing.T) {
	c := New("http://example.test/", "abc-123")

	assert.Equal(t, "http://example.test/api/storage/upload/abc-123", c.UploadEndpointFor())
	assert.Equal(t, "http://example.test/api/storage/download/abc-123/my%20photo.jpg", c.DownloadLinkFor("my photo.jpg"))
	assert.Equal(t, "http://example.test/api/storage/download/abc-123/a%2Fb.txt", c.DownloadLinkFor("a/b.txt"))
}
