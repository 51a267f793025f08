package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/snapsync/internal/capture/testpattern"
	"github.com/vbonduro/snapsync/internal/config"
	"github.com/vbonduro/snapsync/internal/db"
	"github.com/vbonduro/snapsync/internal/filestore/local"
	"github.com/vbonduro/snapsync/internal/service"
	"github.com/vbonduro/snapsync/internal/store"
	"github.com/vbonduro/snapsync/internal/syncclient"
	"github.com/vbonduro/snapsync/internal/web"
)

func newTestRemote(t *testing.T) *httptest.Server {
	t.Helper()
	database, err := db.OpenForTesting()
	require.NoError(t, err)
	files, err := local.New(t.TempDir())
	require.NoError(t, err)
	svc := service.NewStorageService(store.NewSessionStore(database), store.NewUploadStore(database), files, slog.Default())
	srv := httptest.NewServer(web.NewServer(svc, slog.Default()))
	t.Cleanup(func() {
		srv.Close()
		_ = database.Close()
	})
	return srv
}

func TestWorkspaceCaptureExportAndSend(t *testing.T) {
	srv := newTestRemote(t)
	exportDir := t.TempDir()
	cfg := &config.Config{
		CameraPollInterval:   time.Hour,
		ExplorerPollInterval: time.Hour,
		ExportDir:            exportDir,
	}
	client := syncclient.New(srv.URL, "S")

	var out bytes.Buffer
	ws := newWorkspace(cfg, testpattern.New(64, 48), client, &out, slog.Default())
	script := strings.Join([]string{
		"camera",
		"grant",
		"capture",
		"capture",
		"capture",
		"delete 1",
		"delete 9",
		"export 0",
		"send 1",
		"bogus",
		"quit",
	}, "\n")

	require.NoError(t, ws.run(context.Background(), strings.NewReader(script)))
	ws.coordinator.Close()

	assert.Len(t, ws.camera.Photos(), 0)

	exported, err := filepath.Glob(filepath.Join(exportDir, "photo-*.jpg"))
	require.NoError(t, err)
	require.Len(t, exported, 1)
	data, err := os.ReadFile(exported[0])
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, data[:2])

	files, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, strings.HasPrefix(files[0].Name, "photo-"))

	assert.Contains(t, out.String(), `unknown command "bogus"`)
}

func TestWorkspaceExplorerUpload(t *testing.T) {
	srv := newTestRemote(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, bytes.Repeat([]byte("a"), 10), 0o600))
	require.NoError(t, os.WriteFile(b, bytes.Repeat([]byte("b"), 20), 0o600))

	cfg := &config.Config{CameraPollInterval: time.Hour, ExplorerPollInterval: time.Hour, ExportDir: dir}
	client := syncclient.New(srv.URL, "S")
	var out bytes.Buffer
	ws := newWorkspace(cfg, testpattern.New(64, 48), client, &out, slog.Default())

	script := "explorer\nupload " + a + " " + b + "\nquit\n"
	require.NoError(t, ws.run(context.Background(), strings.NewReader(script)))
	ws.coordinator.Close()

	files, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, int64(10), files[0].Size)
	assert.Equal(t, int64(20), files[1].Size)

	stats, err := client.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Contains(t, out.String(), "Uploaded 2 file(s)")
}

func TestNewDevice(t *testing.T) {
	_, err := newDevice("testpattern")
	assert.NoError(t, err)
	_, err = newDevice("dir:/tmp")
	assert.NoError(t, err)
	_, err = newDevice("webcam")
	assert.Error(t, err)
}
