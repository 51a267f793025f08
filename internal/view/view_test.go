package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/snapsync/internal/capture"
	"github.com/vbonduro/snapsync/internal/capture/testpattern"
	"github.com/vbonduro/snapsync/internal/domain"
	"github.com/vbonduro/snapsync/internal/syncclient"
)

type fakeClient struct {
	mu        sync.Mutex
	files     []domain.RemoteFileEntry
	stats     domain.StorageStats
	listErr   error
	failNames map[string]bool
	listCalls int
	uploaded  []string
}

func (c *fakeClient) UploadBatch(ctx context.Context, files []syncclient.UploadFile) syncclient.BatchResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	var res syncclient.BatchResult
	for _, f := range files {
		if c.failNames[f.Name] {
			res.Failed = append(res.Failed, syncclient.FileError{Name: f.Name, Err: errors.New("rejected")})
			continue
		}
		c.uploaded = append(c.uploaded, f.Name)
		c.files = append(c.files, domain.RemoteFileEntry{Name: f.Name, Size: 1})
		res.Uploaded = append(res.Uploaded, f.Name)
	}
	return res
}

func (c *fakeClient) List(ctx context.Context) ([]domain.RemoteFileEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listCalls++
	if c.listErr != nil {
		return nil, c.listErr
	}
	return append([]domain.RemoteFileEntry{}, c.files...), nil
}

func (c *fakeClient) Stats(ctx context.Context) (domain.StorageStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats, nil
}

func (c *fakeClient) Gallery(ctx context.Context) ([]domain.GalleryEntry, error) {
	return []domain.GalleryEntry{}, nil
}

func (c *fakeClient) DownloadLinkFor(name string) string { return "/dl/" + name }

func (c *fakeClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listCalls
}

type notice struct {
	level NoticeLevel
	msg   string
}

type recordingRenderer struct {
	mu      sync.Mutex
	files   [][]FileRow
	stats   []domain.StorageStats
	cameras []CameraSnapshot
	notices []notice
}

func (r *recordingRenderer) RenderFiles(_ Panel, files []FileRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, files)
}

func (r *recordingRenderer) RenderStats(s domain.StorageStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = append(r.stats, s)
}

func (r *recordingRenderer) RenderGallery([]domain.GalleryEntry) {}

func (r *recordingRenderer) RenderCamera(s CameraSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cameras = append(r.cameras, s)
}

func (r *recordingRenderer) Notify(level NoticeLevel, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice{level, msg})
}

func (r *recordingRenderer) errors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.notices {
		if x.level == NoticeError {
			n++
		}
	}
	return n
}

func (r *recordingRenderer) cameraRenders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cameras)
}

func (r *recordingRenderer) lastCamera() CameraSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cameras[len(r.cameras)-1]
}

func newCamera(t *testing.T, dev capture.Device) (*CameraView, *fakeClient, *recordingRenderer) {
	t.Helper()
	client := &fakeClient{failNames: map[string]bool{}}
	r := &recordingRenderer{}
	ctrl := capture.NewController(dev, nil, nil)
	return NewCameraView(ctrl, client, r, time.Hour, nil), client, r
}

func TestRefreshEmptyThenFailureKeepsList(t *testing.T) {
	cam, client, r := newCamera(t, testpattern.New(64, 48))
	ctx := context.Background()

	require.NoError(t, cam.Refresh(ctx))
	require.Len(t, r.files, 1)
	assert.Empty(t, r.files[0])

	client.files = []domain.RemoteFileEntry{{Name: "a.txt", Size: 10}}
	require.NoError(t, cam.Refresh(ctx))
	assert.Equal(t, []FileRow{{Name: "a.txt", Size: 10, Link: "/dl/a.txt"}}, r.files[1])

	client.listErr = errors.New("offline")
	require.Error(t, cam.Refresh(ctx))
	assert.Len(t, r.files, 2)
	assert.Equal(t, []domain.RemoteFileEntry{{Name: "a.txt", Size: 10}}, cam.Files())
	assert.Equal(t, 1, r.errors())
}

func TestUploadBatchRefreshesOnce(t *testing.T) {
	cam, client, r := newCamera(t, testpattern.New(64, 48))
	client.failNames["b.txt"] = true

	res := cam.UploadFiles(context.Background(), []syncclient.UploadFile{
		syncclient.FromBytes("a.txt", []byte("a")),
		syncclient.FromBytes("b.txt", []byte("b")),
		syncclient.FromBytes("c.txt", []byte("c")),
	})

	assert.Equal(t, []string{"a.txt", "c.txt"}, res.Uploaded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 1, client.calls())
	assert.Equal(t, 1, r.errors())
	assert.Len(t, cam.Files(), 2)
}

func TestEmptyBatchDoesNothing(t *testing.T) {
	cam, client, _ := newCamera(t, testpattern.New(64, 48))

	cam.UploadFiles(context.Background(), nil)
	assert.Zero(t, client.calls())
}

func TestDenialLeavesPlaceholder(t *testing.T) {
	dev := testpattern.New(64, 48)
	dev.Err = errors.New("permission denied")
	cam, _, r := newCamera(t, dev)

	err := cam.GrantAccess(context.Background())
	require.ErrorIs(t, err, capture.ErrUnavailable)

	snap := r.lastCamera()
	assert.Equal(t, capture.StateIdle, snap.State)
	assert.True(t, snap.PlaceholderVisible)
	assert.False(t, snap.PromptVisible)
	assert.False(t, cam.Capture())
	assert.Empty(t, cam.Photos())
	assert.Equal(t, 1, r.errors())
}

func TestCaptureDeleteKeepsOrder(t *testing.T) {
	cam, _, r := newCamera(t, testpattern.New(64, 48))
	require.NoError(t, cam.GrantAccess(context.Background()))

	for i := 0; i < 3; i++ {
		require.True(t, cam.Capture())
	}
	before := cam.Photos()
	require.Len(t, before, 3)

	require.True(t, cam.DeletePhoto(1))
	after := cam.Photos()
	require.Len(t, after, 2)
	assert.Equal(t, before[0].Payload, after[0].Payload)
	assert.Equal(t, before[2].Payload, after[1].Payload)
	assert.Equal(t, 0, after[0].Index)
	assert.Equal(t, 1, after[1].Index)

	assert.False(t, cam.DeletePhoto(7))
	assert.Len(t, r.lastCamera().Photos, 2)
}

func TestUploadPhoto(t *testing.T) {
	cam, client, _ := newCamera(t, testpattern.New(64, 48))
	require.NoError(t, cam.GrantAccess(context.Background()))
	require.True(t, cam.Capture())

	res, ok := cam.UploadPhoto(context.Background(), 0)
	require.True(t, ok)
	require.Len(t, res.Uploaded, 1)
	assert.Regexp(t, `^photo-\d+\.jpg$`, res.Uploaded[0])
	assert.Equal(t, 1, client.calls())

	_, ok = cam.UploadPhoto(context.Background(), 3)
	assert.False(t, ok)
}

func TestToggleCamera(t *testing.T) {
	dev := testpattern.New(64, 48)
	cam, _, _ := newCamera(t, dev)
	ctx := context.Background()

	require.NoError(t, cam.ToggleCamera(ctx))
	assert.Equal(t, capture.StateActive, cam.Snapshot().State)

	require.NoError(t, cam.ToggleCamera(ctx))
	assert.Equal(t, capture.StateIdle, cam.Snapshot().State)
	assert.True(t, dev.LastStream().Stopped())
}

func TestNavigatingAwayStopsCamera(t *testing.T) {
	dev := testpattern.New(64, 48)
	cam, client, r := newCamera(t, dev)
	explorer := NewExplorerView(client, r, time.Hour, nil)
	coord := NewCoordinator(NewHomePanel(r), cam, explorer, nil)
	ctx := context.Background()

	require.NoError(t, coord.Show(ctx, PanelCamera))
	assert.True(t, cam.Snapshot().PromptVisible)
	require.NoError(t, cam.GrantAccess(ctx))
	require.True(t, cam.Capture())
	renders := r.cameraRenders()

	require.NoError(t, coord.Show(ctx, PanelExplorer))
	assert.Equal(t, PanelExplorer, coord.Current())
	assert.True(t, dev.LastStream().Stopped())
	assert.Equal(t, capture.StateIdle, cam.Snapshot().State)
	assert.Empty(t, cam.Photos())
	assert.Equal(t, renders, r.cameraRenders())

	coord.Close()
	assert.Equal(t, Panel(""), coord.Current())
}

func TestNavigatingAwayCancelsPendingCameraRequest(t *testing.T) {
	dev := testpattern.New(64, 48)
	dev.Gate = make(chan struct{})
	cam, client, r := newCamera(t, dev)
	explorer := NewExplorerView(client, r, time.Hour, nil)
	coord := NewCoordinator(NewHomePanel(r), cam, explorer, nil)
	ctx := context.Background()
	require.NoError(t, coord.Show(ctx, PanelCamera))

	done := make(chan error, 1)
	go func() { done <- cam.GrantAccess(ctx) }()
	require.Eventually(t, func() bool {
		return cam.Snapshot().State == capture.StatePermissionRequested
	}, time.Second, time.Millisecond)

	require.NoError(t, coord.Show(ctx, PanelExplorer))
	renders := r.cameraRenders()
	close(dev.Gate)

	err := <-done
	assert.ErrorIs(t, err, capture.ErrRequestCancelled)
	assert.Equal(t, PanelExplorer, coord.Current())
	assert.Equal(t, capture.StateIdle, cam.Snapshot().State)
	assert.True(t, dev.LastStream().Stopped())
	assert.Equal(t, renders, r.cameraRenders())
	assert.Zero(t, r.errors())
	assert.False(t, cam.Capture())
}

func TestShowUnknownPanel(t *testing.T) {
	r := &recordingRenderer{}
	coord := NewCoordinator(NewHomePanel(r), NewHomePanel(r), NewHomePanel(r), nil)

	err := coord.Show(context.Background(), Panel("settings"))
	assert.ErrorIs(t, err, ErrUnknownPanel)
}

func TestExplorerRefreshListAndStats(t *testing.T) {
	client := &fakeClient{
		files: []domain.RemoteFileEntry{{Name: "a.txt", Size: 10}, {Name: "b.txt", Size: 20}},
		stats: domain.StorageStats{TotalFiles: 2, TotalSize: 30},
	}
	r := &recordingRenderer{}
	explorer := NewExplorerView(client, r, time.Hour, nil)

	require.NoError(t, explorer.Refresh(context.Background()))
	assert.Len(t, explorer.Files(), 2)
	assert.Equal(t, 2, explorer.Stats().TotalFiles)
	require.Len(t, r.stats, 1)

	client.listErr = errors.New("offline")
	require.Error(t, explorer.Refresh(context.Background()))
	assert.Len(t, explorer.Files(), 2)
	assert.Len(t, r.stats, 1)
}

func TestExplorerPollsWhileVisible(t *testing.T) {
	client := &fakeClient{}
	r := &recordingRenderer{}
	explorer := NewExplorerView(client, r, 5*time.Millisecond, nil)

	explorer.Activate(context.Background())
	assert.Eventually(t, func() bool { return client.calls() >= 2 }, time.Second, 5*time.Millisecond)
	explorer.Deactivate()

	after := client.calls()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, client.calls())
}
