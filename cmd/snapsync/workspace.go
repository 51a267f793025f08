package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vbonduro/snapsync/internal/capture"
	"github.com/vbonduro/snapsync/internal/capture/imagedir"
	"github.com/vbonduro/snapsync/internal/capture/testpattern"
	"github.com/vbonduro/snapsync/internal/config"
	"github.com/vbonduro/snapsync/internal/syncclient"
	"github.com/vbonduro/snapsync/internal/view"
)

const workspaceHelp = `Panels:  home, camera, explorer
Camera:  grant, skip, toggle, capture, photos, delete N, export N, send N
Files:   upload PATH..., refresh, gallery
Other:   help, quit`

func newWorkspaceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Interactive capture and file explorer workspace",
		Args:  cobra.NoArgs,
		RunE:  runWorkspace,
	}
	addClientFlags(cmd)
	flags := cmd.Flags()
	flags.String(config.KeyCaptureDevice, "testpattern", "capture source: testpattern or dir:PATH")
	flags.Duration(config.KeyCameraPollInterval, 4*time.Second, "camera view refresh interval")
	flags.Duration(config.KeyExplorerPollInterval, 3*time.Second, "explorer view refresh interval")
	flags.String(config.KeyExportDir, ".", "directory exported photos are written to")
	return cmd
}

func runWorkspace(cmd *cobra.Command, _ []string) error {
	cfg, logger, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	client, err := newSyncClient(cfg)
	if err != nil {
		return err
	}
	device, err := newDevice(cfg.CaptureDevice)
	if err != nil {
		return err
	}

	ws := newWorkspace(cfg, device, client, cmd.OutOrStdout(), logger)
	defer ws.coordinator.Close()
	return ws.run(cmd.Context(), cmd.InOrStdin())
}

func newDevice(source string) (capture.Device, error) {
	switch {
	case source == "" || source == "testpattern":
		return testpattern.New(640, 480), nil
	case strings.HasPrefix(source, "dir:"):
		return imagedir.New(strings.TrimPrefix(source, "dir:")), nil
	default:
		return nil, fmt.Errorf("unknown capture device %q", source)
	}
}

type workspace struct {
	exportDir   string
	camera      *view.CameraView
	explorer    *view.ExplorerView
	coordinator *view.Coordinator
	renderer    *view.TextRenderer
}

func newWorkspace(cfg *config.Config, device capture.Device, client view.SyncClient, out io.Writer, logger *slog.Logger) *workspace {
	renderer := view.NewTextRenderer(out)
	controller := capture.NewController(device, nil, logger)
	camera := view.NewCameraView(controller, client, renderer, cfg.CameraPollInterval, logger)
	explorer := view.NewExplorerView(client, renderer, cfg.ExplorerPollInterval, logger)
	return &workspace{
		exportDir:   cfg.ExportDir,
		camera:      camera,
		explorer:    explorer,
		coordinator: view.NewCoordinator(view.NewHomePanel(renderer), camera, explorer, logger),
		renderer:    renderer,
	}
}

func (w *workspace) run(ctx context.Context, in io.Reader) error {
	if err := w.coordinator.Show(ctx, view.PanelHome); err != nil {
		return err
	}
	w.renderer.Notify(view.NoticeInfo, workspaceHelp)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := w.exec(ctx, line); quit {
				return nil
			}
		}
	}
}

// exec runs one command line and reports whether the workspace should exit.
// Handler errors are already surfaced through the renderer.
func (w *workspace) exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "home", "camera", "explorer":
		_ = w.coordinator.Show(ctx, view.Panel(cmd))
	case "grant":
		_ = w.camera.GrantAccess(ctx)
	case "skip":
		w.camera.SkipAccess()
	case "toggle":
		_ = w.camera.ToggleCamera(ctx)
	case "capture":
		if !w.camera.Capture() {
			w.renderer.Notify(view.NoticeInfo, "No frame available")
		}
	case "photos":
		w.renderer.RenderCamera(w.camera.Snapshot())
	case "delete":
		if i, ok := w.index(args); ok {
			w.camera.DeletePhoto(i)
		}
	case "export":
		if i, ok := w.index(args); ok {
			w.export(i)
		}
	case "send":
		if i, ok := w.index(args); ok {
			w.camera.UploadPhoto(ctx, i)
		}
	case "upload":
		files := make([]syncclient.UploadFile, len(args))
		for i, path := range args {
			files[i] = syncclient.FromPath(path)
		}
		if w.coordinator.Current() == view.PanelExplorer {
			w.explorer.UploadFiles(ctx, files)
		} else {
			w.camera.UploadFiles(ctx, files)
		}
	case "refresh":
		if w.coordinator.Current() == view.PanelExplorer {
			_ = w.explorer.Refresh(ctx)
		} else {
			_ = w.camera.Refresh(ctx)
		}
	case "gallery":
		_ = w.explorer.ShowGallery(ctx)
	case "help":
		w.renderer.Notify(view.NoticeInfo, workspaceHelp)
	case "quit", "exit":
		return true
	default:
		w.renderer.Notify(view.NoticeError, fmt.Sprintf("unknown command %q (type help)", cmd))
	}
	return false
}

// index parses a photo index argument. Invalid input is ignored like any
// other out-of-range index.
func (w *workspace) index(args []string) (int, bool) {
	if len(args) != 1 {
		return 0, false
	}
	i, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, false
	}
	return i, true
}

func (w *workspace) export(i int) {
	art, ok := w.camera.ExportPhoto(i)
	if !ok {
		return
	}
	path := filepath.Join(w.exportDir, art.Filename)
	if err := os.WriteFile(path, art.Data, 0o644); err != nil {
		w.renderer.Notify(view.NoticeError, fmt.Sprintf("Could not save %s: %v", art.Filename, err))
		return
	}
	w.renderer.Notify(view.NoticeInfo, fmt.Sprintf("Saved %s", path))
}
