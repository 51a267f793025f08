package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vbonduro/snapsync/internal/config"
	"github.com/vbonduro/snapsync/internal/domain"
	"github.com/vbonduro/snapsync/internal/syncclient"
)

func newUploadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload files to the session, one at a time",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runUpload,
	}
	addClientFlags(cmd)
	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, _, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	client, err := newSyncClient(cfg)
	if err != nil {
		return err
	}

	files := make([]syncclient.UploadFile, len(args))
	for i, path := range args {
		files[i] = syncclient.FromPath(path)
	}
	res := client.UploadBatch(cmd.Context(), files)

	out := cmd.OutOrStdout()
	for _, name := range res.Uploaded {
		fmt.Fprintf(out, "uploaded %s\n", name)
	}
	for _, f := range res.Failed {
		fmt.Fprintf(out, "failed   %s: %v\n", f.Name, f.Err)
	}
	if len(res.Failed) > 0 {
		return fmt.Errorf("%d of %d uploads failed", len(res.Failed), len(files))
	}
	return nil
}

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List the session's remote files with storage totals",
		Args:    cobra.NoArgs,
		RunE:    runList,
	}
	addClientFlags(cmd)
	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, _, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	client, err := newSyncClient(cfg)
	if err != nil {
		return err
	}
	files, err := client.List(cmd.Context())
	if err != nil {
		return err
	}
	stats, err := client.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintln(out, "No files yet")
	}
	for _, f := range files {
		fmt.Fprintf(out, "%-40s %10s\n", f.Name, humanize.Bytes(uint64(f.Size)))
	}
	fmt.Fprintf(out, "%d files, %s\n", stats.TotalFiles, humanize.Bytes(uint64(stats.TotalSize)))
	return nil
}

func newSyncClient(cfg *config.Config) (*syncclient.Client, error) {
	session := domain.Session(cfg.Session)
	if cfg.Session == "" {
		return nil, fmt.Errorf("--%s is required", config.KeySession)
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}
	return syncclient.New(cfg.ServerURL, session), nil
}
