package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"pparchive/internal/archive"
	"pparchive/internal/fs"
	"pparchive/internal/stage"
)

var (
	mountStageOnOpen bool
	mountAllowOther  bool
)

var mountCmd = &cobra.Command{
	Use:   "mount MOUNTPOINT",
	Short: "Mount the catalog read-only as /<component>/<variable>/<file>",
	Long:  `Mount the catalog read-only as /<component>/<variable>/<file>.

Files carry the extended attributes user.pparchive.source (archive path)
and user.pparchive.resident (true when on disk). With --stage-on-open,
opening a file recalls it from tape first. The mount stays up until
interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := requireRoot()
		if err != nil {
			return err
		}
		mountPoint := filepath.Clean(args[0])

		query := archive.NewQuery(newShell())
		opts := []fs.Option{fs.WithResidency(query)}
		if mountStageOnOpen {
			opts = append(opts, fs.WithStageOnOpen(stage.NewMigrator(query, cfg.Policy())))
		}
		if mountAllowOther {
			opts = append(opts, fs.WithAllowOther())
		}

		logger.Info("Creating catalog filesystem...")
		cfs, err := fs.NewCatalogFS(filepath.Clean(root), newExplorer(), opts...)
		if err != nil {
			return err
		}

		logger.Info("Mounting filesystem...")
		if err := cfs.Mount(mountPoint); err != nil {
			return err
		}
		logger.Info("Filesystem mounted and ready")

		go func() {
			<-cmd.Context().Done()
			logger.Info("Received signal, unmounting")
			if err := cfs.Unmount(mountPoint); err != nil {
				logger.Error("Unmount error: %v", err)
			}
		}()

		err = cfs.Wait()
		logger.Info("Clean shutdown complete")
		return err
	},
}

func init() {
	mountCmd.Flags().BoolVar(&mountStageOnOpen, "stage-on-open", false, "recall files from tape when they are opened")
	mountCmd.Flags().BoolVar(&mountAllowOther, "allow-other", false, "allow other users to access the mount")
}
