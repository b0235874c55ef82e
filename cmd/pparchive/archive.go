package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pparchive/internal/archive"
)

var stageCmd = &cobra.Command{
	Use:   "stage PATH...",
	Short: "Recall files from tape and wait until they are on disk",
	Long:  `Recall files from tape and wait until they are on disk.

Paths may be globs. Polling runs until every file is resident unless
polling.max_attempts or polling.timeout bound it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return newMigrator().EnsurePathsOnDisk(cmd.Context(), args)
	},
}

// residency is the result of the resident command.
type residency struct {
	Files       map[string]bool `json:"files" yaml:"files"`
	AllResident bool            `json:"all_resident" yaml:"all_resident"`
}

func (r residency) WriteText(w io.Writer) error {
	for _, p := range archive.ResidencyMap(r.Files).Paths() {
		state := "tape"
		if r.Files[p] {
			state = "disk"
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", state, p); err != nil {
			return err
		}
	}
	return nil
}

var residentCmd = &cobra.Command{
	Use:   "resident PATH...",
	Short: "Report whether files are on disk",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := archive.NewQuery(newShell())
		m, err := q.Residency(cmd.Context(), args...)
		if err != nil {
			return err
		}
		all, err := q.AllResident(cmd.Context(), [][]string{args})
		if err != nil {
			return err
		}
		return formatter.Print(residency{Files: m, AllResident: all})
	},
}

var queueShow bool

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Check for pending tape recalls of the current user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.User == "" {
			return fmt.Errorf("no user configured")
		}
		lines, err := archive.NewQuery(newShell()).PendingMigrations(cmd.Context(), cfg.User)
		if err != nil {
			return err
		}
		if queueShow {
			return formatter.Print(lines)
		}
		return formatter.Print(len(lines) > 0)
	},
}

var mirrorCmd = &cobra.Command{
	Use:   "mirror PATH...",
	Short: "Copy files below the mirror prefix and print the copies",
	Long:  `Copy files below the mirror prefix, keeping their absolute paths, and
print the mirrored paths. All paths must share one directory. Files already
mirrored or being copied are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix, err := mirrorPrefix()
		if err != nil {
			return err
		}
		mirrored, err := newMirrorer().Mirror(cmd.Context(), args, prefix)
		if err != nil {
			return err
		}
		return formatter.Print(mirrored)
	},
}

func init() {
	queueCmd.Flags().BoolVar(&queueShow, "show", false, "print the matching queue lines")
}
