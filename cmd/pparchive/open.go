package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pparchive/internal/dataset"
)

// summary describes an opened dataset.
type summary struct {
	Files      []string               `json:"files" yaml:"files"`
	Variables  []string               `json:"variables" yaml:"variables"`
	Calendar   string                 `json:"calendar,omitempty" yaml:"calendar,omitempty"`
	Steps      int                    `json:"time_steps" yaml:"time_steps"`
	Start      string                 `json:"start,omitempty" yaml:"start,omitempty"`
	End        string                 `json:"end,omitempty" yaml:"end,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

func summarize(ds *dataset.Dataset) summary {
	s := summary{
		Files:      ds.Paths,
		Variables:  ds.Variables,
		Calendar:   string(ds.Calendar),
		Steps:      len(ds.RawTime),
		Attributes: ds.Attributes,
	}
	if n := len(ds.Time); n > 0 {
		s.Start = ds.Time[0].String()
		s.End = ds.Time[n-1].String()
	}
	return s
}

func (s summary) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "files:      %d\n", len(s.Files))
	for _, f := range s.Files {
		fmt.Fprintf(w, "  %s\n", f)
	}
	fmt.Fprintf(w, "variables:  %v\n", s.Variables)
	fmt.Fprintf(w, "time steps: %d\n", s.Steps)
	if s.Start != "" {
		fmt.Fprintf(w, "time range: %s to %s (%s)\n", s.Start, s.End, s.Calendar)
	}
	_, err := fmt.Fprintf(w, "attributes: %d\n", len(s.Attributes))
	return err
}

var (
	openFlags     specFlags
	openMigrate   bool
	openMirror    bool
	openRawTimes  bool
	openTimeVar   string
	openVariables []string
	openStatic    bool
)

var openCmd = &cobra.Command{
	Use:   "open COMPONENT",
	Short: "Open a time series or time average as one dataset and summarize it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := requireRoot()
		if err != nil {
			return err
		}

		var mode dataset.Mode
		var prefix string
		if openMigrate {
			mode |= dataset.Migrate
		}
		if openMirror {
			mode |= dataset.Mirror
			if prefix, err = mirrorPrefix(); err != nil {
				return err
			}
		}
		opener := dataset.NewOpener(dataset.NewNetCDF(), newMigrator(), newMirrorer(), prefix)

		var ds *dataset.Dataset
		if openStatic {
			ds, err = opener.OpenStatic(root, args[0])
		} else {
			spec, specErr := openFlags.spec(root, args[0])
			if specErr != nil {
				return specErr
			}
			ds, err = opener.Open(cmd.Context(), spec, mode, dataset.Options{
				DecodeTimes:  !openRawTimes,
				TimeVariable: openTimeVar,
				Variables:    openVariables,
			})
		}
		if err != nil {
			return err
		}
		defer ds.Close()
		return formatter.Print(summarize(ds))
	},
}

func init() {
	openFlags.register(openCmd)
	openCmd.Flags().BoolVar(&openMigrate, "migrate", false, "recall the files from tape before opening")
	openCmd.Flags().BoolVar(&openMirror, "mirror", false, "open copies below the mirror prefix")
	openCmd.Flags().BoolVar(&openRawTimes, "raw-times", false, "do not decode the time coordinate")
	openCmd.Flags().StringVar(&openTimeVar, "time-var", "time", "name of the time coordinate")
	openCmd.Flags().StringSliceVar(&openVariables, "var", nil, "restrict to these variables")
	openCmd.Flags().BoolVar(&openStatic, "static", false, "open the component's static file instead")
}
