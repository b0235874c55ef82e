package main

import (
	"errors"

	"github.com/spf13/cobra"

	"pparchive/internal/pathspec"
)

type specFlags struct {
	kind     string
	layout   string
	time     string
	suffixes []string
}

func (f *specFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.kind, "kind", "k", string(pathspec.Timeseries), "ts (time series) or av (time average)")
	cmd.Flags().StringVarP(&f.layout, "layout", "l", "", "layout below the kind directory, e.g. annual/5yr; empty uses the local layout")
	cmd.Flags().StringVarP(&f.time, "time", "t", "*", "time range glob, e.g. 2000-2004")
	cmd.Flags().StringSliceVarP(&f.suffixes, "suffix", "s", nil, "variable (ts) or averaging suffix (av); repeatable")
}

// spec builds the path spec for component, discovering the layout when
// none was given.
func (f *specFlags) spec(root, component string) (pathspec.Spec, error) {
	if len(f.suffixes) == 0 {
		return pathspec.Spec{}, errors.New("at least one --suffix is required")
	}
	kind, err := pathspec.ParseKind(f.kind)
	if err != nil {
		return pathspec.Spec{}, err
	}
	layout := f.layout
	if layout == "" {
		layout, err = newExplorer().LocalLayout(root, component, kind)
		if err != nil {
			return pathspec.Spec{}, err
		}
		logger.Debug("Using local layout %s", layout)
	}
	return pathspec.Spec{
		Root:      root,
		Component: component,
		Kind:      kind,
		Layout:    layout,
		Time:      f.time,
		Suffixes:  f.suffixes,
	}, nil
}

var (
	pathFlags  specFlags
	pathExpand bool
)

var pathCmd = &cobra.Command{
	Use:   "path COMPONENT",
	Short: "Print the path pattern of a time series or time average",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := requireRoot()
		if err != nil {
			return err
		}
		spec, err := pathFlags.spec(root, args[0])
		if err != nil {
			return err
		}
		if !pathExpand {
			return formatter.Print(spec.Patterns())
		}
		paths, err := spec.Expand()
		if err != nil {
			return err
		}
		return formatter.Print(paths)
	},
}

var staticCmd = &cobra.Command{
	Use:   "static COMPONENT",
	Short: "Print the path of a component's static file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := requireRoot()
		if err != nil {
			return err
		}
		return formatter.Print(pathspec.StaticPath(root, args[0]))
	},
}

func init() {
	pathFlags.register(pathCmd)
	pathCmd.Flags().BoolVarP(&pathExpand, "expand", "e", false, "list the matching files instead of the patterns")
}
