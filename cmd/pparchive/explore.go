package main

import (
	"errors"

	"github.com/spf13/cobra"

	"pparchive/internal/catalog"
	"pparchive/internal/pathspec"
)

var (
	componentsInterp bool
	componentsNative bool
)

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List the components of the postprocessing root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if componentsInterp && componentsNative {
			return errors.New("--interp and --native are mutually exclusive")
		}
		root, err := requireRoot()
		if err != nil {
			return err
		}
		explorer := newExplorer()
		names, err := explorer.Components(root)
		if err != nil {
			return err
		}
		if !componentsInterp && !componentsNative {
			return formatter.Print(names)
		}
		selected := []string{}
		for _, name := range names {
			if explorer.IsInterpolated(name) == componentsInterp {
				selected = append(selected, name)
			}
		}
		return formatter.Print(selected)
	},
}

var layoutKind string

var layoutCmd = &cobra.Command{
	Use:   "layout COMPONENT",
	Short: "Print the first layout found below a component's kind directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := requireRoot()
		if err != nil {
			return err
		}
		kind, err := pathspec.ParseKind(layoutKind)
		if err != nil {
			return err
		}
		layout, err := newExplorer().LocalLayout(root, args[0], kind)
		if err != nil {
			return err
		}
		return formatter.Print(layout)
	},
}

var frequencyCmd = &cobra.Command{
	Use:   "frequency COMPONENT",
	Short: "Print the time frequency of a component's time series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := requireRoot()
		if err != nil {
			return err
		}
		freq, err := newExplorer().TimeFrequency(root, args[0])
		if err != nil {
			return err
		}
		return formatter.Print(freq)
	},
}

var varsCmd = &cobra.Command{
	Use:   "vars COMPONENT",
	Short: "List the time-series variables of a component",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := requireRoot()
		if err != nil {
			return err
		}
		vars, ok, err := newExplorer().Variables(root, args[0])
		if err != nil {
			return err
		}
		if !ok {
			logger.Info("%s has no time series", args[0])
		}
		return formatter.Print(vars)
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print every component with its time-series variables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := requireRoot()
		if err != nil {
			return err
		}
		cat, err := newExplorer().Catalog(root)
		if err != nil {
			return err
		}
		return formatter.Print(map[string][]string(cat))
	},
}

var findFilter catalog.Filter

var findCmd = &cobra.Command{
	Use:   "find VARIABLE",
	Short: "List the components that provide a variable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := requireRoot()
		if err != nil {
			return err
		}
		e := newExplorer()
		if len(findFilter.Require) == 0 && len(findFilter.Ignore) == 0 && !findFilter.Unique {
			found, err := e.FindComponents(root, args[0])
			if err != nil {
				return err
			}
			return formatter.Print(found)
		}
		found, err := e.FindUnique(root, args[0], findFilter)
		if err != nil {
			return err
		}
		return formatter.Print(found)
	},
}

func init() {
	componentsCmd.Flags().BoolVar(&componentsInterp, "interp", false, "only components interpolated onto a regular grid")
	componentsCmd.Flags().BoolVar(&componentsNative, "native", false, "only components on the native model grid")

	layoutCmd.Flags().StringVarP(&layoutKind, "kind", "k", string(pathspec.Timeseries), "ts or av")

	findCmd.Flags().StringSliceVar(&findFilter.Require, "require", nil, "keep components containing every substring")
	findCmd.Flags().StringSliceVar(&findFilter.Ignore, "ignore", nil, "drop components containing any substring")
	findCmd.Flags().BoolVarP(&findFilter.Unique, "unique", "u", false, "fail unless exactly one component remains")
}
