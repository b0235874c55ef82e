package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"pparchive/internal/archive"
	"pparchive/internal/catalog"
	"pparchive/internal/config"
	"pparchive/internal/logging"
	"pparchive/internal/stage"
)

// GlobalFlags are accepted by every command.
type GlobalFlags struct {
	ConfigPath   string // Config file
	Root         string // Overrides the configured pp root
	OutputFormat string // json|yaml|text
	LogLevel     string // error|warn|info|debug|trace
	Verbose      bool   // Shorthand for debug logging
}

var (
	logger = logging.GetLogger()

	globalFlags GlobalFlags
	cfgManager  *config.Manager
	cfg         *config.Config
	formatter   *Formatter
)

var rootCmd = &cobra.Command{
	Use:   "pparchive",
	Short: "Work with a postprocessed model output archive",
	Long:  `pparchive builds paths into a postprocessing archive laid out as

  root/component/{ts|av}/layout/component.time.suffix.nc
  root/component/component.static.nc

explores its components and variables, recalls files from tape, mirrors
them to scratch storage and opens them as datasets.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := configureLogging(); err != nil {
			return err
		}

		var err error
		cfgManager, err = config.NewManager(globalFlags.ConfigPath)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cfg, err = cfgManager.Load()
		if err != nil {
			return err
		}
		if globalFlags.Root != "" {
			cfg.Root = globalFlags.Root
		}
		if err := cfg.ResolveUser(); err != nil {
			logger.Warn("%v; queue checks and mirroring need a user", err)
		}
		logger.Debug("Root: %s, user: %s, mirror prefix: %s", cfg.Root, cfg.User, cfg.MirrorPrefix())

		formatter, err = NewFormatter(Format(globalFlags.OutputFormat), cmd.OutOrStdout())
		return err
	},
}

func configureLogging() error {
	switch {
	case globalFlags.LogLevel != "":
		level, err := logging.ParseLevel(globalFlags.LogLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
	case globalFlags.Verbose:
		logger.SetLevel(logging.LevelDebug)
	}
	return nil
}

// Execute runs the root command until it finishes or a signal arrives.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigPath, "config", "c", config.DefaultPath(), "config file")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.Root, "root", "r", "", "postprocessing root (overrides config and $"+config.EnvRoot+")")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.OutputFormat, "output", "o", string(FormatText), "output format: json|yaml|text")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "", "log level: error|warn|info|debug|trace")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(staticCmd)
	rootCmd.AddCommand(componentsCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(frequencyCmd)
	rootCmd.AddCommand(varsCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(residentCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(mirrorCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(configCmd)
}

func requireRoot() (string, error) {
	if cfg.Root == "" {
		return "", fmt.Errorf("no postprocessing root: pass --root, set $%s or root in %s", config.EnvRoot, cfgManager.Path())
	}
	return cfg.Root, nil
}

func newExplorer() *catalog.Explorer {
	return catalog.NewExplorer(cfg.ExplorerOptions()...)
}

func newShell() *archive.Shell {
	return archive.NewShell(cfg.Commands())
}

func newMigrator() *stage.Migrator {
	return stage.NewMigrator(archive.NewQuery(newShell()), cfg.Policy())
}

// mirrorPrefix returns the mirror prefix, failing when it names the user
// and none was resolved.
func mirrorPrefix() (string, error) {
	if cfg.User == "" && strings.Contains(cfg.Mirror.Prefix, config.UserPlaceholder) {
		return "", fmt.Errorf("mirror prefix %q needs a user: set user in %s", cfg.Mirror.Prefix, cfgManager.Path())
	}
	return cfg.MirrorPrefix(), nil
}

func newMirrorer() *stage.Mirrorer {
	return stage.NewMirrorer(newShell(), cfg.MirrorOptions())
}
