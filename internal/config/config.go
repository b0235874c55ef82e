// Package config loads pparchive settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"os"
	"os/user"
	"strings"
	"time"

	"pparchive/internal/archive"
	"pparchive/internal/catalog"
	"pparchive/internal/poll"
	"pparchive/internal/stage"
)

// UserPlaceholder in the mirror prefix is replaced by the user name.
const UserPlaceholder = "{user}"

// Environment variables consulted by ApplyEnv.
const (
	EnvRoot         = "PPARCHIVE_ROOT"
	EnvMirrorPrefix = "PPARCHIVE_MIRROR_PREFIX"
	EnvUser         = "USER"
)

// ErrNoUser means no user name could be determined.
var ErrNoUser = errors.New("cannot determine user name")

// Config holds every setting of the tool.
type Config struct {
	// Root is the postprocessing directory, e.g. /archive/u/exp/pp.
	Root    string         `yaml:"root"`
	User    string         `yaml:"user,omitempty"`
	Mirror  MirrorConfig   `yaml:"mirror"`
	Polling PollingConfig  `yaml:"polling"`
	Command CommandsConfig `yaml:"commands"`
	Catalog CatalogConfig  `yaml:"catalog"`
}

// MirrorConfig controls copies to scratch storage. Prefix may contain
// UserPlaceholder.
type MirrorConfig struct {
	Prefix       string        `yaml:"prefix"`
	SettleBefore time.Duration `yaml:"settle_before"`
	SettleAfter  time.Duration `yaml:"settle_after"`
}

// PollingConfig bounds the waits for tape recalls and copies.
type PollingConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"` // 0 polls forever
	Timeout     time.Duration `yaml:"timeout"`      // 0 polls forever
}

// CommandsConfig names the storage system tools.
type CommandsConfig struct {
	Dmget   string   `yaml:"dmget"`
	Dmls    string   `yaml:"dmls"`
	Dmwho   string   `yaml:"dmwho"`
	Gcp     string   `yaml:"gcp"`
	GcpArgs []string `yaml:"gcp_args"`
}

// CatalogConfig controls how archive directories are read.
type CatalogConfig struct {
	Extension    string `yaml:"extension"`
	InterpMarker string `yaml:"interp_marker"`
}

// Default returns the settings used when no file is present.
func Default() *Config {
	cmds := archive.DefaultCommands()
	mirror := stage.DefaultMirrorOptions()
	return &Config{
		Mirror: MirrorConfig{
			Prefix:       "/vftmp/" + UserPlaceholder,
			SettleBefore: mirror.SettleBefore,
			SettleAfter:  mirror.SettleAfter,
		},
		Polling: PollingConfig{Interval: poll.DefaultPolicy().Interval},
		Command: CommandsConfig{
			Dmget:   cmds.Migrate,
			Dmls:    cmds.Residency,
			Dmwho:   cmds.Queue,
			Gcp:     cmds.Copy,
			GcpArgs: cmds.CopyArgs,
		},
		Catalog: CatalogConfig{
			Extension:    "nc",
			InterpMarker: catalog.DefaultInterpMarker,
		},
	}
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvRoot); v != "" {
		logger.Debug("Root from %s: %s", EnvRoot, v)
		c.Root = v
	}
	if v := os.Getenv(EnvMirrorPrefix); v != "" {
		logger.Debug("Mirror prefix from %s: %s", EnvMirrorPrefix, v)
		c.Mirror.Prefix = v
	}
}

// ResolveUser fills in User when unset, asking the OS first and falling
// back to $USER.
func (c *Config) ResolveUser() error {
	if c.User != "" {
		return nil
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		c.User = u.Username
		return nil
	}
	if v := os.Getenv(EnvUser); v != "" {
		c.User = v
		return nil
	}
	return ErrNoUser
}

// MirrorPrefix returns the mirror prefix with the user substituted.
func (c *Config) MirrorPrefix() string {
	return strings.ReplaceAll(c.Mirror.Prefix, UserPlaceholder, c.User)
}

// Policy returns the polling policy for recalls and copies.
func (c *Config) Policy() poll.Policy {
	return poll.Policy{
		Interval:    c.Polling.Interval,
		MaxAttempts: c.Polling.MaxAttempts,
		Timeout:     c.Polling.Timeout,
	}
}

// MirrorOptions returns the mirror settings with the polling policy.
func (c *Config) MirrorOptions() stage.MirrorOptions {
	return stage.MirrorOptions{
		Policy:       c.Policy(),
		SettleBefore: c.Mirror.SettleBefore,
		SettleAfter:  c.Mirror.SettleAfter,
	}
}

// Commands returns the storage system command lines. The residency
// listing always uses the long format.
func (c *Config) Commands() archive.Commands {
	return archive.Commands{
		Migrate:       c.Command.Dmget,
		Residency:     c.Command.Dmls,
		ResidencyArgs: []string{"-l"},
		Queue:         c.Command.Dmwho,
		Copy:          c.Command.Gcp,
		CopyArgs:      c.Command.GcpArgs,
	}
}

// ExplorerOptions configures a catalog.Explorer.
func (c *Config) ExplorerOptions() []catalog.Option {
	var opts []catalog.Option
	if c.Catalog.Extension != "" {
		opts = append(opts, catalog.WithExtension(c.Catalog.Extension))
	}
	if c.Catalog.InterpMarker != "" {
		opts = append(opts, catalog.WithInterpMarker(c.Catalog.InterpMarker))
	}
	return opts
}
