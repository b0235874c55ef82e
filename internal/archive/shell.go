package archive

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
)

// Commands names the external programs of the storage system. Each command
// is looked up in the system path on every invocation.
type Commands struct {
	Migrate       string   // Retrieval request, e.g. dmget
	Residency     string   // Residency listing, e.g. dmls
	ResidencyArgs []string // Arguments placed before the paths, e.g. -l
	Queue         string   // Queue listing, e.g. dmwho
	Copy          string   // Bulk copy, e.g. gcp
	CopyArgs      []string // Arguments placed before the sources
}

// DefaultCommands returns the DMF and GFDL copy tool command lines.
func DefaultCommands() Commands {
	return Commands{
		Migrate:       "dmget",
		Residency:     "dmls",
		ResidencyArgs: []string{"-l"},
		Queue:         "dmwho",
		Copy:          "gcp",
		CopyArgs:      []string{"--debug"},
	}
}

// Shell runs the storage system commands as subprocesses.
type Shell struct {
	cmds Commands
}

var (
	_ Tape   = (*Shell)(nil)
	_ Copier = (*Shell)(nil)
)

// NewShell creates a Shell adapter for cmds.
func NewShell(cmds Commands) *Shell {
	return &Shell{cmds: cmds}
}

// SubmitMigration starts the retrieval command detached from ctx and returns
// once it is running. Its exit status is only logged.
func (s *Shell) SubmitMigration(_ context.Context, paths []string) error {
	if s.cmds.Migrate == "" {
		return &Error{Op: OpMigrate, Err: ErrNoCommand}
	}
	cmd := exec.Command(s.cmds.Migrate, paths...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	logger.Debug("Starting %s with %d paths", s.cmds.Migrate, len(paths))
	if err := cmd.Start(); err != nil {
		return &Error{Op: OpMigrate, Path: firstPath(paths), Err: err}
	}

	// Reap the child in the background
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Debug("%s exited: %v", s.cmds.Migrate, err)
		}
	}()
	return nil
}

// ListResidency runs the residency listing for paths. A nonzero exit is
// tolerated as long as the command ran, since listing tools exit nonzero
// when any single path is missing.
func (s *Shell) ListResidency(ctx context.Context, paths []string) (string, error) {
	if s.cmds.Residency == "" {
		return "", &Error{Op: OpResidency, Err: ErrNoCommand}
	}
	args := append(append([]string{}, s.cmds.ResidencyArgs...), paths...)
	out, err := s.output(ctx, s.cmds.Residency, args)
	if err != nil {
		return "", &Error{Op: OpResidency, Path: firstPath(paths), Err: err}
	}
	return out, nil
}

// ListQueue runs the queue listing.
func (s *Shell) ListQueue(ctx context.Context) (string, error) {
	if s.cmds.Queue == "" {
		return "", &Error{Op: OpQueue, Err: ErrNoCommand}
	}
	out, err := s.output(ctx, s.cmds.Queue, nil)
	if err != nil {
		return "", &Error{Op: OpQueue, Err: err}
	}
	return out, nil
}

// CopyFiles runs the bulk copy of sources into destDir and waits for it.
// A nonzero exit is logged; callers check the copies themselves.
func (s *Shell) CopyFiles(ctx context.Context, sources []string, destDir string) error {
	if s.cmds.Copy == "" {
		return &Error{Op: OpCopy, Err: ErrNoCommand}
	}
	if !strings.HasSuffix(destDir, "/") {
		destDir += "/"
	}
	args := append(append([]string{}, s.cmds.CopyArgs...), sources...)
	args = append(args, destDir)

	cmd := exec.CommandContext(ctx, s.cmds.Copy, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	logger.Info("Trying command: %s %s", s.cmds.Copy, strings.Join(args, " "))
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &Error{Op: OpCopy, Path: destDir, Err: ctxErr}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		logger.Warn("%s exited with status %d", s.cmds.Copy, exitErr.ExitCode())
		return nil
	}
	if err != nil {
		return &Error{Op: OpCopy, Path: destDir, Err: err}
	}
	return nil
}

func (s *Shell) output(ctx context.Context, name string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		logger.Debug("%s exited with status %d: %s", name, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		return string(out), nil
	}
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func firstPath(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}
