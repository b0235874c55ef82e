// Package archivetest provides an in-memory storage system for tests.
package archivetest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pparchive/internal/archive"
)

// Archive is an in-memory Tape and Copier. Paths submitted for migration
// become resident after StageAfter further residency listings.
type Archive struct {
	// StageAfter is the number of listings a submitted path stays on tape.
	StageAfter int
	// Queue holds the lines returned by ListQueue.
	Queue []string
	// FailListing makes ListResidency return the error.
	FailListing error

	mu        sync.Mutex
	resident  map[string]bool
	countdown map[string]int
	submitted [][]string
	copies    []CopyCall
	listings  int
}

// CopyCall records one CopyFiles invocation.
type CopyCall struct {
	Sources []string
	DestDir string
}

var (
	_ archive.Tape   = (*Archive)(nil)
	_ archive.Copier = (*Archive)(nil)
)

// New creates an Archive where every path in onTape is tape-only and every
// path in onDisk is resident.
func New(onDisk, onTape []string) *Archive {
	a := &Archive{
		resident:  make(map[string]bool),
		countdown: make(map[string]int),
	}
	for _, p := range onDisk {
		a.resident[p] = true
	}
	for _, p := range onTape {
		a.resident[p] = false
	}
	return a
}

// SubmitMigration schedules paths to become resident.
func (a *Archive) SubmitMigration(_ context.Context, paths []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.submitted = append(a.submitted, append([]string(nil), paths...))
	for _, p := range paths {
		if !a.resident[p] {
			a.countdown[p] = a.StageAfter
		}
	}
	return nil
}

// ListResidency formats known paths like a long residency listing.
func (a *Archive) ListResidency(_ context.Context, paths []string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailListing != nil {
		return "", a.FailListing
	}
	a.listings++

	for p, n := range a.countdown {
		if n <= 0 {
			a.resident[p] = true
			delete(a.countdown, p)
		} else {
			a.countdown[p] = n - 1
		}
	}

	var b strings.Builder
	for _, p := range paths {
		resident, known := a.resident[p]
		if !known {
			continue
		}
		state := "(OFL)"
		if resident {
			state = "(DUL)"
		}
		fmt.Fprintf(&b, "-rw-r--r--   1 user  group  1024 Jan  1 00:00 %s %s\n", state, p)
	}
	return b.String(), nil
}

// ListQueue returns the configured queue lines.
func (a *Archive) ListQueue(_ context.Context) (string, error) {
	return strings.Join(a.Queue, "\n"), nil
}

// CopyFiles copies sources into destDir on the real filesystem.
func (a *Archive) CopyFiles(_ context.Context, sources []string, destDir string) error {
	a.mu.Lock()
	a.copies = append(a.copies, CopyCall{Sources: append([]string(nil), sources...), DestDir: destDir})
	a.mu.Unlock()

	for _, src := range sources {
		if err := copyFile(src, filepath.Join(destDir, filepath.Base(src))); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Submitted returns the path lists passed to SubmitMigration.
func (a *Archive) Submitted() [][]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([][]string(nil), a.submitted...)
}

// Copies returns the recorded CopyFiles calls.
func (a *Archive) Copies() []CopyCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]CopyCall(nil), a.copies...)
}

// Listings returns the number of ListResidency calls.
func (a *Archive) Listings() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listings
}

// SetResident marks path as resident or tape-only.
func (a *Archive) SetResident(path string, resident bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resident[path] = resident
}
