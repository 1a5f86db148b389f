//go:build linux

package procdir

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"connbreaker/internal/log"
)

type procfsDirectory struct {
	root string
	opts Options
}

func newSystem(opts Options) Directory {
	return &procfsDirectory{root: "/proc", opts: opts}
}

func (d *procfsDirectory) List(ctx context.Context) ([]Entry, error) {
	dirents, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessListUnavailable, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pid, err := strconv.Atoi(de.Name())
		if err != nil || pid <= 0 {
			continue
		}

		name := d.comm(pid)
		if name == "" {
			continue // exited between ReadDir and here
		}
		if d.opts.SkipSystem && !d.hasCmdline(pid) {
			continue
		}

		entries = append(entries, Entry{
			PID:  pid,
			Name: name,
			Path: d.exe(pid),
		})
	}

	log.Debug(log.CatProc, "process snapshot", "count", len(entries))
	return entries, nil
}

func (d *procfsDirectory) Running(pid int) (bool, error) {
	if pid <= 0 {
		return false, nil
	}

	data, err := os.ReadFile(filepath.Join(d.root, strconv.Itoa(pid), "stat"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("reading stat for %d: %w", pid, err)
	}

	// State follows the parenthesised comm, which may itself contain spaces.
	line := string(data)
	r := strings.LastIndexByte(line, ')')
	if r < 0 {
		return false, fmt.Errorf("malformed stat for %d", pid)
	}
	fields := strings.Fields(line[r+1:])
	if len(fields) == 0 {
		return false, fmt.Errorf("malformed stat for %d", pid)
	}
	return fields[0] != "Z" && fields[0] != "X", nil
}

func (d *procfsDirectory) comm(pid int) string {
	data, err := os.ReadFile(filepath.Join(d.root, strconv.Itoa(pid), "comm"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (d *procfsDirectory) exe(pid int) string {
	target, err := os.Readlink(filepath.Join(d.root, strconv.Itoa(pid), "exe"))
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(target, " (deleted)")
}

func (d *procfsDirectory) hasCmdline(pid int) bool {
	data, err := os.ReadFile(filepath.Join(d.root, strconv.Itoa(pid), "cmdline"))
	return err == nil && len(data) > 0
}
