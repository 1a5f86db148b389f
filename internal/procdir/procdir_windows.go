//go:build windows

package procdir

import (
	"context"
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"connbreaker/internal/log"
)

// stillActive is the exit code GetExitCodeProcess reports for live processes.
const stillActive = 259

type windowsDirectory struct {
	opts Options
}

func newSystem(opts Options) Directory {
	return &windowsDirectory{opts: opts}
}

func (d *windowsDirectory) List(ctx context.Context) ([]Entry, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot: %w", ErrProcessListUnavailable, err)
	}
	defer windows.CloseHandle(snap)

	var pe windows.ProcessEntry32
	pe.Size = uint32(unsafe.Sizeof(pe))
	if err := windows.Process32First(snap, &pe); err != nil {
		return nil, fmt.Errorf("%w: first entry: %w", ErrProcessListUnavailable, err)
	}

	var entries []Entry
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pid := int(pe.ProcessID)
		if pid != 0 {
			e := Entry{
				PID:  pid,
				Name: windows.UTF16ToString(pe.ExeFile[:]),
				Path: imagePath(pe.ProcessID),
			}
			if !d.opts.SkipSystem || e.Path != "" {
				entries = append(entries, e)
			}
		}

		if err := windows.Process32Next(snap, &pe); err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				break
			}
			return nil, fmt.Errorf("%w: next entry: %w", ErrProcessListUnavailable, err)
		}
	}

	log.Debug(log.CatProc, "process snapshot", "count", len(entries))
	return entries, nil
}

func (d *windowsDirectory) Running(pid int) (bool, error) {
	if pid <= 0 {
		return false, nil
	}

	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			return false, nil
		}
		if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
			// Protected processes refuse the handle but do exist.
			return true, nil
		}
		return false, fmt.Errorf("open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false, fmt.Errorf("exit code for %d: %w", pid, err)
	}
	return code == stillActive, nil
}

// imagePath returns the full executable path, or "" when access is denied.
func imagePath(pid uint32) string {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, 1024)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return ""
	}
	return windows.UTF16ToString(buf[:size])
}
