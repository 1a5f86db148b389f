package ui

import (
	"path"
	"regexp"
	"strings"
)

// Pre-compiled regular expressions for better performance
var (
	windowsAppsRegex  = regexp.MustCompile(`(?i)/WindowsApps/([^/_]+)_`)
	steamRegex        = regexp.MustCompile(`(?i)/steamapps/common/([^/]+)/`)
	programFilesRegex = regexp.MustCompile(`(?i)/Program Files(?: \(x86\))?/([^/]+)/`)
	appDataRegex      = regexp.MustCompile(`(?i)/AppData/(?:Local/Programs|Local|Roaming)/([^/]+)/`)
)

// PathFormatter shortens an executable path for the picker.
// Implement this interface to add custom formatting for specific install locations.
type PathFormatter interface {
	// Name returns the formatter name (for debugging/logging)
	Name() string

	// CanFormat returns true if this formatter can handle the given path
	CanFormat(p string) bool

	// Format returns the shortened path, or "" to fall through
	Format(p string) string
}

// formatPath applies the registered formatters to produce a readable location.
// Paths are matched with forward slashes regardless of the OS.
func formatPath(p string) string {
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, `\`, "/")

	for _, formatter := range registeredFormatters {
		if formatter.CanFormat(p) {
			if result := formatter.Format(p); result != "" {
				return result
			}
		}
	}

	return fallbackFormat(p)
}

// registeredFormatters holds all active formatters in priority order.
var registeredFormatters = []PathFormatter{
	&WindowsAppsFormatter{}, // Store apps live under Program Files too
	&SteamFormatter{},
	&ProgramFilesFormatter{},
	&AppDataFormatter{},
	&SystemFormatter{},
}

// RegisterFormatter adds a custom formatter to the beginning of the list (highest priority).
func RegisterFormatter(f PathFormatter) {
	registeredFormatters = append([]PathFormatter{f}, registeredFormatters...)
}

// WindowsAppsFormatter handles Microsoft Store packages.
// Example: .../WindowsApps/Microsoft.WindowsTerminal_1.18_x64__8wekyb3d8bbwe/WindowsTerminal.exe
type WindowsAppsFormatter struct{}

func (f *WindowsAppsFormatter) Name() string { return "windows-apps" }

func (f *WindowsAppsFormatter) CanFormat(p string) bool {
	return strings.Contains(strings.ToLower(p), "/windowsapps/")
}

func (f *WindowsAppsFormatter) Format(p string) string {
	return withContext(p, windowsAppsRegex)
}

// SteamFormatter names the game folder for Steam installs.
type SteamFormatter struct{}

func (f *SteamFormatter) Name() string { return "steam" }

func (f *SteamFormatter) CanFormat(p string) bool {
	return strings.Contains(strings.ToLower(p), "/steamapps/common/")
}

func (f *SteamFormatter) Format(p string) string {
	return withContext(p, steamRegex)
}

// ProgramFilesFormatter names the vendor folder under Program Files.
type ProgramFilesFormatter struct{}

func (f *ProgramFilesFormatter) Name() string { return "program-files" }

func (f *ProgramFilesFormatter) CanFormat(p string) bool {
	return strings.Contains(strings.ToLower(p), "/program files")
}

func (f *ProgramFilesFormatter) Format(p string) string {
	return withContext(p, programFilesRegex)
}

// AppDataFormatter handles per-user installs (Discord, VS Code user setup).
type AppDataFormatter struct{}

func (f *AppDataFormatter) Name() string { return "appdata" }

func (f *AppDataFormatter) CanFormat(p string) bool {
	return strings.Contains(strings.ToLower(p), "/appdata/")
}

func (f *AppDataFormatter) Format(p string) string {
	return withContext(p, appDataRegex)
}

// SystemFormatter reduces OS binaries to their name.
type SystemFormatter struct{}

func (f *SystemFormatter) Name() string { return "system" }

// systemPaths contains lower-cased system binary prefixes.
var systemPaths = []string{
	"c:/windows/",
	"/usr/bin/",
	"/usr/sbin/",
	"/usr/lib/",
	"/usr/libexec/",
	"/bin/",
	"/sbin/",
}

func (f *SystemFormatter) CanFormat(p string) bool {
	lower := strings.ToLower(p)
	for _, prefix := range systemPaths {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func (f *SystemFormatter) Format(p string) string {
	return path.Base(p)
}

// withContext renders "exe (folder)" from the first capture of re, or just
// the executable when the folder adds nothing.
func withContext(p string, re *regexp.Regexp) string {
	matches := re.FindStringSubmatch(p)
	if len(matches) < 2 {
		return ""
	}
	exe := path.Base(p)
	folder := matches[1]
	stem := strings.TrimSuffix(strings.ToLower(exe), ".exe")
	if strings.EqualFold(folder, stem) {
		return exe
	}
	return exe + " (" + folder + ")"
}

// fallbackFormat keeps the parent folder for context.
func fallbackFormat(p string) string {
	dir, exe := path.Split(p)
	parent := path.Base(strings.TrimSuffix(dir, "/"))
	if parent == "" || parent == "." || parent == "/" || strings.HasSuffix(parent, ":") {
		return exe
	}
	return parent + "/" + exe
}
