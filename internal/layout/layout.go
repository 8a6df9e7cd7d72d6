// Package layout resolves the set of package roots to scan. With no
// explicit overrides it probes the known installation layouts of the
// simulator (Microsoft Store and Steam), reading the packages
// directory out of the installation's UserCfg.opt file.
package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"
	homedir "github.com/mitchellh/go-homedir"
)

// Root source tags.
const (
	SourceOverride = "override"
	SourceConfig   = "config"
)

// Root is a package root to be scanned.
type Root struct {
	Path   string // Absolute directory path
	Source string // Where the root came from (override, config, layout name)
}

// ErrNoInstallation is returned when no override is given and no known
// installation layout resolves.
var ErrNoInstallation = errors.New("no package installation found")

// ConfigError is a fatal configuration problem: an override path or
// config file the user explicitly asked for cannot be used.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Probe locates one known installation layout. Locate returns the
// packages directory and whether the layout is present. Probes are
// injectable so resolution is testable without a real installation.
type Probe struct {
	Name   string
	Locate func() (string, bool)
}

// Options controls resolution. Precedence: explicit root overrides,
// then an explicit UserCfg.opt path, then layout probes.
type Options struct {
	Overrides  []string // Explicit package root directories
	ConfigFile string   // Explicit UserCfg.opt path (ignored if Overrides is set)
	Probes     []Probe  // nil means DefaultProbes()
}

// Resolve determines the ordered set of package roots for a run.
// Every override must exist and be a directory; a bad override is a
// ConfigError, not a skip, since the user explicitly asked for it.
// Without overrides, every probe that resolves contributes a root;
// multiple simultaneously installed layouts are legal and all are
// scanned. No root at all is ErrNoInstallation.
func Resolve(opts Options) ([]Root, error) {
	if len(opts.Overrides) > 0 {
		roots := make([]Root, 0, len(opts.Overrides))
		for _, override := range opts.Overrides {
			abs, err := filepath.Abs(override)
			if err != nil {
				return nil, &ConfigError{Path: override, Err: err}
			}
			info, err := os.Stat(abs)
			if err != nil {
				return nil, &ConfigError{Path: override, Err: err}
			}
			if !info.IsDir() {
				return nil, &ConfigError{Path: override, Err: errors.New("not a directory")}
			}
			roots = append(roots, Root{Path: abs, Source: SourceOverride})
		}
		return roots, nil
	}

	if opts.ConfigFile != "" {
		dir, err := PackagesDir(opts.ConfigFile)
		if err != nil {
			return nil, &ConfigError{Path: opts.ConfigFile, Err: err}
		}
		info, err := os.Stat(dir)
		if err != nil {
			return nil, &ConfigError{Path: opts.ConfigFile, Err: err}
		}
		if !info.IsDir() {
			return nil, &ConfigError{Path: opts.ConfigFile, Err: fmt.Errorf("not a directory: %s", dir)}
		}
		return []Root{{Path: dir, Source: SourceConfig}}, nil
	}

	probes := opts.Probes
	if probes == nil {
		probes = DefaultProbes()
	}

	var roots []Root
	for _, probe := range probes {
		if dir, ok := probe.Locate(); ok {
			roots = append(roots, Root{Path: dir, Source: probe.Name})
		}
	}
	if len(roots) == 0 {
		return nil, ErrNoInstallation
	}
	return roots, nil
}

// DefaultProbes returns the known installation layouts in probe order.
// The last probe is a recursive fallback for non-standard installs: it
// searches the roaming data directory for any UserCfg.opt whose path
// mentions the simulator.
func DefaultProbes() []Probe {
	return []Probe{
		{Name: "ms-store", Locate: func() (string, bool) {
			return probeUserCfg(filepath.Join(
				"AppData", "Local", "Packages",
				"Microsoft.FlightSimulator_8wekyb3d8bbwe", "LocalCache",
				"UserCfg.opt"))
		}},
		{Name: "steam", Locate: func() (string, bool) {
			return probeUserCfg(filepath.Join(
				"AppData", "Roaming", "Microsoft Flight Simulator",
				"UserCfg.opt"))
		}},
		{Name: "search", Locate: func() (string, bool) {
			home, err := homedir.Dir()
			if err != nil {
				return "", false
			}
			return searchUserCfg(filepath.Join(home, "AppData", "Roaming"))
		}},
	}
}

// searchUserCfg walks base looking for a UserCfg.opt whose lowercased
// path contains both "microsoft" and "flight", and resolves the first
// one whose packages directory exists. Unreadable subtrees are skipped.
func searchUserCfg(base string) (string, bool) {
	var found string
	filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || d.Name() != "UserCfg.opt" {
			return nil
		}
		lower := strings.ToLower(path)
		if !strings.Contains(lower, "microsoft") || !strings.Contains(lower, "flight") {
			return nil
		}
		dir, err := PackagesDir(path)
		if err != nil {
			return nil
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return nil
		}
		found = dir
		return fs.SkipAll
	})
	return found, found != ""
}

// probeUserCfg checks one home-relative UserCfg.opt location and, if
// present, resolves its packages directory.
func probeUserCfg(rel string) (string, bool) {
	home, err := homedir.Dir()
	if err != nil {
		return "", false
	}
	cfgPath := filepath.Join(home, rel)
	if info, err := os.Stat(cfgPath); err != nil || info.IsDir() {
		return "", false
	}
	dir, err := PackagesDir(cfgPath)
	if err != nil {
		return "", false
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", false
	}
	return dir, true
}

// PackagesDir parses a UserCfg.opt file and returns the directory
// holding official package content: the InstalledPackagesPath value
// with "Official" appended. UserCfg.opt is a brace-sectioned key/value
// format; the single top-level key we need parses cleanly with
// whitespace delimiters once the section lines are skipped.
func PackagesDir(cfgPath string) (string, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		KeyValueDelimiters:      " \t",
		SkipUnrecognizableLines: true,
	}, cfgPath)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", cfgPath, err)
	}

	value := f.Section("").Key("InstalledPackagesPath").String()
	value = strings.Trim(strings.TrimSpace(value), `"`)
	if value == "" {
		return "", fmt.Errorf("no InstalledPackagesPath in %s", cfgPath)
	}

	return filepath.Join(value, "Official"), nil
}
