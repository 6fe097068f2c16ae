// Package prefs persists user preferences in an INI file with a fixed
// schema. Every key is read and written explicitly.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// Preferences is the schema of the preferences file.
type Preferences struct {
	General General
	Scan    Scan
	Monitor Monitor
	Record  Record
}

// General is the [general] section; the unnamed default section is
// accepted as a fallback.
type General struct {
	LogLevel  string
	LogFormat string
	// Samples is the vector size captured per path on every build.
	Samples int
}

type Scan struct {
	Enabled bool
	Period  time.Duration
	Schemes []string
}

type Monitor struct {
	Port int
}

type Record struct {
	Dir string
}

// Default returns the preferences used when no file exists.
func Default() Preferences {
	return Preferences{
		General: General{LogLevel: "info", LogFormat: "text", Samples: 1024},
		Scan:    Scan{Enabled: false, Period: 5 * time.Second, Schemes: []string{"sim"}},
		Monitor: Monitor{Port: 0},
	}
}

// Load reads path over the defaults. A missing file yields Default().
func Load(path string) (Preferences, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}

	f, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, path)
	if err != nil {
		return p, fmt.Errorf("loading preferences %s: %w", path, err)
	}
	defaults := f.Section("")

	general := f.Section("general")
	p.General.LogLevel = stringKey(general, defaults, "log_level", p.General.LogLevel)
	p.General.LogFormat = stringKey(general, defaults, "log_format", p.General.LogFormat)
	if p.General.Samples, err = intKey(general, defaults, "samples", p.General.Samples); err != nil {
		return p, err
	}
	if p.General.Samples <= 0 {
		return p, fmt.Errorf("preferences: general.samples must be positive, got %d", p.General.Samples)
	}

	scan := f.Section("scan")
	if scan.HasKey("enabled") {
		if p.Scan.Enabled, err = scan.Key("enabled").Bool(); err != nil {
			return p, fmt.Errorf("preferences: scan.enabled: %w", err)
		}
	}
	if scan.HasKey("period") {
		if p.Scan.Period, err = scan.Key("period").Duration(); err != nil {
			return p, fmt.Errorf("preferences: scan.period: %w", err)
		}
		if p.Scan.Period <= 0 {
			return p, fmt.Errorf("preferences: scan.period must be positive")
		}
	}
	if scan.HasKey("schemes") {
		p.Scan.Schemes = scan.Key("schemes").Strings(",")
	}

	if p.Monitor.Port, err = intKey(f.Section("monitor"), defaults, "port", p.Monitor.Port); err != nil {
		return p, err
	}
	p.Record.Dir = stringKey(f.Section("record"), defaults, "dir", p.Record.Dir)
	return p, nil
}

// Save writes p to path, creating parent directories as needed.
func Save(path string, p Preferences) error {
	f := ini.Empty()

	general := f.Section("general")
	general.Key("log_level").SetValue(p.General.LogLevel)
	general.Key("log_format").SetValue(p.General.LogFormat)
	general.Key("samples").SetValue(fmt.Sprint(p.General.Samples))

	scan := f.Section("scan")
	scan.Key("enabled").SetValue(fmt.Sprint(p.Scan.Enabled))
	scan.Key("period").SetValue(p.Scan.Period.String())
	scan.Key("schemes").SetValue(strings.Join(p.Scan.Schemes, ","))

	f.Section("monitor").Key("port").SetValue(fmt.Sprint(p.Monitor.Port))
	f.Section("record").Key("dir").SetValue(p.Record.Dir)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	if err := f.SaveTo(path); err != nil {
		return fmt.Errorf("saving preferences %s: %w", path, err)
	}
	return nil
}

func stringKey(section, defaults *ini.Section, key, def string) string {
	switch {
	case section.HasKey(key):
		return section.Key(key).String()
	case defaults.HasKey(key):
		return defaults.Key(key).String()
	}
	return def
}

func intKey(section, defaults *ini.Section, key string, def int) (int, error) {
	var k *ini.Key
	switch {
	case section.HasKey(key):
		k = section.Key(key)
	case defaults.HasKey(key):
		k = defaults.Key(key)
	default:
		return def, nil
	}
	v, err := k.Int()
	if err != nil {
		return def, fmt.Errorf("preferences: %s.%s: %w", section.Name(), key, err)
	}
	return v, nil
}
