package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/scopyflow/internal/app"
	"github.com/specialistvlad/scopyflow/internal/device"
	"github.com/specialistvlad/scopyflow/internal/prefs"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// varFlags collects repeated -var name=value flags.
type varFlags map[string]any

func (v varFlags) String() string {
	parts := make([]string, 0, len(v))
	for k, val := range v {
		parts = append(parts, fmt.Sprintf("%s=%v", k, val))
	}
	return strings.Join(parts, ",")
}

func (v varFlags) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	v[name] = value
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
//
// Options not given on the command line are taken from the preferences file
// named by -prefs. With -save-prefs the effective options are written back.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("scopyflow", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
scopyflow - A signal-path engine for instrumentation dataflow graphs.

Usage:
  scopyflow [options] [SESSION_PATH]

Arguments:
  SESSION_PATH
    Path to a single .hcl file or a directory containing .hcl files.
    The simulated context "sim:demo" is always available.

Options:
`)
		flagSet.PrintDefaults()
	}

	defaults := prefs.Default()
	sessionFlag := flagSet.String("session", "", "Path to the session file or directory.")
	sFlag := flagSet.String("s", "", "Path to the session file or directory (shorthand).")
	prefsFlag := flagSet.String("prefs", "", "Path to the INI preferences file.")
	savePrefsFlag := flagSet.Bool("save-prefs", false, "Write the effective options to the preferences file.")
	logFormatFlag := flagSet.String("log-format", defaults.General.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", defaults.General.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	samplesFlag := flagSet.Int("samples", defaults.General.Samples, "Samples captured per signal path.")
	monitorPortFlag := flagSet.Int("monitor-port", defaults.Monitor.Port, "Port for the websocket monitor and health check. 0 is disabled.")
	recordDirFlag := flagSet.String("record-dir", defaults.Record.Dir, "Directory receiving parquet recordings. Empty disables recording.")
	durationFlag := flagSet.Duration("duration", 0, "Stream for this long, then stop. 0 runs until interrupted.")
	interactiveFlag := flagSet.Bool("interactive", false, "Read console keys: space start/stop, 1-9 toggle path, q quit.")
	scanFlag := flagSet.Bool("scan", defaults.Scan.Enabled, "Periodically scan for reachable contexts.")
	scanPeriodFlag := flagSet.Duration("scan-period", defaults.Scan.Period, "Period between scans.")
	scanSchemesFlag := flagSet.String("scan-schemes", strings.Join(defaults.Scan.Schemes, ":"), "Backends to scan, separated by ':' (e.g. 'sim:ip').")
	vars := varFlags{}
	flagSet.Var(vars, "var", "Set a session variable, as name=value. Repeatable.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *sessionFlag != "" {
		path = *sessionFlag
	} else if *sFlag != "" {
		path = *sFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Session path determined.", "path", path)

	if path == "" {
		slog.Debug("No session path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	p, err := prefs.Load(*prefsFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	set := map[string]bool{}
	flagSet.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["log-format"] {
		p.General.LogFormat = *logFormatFlag
	}
	if set["log-level"] {
		p.General.LogLevel = *logLevelFlag
	}
	if set["samples"] {
		p.General.Samples = *samplesFlag
	}
	if set["monitor-port"] {
		p.Monitor.Port = *monitorPortFlag
	}
	if set["record-dir"] {
		p.Record.Dir = *recordDirFlag
	}
	if set["scan"] {
		p.Scan.Enabled = *scanFlag
	}
	if set["scan-period"] {
		p.Scan.Period = *scanPeriodFlag
	}
	if set["scan-schemes"] {
		p.Scan.Schemes = device.ParseScanParams(*scanSchemesFlag)
	}

	logFormat := strings.ToLower(p.General.LogFormat)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(p.General.LogLevel)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if p.General.Samples <= 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid samples: must be positive"}
	}
	if p.Scan.Period <= 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid scan-period: must be positive"}
	}
	slog.Debug("CLI parameter validation complete.")

	if *savePrefsFlag {
		if *prefsFlag == "" {
			return nil, false, &ExitError{Code: 2, Message: "-save-prefs requires -prefs"}
		}
		p.General.LogFormat, p.General.LogLevel = logFormat, logLevel
		if err := prefs.Save(*prefsFlag, p); err != nil {
			return nil, false, &ExitError{Code: 1, Message: err.Error()}
		}
	}

	config, err := app.NewConfig(app.Config{
		SessionPath: path,
		PrefsPath:   *prefsFlag,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
		Samples:     p.General.Samples,
		MonitorPort: p.Monitor.Port,
		RecordDir:   p.Record.Dir,
		Duration:    *durationFlag,
		Interactive: *interactiveFlag,
		Scan:        p.Scan.Enabled,
		ScanPeriod:  p.Scan.Period,
		ScanSchemes: p.Scan.Schemes,
		Vars:        vars,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
