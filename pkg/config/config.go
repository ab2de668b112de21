// Package config holds the process-wide knobs this compiler needs and a
// thin structured-logging wrapper built on top of them.
//
// Per the "Global state" design note, there are exactly two toggles that
// get set once (during argument parsing) and read everywhere after:
// verbosity and whether the warnings channel is enabled. Rather than two
// package-level variables, both live on a single Config value that every
// component constructor takes explicitly.
package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config is threaded explicitly through every component constructor; there
// is no package-level mutable state anywhere in this module.
type Config struct {
	// Verbose enables diagnostic (info-level) logging.
	Verbose bool
	// WarningsEnabled toggles the warnings channel (--disable-warnings
	// flips this off).
	WarningsEnabled bool

	// BuildID tags every log line emitted during a single Compile
	// invocation, so phases can be correlated in output that interleaves
	// multiple runs (e.g. a batch front end compiling many parsers).
	BuildID string
}

// New returns a Config with warnings enabled and a fresh BuildID, matching
// the CLI's defaults (everything is opt-out, never opt-in).
func New(verbose, disableWarnings bool) Config {
	return Config{
		Verbose:         verbose,
		WarningsEnabled: !disableWarnings,
		BuildID:         uuid.NewString(),
	}
}

// Logger wraps a *zap.Logger scoped to one Config, exposing just the two
// channels this compiler actually uses: info-level progress traces (gated
// on Verbose) and warnings (gated on WarningsEnabled, and always counted
// even when suppressed from output).
type Logger struct {
	z        *zap.Logger
	warnings bool
	count    int
}

// NewLogger builds a Logger for cfg. When cfg.Verbose is false the
// underlying zap logger drops info-level lines (and is a no-op when the
// warnings channel is disabled as well), so call sites never need to guard
// Infof themselves.
func NewLogger(cfg Config) *Logger {
	z := zap.NewNop()
	if cfg.Verbose || cfg.WarningsEnabled {
		zc := zap.NewDevelopmentConfig()
		if !cfg.Verbose {
			zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		}
		zc.OutputPaths = []string{"stderr"}
		built, err := zc.Build()
		if err == nil {
			z = built
		}
	}
	return &Logger{z: z.With(zap.String("build", cfg.BuildID)), warnings: cfg.WarningsEnabled}
}

// Infof logs a diagnostic trace; a no-op unless --verbose was set.
func (l *Logger) Infof(format string, args ...any) {
	l.z.Sugar().Infof(format, args...)
}

// Warnf routes a recoverable-problem message through the warnings channel.
// The warning is always counted (Warnings), even when --disable-warnings
// suppresses the printed line, so callers can still report a summary count.
func (l *Logger) Warnf(format string, args ...any) {
	l.count++
	if !l.warnings {
		return
	}
	l.z.Sugar().Warnf(format, args...)
}

// Warnings returns how many warnings were raised, regardless of whether
// the channel was enabled for printing.
func (l *Logger) Warnings() int { return l.count }

// Sync flushes the underlying logger; call before process exit.
func (l *Logger) Sync() { _ = l.z.Sync() }

// Fatalf prints directly to stderr and is reserved for input-validation and
// emitter failures (orig §7): those are fail-fast regardless of --verbose.
func Fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ERROR: "+format+"\n", args...)
}

// Severity classifies a Diagnostic for the warnings channel and for
// emitters that need to decide whether a partial result is usable.
type Severity int

const (
	// SeverityInfo covers pattern-mismatches (orig §7): a routine didn't
	// match the catalog, so its semantic descriptor is simply absent.
	SeverityInfo Severity = iota
	// SeverityWarning covers resolution errors (unknown name references):
	// the offending edge or child is omitted and assembly continues.
	SeverityWarning
	// SeverityError covers invariant violations: fatal for the offending
	// node, but assembly proceeds for the rest of the graph.
	SeverityError
)

// Diagnostic is one fail-soft problem recorded by an extractor or the
// assembler (orig §7, "resolution errors" / "pattern-mismatch" /
// "invariant violations"). Components accumulate these alongside their
// partial results instead of halting.
type Diagnostic struct {
	Severity Severity
	Message  string
	// Node, when non-empty, names the parse/TLV/flag node the diagnostic
	// concerns, so emitters can exclude just the affected section.
	Node string
}

// Log routes d to l at the level its Severity implies.
func (l *Logger) Log(d Diagnostic) {
	switch d.Severity {
	case SeverityInfo:
		l.Infof("%s", d.Message)
	default:
		l.Warnf("%s", d.Message)
	}
}
