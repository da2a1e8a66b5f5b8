package logger

import (
	"log/slog"

	"github.com/sparrowhq/relay/internal/util"
	"github.com/sparrowhq/relay/theme"
)

// UpstreamStatus classifies the reachability of the single upstream this proxy
// forwards to, as observed by the health-check probe.
type UpstreamStatus int

const (
	UpstreamUnknown UpstreamStatus = iota
	UpstreamHealthy
	UpstreamUnhealthy
)

func (s UpstreamStatus) String() string {
	switch s {
	case UpstreamHealthy:
		return "Healthy"
	case UpstreamUnhealthy:
		return "Unhealthy"
	default:
		return "Unknown"
	}
}

// LogContext carries a split set of arguments: UserArgs are always logged at
// the requested level; when DetailedArgs are present, a second record with
// both sets is logged under a context marker. No handler filters on that
// marker, so the second record reaches every sink.
type LogContext struct {
	UserArgs     []any
	DetailedArgs []any
}

// StyledLogger is the logging surface the rest of relay depends on. Two
// implementations exist: PrettyStyledLogger (pterm styling, used on a TTY)
// and PlainStyledLogger (unstyled, used for JSON/file output).
type StyledLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	InfoWithCount(msg string, count int, args ...any)
	InfoWithEndpoint(msg string, endpoint string, args ...any)
	WarnWithEndpoint(msg string, endpoint string, args ...any)
	ErrorWithEndpoint(msg string, endpoint string, args ...any)
	InfoUpstreamStatus(msg string, name string, status UpstreamStatus, args ...any)

	InfoWithContext(msg string, endpoint string, ctx LogContext)
	WarnWithContext(msg string, endpoint string, ctx LogContext)
	ErrorWithContext(msg string, endpoint string, ctx LogContext)

	GetUnderlying() *slog.Logger
	WithAttrs(attrs ...slog.Attr) StyledLogger
	With(args ...any) StyledLogger
}

// NewWithTheme creates both the plain slog.Logger and a StyledLogger wrapping
// it, picking the pterm-styled implementation when colour output is
// appropriate and falling back to the plain one otherwise (piped stdout,
// NO_COLOR, JSON-only deployments).
func NewWithTheme(cfg *Config) (*slog.Logger, StyledLogger, func(), error) {
	base, cleanup, err := New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.PrettyLogs && util.ShouldUseColors() {
		appTheme := theme.GetTheme(cfg.Theme)
		return base, NewPrettyStyledLogger(base, appTheme), cleanup, nil
	}

	return base, NewPlainStyledLogger(base), cleanup, nil
}
