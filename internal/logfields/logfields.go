package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyMode       = "mode"
	KeyStage      = "stage"
	KeyHook       = "hook"
	KeyPlatform   = "platform"
	KeyPlugin     = "plugin"
	KeyVersion    = "version"
	KeyLocator    = "locator"
	KeyPath       = "path"
	KeyCommand    = "command"
	KeyExitCode   = "exit_code"
	KeyURL        = "url"
	KeyStatus     = "status"
	KeyDurationMS = "duration_ms"
	KeyAttempt    = "attempt"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr        { return slog.String(KeyRunID, id) }
func Mode(m string) slog.Attr          { return slog.String(KeyMode, m) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func Hook(name string) slog.Attr       { return slog.String(KeyHook, name) }
func Platform(name string) slog.Attr   { return slog.String(KeyPlatform, name) }
func Plugin(id string) slog.Attr       { return slog.String(KeyPlugin, id) }
func Version(v string) slog.Attr       { return slog.String(KeyVersion, v) }
func Locator(l string) slog.Attr       { return slog.String(KeyLocator, l) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Command(c string) slog.Attr       { return slog.String(KeyCommand, c) }
func ExitCode(code int) slog.Attr      { return slog.Int(KeyExitCode, code) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Attempt(n int) slog.Attr          { return slog.Int(KeyAttempt, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
