// Package logfields defines canonical slog field name constants so key names
// do not drift across packages.
package logfields

import "log/slog"

const (
	KeyLegID      = "leg_id"
	KeyVariant    = "variant"
	KeyPhase      = "phase"
	KeyStage      = "stage"
	KeyCommand    = "command"
	KeyBranch     = "branch"
	KeyProvider   = "provider"
	KeyPath       = "path"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func LegID(id string) slog.Attr       { return slog.String(KeyLegID, id) }
func Variant(v string) slog.Attr      { return slog.String(KeyVariant, v) }
func Phase(p string) slog.Attr        { return slog.String(KeyPhase, p) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func Provider(p string) slog.Attr     { return slog.String(KeyProvider, p) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
