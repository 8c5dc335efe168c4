package logs

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level is the minimum level that is logged.
type Level slog.Level

func (Module) Level() Level {
	return Level(slog.LevelInfo)
}

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return Level(slog.LevelDebug), nil
	case "info", "":
		return Level(slog.LevelInfo), nil
	case "warn":
		return Level(slog.LevelWarn), nil
	case "error":
		return Level(slog.LevelError), nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// UseJournal enables the systemd journal handler.
type UseJournal bool

func (Module) UseJournal() UseJournal {
	return false
}
