// logutil.go - slog-Logger-Konstruktion
//
// Der Teacher importiert github.com/ollama/ollama/logutil aus
// runner.go, aber das Paket selbst fehlte im Retrieval-Snapshot; diese
// Datei rekonstruiert die aus dem Aufrufer ersichtliche Form.
package logutil

import (
	"io"
	"log/slog"
)

// NewLogger builds a text-handler slog.Logger writing to w at the
// given level, with source location attached only below Info so a
// normal run stays quiet but a debug run gets file:line context.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level < slog.LevelInfo,
	}))
}
