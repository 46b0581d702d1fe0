package procmanager

import (
	"github.com/rs/zerolog"
)

// stderrLogWriter adapts a subprocess's captured stderr stream into the
// Manager's structured logger, one log entry per Write call. A Spawner
// that assigns the writer to cmd.Stderr directly passes whatever chunks
// the pipe delivers, so one entry can hold several lines or part of one.
type stderrLogWriter struct {
	log  zerolog.Logger
	kind string
	id   string
}

func newStderrLogWriter(log zerolog.Logger, kind, id string) *stderrLogWriter {
	return &stderrLogWriter{log: log, kind: kind, id: id}
}

func (w *stderrLogWriter) Write(p []byte) (int, error) {
	w.log.Warn().Str("kind", w.kind).Str("record_id", w.id).Msg(string(p))
	return len(p), nil
}
