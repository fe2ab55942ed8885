package gateway

import (
	"bytes"
	"log/slog"
	"sync"
)

// logWriter turns engine stderr into debug log records, one per line.
type logWriter struct {
	log *slog.Logger

	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimRight(w.buf.Next(i+1), "\r\n"))
		if line != "" {
			w.log.Debug("engine stderr", "line", line)
		}
	}
	return len(p), nil
}
