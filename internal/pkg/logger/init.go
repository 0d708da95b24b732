package logger

import (
	"Courier/internal/api/config"
	"io"
	log "log/slog"
	"os"
)

var LogWriter io.Writer

func InitLogger() {
	cfg := config.Cfg.Log

	hStdout := log.NewJSONHandler(os.Stdout, &log.HandlerOptions{Level: log.LevelInfo})

	var finalHandler log.Handler = hStdout

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			hFile := log.NewJSONHandler(f, &log.HandlerOptions{Level: log.LevelInfo})
			finalHandler = &TeeHandler{
				handlers: []log.Handler{hStdout, hFile},
			}
			LogWriter = f
		} else {
			LogWriter = os.Stdout
			log.Warn("Failed to open log file, logging to stdout only", "err", err)
		}
	} else {
		LogWriter = os.Stdout
	}

	logger := log.New(&ContextHandler{finalHandler})
	log.SetDefault(logger)
}
