package server

import (
	"io"
	"log/slog"
)

// NopLogger returns a logger whose output is discarded. It is the default
// when the server is constructed without a logger.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
