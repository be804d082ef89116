package server

import (
	"github.com/provascan/provascan/internal/app"
	"github.com/provascan/provascan/internal/logging"
)

type Config struct {
	// ListenAddr is the HTTP listen address for the API server (CLI uses
	// the orchestrator in-process and does not require the network).
	ListenAddr string

	// AppConfig supplies the application-level settings; nil means
	// defaults.
	AppConfig *app.Config

	// Logger may be nil for the stdout default.
	Logger logging.Logger
}
