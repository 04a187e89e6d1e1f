package app

import (
	"strings"

	"github.com/charlesng35/catalogadmin/pkg/logger"
)

// ConfigureLogging builds the process logger from the server section. Every
// entry carries the binary name as "service".
func ConfigureLogging(server ServerConfig, service string) error {
	level := strings.TrimSpace(server.LogLevel)
	if level == "" {
		level = "info"
	}
	return logger.InitWithOptions(logger.Options{Level: level, Format: server.LogFormat, Service: service})
}
