package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", appName, sessionStart.Format("20060102_150405")),
	)
}

// parseLevel converts a string log level to zerolog.Level.
func parseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "TRACE":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}

// Manager owns the process logger: console plus log file, with optional
// GELF shipping to Graylog when graylog.enabled is set.
type Manager struct {
	Logger zerolog.Logger

	file    *os.File
	graylog *gelf.Writer
}

// NewManager creates an unconfigured manager writing to stdout only.
func NewManager() *Manager {
	return &Manager{
		Logger: zerolog.New(os.Stdout).With().Timestamp().Logger(),
	}
}

// Setup initializes console, file, and optional GELF output at the
// configured level. The log file is created under logsDir.
func (m *Manager) Setup(logsDir, appName, level string, sessionStart time.Time) error {
	zerolog.SetGlobalLevel(parseLevel(level))
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs dir: %w", err)
	}

	file, err := os.Create(LogFilePath(logsDir, appName, sessionStart))
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	m.file = file

	writers := []io.Writer{
		// console format with colors to console
		zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		},
		// console format without colors to file
		zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		},
	}

	if viper.GetBool("graylog.enabled") {
		gw, err := gelf.NewWriter(viper.GetString("graylog.address"))
		if err != nil {
			// Graylog being down should not stop a run from recording.
			m.Logger.Warn().Err(err).Msg("Failed to connect to Graylog, shipping disabled")
		} else {
			m.graylog = gw
			writers = append(writers, gw)
		}
	}

	mlw := zerolog.MultiLevelWriter(writers...)

	m.Logger = zerolog.New(mlw).With().Timestamp().Logger()
	m.Logger.Info().Str("loglevel", parseLevel(level).String()).Msg("Logging set up")
	return nil
}

// Close flushes and closes the log file and the Graylog connection.
func (m *Manager) Close() {
	if m.graylog != nil {
		_ = m.graylog.Close()
	}
	if m.file != nil {
		_ = m.file.Close()
	}
}
