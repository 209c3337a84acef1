package logger

import (
	"fmt"
	"os"
	path "path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	TimestampFormat = "01/02/2006 15:04:05.000000 -0700"

	FormatText = "text"
	FormatJSON = "json"
)

var (
	filename = path.Base(os.Args[0])
)

func init() {
	log.SetLevel(log.InfoLevel)
	log.SetOutput(os.Stderr)
	log.SetFormatter(textFormatter())
}

func textFormatter() log.Formatter {
	return &log.TextFormatter{
		TimestampFormat:  TimestampFormat,
		FullTimestamp:    true,
		QuoteEmptyFields: true,
	}
}

// SetLoggingLevel sets the global level from a string such as "debug" or "error".
func SetLoggingLevel(level string) error {
	logLevel, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("could not parse log level '%v': %w", level, err)
	}

	log.SetLevel(logLevel)
	return nil
}

// SetFormat switches between the text and json formatters.
func SetFormat(format string) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		log.SetFormatter(textFormatter())
	case FormatJSON:
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: TimestampFormat})
	default:
		return fmt.Errorf("unknown log format '%v', expected one of: %v, %v", format, FormatText, FormatJSON)
	}

	return nil
}

// WithFields returns an entry carrying the src field plus the given fields.
func WithFields(fields log.Fields) *log.Entry {
	return entry().WithFields(fields)
}

func entry() *log.Entry {
	return log.WithField("src", filename)
}

func Debugf(format string, args ...interface{}) {
	entry().Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	entry().Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	entry().Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	entry().Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	entry().Fatalf(format, args...)
}
