package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is usable before Init so library code and tests never hit a nil logger.
var Log = logrus.New()

func Init() {
	Log = logrus.New()
	Log.SetOutput(os.Stdout)
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	Log.SetLevel(logLevel)
}

// SetLevel adjusts verbosity after Init, used by the CLI --verbose flag.
func SetLevel(level string) {
	if logLevel, err := logrus.ParseLevel(level); err == nil {
		Log.SetLevel(logLevel)
	}
}

func WithField(key string, value interface{}) *logrus.Entry {
	return Log.WithField(key, value)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log.WithFields(fields)
}
