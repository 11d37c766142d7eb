package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	InfoLogger  *logrus.Logger
	WarnLogger  *logrus.Logger
	ErrorLogger *logrus.Logger
)

func init() {
	// Usable before InitLoggers runs, e.g. in package tests.
	InfoLogger = newLogger(os.Stdout, logrus.InfoLevel)
	WarnLogger = newLogger(os.Stdout, logrus.WarnLevel)
	ErrorLogger = newLogger(os.Stderr, logrus.ErrorLevel)
}

// InitLoggers points all loggers at stdout plus a size-rotated log file.
func InitLoggers() {
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "logs/app.log"
	}
	_ = os.MkdirAll(filepath.Dir(logFile), 0o755)

	rotator := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}

	InfoLogger = newLogger(io.MultiWriter(os.Stdout, rotator), logrus.InfoLevel)
	WarnLogger = newLogger(io.MultiWriter(os.Stdout, rotator), logrus.WarnLevel)
	ErrorLogger = newLogger(io.MultiWriter(os.Stderr, rotator), logrus.ErrorLevel)

	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		InfoLogger.SetLevel(lvl)
	}
}

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	return l
}
