package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var (
	loggingFilePath string
)

// Init configures the global logrus instance. verbosity is the count of -v
// flags: 0 = info, 1 = debug, 2+ = trace. When logFilePath is set, output is
// mirrored to a rotating log file.
func Init(verbosity int, logFilePath string) error {
	logrus.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceFormatting: true,
	})

	switch {
	case verbosity <= 0:
		logrus.SetLevel(logrus.InfoLevel)
	case verbosity == 1:
		logrus.SetLevel(logrus.DebugLevel)
	default:
		logrus.SetLevel(logrus.TraceLevel)
	}

	writers := []io.Writer{os.Stdout}

	if logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
			return err
		}

		writers = append(writers, &lumberjack.Logger{
			Filename:   logFilePath,
			MaxSize:    5,
			MaxBackups: 5,
			MaxAge:     30,
		})
		loggingFilePath = logFilePath
	}

	logrus.SetOutput(io.MultiWriter(writers...))
	return nil
}

// GetLogger returns a component-scoped log entry.
func GetLogger(prefix string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"prefix": prefix})
}

// FilePath returns the active log file path, if any.
func FilePath() string {
	return loggingFilePath
}
