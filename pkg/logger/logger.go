package logger

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

const timestampFormat = "2006-01-02 15:04:05"

type Options struct {
	File       string
	Verbosity  int
	MaxSize    int
	MaxBackups int
}

// Init configures the standard logrus logger. Verbosity 1 enables debug and
// anything above enables trace.
func Init(opt Options) error {
	level := logrus.InfoLevel
	switch {
	case opt.Verbosity == 1:
		level = logrus.DebugLevel
	case opt.Verbosity > 1:
		level = logrus.TraceLevel
	}

	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)
	logrus.SetFormatter(&prefixed.TextFormatter{
		DisableColors:   !isatty.IsTerminal(os.Stdout.Fd()),
		FullTimestamp:   true,
		TimestampFormat: timestampFormat,
		ForceFormatting: true,
	})

	if opt.File == "" {
		return nil
	}

	maxSize := opt.MaxSize
	if maxSize <= 0 {
		maxSize = 5
	}
	maxBackups := opt.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 10
	}

	logrus.AddHook(&fileHook{
		writer: &lumberjack.Logger{
			Filename:   opt.File,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
		},
		formatter: &prefixed.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
			ForceFormatting: true,
		},
	})

	return nil
}

func GetLogger(prefix string) *logrus.Entry {
	return logrus.WithField("prefix", prefix)
}

// fileHook mirrors every entry into the rotated log file without colors.
type fileHook struct {
	writer    io.Writer
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	b, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	_, err = h.writer.Write(b)
	return err
}
