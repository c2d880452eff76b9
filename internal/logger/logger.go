// Package logger provides leveled logging for the watcher daemon.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level represents a logging level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = map[string]Level{
	"debug": DebugLevel,
	"info":  InfoLevel,
	"warn":  WarnLevel,
	"error": ErrorLevel,
}

type leveledLogger struct {
	level  Level
	logger *log.Logger
}

var defaultLogger *leveledLogger

// Init initializes the default logger. Unknown level names fall back
// to info. The "text" format adds caller file/line for local debugging.
func Init(level, format string) {
	l, ok := levelNames[strings.ToLower(level)]
	if !ok {
		l = InfoLevel
	}
	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}
	defaultLogger = &leveledLogger{level: l, logger: log.New(os.Stderr, "", flags)}
}

// SetOutput redirects log output, used by tests.
func SetOutput(w io.Writer) {
	if defaultLogger != nil {
		defaultLogger.logger.SetOutput(w)
	}
}

func emit(min Level, tag, format string, args ...interface{}) {
	if defaultLogger == nil || defaultLogger.level > min {
		return
	}
	_ = defaultLogger.logger.Output(3, fmt.Sprintf(tag+format, args...))
}

func Debug(format string, args ...interface{}) { emit(DebugLevel, "[DEBUG] ", format, args...) }

func Info(format string, args ...interface{}) { emit(InfoLevel, "[INFO] ", format, args...) }

func Warn(format string, args ...interface{}) { emit(WarnLevel, "[WARN] ", format, args...) }

func Error(format string, args ...interface{}) { emit(ErrorLevel, "[ERROR] ", format, args...) }

// Fatal logs at error level and exits the process.
func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf("[FATAL] "+format, args...)
	if defaultLogger != nil {
		_ = defaultLogger.logger.Output(2, msg)
	} else {
		log.Print(msg)
	}
	os.Exit(1)
}
