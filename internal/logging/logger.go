package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// Logger defines a minimal, printf-style logging contract.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

var (
	rootInstance *fileLogger
	rootOnce     sync.Once
)

// fileLogger writes leveled, component-tagged lines to miniapp-debug.log
// and stdout.
type fileLogger struct {
	file      *os.File
	logger    *log.Logger
	level     LogLevel
	mu        sync.Mutex
	component string
}

func root() *fileLogger {
	rootOnce.Do(func() {
		rootInstance = newFileLogger(DEBUG)
	})
	return rootInstance
}

// NewComponentLogger creates a logger for a specific component.
func NewComponentLogger(component string) Logger {
	r := root()
	return &fileLogger{
		file:      r.file,
		logger:    r.logger,
		level:     r.level,
		component: component,
	}
}

func newFileLogger(level LogLevel) *fileLogger {
	l := &fileLogger{level: level}

	dir := os.Getenv("MINIAPP_LOG_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Printf("Failed to get home directory: %v", err)
			return l
		}
		dir = home
	}

	logPath := filepath.Join(dir, "miniapp-debug.log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Printf("Failed to open log file: %v", err)
		return l
	}

	l.file = file
	l.logger = log.New(file, "", 0) // formatted by hand below
	return l
}

// SetLevel sets the minimum log level on the process-wide logger.
func SetLevel(level LogLevel) {
	r := root()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.level = level
}

func (l *fileLogger) log(level LogLevel, format string, args ...any) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	} else {
		file = "???"
		line = 0
	}

	// Format: 2025-09-30 12:34:56 [INFO] [ComponentName] file.go:123 - Message
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	component := l.component
	if component == "" {
		component = "MINIAPP"
	}

	message := fmt.Sprintf(format, args...)
	logLine := fmt.Sprintf("%s [%s] [%s] %s:%d - %s\n",
		timestamp, levelToString(level), component, file, line, message)

	sanitized := sanitizeLogLine(logLine)

	if l.logger != nil {
		l.logger.Print(sanitized)
	}
	fmt.Print(sanitized)
}

func (l *fileLogger) Debug(format string, args ...any) { l.log(DEBUG, format, args...) }
func (l *fileLogger) Info(format string, args ...any)  { l.log(INFO, format, args...) }
func (l *fileLogger) Warn(format string, args ...any)  { l.log(WARN, format, args...) }
func (l *fileLogger) Error(format string, args ...any) { l.log(ERROR, format, args...) }

func levelToString(level LogLevel) string {
	switch level {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop()
	}
	return logger
}

const redactionPlaceholder = "[REDACTED]"

var (
	sensitiveKeyValuePattern = regexp.MustCompile(
		`(?i)((?:"|')?(?:api[_-]?key|access[_-]?token|refresh[_-]?token|token|secret|password|credential)(?:"|')?\s*(?:=|:)\s*)(?:"|')?([^"'\s,;&]+)((?:"|')?)`,
	)
	bearerTokenPattern = regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9\-\._~+/]+=*)`)
	queryKeyPattern    = regexp.MustCompile(`([?&]key=)([^&\s"']+)`)
)

// sanitizeLogLine strips API keys and tokens before anything reaches disk.
// Artifact URIs carry the credential as a query parameter, so those are
// scrubbed too.
func sanitizeLogLine(line string) string {
	sanitized := sensitiveKeyValuePattern.ReplaceAllStringFunc(line, func(match string) string {
		submatches := sensitiveKeyValuePattern.FindStringSubmatch(match)
		if len(submatches) != 4 {
			return match
		}
		return submatches[1] + redactionPlaceholder + submatches[3]
	})

	sanitized = bearerTokenPattern.ReplaceAllStringFunc(sanitized, func(match string) string {
		parts := bearerTokenPattern.FindStringSubmatch(match)
		if len(parts) != 3 {
			return match
		}
		return parts[1] + redactionPlaceholder
	})

	sanitized = queryKeyPattern.ReplaceAllString(sanitized, "${1}"+redactionPlaceholder)
	return sanitized
}
