package logs

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

type Level string

const (
	INFO  Level = "INFO"
	WARN  Level = "WARN"
	ERROR Level = "ERROR"
	DEBUG Level = "DEBUG"
)

// levelPriority defines the priority of each log level
// higher value= more severe
var levelPriority = map[Level]int{
	DEBUG: 1,
	INFO:  2,
	WARN:  3,
	ERROR: 4,
}

// ParseLevel maps a case-insensitive level name to a Level.
// Unknown names fall back to INFO.
func ParseLevel(s string) Level {
	lvl := Level(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := levelPriority[lvl]; ok {
		return lvl
	}
	return INFO
}

type Entry struct {
	TimeStamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Source    string    `json:"source,omitempty"`
	Message   string    `json:"message"`
}

// Logger keeps the most recent entries in memory.
// A nil *Logger discards everything, so components can log unconditionally.
type Logger struct {
	mu      sync.Mutex
	entries []Entry
	maxSize int
	level   Level
}

// level: minimum log level to record(e.g., INFO, WARN, ERROR,DEBUG)
//
// maxsize: maximum number of log entries kept in memory
func NewLogger(maxSize int, level Level) *Logger {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Logger{
		entries: make([]Entry, 0, maxSize),
		maxSize: maxSize,
		level:   level,
	}
}

// log is the internal logging function
// it applies level filtering and ring buffer behavior
func (l *Logger) log(level Level, source, msg string) {
	if l == nil {
		return
	}
	//filter logs below the current level
	if levelPriority[level] < levelPriority[l.level] {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) >= l.maxSize {
		//remove oldest entry(ring behavior)
		l.entries = l.entries[1:]
	}

	l.entries = append(l.entries, Entry{
		TimeStamp: time.Now(),
		Level:     level,
		Source:    source,
		Message:   msg,
	})
}

func (l *Logger) Debug(msg string) {
	l.log(DEBUG, "", msg)
}

func (l *Logger) Info(msg string) {
	l.log(INFO, "", msg)
}

func (l *Logger) Warn(msg string) {
	l.log(WARN, "", msg)
}

func (l *Logger) Error(msg string) {
	l.log(ERROR, "", msg)
}

// Named returns a view of the logger that tags every entry with source.
func (l *Logger) Named(source string) *Source {
	return &Source{logger: l, name: source}
}

func (l *Logger) GetLast(n int) []Entry {
	if l == nil || n <= 0 {
		return []Entry{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if n > len(l.entries) {
		out := make([]Entry, len(l.entries))
		copy(out, l.entries)
		return out
	}

	start := len(l.entries) - n
	out := make([]Entry, n)
	copy(out, l.entries[start:])
	return out
}

// Source writes into a shared Logger under a fixed source name.
type Source struct {
	logger *Logger
	name   string
}

func (s *Source) logf(level Level, format string, args ...any) {
	if s == nil || s.logger == nil {
		return
	}
	if levelPriority[level] < levelPriority[s.logger.level] {
		return
	}
	s.logger.log(level, s.name, fmt.Sprintf(format, args...))
}

func (s *Source) Debugf(format string, args ...any) {
	s.logf(DEBUG, format, args...)
}

func (s *Source) Infof(format string, args ...any) {
	s.logf(INFO, format, args...)
}

func (s *Source) Warnf(format string, args ...any) {
	s.logf(WARN, format, args...)
}

func (s *Source) Errorf(format string, args ...any) {
	s.logf(ERROR, format, args...)
}
