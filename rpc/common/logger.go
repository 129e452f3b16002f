package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/time/rate"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultLogBuffer = 4096
	logTimeLayout    = "2006/01/02 15:04:05.000"
)

// --------------------------------------------------------------------------
// Log Sink (owns the output loop)
// --------------------------------------------------------------------------

// LogRecord is one formatted log line waiting to be written.
type LogRecord struct {
	Level logger.LogLevel
	Time  time.Time
	Name  string
	Msg   string
}

// LogSink accepts log records through a non-blocking send and writes them out
// from a single goroutine. When the buffer is full, records are dropped rather
// than blocking the caller.
//
// A sink is constructed explicitly and handed to each task through Logger(name),
// there is no process wide sink.
type LogSink struct {
	out     io.Writer
	level   logger.LogLevel
	records chan LogRecord
	done    chan struct{}
	dropped atomic.Uint64

	// mu guards closed so that no record is sent on the closed channel
	mu     sync.RWMutex
	closed bool
}

// NewLogSink creates a sink writing to out and starts its writer goroutine.
// Loggers created from the sink start with the given level.
func NewLogSink(out io.Writer, level string) (*LogSink, error) {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return nil, err
	}

	s := &LogSink{
		out:     out,
		level:   lvl,
		records: make(chan LogRecord, defaultLogBuffer),
		done:    make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Logger returns a named logger that sends its records to this sink.
// The returned value implements dragonboat's logger.ILogger.
func (s *LogSink) Logger(name string) logger.ILogger {
	l := &sinkLogger{
		name: name,
		sink: s,
	}
	l.SetLevel(s.level)
	return l
}

// Dropped returns the number of records discarded because the buffer was full.
func (s *LogSink) Dropped() uint64 {
	return s.dropped.Load()
}

// Close stops accepting records, writes out everything buffered and waits for the writer.
func (s *LogSink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.records)
	}
	s.mu.Unlock()
	<-s.done
}

// send enqueues a record without blocking
func (s *LogSink) send(rec LogRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}

	select {
	case s.records <- rec:
	default:
		s.dropped.Add(1)
	}
}

// run is the output loop of the sink
func (s *LogSink) run() {
	defer close(s.done)
	for rec := range s.records {
		_, _ = fmt.Fprintf(s.out, "%s %-5s | %-15s | %s\n",
			rec.Time.Format(logTimeLayout), levelName(rec.Level), rec.Name, rec.Msg)
	}
}

// --------------------------------------------------------------------------
// Named Logger (implements dragonboat's logger.ILogger)
// --------------------------------------------------------------------------

// sinkLogger implements the ILogger interface on top of a LogSink
type sinkLogger struct {
	name  string
	level atomic.Int32
	sink  *LogSink
}

func (l *sinkLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *sinkLogger) Debugf(format string, args ...interface{}) {
	l.log(logger.DEBUG, format, args...)
}

func (l *sinkLogger) Infof(format string, args ...interface{}) {
	l.log(logger.INFO, format, args...)
}

func (l *sinkLogger) Warningf(format string, args ...interface{}) {
	l.log(logger.WARNING, format, args...)
}

func (l *sinkLogger) Errorf(format string, args ...interface{}) {
	l.log(logger.ERROR, format, args...)
}

func (l *sinkLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.log(logger.CRITICAL, "%s", msg)
	panic(msg)
}

// log formats the message on the caller side and hands it to the sink
func (l *sinkLogger) log(level logger.LogLevel, format string, args ...interface{}) {
	if logger.LogLevel(l.level.Load()) < level {
		return
	}
	l.sink.send(LogRecord{
		Level: level,
		Time:  time.Now(),
		Name:  l.name,
		Msg:   fmt.Sprintf(format, args...),
	})
}

// --------------------------------------------------------------------------
// Rate Limited Warnings
// --------------------------------------------------------------------------

// RateLimitedLogger emits at most one warning per interval. Warnings in between are
// counted and the count is appended to the next warning that gets through.
// It is used on per-packet paths, where a flood of bad datagrams must not flood the log.
type RateLimitedLogger struct {
	log        logger.ILogger
	limiter    *rate.Limiter
	suppressed atomic.Uint64
}

// NewRateLimitedLogger wraps log, allowing one warning every interval
func NewRateLimitedLogger(log logger.ILogger, every time.Duration) *RateLimitedLogger {
	return &RateLimitedLogger{
		log:     log,
		limiter: rate.NewLimiter(rate.Every(every), 1),
	}
}

// Warningf logs the warning if the limiter allows it, otherwise counts it
func (r *RateLimitedLogger) Warningf(format string, args ...interface{}) {
	if !r.limiter.Allow() {
		r.suppressed.Add(1)
		return
	}
	msg := fmt.Sprintf(format, args...)
	if n := r.suppressed.Swap(0); n > 0 {
		msg = fmt.Sprintf("%s (%d similar warnings suppressed)", msg, n)
	}
	r.log.Warningf("%s", msg)
}

// Suppressed returns the number of warnings currently held back
func (r *RateLimitedLogger) Suppressed() uint64 {
	return r.suppressed.Load()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

func levelName(level logger.LogLevel) string {
	switch level {
	case logger.DEBUG:
		return "DEBUG"
	case logger.INFO:
		return "INFO"
	case logger.WARNING:
		return "WARN"
	case logger.ERROR:
		return "ERROR"
	case logger.CRITICAL:
		return "CRIT"
	default:
		return "?"
	}
}
