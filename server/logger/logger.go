package logger

import (
	"io"
	"io/ioutil"
	"sync"

	gnatsd "github.com/nats-io/nats-server/v2/server"
	log "github.com/sirupsen/logrus"
)

// Logger interface is used to allow tests to inject custom loggers.
type Logger interface {
	Fatalf(string, ...interface{})
	Debugf(string, ...interface{})
	Errorf(string, ...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Debug(...interface{})
	Warn(...interface{})
	Info(...interface{})
	Fatal(...interface{})
	Silent(bool)
	Prefix(string)
}

// EntryLogger is implemented by loggers that can hand out a Logrus entry for
// libraries that log through Logrus directly, such as the gRPC interceptors.
type EntryLogger interface {
	Logger
	Entry() *log.Entry
}

type logger struct {
	*log.Logger
	mu        sync.Mutex
	formatter *prefixFormatter
	savedOut  io.Writer
}

// NewLogger returns a new Logger instance backed by Logrus.
func NewLogger(level uint32) Logger {
	l := log.New()
	l.SetLevel(log.Level(level))
	formatter := &prefixFormatter{
		Formatter: &log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		},
	}
	l.Formatter = formatter
	return &logger{Logger: l, formatter: formatter}
}

// Silent discards all output while enabled. Disabling it restores the writer
// that was in use when it was enabled.
func (l *logger) Silent(enable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if enable {
		if l.savedOut == nil {
			l.savedOut = l.Out
			l.Logger.SetOutput(ioutil.Discard)
		}
		return
	}
	if l.savedOut == nil {
		panic("logger: Silent(false) called without Silent(true)")
	}
	l.Logger.SetOutput(l.savedOut)
	l.savedOut = nil
}

// Prefix sets a string prepended to every message. An empty prefix clears it.
func (l *logger) Prefix(prefix string) {
	l.mu.Lock()
	l.formatter.setPrefix(prefix)
	l.mu.Unlock()
}

func (l *logger) Entry() *log.Entry {
	return log.NewEntry(l.Logger)
}

// prefixFormatter prepends a fixed prefix to the message of every entry.
type prefixFormatter struct {
	log.Formatter
	mu     sync.RWMutex
	prefix string
}

func (p *prefixFormatter) setPrefix(prefix string) {
	p.mu.Lock()
	p.prefix = prefix
	p.mu.Unlock()
}

func (p *prefixFormatter) Format(entry *log.Entry) ([]byte, error) {
	p.mu.RLock()
	prefix := p.prefix
	p.mu.RUnlock()
	if prefix == "" {
		return p.Formatter.Format(entry)
	}
	e := *entry
	e.Message = prefix + entry.Message
	return p.Formatter.Format(&e)
}

// natsLogger implements the NATS server logger interface by writing log
// messages to a shiftd logger.
type natsLogger struct {
	logger Logger
}

// NewNATSLogger creates a NATS logger that writes log messages to the given
// Logger.
func NewNATSLogger(logger Logger, enabled bool) gnatsd.Logger {
	if enabled {
		return &natsLogger{logger}
	}
	return &noopNATSLogger{logger}
}

// Noticef logs a notice statement.
func (n *natsLogger) Noticef(format string, v ...interface{}) {
	n.logger.Infof("nats: "+format, v...)
}

// Warnf logs a warning statement.
func (n *natsLogger) Warnf(format string, v ...interface{}) {
	n.logger.Warnf("nats: "+format, v...)
}

// Fatalf logs a fatal error.
func (n *natsLogger) Fatalf(format string, v ...interface{}) {
	n.logger.Fatalf("nats: "+format, v...)
}

// Errorf logs an error.
func (n *natsLogger) Errorf(format string, v ...interface{}) {
	n.logger.Errorf("nats: "+format, v...)
}

// Debugf logs a debug statement.
func (n *natsLogger) Debugf(format string, v ...interface{}) {
	n.logger.Debugf("nats: "+format, v...)
}

// Tracef logs a trace statement.
func (n *natsLogger) Tracef(format string, v ...interface{}) {
	n.logger.Debugf("nats: "+format, v...)
}

// noopNATSLogger implements the NATS server logger interface by performing a
// no-op for each log statement with the exception of Fatalf.
type noopNATSLogger struct {
	logger Logger
}

// Noticef is a no-op.
func (n *noopNATSLogger) Noticef(format string, v ...interface{}) {}

// Warnf is a no-op.
func (n *noopNATSLogger) Warnf(format string, v ...interface{}) {}

// Fatalf logs a fatal error.
func (n *noopNATSLogger) Fatalf(format string, v ...interface{}) {
	n.logger.Fatalf("nats: "+format, v...)
}

// Errorf is a no-op.
func (n *noopNATSLogger) Errorf(format string, v ...interface{}) {}

// Debugf is a no-op.
func (n *noopNATSLogger) Debugf(format string, v ...interface{}) {}

// Tracef is a no-op.
func (n *noopNATSLogger) Tracef(format string, v ...interface{}) {}
