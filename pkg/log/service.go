package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	config "github.com/mwantia/sessionbrowser/internal/config/server"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LoggerService interface {
	Debug(msg string, args ...any)

	Info(msg string, args ...any)

	Warn(msg string, args ...any)

	Error(msg string, args ...any)

	Fatal(msg string, args ...any)

	Named(name string) LoggerService
}

type LoggerServiceImpl struct {
	cfg   config.LogServerConfig
	name  string
	level LogLevel
	out   *output
}

// output is shared by a logger and all of its named children.
type output struct {
	mu     sync.Mutex
	writer io.Writer
}

type logEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Service   string `json:"service,omitempty"`
	Message   string `json:"message"`
}

func NewLoggerService(name string, cfg config.LogServerConfig) LoggerService {
	impl := &LoggerServiceImpl{
		cfg:   cfg,
		name:  name,
		level: Parse(cfg.Level),
	}

	impl.out = &output{writer: impl.setupWriter()}
	return impl
}

// NewWriterLogger logs to w only, ignoring the file and terminal settings.
func NewWriterLogger(name string, cfg config.LogServerConfig, w io.Writer) LoggerService {
	cfg.NoColor = true
	return &LoggerServiceImpl{
		cfg:   cfg,
		name:  name,
		level: Parse(cfg.Level),
		out:   &output{writer: w},
	}
}

// Nop discards everything.
func Nop() LoggerService {
	return &LoggerServiceImpl{level: Fatal + 1, out: &output{writer: io.Discard}}
}

func (impl *LoggerServiceImpl) setupWriter() io.Writer {
	var writers []io.Writer

	if !impl.cfg.NoTerminal {
		writers = append(writers, os.Stdout)
	}

	if impl.cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   impl.cfg.File,
			MaxSize:    impl.cfg.Rotation.MaxSize,
			MaxBackups: impl.cfg.Rotation.MaxBackups,
			MaxAge:     impl.cfg.Rotation.MaxAge,
			Compress:   impl.cfg.Rotation.Compress,
		})
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	return io.MultiWriter(writers...)
}

func (impl *LoggerServiceImpl) log(level LogLevel, msg string, args ...any) {
	if level < impl.level {
		return
	}

	format := impl.cfg.TimeFormat
	if format == "" {
		format = time.RFC3339
	}
	timestamp := time.Now().Format(format)
	formattedMsg := fmt.Sprintf(msg, args...)

	impl.out.mu.Lock()
	defer impl.out.mu.Unlock()

	if impl.cfg.JSON {
		entry := logEntry{
			Timestamp: timestamp,
			Level:     level.String(),
			Service:   impl.name,
			Message:   formattedMsg,
		}

		jsonBytes, _ := json.Marshal(entry)
		fmt.Fprintf(impl.out.writer, "%s\n", jsonBytes)
	} else {
		prefix := fmt.Sprintf("[%s] %-5s", timestamp, level)
		if impl.name != "" {
			prefix = fmt.Sprintf("%s [%s]", prefix, impl.name)
		}

		if !impl.cfg.NoTerminal && !impl.cfg.NoColor {
			fmt.Fprintf(impl.out.writer, "%s%s %s\033[0m\n", Color(level), prefix, formattedMsg)
		} else {
			fmt.Fprintf(impl.out.writer, "%s %s\n", prefix, formattedMsg)
		}
	}

	if level == Fatal {
		os.Exit(1)
	}
}

func (impl *LoggerServiceImpl) Debug(msg string, args ...any) {
	impl.log(Debug, msg, args...)
}

func (impl *LoggerServiceImpl) Info(msg string, args ...any) {
	impl.log(Info, msg, args...)
}

func (impl *LoggerServiceImpl) Warn(msg string, args ...any) {
	impl.log(Warn, msg, args...)
}

func (impl *LoggerServiceImpl) Error(msg string, args ...any) {
	impl.log(Error, msg, args...)
}

func (impl *LoggerServiceImpl) Fatal(msg string, args ...any) {
	impl.log(Fatal, msg, args...)
}

func (impl *LoggerServiceImpl) Named(name string) LoggerService {
	full := name
	if impl.name != "" {
		full = fmt.Sprintf("%s/%s", impl.name, name)
	}
	return &LoggerServiceImpl{
		cfg:   impl.cfg,
		name:  full,
		level: impl.level,
		out:   impl.out,
	}
}
