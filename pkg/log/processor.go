package log

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/mwantia/fabric/pkg/container"
)

const tagPrefix = "logger"

// LoggerTagProcessor injects loggers for fabric:"logger" and
// fabric:"logger:<name>" struct tags.
type LoggerTagProcessor struct{}

func NewLoggerTagProcessor() *LoggerTagProcessor {
	return &LoggerTagProcessor{}
}

// GetPriority runs the processor ahead of the default inject processor.
func (ltp *LoggerTagProcessor) GetPriority() int {
	return 50
}

func (ltp *LoggerTagProcessor) CanProcess(value string) bool {
	_, ok := loggerName(value)
	return ok
}

// Process resolves the registered LoggerService and, for "logger:<name>",
// returns its named child.
func (ltp *LoggerTagProcessor) Process(ctx context.Context, sc *container.ServiceContainer, field reflect.StructField, value string) (any, error) {
	name, ok := loggerName(value)
	if !ok {
		return nil, fmt.Errorf("field '%s': unsupported tag value '%s'", field.Name, value)
	}

	base, err := FromContainer(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("field '%s': %w", field.Name, err)
	}

	if name == "" {
		return base, nil
	}
	return base.Named(name), nil
}

// Resolve returns the logger named name as the tag `fabric:"logger:<name>"` would.
func (ltp *LoggerTagProcessor) Resolve(ctx context.Context, sc *container.ServiceContainer, name string) (LoggerService, error) {
	value := tagPrefix
	if name != "" {
		value += ":" + name
	}

	resolved, err := ltp.Process(ctx, sc, reflect.StructField{Name: name}, value)
	if err != nil {
		return nil, err
	}
	return resolved.(LoggerService), nil
}

// FromContainer resolves the registered LoggerService.
func FromContainer(ctx context.Context, sc *container.ServiceContainer) (LoggerService, error) {
	ok, resolved := sc.ResolveByType(ctx, reflect.TypeOf((*LoggerService)(nil)).Elem())
	if !ok {
		return nil, fmt.Errorf("no logger service registered")
	}

	logger, ok := resolved.(LoggerService)
	if !ok {
		return nil, fmt.Errorf("resolved %T is not a LoggerService", resolved)
	}
	return logger, nil
}

// loggerName parses "logger" or "logger:<name>", case-insensitively.
func loggerName(value string) (string, bool) {
	head, name, found := strings.Cut(value, ":")
	if !strings.EqualFold(strings.TrimSpace(head), tagPrefix) {
		return "", false
	}
	if !found {
		return "", true
	}
	return strings.TrimSpace(name), true
}
