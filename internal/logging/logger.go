// Package logging provides categorized structured logging for tradecompass.
// Each subsystem logs under its own category so a single run can be traced
// across bucketing, context building, execution, guarding and persistence.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBucketing Category = "bucketing" // feature extraction
	CategoryContracts Category = "contracts" // schema validation
	CategoryContext   Category = "context"   // stage input building
	CategoryExecutor  Category = "executor"  // stage execution, backend calls
	CategoryDoctrine  Category = "doctrine"  // content policy evaluation
	CategoryPipeline  Category = "pipeline"  // orchestrator state machine
	CategoryStore     Category = "store"     // artifact persistence
	CategoryConfig    Category = "config"    // configuration loading
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	loggers = make(map[Category]*zap.SugaredLogger)
)

// Initialize installs the process logger. Call once at startup; before
// that, all categories log to a nop logger so library use stays quiet.
func Initialize(level string, verbose bool) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	SetLogger(logger)
	return nil
}

// SetLogger replaces the root logger. Tests use this with zap.NewNop.
func SetLogger(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = logger
	loggers = make(map[Category]*zap.SugaredLogger)
}

// Get returns the sugared logger for a category.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[cat]; ok {
		return l
	}
	l := root.Named(string(cat)).Sugar()
	loggers[cat] = l
	return l
}

// Sync flushes buffered log entries. Safe to call at process exit.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
