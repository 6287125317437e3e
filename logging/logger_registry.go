package logging

import (
	"regexp"
	"sync"
)

var globalLoggerRegistry = newRegistry()

// levelRule is a compiled LoggerPatternConfig.
type levelRule struct {
	match *regexp.Regexp
	level Level
}

// Registry tracks named loggers so that level patterns can be applied to them after creation.
type Registry struct {
	mu      sync.RWMutex
	loggers map[string]Logger
	rules   []levelRule
}

func newRegistry() *Registry {
	return &Registry{loggers: make(map[string]Logger)}
}

func (lr *Registry) registerLogger(name string, logger Logger) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.loggers[name] = logger
}

func (lr *Registry) loggerNamed(name string) (Logger, bool) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	logger, ok := lr.loggers[name]
	return logger, ok
}

// levelFor returns the level of the last rule matching name.
func levelFor(rules []levelRule, name string) (Level, bool) {
	level, found := INFO, false
	for _, r := range rules {
		if r.match.MatchString(name) {
			level, found = r.level, true
		}
	}
	return level, found
}

// UpdateConfig replaces the patterns and re-levels every registered logger. When several
// patterns match a logger the last one wins; loggers matching none return to INFO. Invalid
// patterns are skipped with a warning on errorLogger, while an unknown level fails the update.
func (lr *Registry) UpdateConfig(logConfig []LoggerPatternConfig, errorLogger Logger) error {
	rules := make([]levelRule, 0, len(logConfig))
	for _, lpc := range logConfig {
		if !validatePattern(lpc.Pattern) {
			errorLogger.Warnw("failed to validate a pattern", "pattern", lpc.Pattern)
			continue
		}
		match, err := compilePattern(lpc.Pattern)
		if err != nil {
			return err
		}
		level, err := LevelFromString(lpc.Level)
		if err != nil {
			return err
		}
		rules = append(rules, levelRule{match: match, level: level})
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.rules = rules
	for name, logger := range lr.loggers {
		level, _ := levelFor(rules, name)
		logger.SetLevel(level)
	}
	return nil
}

// getOrRegister returns the logger already registered under name, or registers logger, leveled
// by the current patterns when one matches.
func (lr *Registry) getOrRegister(name string, logger Logger) Logger {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if existing, ok := lr.loggers[name]; ok {
		return existing
	}
	lr.loggers[name] = logger
	if level, ok := levelFor(lr.rules, name); ok {
		logger.SetLevel(level)
	}
	return logger
}

// UpdateLoggerLevels applies level patterns to all loggers created with NewLogger or Sublogger.
func UpdateLoggerLevels(logConfig []LoggerPatternConfig, errorLogger Logger) error {
	return globalLoggerRegistry.UpdateConfig(logConfig, errorLogger)
}
