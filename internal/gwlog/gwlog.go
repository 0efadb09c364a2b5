// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package gwlog provides the tagged log.Printf convention used across
// gwarden: every line is prefixed with a bracketed subsystem tag, e.g.
// "[ROLLBACK] snapshot write failed: ...". There is no structured
// logging library in the dependency set this project draws from, so
// this stays a thin wrapper over the standard log package.
package gwlog

import "log"

// Logger emits tagged lines through the standard library logger.
type Logger struct {
	tag string
}

// New returns a Logger that prefixes every line with "[tag] ".
func New(tag string) *Logger {
	return &Logger{tag: tag}
}

func (l *Logger) Printf(format string, args ...any) {
	log.Printf("["+l.tag+"] "+format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	log.Printf("["+l.tag+"] warning: "+format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	log.Printf("["+l.tag+"] error: "+format, args...)
}
