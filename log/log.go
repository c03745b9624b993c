// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package log provides leveled loggers for hailexpr sessions. A
// session carries a *Logger built from its configuration; calls
// made on behalf of a single operation log through a child logger
// obtained from Tee, whose messages reach the session's outputter
// prefixed with the operation's name.
//
// Std is used where no session is in scope.
package log

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Level defines the level of logging. Higher levels are more
// verbose.
type Level int

const (
	// OffLevel turns logging off.
	OffLevel Level = iota
	// ErrorLevel outputs only error messages.
	ErrorLevel
	// InfoLevel is the standard error level.
	InfoLevel
	// DebugLevel outputs detailed debugging output.
	DebugLevel
)

var levelNames = [...]string{
	OffLevel:   "off",
	ErrorLevel: "error",
	InfoLevel:  "info",
	DebugLevel: "debug",
}

// String returns the configuration name of the level.
func (l Level) String() string {
	if l < OffLevel || l > DebugLevel {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel parses a level name (off, error, info, or debug),
// as it appears in a session configuration.
func ParseLevel(name string) (Level, error) {
	for l, n := range levelNames {
		if strings.EqualFold(n, name) {
			return Level(l), nil
		}
	}
	return OffLevel, fmt.Errorf("unknown log level %q", name)
}

// An Outputter receives published log messages. Go's
// *log.Logger implements Outputter.
type Outputter interface {
	Output(calldepth int, s string) error
}

// A Logger publishes messages at or below its level to its
// outputter and then to its parent, if any. Nil Loggers ignore all
// messages.
type Logger struct {
	// Outputter receives the logger's messages. It may be nil for
	// loggers that only publish to their parent.
	Outputter
	// Level is the most verbose level published by the logger.
	Level Level

	parent *Logger
	prefix string
}

// New returns a logger that publishes messages at or below level to
// out. New returns nil for OffLevel.
func New(out Outputter, level Level) *Logger {
	if level == OffLevel {
		return nil
	}
	return &Logger{Outputter: out, Level: level}
}

// Tee returns a child logger that publishes to out, which may be
// nil, and to l. Messages published to l are prefixed with prefix;
// prefixes of nested children appear outermost first.
func (l *Logger) Tee(out Outputter, prefix string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{Outputter: out, Level: l.Level, parent: l, prefix: prefix}
}

// Op returns a child logger for operation op, publishing only to l.
func (l *Logger) Op(op string) *Logger {
	return l.Tee(nil, op+": ")
}

// At tells whether the logger publishes messages at level.
func (l *Logger) At(level Level) bool {
	return l != nil && level <= l.Level
}

func (l *Logger) publish(level Level, msg string) {
	for ; l != nil; l = l.parent {
		if l.Outputter != nil && level <= l.Level {
			l.Output(3, msg)
		}
		msg = l.prefix + msg
	}
}

// Print formats a message in the manner of fmt.Print and publishes
// it at InfoLevel.
func (l *Logger) Print(v ...interface{}) {
	if l.At(InfoLevel) {
		l.publish(InfoLevel, fmt.Sprint(v...))
	}
}

// Printf formats a message in the manner of fmt.Printf and publishes
// it at InfoLevel.
func (l *Logger) Printf(format string, args ...interface{}) {
	if l.At(InfoLevel) {
		l.publish(InfoLevel, fmt.Sprintf(format, args...))
	}
}

// Error formats a message in the manner of fmt.Print and publishes
// it at ErrorLevel.
func (l *Logger) Error(v ...interface{}) {
	if l.At(ErrorLevel) {
		l.publish(ErrorLevel, fmt.Sprint(v...))
	}
}

// Errorf formats a message in the manner of fmt.Printf and publishes
// it at ErrorLevel.
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.At(ErrorLevel) {
		l.publish(ErrorLevel, fmt.Sprintf(format, args...))
	}
}

// Debug formats a message in the manner of fmt.Print and publishes
// it at DebugLevel.
func (l *Logger) Debug(v ...interface{}) {
	if l.At(DebugLevel) {
		l.publish(DebugLevel, fmt.Sprint(v...))
	}
}

// Debugf formats a message in the manner of fmt.Printf and publishes
// it at DebugLevel.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.At(DebugLevel) {
		l.publish(DebugLevel, fmt.Sprintf(format, args...))
	}
}

// Std is the standard logger.
var Std = New(log.New(os.Stderr, "", log.LstdFlags), InfoLevel)

// Errorf publishes an error message to Std.
func Errorf(format string, args ...interface{}) {
	Std.Errorf(format, args...)
}
