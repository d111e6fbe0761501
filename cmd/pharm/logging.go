package main

import (
	"io"

	"github.com/charmbracelet/log"
)

// logAdapter exposes a charm logger through the string-message Logger
// interfaces of the internal packages.
type logAdapter struct {
	l *log.Logger
}

func newLogger(w io.Writer, verbose bool) logAdapter {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	return logAdapter{l: log.NewWithOptions(w, log.Options{
		Prefix: "pharm",
		Level:  level,
	})}
}

func (a logAdapter) Debug(msg string, keyvals ...interface{}) { a.l.Debug(msg, keyvals...) }
func (a logAdapter) Info(msg string, keyvals ...interface{})  { a.l.Info(msg, keyvals...) }
func (a logAdapter) Warn(msg string, keyvals ...interface{})  { a.l.Warn(msg, keyvals...) }
func (a logAdapter) Error(msg string, keyvals ...interface{}) { a.l.Error(msg, keyvals...) }

// consoleOutput prints trust warnings to the terminal.
type consoleOutput struct {
	w io.Writer
}

func (o consoleOutput) WriteWarning(message string) {
	_, _ = io.WriteString(o.w, WarningStyle.Render("Warning:")+" "+message+"\n")
}
