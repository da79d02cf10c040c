// Package `mulog` provides minimal Zap-Sugar-like loggers with convenient
// structured logging `Levelw(msg, kv...)` functions.
package mulog

import (
	"fmt"
	"io"
	"os"
)

// `Printer` prints undecorated messages to stderr, using package `fmt`.
type Printer struct{}

func (Printer) Infow(msg string, kv ...interface{}) {
	fmt.Fprintf(os.Stderr, "info: %s %v\n", msg, kv)
}

func (Printer) Warnw(msg string, kv ...interface{}) {
	fmt.Fprintf(os.Stderr, "warning: %s %v\n", msg, kv)
}

func (Printer) Errorw(msg string, kv ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: %s %v\n", msg, kv)
}

func (Printer) Fatalw(msg string, kv ...interface{}) {
	fmt.Fprintf(os.Stderr, "fatal: %s %v\n", msg, kv)
	os.Exit(1)
}

// `Writer` prints undecorated messages to `W`.  Tests use it to capture log
// output.
type Writer struct {
	W io.Writer
}

func (p Writer) Infow(msg string, kv ...interface{}) {
	fmt.Fprintf(p.W, "info: %s %v\n", msg, kv)
}

func (p Writer) Warnw(msg string, kv ...interface{}) {
	fmt.Fprintf(p.W, "warning: %s %v\n", msg, kv)
}

func (p Writer) Errorw(msg string, kv ...interface{}) {
	fmt.Fprintf(p.W, "error: %s %v\n", msg, kv)
}

// `Discard` drops all messages.
type Discard struct{}

func (Discard) Infow(msg string, kv ...interface{})  {}
func (Discard) Warnw(msg string, kv ...interface{})  {}
func (Discard) Errorw(msg string, kv ...interface{}) {}
