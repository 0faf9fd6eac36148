// Package control reads single-key operator commands from the terminal.
package control

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Command is an operator command.
type Command rune

const (
	LiquidateSolana Command = 's'
	LiquidateBase   Command = 'b'
	ShowPositions   Command = 'p'
	Quit            Command = 'q'
)

const ctrlC = 0x03

// Help is the one-line key legend printed at startup.
const Help = "keys: [s] liquidate solana  [b] liquidate base  [p] positions  [q] quit"

func (c Command) String() string {
	switch c {
	case LiquidateSolana:
		return "liquidate-solana"
	case LiquidateBase:
		return "liquidate-base"
	case ShowPositions:
		return "positions"
	case Quit:
		return "quit"
	default:
		return "unknown"
	}
}

// Parse maps one key press to a command. Keys are case-insensitive and
// Ctrl-C maps to Quit since raw mode disables the interrupt signal.
func Parse(b byte) (Command, bool) {
	if b == ctrlC {
		return Quit, true
	}
	switch Command(b | 0x20) {
	case LiquidateSolana, LiquidateBase, ShowPositions, Quit:
		return Command(b | 0x20), true
	}
	return 0, false
}

// ParseLine maps a line of input to a command by its first non-blank character.
func ParseLine(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, false
	}
	return Parse(line[0])
}

// Keyboard delivers commands read from in. A terminal is switched to raw mode
// so that single keys arrive without Enter; other inputs are read line by line.
type Keyboard struct {
	in     io.Reader
	fd     int
	tty    bool
	logger *logrus.Entry

	mu    sync.Mutex
	state *term.State
}

// NewKeyboard creates a Keyboard over in, usually os.Stdin.
func NewKeyboard(in io.Reader, logger *logrus.Entry) *Keyboard {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	k := &Keyboard{in: in, logger: logger.WithField("component", "control")}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		k.fd = int(f.Fd())
		k.tty = true
	}
	return k
}

// Raw reports whether the keyboard reads single keys.
func (k *Keyboard) Raw() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state != nil
}

// Start begins reading. The returned channel closes at end of input or when
// ctx is done. Close must be called to restore the terminal.
func (k *Keyboard) Start(ctx context.Context) (<-chan Command, error) {
	if k.tty {
		state, err := term.MakeRaw(k.fd)
		if err != nil {
			k.logger.WithError(err).Warn("raw mode unavailable, falling back to line mode")
		} else {
			k.mu.Lock()
			k.state = state
			k.mu.Unlock()
		}
	}

	out := make(chan Command)
	if k.Raw() {
		go k.readKeys(ctx, out)
	} else {
		go k.readLines(ctx, out)
	}
	return out, nil
}

// Close restores the terminal state. It is safe to call more than once.
func (k *Keyboard) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.state == nil {
		return nil
	}
	err := term.Restore(k.fd, k.state)
	k.state = nil
	return err
}

func (k *Keyboard) readKeys(ctx context.Context, out chan<- Command) {
	defer close(out)
	buf := make([]byte, 1)
	for {
		n, err := k.in.Read(buf)
		if n == 1 {
			if cmd, ok := Parse(buf[0]); ok && !send(ctx, out, cmd) {
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				k.logger.WithError(err).Warn("keyboard read failed")
			}
			return
		}
	}
}

func (k *Keyboard) readLines(ctx context.Context, out chan<- Command) {
	defer close(out)
	scanner := bufio.NewScanner(k.in)
	for scanner.Scan() {
		cmd, ok := ParseLine(scanner.Text())
		if !ok {
			continue
		}
		if !send(ctx, out, cmd) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		k.logger.WithError(err).Warn("input read failed")
	}
}

func send(ctx context.Context, out chan<- Command, cmd Command) bool {
	select {
	case out <- cmd:
		return true
	case <-ctx.Done():
		return false
	}
}

// CRLFWriter rewrites bare line feeds as CRLF, keeping log lines aligned while
// the terminal is in raw mode.
type CRLFWriter struct {
	W io.Writer
}

// Write implements io.Writer.
func (w CRLFWriter) Write(p []byte) (int, error) {
	if !bytes.Contains(p, []byte{'\n'}) {
		return w.W.Write(p)
	}
	converted := bytes.ReplaceAll(p, []byte("\r\n"), []byte("\n"))
	converted = bytes.ReplaceAll(converted, []byte("\n"), []byte("\r\n"))
	if _, err := w.W.Write(converted); err != nil {
		return 0, err
	}
	return len(p), nil
}
