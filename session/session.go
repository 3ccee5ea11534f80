// Package session ties one terminal engine to one transport. The engine is
// single-threaded, so the session serializes every touch of it behind a
// mutex: the transport goroutine feeds output in, the interactive layer
// sends keys and reads state for rendering.
package session

import (
	"io"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/ahagelberg/Yassh/config"
	"github.com/ahagelberg/Yassh/ssh"
	"github.com/ahagelberg/Yassh/terminal"
)

// Transport moves bytes between the session and a shell. ssh.Connection
// implements it for remote shells, localShell for local ones.
type Transport interface {
	Write(data []byte)
	Resize(cols, rows int)
	Disconnect()
	Events() <-chan ssh.Event
}

// Session owns a terminal and the transport feeding it.
type Session struct {
	cfg config.Session

	mu        sync.Mutex
	term      *terminal.Terminal
	transport Transport
	connected bool
	lastErr   error
	tap       io.Writer

	// Redraw is signalled (non-blocking) whenever terminal state changed
	// and the screen should be repainted.
	redraw chan struct{}
	done   chan struct{}
}

// New builds a session around an already-dialing transport. The pump
// goroutine runs until the transport's event channel closes.
func New(cfg config.Session, transport Transport, cols, rows int) *Session {
	s := &Session{
		cfg: cfg,
		term: terminal.New(terminal.Config{
			Columns:         cols,
			Rows:            rows,
			ScrollbackLines: cfg.ScrollbackLines,
			Foreground:      cfg.ForegroundColor.RGBA(),
			Background:      cfg.BackgroundColor.RGBA(),
		}),
		transport: transport,
		redraw:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go s.pump()
	return s
}

// Config returns the profile this session was opened from.
func (s *Session) Config() config.Session {
	return s.cfg
}

// Redraw returns the channel signalled when the screen content changed.
func (s *Session) Redraw() <-chan struct{} {
	return s.redraw
}

// Done returns the channel closed when the transport has disconnected.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Connected reports whether the shell is currently up.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Err returns the connection error, if the session ended with one.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) pump() {
	for ev := range s.transport.Events() {
		switch ev := ev.(type) {
		case ssh.EventConnected:
			s.mu.Lock()
			s.connected = true
			s.mu.Unlock()
		case ssh.EventData:
			s.mu.Lock()
			s.term.Process(ev.Data)
			tap := s.tap
			s.mu.Unlock()
			if tap != nil {
				tap.Write(ev.Data)
			}
			s.signalRedraw()
		case ssh.EventDisconnected:
			s.mu.Lock()
			s.connected = false
			s.mu.Unlock()
			log.WithFields(log.Fields{"session": s.cfg.ID, "natural": ev.Natural}).
				Debug("transport closed")
		case ssh.EventError:
			s.mu.Lock()
			s.connected = false
			s.lastErr = ev.Err
			s.mu.Unlock()
		}
	}
	close(s.done)
	s.signalRedraw()
}

func (s *Session) signalRedraw() {
	select {
	case s.redraw <- struct{}{}:
	default:
	}
}

// Tee mirrors subsequent raw output bytes to w, for attaching a real
// terminal to the session. Bytes that arrived before the call are only in
// the engine, not replayed.
func (s *Session) Tee(w io.Writer) {
	s.mu.Lock()
	s.tap = w
	s.mu.Unlock()
}

// SendText transmits typed characters to the shell.
func (s *Session) SendText(text string) {
	s.transport.Write([]byte(text))
}

// SendKey transmits a special key, encoded for the terminal's current
// cursor-keys mode.
func (s *Session) SendKey(k Key) {
	s.mu.Lock()
	appMode := s.term.CursorKeysApplication()
	s.mu.Unlock()
	if seq := encodeKey(k, appMode, s.backspaceSeq()); seq != nil {
		s.transport.Write(seq)
	}
}

// SendCtrl transmits a ctrl-chorded character.
func (s *Session) SendCtrl(r rune) {
	if seq, ok := encodeCtrl(r); ok {
		s.transport.Write(seq)
	}
}

func (s *Session) backspaceSeq() []byte {
	if s.cfg.Backspace == config.BackspaceCtrlH {
		return []byte{0x08}
	}
	return []byte{0x7F}
}

// Paste transmits pasted text, wrapped in paste markers when the remote
// application enabled bracketed paste.
func (s *Session) Paste(text string) {
	s.mu.Lock()
	bracketed := s.term.BracketedPaste()
	s.mu.Unlock()
	if bracketed {
		s.transport.Write([]byte("\x1b[200~" + text + "\x1b[201~"))
		return
	}
	s.transport.Write([]byte(text))
}

// Resize propagates a viewport change to the terminal and the remote PTY.
func (s *Session) Resize(cols, rows int) {
	s.mu.Lock()
	s.term.Resize(cols, rows)
	s.mu.Unlock()
	s.transport.Resize(cols, rows)
}

// Close disconnects the transport. The pump keeps draining until the
// transport closes its event channel.
func (s *Session) Close() {
	s.transport.Disconnect()
}

// WithTerminal runs fn with exclusive access to the terminal, for
// rendering and state queries.
func (s *Session) WithTerminal(fn func(t *terminal.Terminal)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.term)
}

// TakeBell drains a pending bell.
func (s *Session) TakeBell() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.term.TakeBell()
}

// TakeTitle drains a pending title change.
func (s *Session) TakeTitle() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.term.TakeTitle()
}

// SelectText extracts copyable text between two absolute line positions.
func (s *Session) SelectText(startRow, startCol, endRow, endCol int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.term.TextRange(startRow, startCol, endRow, endCol)
}
