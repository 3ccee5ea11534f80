package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahagelberg/Yassh/config"
	"github.com/ahagelberg/Yassh/ssh"
	"github.com/ahagelberg/Yassh/terminal"
)

// fakeTransport records writes and lets tests inject events.
type fakeTransport struct {
	events  chan ssh.Event
	writes  chan []byte
	resizes chan [2]int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		events:  make(chan ssh.Event, 16),
		writes:  make(chan []byte, 16),
		resizes: make(chan [2]int, 16),
	}
}

func (f *fakeTransport) Events() <-chan ssh.Event { return f.events }
func (f *fakeTransport) Write(data []byte)        { f.writes <- data }
func (f *fakeTransport) Resize(cols, rows int)    { f.resizes <- [2]int{cols, rows} }
func (f *fakeTransport) Disconnect()              { close(f.events) }

func (f *fakeTransport) lastWrite(t *testing.T) []byte {
	t.Helper()
	select {
	case data := <-f.writes:
		return data
	case <-time.After(time.Second):
		t.Fatal("no write arrived")
		return nil
	}
}

func newTestSession(t *testing.T) (*Session, *fakeTransport) {
	t.Helper()
	tr := newFakeTransport()
	cfg := config.NewSession()
	s := New(cfg, tr, 40, 10)
	t.Cleanup(func() {
		s.Close()
		<-s.Done()
	})
	return s, tr
}

func waitRedraw(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Redraw():
	case <-time.After(time.Second):
		t.Fatal("no redraw signal")
	}
}

func TestSessionFeedsTerminal(t *testing.T) {
	s, tr := newTestSession(t)
	tr.events <- ssh.EventConnected{}
	tr.events <- ssh.EventData{Data: []byte("hello\r\nworld")}

	waitRedraw(t, s)
	var got string
	s.WithTerminal(func(term *terminal.Terminal) {
		got = term.TextRange(0, 0, 1, 39)
	})
	assert.Equal(t, "hello\nworld", got)
	assert.True(t, s.Connected())
}

func TestSessionSendKeyHonorsCursorMode(t *testing.T) {
	s, tr := newTestSession(t)
	tr.events <- ssh.EventConnected{}

	s.SendKey(KeyUp)
	assert.Equal(t, []byte("\x1b[A"), tr.lastWrite(t))

	// the application switches cursor keys to application mode
	tr.events <- ssh.EventData{Data: []byte("\x1b[?1h")}
	waitRedraw(t, s)

	s.SendKey(KeyUp)
	assert.Equal(t, []byte("\x1bOA"), tr.lastWrite(t))
}

func TestSessionBackspaceConfigurable(t *testing.T) {
	tr := newFakeTransport()
	cfg := config.NewSession()
	cfg.Backspace = config.BackspaceCtrlH
	s := New(cfg, tr, 40, 10)
	defer func() {
		s.Close()
		<-s.Done()
	}()

	s.SendKey(KeyBackspace)
	assert.Equal(t, []byte{0x08}, tr.lastWrite(t))
}

func TestSessionPasteBracketing(t *testing.T) {
	s, tr := newTestSession(t)

	s.Paste("plain")
	assert.Equal(t, []byte("plain"), tr.lastWrite(t))

	tr.events <- ssh.EventData{Data: []byte("\x1b[?2004h")}
	waitRedraw(t, s)

	s.Paste("guarded")
	assert.Equal(t, []byte("\x1b[200~guarded\x1b[201~"), tr.lastWrite(t))
}

func TestSessionResizePropagates(t *testing.T) {
	s, tr := newTestSession(t)

	s.Resize(100, 30)

	assert.Equal(t, [2]int{100, 30}, <-tr.resizes)
	s.WithTerminal(func(term *terminal.Terminal) {
		assert.Equal(t, 100, term.Cols())
		assert.Equal(t, 30, term.Rows())
	})
}

func TestSessionBellAndTitle(t *testing.T) {
	s, tr := newTestSession(t)
	tr.events <- ssh.EventData{Data: []byte("\x1b]0;remote\x07ding\x07")}
	waitRedraw(t, s)

	title, ok := s.TakeTitle()
	require.True(t, ok)
	assert.Equal(t, "remote", title)
	assert.True(t, s.TakeBell())
	assert.False(t, s.TakeBell())
}

func TestSessionDisconnectLifecycle(t *testing.T) {
	tr := newFakeTransport()
	s := New(config.NewSession(), tr, 40, 10)
	tr.events <- ssh.EventConnected{}
	tr.events <- ssh.EventDisconnected{Natural: true}
	close(tr.events)

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session never finished")
	}
	assert.False(t, s.Connected())
	assert.NoError(t, s.Err())
}

func TestSessionCtrlKeys(t *testing.T) {
	s, tr := newTestSession(t)

	s.SendCtrl('c')
	assert.Equal(t, []byte{0x03}, tr.lastWrite(t))
	s.SendCtrl('Z')
	assert.Equal(t, []byte{0x1a}, tr.lastWrite(t))
}
