package session

import (
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	log "github.com/sirupsen/logrus"

	"github.com/ahagelberg/Yassh/ssh"
)

// localShell runs the user's shell on a local PTY behind the Transport
// interface, so a session works the same whether the shell is local or
// remote.
type localShell struct {
	events chan ssh.Event

	mu     sync.Mutex
	ptmx   *os.File
	closed bool
}

// StartLocalShell launches command (the user's $SHELL when empty) on a
// fresh PTY with the given geometry.
func StartLocalShell(command string, cols, rows int) (Transport, error) {
	if command == "" {
		command = os.Getenv("SHELL")
	}
	if command == "" {
		command = "/bin/sh"
	}
	cmd := exec.Command(command)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
	if err != nil {
		return nil, err
	}

	l := &localShell{
		events: make(chan ssh.Event, 64),
		ptmx:   ptmx,
	}
	go l.pump(cmd)
	l.events <- ssh.EventConnected{}
	return l, nil
}

func (l *localShell) pump(cmd *exec.Cmd) {
	buf := make([]byte, 4096)
	for {
		n, err := l.ptmx.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			l.events <- ssh.EventData{Data: data}
		}
		if err != nil {
			break
		}
	}
	if err := cmd.Wait(); err != nil {
		log.WithError(err).Debug("local shell exited")
	}
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.events <- ssh.EventDisconnected{Natural: true}
	close(l.events)
}

func (l *localShell) Events() <-chan ssh.Event {
	return l.events
}

func (l *localShell) Write(data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if _, err := l.ptmx.Write(data); err != nil {
		log.WithError(err).Warn("local shell write failed")
	}
}

func (l *localShell) Resize(cols, rows int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if err := pty.Setsize(l.ptmx, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)}); err != nil {
		log.WithError(err).Warn("local shell resize failed")
	}
}

func (l *localShell) Disconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	// closing the PTY delivers EOF to the pump, which finishes teardown
	if err := l.ptmx.Close(); err != nil {
		log.WithError(err).Debug("closing local pty")
	}
}
