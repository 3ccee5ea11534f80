// Package ssh runs one remote shell per connection over the SSH protocol
// and surfaces its lifecycle as events. Each connection owns a goroutine
// that serializes writes, resizes and keepalives; output bytes stream out
// through the event channel for the session layer to feed its terminal.
package ssh

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	gossh "golang.org/x/crypto/ssh"

	"github.com/ahagelberg/Yassh/config"
)

const (
	readBufferSize = 4096
	termType       = "xterm-256color"
)

// State is the externally visible connection lifecycle phase.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "disconnected"
	}
}

// Event is a connection lifecycle notification. The concrete types are
// EventConnected, EventData, EventDisconnected and EventError.
type Event interface {
	isEvent()
}

// EventConnected reports that the shell is up and interactive.
type EventConnected struct{}

// EventData carries a chunk of raw terminal output.
type EventData struct {
	Data []byte
}

// EventDisconnected reports the end of the connection. Natural is true for
// a clean shell exit or a user-requested disconnect, false for transport
// failures; the session layer uses it to decide about reconnecting.
type EventDisconnected struct {
	Natural bool
}

// EventError reports a failure to establish the connection.
type EventError struct {
	Err error
}

func (EventConnected) isEvent()    {}
func (EventData) isEvent()         {}
func (EventDisconnected) isEvent() {}
func (EventError) isEvent()        {}

type command interface {
	isCommand()
}

type writeCommand struct{ data []byte }
type resizeCommand struct{ cols, rows int }
type disconnectCommand struct{}

func (writeCommand) isCommand()      {}
func (resizeCommand) isCommand()     {}
func (disconnectCommand) isCommand() {}

// Connection drives one SSH shell. All transport work happens on an
// internal goroutine; the public methods only enqueue commands, so they
// are safe to call from any goroutine and never block on the network.
type Connection struct {
	cfg    config.Session
	events chan Event

	mu       sync.Mutex
	state    State
	commands chan command
	closed   bool
}

// Dial starts connecting to the session's host in the background and
// returns immediately. Progress and output arrive on Events.
func Dial(cfg config.Session, opts Options) *Connection {
	c := &Connection{
		cfg:      cfg,
		events:   make(chan Event, 64),
		commands: make(chan command, 64),
		state:    StateConnecting,
	}
	go c.run(opts)
	return c
}

// Events returns the channel carrying lifecycle and output events. It is
// closed after EventDisconnected or EventError is delivered.
func (c *Connection) Events() <-chan Event {
	return c.events
}

// State returns the current lifecycle phase.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Write queues input for the remote shell, applying the session's
// configured line ending conversion.
func (c *Connection) Write(data []byte) {
	c.enqueue(writeCommand{data: convertLineEndings(data, c.cfg.LineEnding)})
}

// Resize queues a window-change request for the remote PTY.
func (c *Connection) Resize(cols, rows int) {
	c.enqueue(resizeCommand{cols: cols, rows: rows})
}

// Disconnect asks the connection to shut down cleanly. It is idempotent.
func (c *Connection) Disconnect() {
	c.enqueue(disconnectCommand{})
}

func (c *Connection) enqueue(cmd command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.commands <- cmd:
	default:
		// a full queue means the transport goroutine died mid-teardown
	}
}

func (c *Connection) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// BackspaceSequence returns the byte the session transmits for backspace.
func (c *Connection) BackspaceSequence() []byte {
	if c.cfg.Backspace == config.BackspaceCtrlH {
		return []byte{0x08}
	}
	return []byte{0x7F}
}

func (c *Connection) run(opts Options) {
	logger := log.WithFields(log.Fields{"session": c.cfg.ID, "host": c.cfg.Address()})
	logger.Info("connecting")

	client, session, stdin, stdout, stderr, err := c.establish(opts)
	if err != nil {
		logger.WithError(err).Error("connection failed")
		c.setState(StateError)
		c.events <- EventError{Err: err}
		c.markClosed()
		close(c.events)
		return
	}

	logger.Info("connected")
	c.setState(StateConnected)
	c.events <- EventConnected{}

	// shell exit surfaces as EOF on the output streams
	var readers sync.WaitGroup
	for _, r := range []io.Reader{stdout, stderr} {
		readers.Add(1)
		go func(r io.Reader) {
			defer readers.Done()
			buf := make([]byte, readBufferSize)
			for {
				n, err := r.Read(buf)
				if n > 0 {
					data := make([]byte, n)
					copy(data, buf[:n])
					c.events <- EventData{Data: data}
				}
				if err != nil {
					return
				}
			}
		}(r)
	}
	readDone := make(chan struct{})
	go func() {
		readers.Wait()
		close(readDone)
	}()

	natural := c.serve(logger, client, session, stdin, readDone)

	// closing the transport unblocks the readers; the event channel must
	// not close while they can still deliver
	stdin.Close()
	session.Close()
	client.Close()
	<-readDone

	c.setState(StateDisconnected)
	c.markClosed()
	c.events <- EventDisconnected{Natural: natural}
	close(c.events)
	logger.WithField("natural", natural).Info("disconnected")
}

// serve owns the command loop until the shell ends or a command or
// keepalive fails. The return value reports whether the end was natural.
func (c *Connection) serve(logger *log.Entry, client *gossh.Client, session *gossh.Session, stdin io.WriteCloser, readDone <-chan struct{}) bool {
	var keepalive *time.Ticker
	var keepaliveC <-chan time.Time
	if c.cfg.KeepAlive && c.cfg.KeepaliveInterval.Std() > 0 {
		keepalive = time.NewTicker(c.cfg.KeepaliveInterval.Std())
		keepaliveC = keepalive.C
		defer keepalive.Stop()
	}

	for {
		select {
		case cmd := <-c.commands:
			switch cmd := cmd.(type) {
			case writeCommand:
				if _, err := stdin.Write(cmd.data); err != nil {
					logger.WithError(err).Warn("write failed")
					return false
				}
			case resizeCommand:
				if err := session.WindowChange(cmd.rows, cmd.cols); err != nil {
					logger.WithError(err).Warn("window change failed")
				}
			case disconnectCommand:
				return true
			}
		case <-readDone:
			return true
		case <-keepaliveC:
			if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				logger.WithError(err).Warn("keepalive failed")
				return false
			}
		}
	}
}

func (c *Connection) establish(opts Options) (client *gossh.Client, session *gossh.Session, stdin io.WriteCloser, stdout, stderr io.Reader, err error) {
	clientCfg, err := clientConfig(c.cfg, opts)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	conn, err := net.DialTimeout("tcp", c.cfg.Address(), c.cfg.Timeout.Std())
	if err != nil {
		return nil, nil, nil, nil, nil, errors.Wrapf(err, "dialing %s", c.cfg.Address())
	}
	sshConn, chans, reqs, err := gossh.NewClientConn(conn, c.cfg.Address(), clientCfg)
	if err != nil {
		conn.Close()
		return nil, nil, nil, nil, nil, errors.Wrap(err, "ssh handshake")
	}
	client = gossh.NewClient(sshConn, chans, reqs)

	fail := func(stage string, cause error) (*gossh.Client, *gossh.Session, io.WriteCloser, io.Reader, io.Reader, error) {
		if session != nil {
			session.Close()
		}
		client.Close()
		return nil, nil, nil, nil, nil, errors.Wrap(cause, stage)
	}

	session, err = client.NewSession()
	if err != nil {
		return fail("opening session", err)
	}

	modes := gossh.TerminalModes{
		gossh.ECHO:          1,
		gossh.TTY_OP_ISPEED: 14400,
		gossh.TTY_OP_OSPEED: 14400,
	}
	cols, rows := opts.Cols, opts.Rows
	if cols < 1 {
		cols = 80
	}
	if rows < 1 {
		rows = 24
	}
	if err := session.RequestPty(termType, rows, cols, modes); err != nil {
		return fail("requesting pty", err)
	}

	stdin, err = session.StdinPipe()
	if err != nil {
		return fail("stdin pipe", err)
	}
	stdout, err = session.StdoutPipe()
	if err != nil {
		return fail("stdout pipe", err)
	}
	stderr, err = session.StderrPipe()
	if err != nil {
		return fail("stderr pipe", err)
	}

	if err := session.Shell(); err != nil {
		return fail("starting shell", err)
	}
	return client, session, stdin, stdout, stderr, nil
}

// convertLineEndings rewrites newlines in outbound input according to the
// session's configured line ending.
func convertLineEndings(data []byte, ending config.LineEnding) []byte {
	switch ending {
	case config.LineEndingCRLF:
		out := make([]byte, 0, len(data)+8)
		for _, b := range data {
			if b == '\n' {
				out = append(out, '\r')
			}
			out = append(out, b)
		}
		return out
	case config.LineEndingCR:
		out := make([]byte, len(data))
		for i, b := range data {
			if b == '\n' {
				b = '\r'
			}
			out[i] = b
		}
		return out
	default:
		return data
	}
}
