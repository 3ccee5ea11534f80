// Package config holds the session and application configuration model and
// its on-disk persistence. Sessions describe how to reach a host and how
// its terminal should behave; the store keeps them under the user config
// directory as TOML.
package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kevinburke/ssh_config"
	"github.com/pkg/errors"
)

const (
	DefaultPort            = 22
	DefaultScrollbackLines = 20000
	DefaultTimeout         = 30 * time.Second
	DefaultKeepaliveEvery  = 60 * time.Second
	defaultSessionName     = "New Session"
)

// AuthMethod selects how a session authenticates.
type AuthMethod string

const (
	AuthPassword   AuthMethod = "password"
	AuthPrivateKey AuthMethod = "private_key"
)

// BellNotification selects how the terminal bell is surfaced to the user.
type BellNotification string

const (
	BellSound  BellNotification = "sound"
	BellVisual BellNotification = "visual"
	BellNone   BellNotification = "none"
)

// BackspaceKey selects the byte transmitted for the backspace key.
type BackspaceKey string

const (
	BackspaceDel   BackspaceKey = "del"    // 0x7F
	BackspaceCtrlH BackspaceKey = "ctrl_h" // 0x08
)

// LineEnding selects the byte sequence transmitted for the enter key.
type LineEnding string

const (
	LineEndingLF   LineEnding = "lf"
	LineEndingCRLF LineEnding = "crlf"
	LineEndingCR   LineEnding = "cr"
)

// Color is an RGBA color that round-trips through TOML as "#rrggbb" or
// "#rrggbbaa".
type Color color.RGBA

// RGBA converts to the image/color representation used by the terminal.
func (c Color) RGBA() color.RGBA { return color.RGBA(c) }

func (c Color) MarshalText() ([]byte, error) {
	if c.A != 0xFF {
		return []byte(fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)), nil
	}
	return []byte(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	s := string(text)
	if len(s) == 0 || s[0] != '#' {
		return errors.Errorf("invalid color %q: expected #rrggbb", s)
	}
	s = s[1:]
	if len(s) != 6 && len(s) != 8 {
		return errors.Errorf("invalid color length %q", text)
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid color %q", text)
	}
	if len(s) == 6 {
		v = v<<8 | 0xFF
	}
	*c = Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	return nil
}

// Duration round-trips through TOML as a Go duration string ("30s").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}
	*d = Duration(parsed)
	return nil
}

// PortForward describes one -L/-R style tunnel.
type PortForward struct {
	LocalPort  uint16 `toml:"local_port"`
	RemoteHost string `toml:"remote_host"`
	RemotePort uint16 `toml:"remote_port"`
}

// Session is a stored connection profile.
type Session struct {
	ID       uuid.UUID  `toml:"id"`
	Name     string     `toml:"name"`
	Host     string     `toml:"host"`
	Port     uint16     `toml:"port"`
	Username string     `toml:"username"`
	Auth     AuthMethod `toml:"auth_method"`
	// Password is stored only when the user opted in; key auth is the
	// recommended path.
	Password       string `toml:"password,omitempty"`
	PrivateKeyPath string `toml:"private_key_path,omitempty"`

	ForegroundColor Color `toml:"foreground_color"`
	BackgroundColor Color `toml:"background_color"`
	ScrollbackLines int   `toml:"scrollback_lines"`

	Bell       BellNotification `toml:"bell_notification"`
	Backspace  BackspaceKey     `toml:"backspace_key"`
	LineEnding LineEnding       `toml:"line_ending"`

	KeepAlive         bool     `toml:"keep_alive"`
	Timeout           Duration `toml:"timeout"`
	KeepaliveInterval Duration `toml:"keepalive_interval"`
	Compression       bool     `toml:"compression"`

	LocalForwards  []PortForward `toml:"local_forwards,omitempty"`
	RemoteForwards []PortForward `toml:"remote_forwards,omitempty"`

	FolderID uuid.UUID `toml:"folder_id,omitempty"`
	Order    int       `toml:"order"`
}

// NewSession returns a session with a fresh identity and the stock
// defaults: port 22, 20000 scrollback lines, light gray on near-black.
func NewSession() Session {
	return Session{
		ID:                uuid.New(),
		Name:              defaultSessionName,
		Port:              DefaultPort,
		Auth:              AuthPassword,
		ForegroundColor:   Color{R: 204, G: 204, B: 204, A: 255},
		BackgroundColor:   Color{R: 30, G: 30, B: 30, A: 255},
		ScrollbackLines:   DefaultScrollbackLines,
		Bell:              BellVisual,
		Backspace:         BackspaceDel,
		LineEnding:        LineEndingLF,
		KeepAlive:         true,
		Timeout:           Duration(DefaultTimeout),
		KeepaliveInterval: Duration(DefaultKeepaliveEvery),
	}
}

// normalize fills zero-valued fields after decoding a stored session, so
// hand-edited or older files keep working.
func (s *Session) normalize() {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Name == "" {
		s.Name = defaultSessionName
	}
	if s.Port == 0 {
		s.Port = DefaultPort
	}
	if s.Auth == "" {
		s.Auth = AuthPassword
	}
	if s.ForegroundColor == (Color{}) {
		s.ForegroundColor = Color{R: 204, G: 204, B: 204, A: 255}
	}
	if s.BackgroundColor == (Color{}) {
		s.BackgroundColor = Color{R: 30, G: 30, B: 30, A: 255}
	}
	if s.ScrollbackLines == 0 {
		s.ScrollbackLines = DefaultScrollbackLines
	}
	if s.Bell == "" {
		s.Bell = BellVisual
	}
	if s.Backspace == "" {
		s.Backspace = BackspaceDel
	}
	if s.LineEnding == "" {
		s.LineEnding = LineEndingLF
	}
	if s.Timeout == 0 {
		s.Timeout = Duration(DefaultTimeout)
	}
	if s.KeepaliveInterval == 0 {
		s.KeepaliveInterval = Duration(DefaultKeepaliveEvery)
	}
}

// Address returns the host:port dial target.
func (s *Session) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ApplySSHConfig fills username, port and key path from the user's
// ~/.ssh/config entry for the host, for each field the session leaves
// unset. Explicit session values always win.
func (s *Session) ApplySSHConfig() {
	if s.Host == "" {
		return
	}
	if s.Username == "" {
		s.Username = ssh_config.Get(s.Host, "User")
	}
	if s.Port == DefaultPort {
		if p, err := strconv.ParseUint(ssh_config.Get(s.Host, "Port"), 10, 16); err == nil && p != 0 {
			s.Port = uint16(p)
		}
	}
	if s.PrivateKeyPath == "" {
		identity := ssh_config.Get(s.Host, "IdentityFile")
		if identity != "" && identity != ssh_config.Default("IdentityFile") {
			s.PrivateKeyPath = expandHome(identity)
			s.Auth = AuthPrivateKey
		}
	}
	if hostname := ssh_config.Get(s.Host, "Hostname"); hostname != "" {
		s.Host = hostname
	}
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == filepath.Separator {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// Folder groups sessions in the stored tree.
type Folder struct {
	ID       uuid.UUID `toml:"id"`
	Name     string    `toml:"name"`
	ParentID uuid.UUID `toml:"parent_id,omitempty"`
}

// NewFolder returns a folder with a fresh identity.
func NewFolder(name string) Folder {
	return Folder{ID: uuid.New(), Name: name}
}

// App carries application-wide settings, independent of any session.
type App struct {
	LogLevel string `toml:"log_level"`
	// StrictHostKeys refuses connections to hosts missing from
	// known_hosts instead of recording them on first use.
	StrictHostKeys bool `toml:"strict_host_keys"`
}

// DefaultApp returns the stock application settings.
func DefaultApp() App {
	return App{LogLevel: "info"}
}
