package ssh

import (
	"net"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/ahagelberg/Yassh/config"
)

// Options carries per-dial parameters that are not part of the stored
// session profile.
type Options struct {
	// Initial PTY geometry; zero values fall back to 80x24.
	Cols, Rows int
	// KnownHostsPath overrides ~/.ssh/known_hosts.
	KnownHostsPath string
	// StrictHostKeys refuses unknown hosts instead of recording them on
	// first use.
	StrictHostKeys bool
	// PasswordPrompt is consulted when password auth is selected but the
	// profile stores none, and for encrypted key passphrases.
	PasswordPrompt func(prompt string) (string, error)
}

func clientConfig(cfg config.Session, opts Options) (*gossh.ClientConfig, error) {
	auth, err := authMethods(cfg, opts)
	if err != nil {
		return nil, err
	}
	hostKeys, err := hostKeyCallback(opts)
	if err != nil {
		return nil, err
	}
	return &gossh.ClientConfig{
		User:            cfg.Username,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         cfg.Timeout.Std(),
	}, nil
}

func authMethods(cfg config.Session, opts Options) ([]gossh.AuthMethod, error) {
	switch cfg.Auth {
	case config.AuthPrivateKey:
		if cfg.PrivateKeyPath == "" {
			return nil, errors.New("private key auth selected but no key path set")
		}
		key, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, errors.Wrapf(err, "reading key %s", cfg.PrivateKeyPath)
		}
		signer, err := gossh.ParsePrivateKey(key)
		if err != nil {
			// an encrypted key needs the stored password or a prompt as
			// its passphrase
			passphrase := cfg.Password
			if passphrase == "" && opts.PasswordPrompt != nil {
				passphrase, err = opts.PasswordPrompt("Key passphrase: ")
				if err != nil {
					return nil, err
				}
			}
			signer, err = gossh.ParsePrivateKeyWithPassphrase(key, []byte(passphrase))
			if err != nil {
				return nil, errors.Wrapf(err, "parsing key %s", cfg.PrivateKeyPath)
			}
		}
		return []gossh.AuthMethod{gossh.PublicKeys(signer)}, nil
	default:
		if cfg.Password != "" {
			return []gossh.AuthMethod{gossh.Password(cfg.Password)}, nil
		}
		if opts.PasswordPrompt == nil {
			return nil, errors.New("password auth selected but no password available")
		}
		return []gossh.AuthMethod{gossh.PasswordCallback(func() (string, error) {
			return opts.PasswordPrompt("Password: ")
		})}, nil
	}
}

func hostKeyCallback(opts Options) (gossh.HostKeyCallback, error) {
	path := opts.KnownHostsPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "locating home directory")
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	if err := ensureFile(path); err != nil {
		return nil, err
	}
	check, err := knownhosts.New(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	if opts.StrictHostKeys {
		return check, nil
	}
	return trustOnFirstUse(path, check), nil
}

// trustOnFirstUse accepts and records keys for hosts the file has never
// seen. A changed key for a known host still fails.
func trustOnFirstUse(path string, check gossh.HostKeyCallback) gossh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key gossh.PublicKey) error {
		err := check(hostname, remote, key)
		if err == nil {
			return nil
		}
		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) || len(keyErr.Want) > 0 {
			return err
		}
		if appendErr := appendKnownHost(path, hostname, key); appendErr != nil {
			return appendErr
		}
		log.WithField("host", hostname).Warn("recorded new host key")
		return nil
	}
}

func appendKnownHost(path, hostname string, key gossh.PublicKey) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	line := knownhosts.Line([]string{hostname}, key)
	if _, err := f.WriteString(line + "\n"); err != nil {
		return errors.Wrapf(err, "recording host key in %s", path)
	}
	return nil
}

func ensureFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(path))
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	return f.Close()
}
