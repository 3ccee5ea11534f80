package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ahagelberg/Yassh/config"
	"github.com/ahagelberg/Yassh/session"
	"github.com/ahagelberg/Yassh/ssh"
)

var (
	flagUser       string
	flagPort       uint16
	flagIdentity   string
	flagKnownHosts string
	flagStrict     bool
	flagLocal      bool
	flagLogLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "yassh [session-name | user@host]",
	Short: "Terminal SSH client with stored session profiles",
	Long: `yassh connects to a remote host over SSH and runs its shell in the
current terminal. The target is either the name of a stored session
profile (see "yassh list") or an ad-hoc user@host destination.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runConnect,
}

func init() {
	rootCmd.Flags().StringVarP(&flagUser, "user", "u", "", "username for ad-hoc targets")
	rootCmd.Flags().Uint16VarP(&flagPort, "port", "p", 0, "port for ad-hoc targets")
	rootCmd.Flags().StringVarP(&flagIdentity, "identity", "i", "", "private key file")
	rootCmd.Flags().StringVar(&flagKnownHosts, "known-hosts", "", "known_hosts file to check host keys against")
	rootCmd.Flags().BoolVar(&flagStrict, "strict-host-keys", false, "refuse hosts missing from known_hosts")
	rootCmd.Flags().BoolVar(&flagLocal, "local", false, "run the local shell instead of connecting")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
}

func loadStore() *config.Store {
	dir, err := config.DefaultDir()
	if err != nil {
		log.WithError(err).Warn("config directory unavailable, running without stored sessions")
		return config.NewStore(os.TempDir())
	}
	st := config.NewStore(dir)
	st.Load()
	return st
}

func setupLogging(st *config.Store) {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	level := flagLogLevel
	if level == "" {
		level = st.App.LogLevel
	}
	if parsed, err := log.ParseLevel(level); err == nil {
		log.SetLevel(parsed)
	} else {
		log.SetLevel(log.WarnLevel)
	}
}

func runConnect(cmd *cobra.Command, args []string) error {
	st := loadStore()
	setupLogging(st)

	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("yassh needs an interactive terminal")
	}
	cols, rows, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return errors.Wrap(err, "reading terminal size")
	}

	mgr := session.NewManager(st)

	var s *session.Session
	if flagLocal {
		s, err = mgr.OpenLocal(config.NewSession(), cols, rows)
		if err != nil {
			return err
		}
	} else {
		if len(args) == 0 {
			return errors.New("missing target: a session name or user@host")
		}
		cfg, found := resolveTarget(st, args[0])
		if !found {
			st.AddSession(cfg)
		}
		opts := ssh.Options{
			KnownHostsPath: flagKnownHosts,
			StrictHostKeys: flagStrict || st.App.StrictHostKeys,
			PasswordPrompt: promptSecret,
		}
		s, err = mgr.Open(cfg.ID, cols, rows, opts)
		if err != nil {
			return err
		}
	}

	return interact(s)
}

// resolveTarget finds a stored session by name, or builds an ad-hoc one
// from a user@host destination. found reports whether it came from the
// store.
func resolveTarget(st *config.Store, target string) (config.Session, bool) {
	for _, stored := range st.Sessions {
		if strings.EqualFold(stored.Name, target) {
			return stored, true
		}
	}
	cfg := config.NewSession()
	cfg.Name = target
	cfg.Host = target
	if at := strings.LastIndexByte(target, '@'); at >= 0 {
		cfg.Username = target[:at]
		cfg.Host = target[at+1:]
		cfg.Name = cfg.Host
	}
	if flagUser != "" {
		cfg.Username = flagUser
	}
	if flagPort != 0 {
		cfg.Port = flagPort
	}
	if flagIdentity != "" {
		cfg.PrivateKeyPath = flagIdentity
		cfg.Auth = config.AuthPrivateKey
	}
	return cfg, false
}

func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(secret), nil
}

// interact wires the local terminal to the session until it ends: raw
// mode on, stdin forwarded as-is, remote output mirrored to stdout.
func interact(s *session.Session) error {
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return errors.Wrap(err, "entering raw mode")
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	s.Tee(os.Stdout)

	go func() {
		buf := make([]byte, 1024)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				s.SendText(string(buf[:n]))
			}
			if err != nil {
				return
			}
		}
	}()

	resize := watchResize()
	for {
		select {
		case <-s.Redraw():
			if title, ok := s.TakeTitle(); ok {
				log.WithField("title", title).Debug("remote title changed")
			}
		case <-resize:
			if cols, rows, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				s.Resize(cols, rows)
			}
		case <-s.Done():
			if err := s.Err(); err != nil {
				return err
			}
			return nil
		}
	}
}
