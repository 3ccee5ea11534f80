package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"

	"github.com/ahagelberg/Yassh/config"
)

func testKey(t *testing.T) gossh.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key, err := gossh.NewPublicKey(pub)
	require.NoError(t, err)
	return key
}

func testAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(192, 0, 2, 1), Port: 22}
}

func TestTrustOnFirstUseRecordsNewHost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_hosts")
	cb, err := hostKeyCallback(Options{KnownHostsPath: path})
	require.NoError(t, err)

	key := testKey(t)
	require.NoError(t, cb("host.example.com:22", testAddr(), key))

	// the key is on disk now, so a strict callback accepts it too
	strict, err := hostKeyCallback(Options{KnownHostsPath: path, StrictHostKeys: true})
	require.NoError(t, err)
	assert.NoError(t, strict("host.example.com:22", testAddr(), key))
}

func TestTrustOnFirstUseRejectsChangedKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_hosts")
	cb, err := hostKeyCallback(Options{KnownHostsPath: path})
	require.NoError(t, err)

	require.NoError(t, cb("host.example.com:22", testAddr(), testKey(t)))

	// same host presenting a different key must fail even without strict
	// checking
	assert.Error(t, cb("host.example.com:22", testAddr(), testKey(t)))
}

func TestStrictRefusesUnknownHost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_hosts")
	cb, err := hostKeyCallback(Options{KnownHostsPath: path, StrictHostKeys: true})
	require.NoError(t, err)

	err = cb("unknown.example.com:22", testAddr(), testKey(t))
	assert.Error(t, err)

	// and nothing was written
	content, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Empty(t, content)
}

func TestAuthMethodsPassword(t *testing.T) {
	cfg := config.NewSession()
	cfg.Password = "secret"

	methods, err := authMethods(cfg, Options{})
	require.NoError(t, err)
	assert.Len(t, methods, 1)
}

func TestAuthMethodsPasswordNeedsSource(t *testing.T) {
	cfg := config.NewSession()

	_, err := authMethods(cfg, Options{})
	assert.Error(t, err)

	prompted := false
	methods, err := authMethods(cfg, Options{PasswordPrompt: func(string) (string, error) {
		prompted = true
		return "secret", nil
	}})
	require.NoError(t, err)
	assert.Len(t, methods, 1)
	// the prompt runs lazily during the handshake, not while building
	assert.False(t, prompted)
}

func TestAuthMethodsPrivateKey(t *testing.T) {
	cfg := config.NewSession()
	cfg.Auth = config.AuthPrivateKey

	_, err := authMethods(cfg, Options{})
	assert.Error(t, err, "missing key path must fail")

	_, priv, genErr := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, genErr)
	block, marshalErr := gossh.MarshalPrivateKey(priv, "")
	require.NoError(t, marshalErr)

	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))

	cfg.PrivateKeyPath = path
	methods, err := authMethods(cfg, Options{})
	require.NoError(t, err)
	assert.Len(t, methods, 1)
}
