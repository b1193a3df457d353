package proxy

import (
	"fmt"
	"time"

	"github.com/relaytun/revtun/internal/cryptotun"
	"github.com/relaytun/revtun/internal/options"
	"github.com/relaytun/revtun/internal/tunlog"
)

// ErrConfigInvalid is wrapped and returned by New when Config fails
// validation (spec.md §7, "Configuration error").
var ErrConfigInvalid = fmt.Errorf("revtun/proxy: invalid configuration")

const (
	defaultChallengeTimeout = 4000 * time.Millisecond
	defaultRequestTimeout   = 5000 * time.Millisecond
)

// Config is the Proxy's immutable-after-start configuration surface
// (spec.md §6). Only ProxyPort and TunnelPort are required.
type Config struct {
	ProxyPort  int
	TunnelPort int

	// BindHost is the address the two listeners bind to. Empty means all
	// interfaces.
	BindHost string

	// TLSCert/TLSKey, if both non-empty, switch the Public Listener to TLS.
	// Loading/parsing them is the caller's responsibility beyond
	// tls.X509KeyPair (spec.md §1: TLS termination config is out of
	// scope).
	TLSCert []byte
	TLSKey  []byte

	// Encryption activates tunnel-traffic framing iff Cipher/Key/IV are
	// all non-empty (spec.md §6).
	Encryption cryptotun.Params

	// Secret, if non-empty, requires every tunnel connection to pass the
	// challenge-response handshake before joining the idle pool.
	Secret []byte

	ChallengeTimeout time.Duration
	RequestTimeout   time.Duration

	LogLevel tunlog.Level
	Logger   *tunlog.Logger // overrides LogLevel/default writer if set

	// OnAppConnected/OnAppDisconnected are invoked when the idle-tunnel
	// pool transitions from empty to non-empty and back (spec.md §4.3,
	// promoted to callbacks per SPEC_FULL.md §6).
	OnAppConnected    func()
	OnAppDisconnected func()
}

func (c *Config) validate() error {
	if c.ProxyPort == 0 {
		return fmt.Errorf("%w: proxyPort is required", ErrConfigInvalid)
	}
	if c.TunnelPort == 0 {
		return fmt.Errorf("%w: tunnelPort is required", ErrConfigInvalid)
	}
	if c.ProxyPort == c.TunnelPort {
		return fmt.Errorf("%w: proxyPort and tunnelPort must differ", ErrConfigInvalid)
	}
	if (len(c.TLSCert) == 0) != (len(c.TLSKey) == 0) {
		return fmt.Errorf("%w: tlsCert and tlsKey must be supplied together", ErrConfigInvalid)
	}
	if c.Encryption.Cipher != "" || len(c.Encryption.Key) > 0 || len(c.Encryption.IV) > 0 {
		if !c.Encryption.Configured() {
			return fmt.Errorf("%w: encryption requires cipher, key and iv all set", ErrConfigInvalid)
		}
	}
	c.ChallengeTimeout = options.Duration(c.ChallengeTimeout, defaultChallengeTimeout)
	c.RequestTimeout = options.Duration(c.RequestTimeout, defaultRequestTimeout)
	return nil
}

func (c *Config) logger() *tunlog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return tunlog.New("proxy", c.LogLevel, nil)
}
