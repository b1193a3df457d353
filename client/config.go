// Package client implements the private-side half of the tunnel system
// (spec.md §3/§4): a pool of reverse tunnels dialed out to the Proxy, each
// bridging to a local application once paired with a public request.
package client

import (
	"fmt"
	"time"

	"github.com/relaytun/revtun/internal/cryptotun"
	"github.com/relaytun/revtun/internal/options"
	"github.com/relaytun/revtun/internal/tunlog"
)

// ErrConfigInvalid is wrapped and returned by New when Config fails
// validation.
var ErrConfigInvalid = fmt.Errorf("revtun/client: invalid configuration")

const (
	defaultChallengeTimeout = 4000 * time.Millisecond
	defaultPoolSize         = 20
	defaultReconnectDelay   = 5000 * time.Millisecond
	defaultAppHost          = "localhost"
)

// Config is the Client's immutable-after-start configuration surface
// (spec.md §6).
type Config struct {
	// ProxyHost/TunnelPort address the Proxy's Tunnel Listener.
	ProxyHost  string
	TunnelPort int

	// AppHost/AppPort address the local application each tunnel bridges
	// to once paired.
	AppHost string
	AppPort int

	// Encryption mirrors proxy.Config.Encryption; both ends must agree.
	Encryption cryptotun.Params

	// Secret, if non-empty, is sent as the handshake challenge to every
	// dialed tunnel connection.
	Secret []byte

	ChallengeTimeout time.Duration

	// PoolSize is the number of reverse tunnels the Pool Manager keeps
	// dialed at once (spec.md §4.7).
	PoolSize int

	// ReconnectDelay seeds the backoff used after a total outage (every
	// pooled tunnel's dial failed).
	ReconnectDelay time.Duration

	LogLevel Level
	Logger   *tunlog.Logger

	// OnTunnelConnected/OnTunnelClosed mirror the proxy's app-connected
	// callbacks, fired per tunnel rather than on pool-emptiness (spec.md
	// §6, "Supplemented features").
	OnTunnelConnected func()
	OnTunnelClosed    func()
}

// Level is a re-export of tunlog.Level so callers configuring a client
// don't need to import the tunlog package directly.
type Level = tunlog.Level

func (c *Config) validate() error {
	if c.ProxyHost == "" {
		return fmt.Errorf("%w: proxyHost is required", ErrConfigInvalid)
	}
	if c.TunnelPort == 0 {
		return fmt.Errorf("%w: tunnelPort is required", ErrConfigInvalid)
	}
	if c.AppPort == 0 {
		return fmt.Errorf("%w: appPort is required", ErrConfigInvalid)
	}
	if c.Encryption.Cipher != "" || len(c.Encryption.Key) > 0 || len(c.Encryption.IV) > 0 {
		if !c.Encryption.Configured() {
			return fmt.Errorf("%w: encryption requires cipher, key and iv all set", ErrConfigInvalid)
		}
	}
	c.AppHost = options.String(c.AppHost, defaultAppHost)
	c.ChallengeTimeout = options.Duration(c.ChallengeTimeout, defaultChallengeTimeout)
	c.PoolSize = options.Int(c.PoolSize, defaultPoolSize)
	c.ReconnectDelay = options.Duration(c.ReconnectDelay, defaultReconnectDelay)
	return nil
}

func (c *Config) logger() *tunlog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return tunlog.New("client", c.LogLevel, nil)
}
