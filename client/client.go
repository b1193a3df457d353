package client

import (
	"github.com/relaytun/revtun/internal/tunlog"
)

// Client is a running pool of reverse tunnels against one Proxy (spec.md
// §3/§6, startClient(config)). Construct with New, then Start.
type Client struct {
	cfg    Config
	logger *tunlog.Logger
	pool   *pool
}

// New validates cfg and constructs a Client without dialing anything yet.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.logger()
	return &Client{cfg: cfg, logger: logger, pool: newPool(&cfg, logger)}, nil
}

// Start runs the boot probe and fills the pool. It returns once the first
// tunnel has either connected or failed to connect, per spec.md §4.7;
// subsequent pool maintenance continues in the background until Close.
func (c *Client) Start() error {
	if err := c.pool.start(); err != nil {
		return err
	}
	c.logger.Infof("pool started: proxy=%s:%d app=%s:%d size=%d",
		c.cfg.ProxyHost, c.cfg.TunnelPort, c.cfg.AppHost, c.cfg.AppPort, c.cfg.PoolSize)
	return nil
}

// Close stops the Pool Manager. Tunnels already piping traffic are left to
// finish on their own; Close does not wait for them.
func (c *Client) Close() error {
	c.pool.close()
	return nil
}
