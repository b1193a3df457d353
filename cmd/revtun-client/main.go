// Command revtun-client runs the private-side tunnel pool against one
// Proxy (spec.md §3).
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relaytun/revtun/client"
	"github.com/relaytun/revtun/internal/cryptotun"
	"github.com/relaytun/revtun/internal/tunlog"
)

func main() {
	var (
		proxyHost      = flag.String("proxy-host", "", "proxy host")
		tunnelPort     = flag.Int("tunnel-port", 8081, "proxy tunnel listener port")
		appHost        = flag.String("app-host", "localhost", "local application host")
		appPort        = flag.Int("app-port", 0, "local application port")
		secret         = flag.String("secret", "", "tunnel handshake secret, empty disables the handshake")
		cipherName     = flag.String("cipher", "", "tunnel cipher, empty disables encryption (only aes-256-ctr supported)")
		cipherKey      = flag.String("cipher-key", "", "32-byte cipher key")
		cipherIV       = flag.String("cipher-iv", "", "16-byte cipher iv")
		poolSize       = flag.Int("pool-size", 20, "number of pooled reverse tunnels")
		reconnectDelay = flag.Duration("reconnect-delay", 5*time.Second, "backoff seed after a total outage")
		logLevel       = flag.String("log-level", "info", "error|warning|info|debug")
	)
	flag.Parse()

	if *proxyHost == "" || *appPort == 0 {
		fmt.Fprintln(os.Stderr, "revtun-client: -proxy-host and -app-port are required")
		os.Exit(1)
	}

	level, err := tunlog.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg := client.Config{
		ProxyHost:      *proxyHost,
		TunnelPort:     *tunnelPort,
		AppHost:        *appHost,
		AppPort:        *appPort,
		Secret:         []byte(*secret),
		PoolSize:       *poolSize,
		ReconnectDelay: *reconnectDelay,
		LogLevel:       level,
	}
	if *cipherName != "" {
		cfg.Encryption = cryptotun.Params{Cipher: *cipherName, Key: []byte(*cipherKey), IV: []byte(*cipherIV)}
	}

	c, err := client.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := c.Start(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	_ = c.Close()
}
