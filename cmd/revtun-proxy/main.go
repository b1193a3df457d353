// Command revtun-proxy runs the public-facing half of the tunnel system
// (spec.md §3). Flag parsing follows the teacher's minimal CLI pattern:
// stdlib flag, no subcommands.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/relaytun/revtun/internal/cryptotun"
	"github.com/relaytun/revtun/internal/tunlog"
	"github.com/relaytun/revtun/proxy"
)

func main() {
	var (
		proxyPort   = flag.Int("proxy-port", 8080, "public listener port")
		tunnelPort  = flag.Int("tunnel-port", 8081, "tunnel listener port")
		bindHost    = flag.String("bind", "", "address to bind both listeners to")
		secret      = flag.String("secret", "", "tunnel handshake secret, empty disables the handshake")
		cipherName  = flag.String("cipher", "", "tunnel cipher, empty disables encryption (only aes-256-ctr supported)")
		cipherKey   = flag.String("cipher-key", "", "32-byte cipher key")
		cipherIV    = flag.String("cipher-iv", "", "16-byte cipher iv")
		logLevel    = flag.String("log-level", "info", "error|warning|info|debug")
		metricsAddr = flag.String("metrics-addr", "", "address to serve /metrics on, empty disables it")
	)
	flag.Parse()

	level, err := tunlog.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg := proxy.Config{
		ProxyPort:  *proxyPort,
		TunnelPort: *tunnelPort,
		BindHost:   *bindHost,
		Secret:     []byte(*secret),
		LogLevel:   level,
	}
	if *cipherName != "" {
		cfg.Encryption = cryptotun.Params{Cipher: *cipherName, Key: []byte(*cipherKey), IV: []byte(*cipherIV)}
	}

	p, err := proxy.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := p.Start(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(proxy.Registry(), promhttp.HandlerOpts{}))
		go func() {
			_ = http.ListenAndServe(*metricsAddr, mux)
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	_ = p.Close()
}
