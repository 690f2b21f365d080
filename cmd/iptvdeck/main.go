// Command iptvdeck: local IPTV backend for an Xtream-compatible provider.
// Caches the catalog, resolves stream URLs, answers EPG now/next queries and
// keeps watch history, all behind a small JSON API.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/iptvdeck/iptvdeck/internal/cache"
	"github.com/iptvdeck/iptvdeck/internal/config"
	"github.com/iptvdeck/iptvdeck/internal/epg"
	"github.com/iptvdeck/iptvdeck/internal/history"
	"github.com/iptvdeck/iptvdeck/internal/log"
	"github.com/iptvdeck/iptvdeck/internal/relay"
	"github.com/iptvdeck/iptvdeck/internal/server"
	"github.com/iptvdeck/iptvdeck/internal/xtream"
)

func main() {
	envFile := flag.String("env", ".env", "path to .env file (missing file is fine)")
	logLevel := flag.String("log-level", "", "debug, info, warn, error (default from IPTVDECK_LOG_LEVEL)")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", *envFile, err)
		os.Exit(1)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log.Configure(log.Config{Level: *logLevel, Service: "iptvdeck"})
	logger := log.Base()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := log.Base()

	creds := xtream.Credentials{
		ServerURL: cfg.ProviderBaseURL,
		Username:  cfg.ProviderUser,
		Password:  cfg.ProviderPass,
	}
	client, err := xtream.New(creds, xtream.WithTimeout(cfg.APITimeout))
	if err != nil {
		return err
	}

	// Auto-login learns the real stream base (panels often serve media on a
	// different port than the API). An auth failure here is logged, not
	// fatal: catalog endpoints will keep reporting it per request.
	streamBase := cfg.ProviderBaseURL
	if account, err := client.Login(ctx); err != nil {
		logger.Warn().Err(err).Msg("provider login failed, starting logged out")
	} else {
		streamBase = xtream.StreamBase(cfg.ProviderBaseURL, account.ServerInfo)
		logger.Info().Str("stream_base", streamBase).Msg("provider login ok")
	}

	resolver, err := xtream.NewResolver(streamBase, creds)
	if err != nil {
		return err
	}

	store := cache.New(cfg.FreshTTL, cfg.StaleTTL)
	catalog := server.NewCatalog(client, store)
	epgEngine := epg.NewEngine(client, store, cfg.EPGWindowLimit)

	hist, err := history.Open(cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer hist.Close()

	var rly *relay.Handler
	if cfg.RelayEnabled {
		hosts := cfg.RelayAllowedHosts
		if len(hosts) == 0 {
			// Default the allow list to the provider's own hosts.
			hosts = providerHosts(cfg.ProviderBaseURL, streamBase)
		}
		rly = relay.New(hosts, nil)
		logger.Info().Strs("hosts", hosts).Msg("relay enabled")
	}

	if cfg.PrefetchEnabled {
		go store.Warm(ctx, catalog.WarmJobs(), cfg.PrefetchSpacing)
	}

	srv := server.New(cfg, catalog, resolver, epgEngine, hist, rly)
	return srv.Run(ctx)
}

func providerHosts(bases ...string) []string {
	seen := make(map[string]bool)
	var hosts []string
	for _, b := range bases {
		u, err := url.Parse(b)
		if err != nil || u.Host == "" {
			continue
		}
		if !seen[u.Host] {
			seen[u.Host] = true
			hosts = append(hosts, u.Host)
		}
	}
	return hosts
}
