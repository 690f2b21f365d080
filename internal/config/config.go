package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds provider credentials plus cache/EPG/playback/server knobs.
// Load from env; call LoadEnvFile(".env") before Load() to use a .env file.
type Config struct {
	// Provider (Xtream player_api)
	ProviderBaseURL string // e.g. http://provider:8080
	ProviderUser    string
	ProviderPass    string
	StreamExt       string // default live extension: "m3u8" or "ts"

	// Catalog cache
	FreshTTL        time.Duration // cached value served with zero network below this age
	StaleTTL        time.Duration // stale-but-usable window upper bound
	APITimeout      time.Duration // catalog payloads can be large; keep generous
	PrefetchEnabled bool
	PrefetchSpacing time.Duration // pause between prefetch warm-up calls

	// EPG
	EPGRefreshEvery  time.Duration // listing re-fetch cadence
	EPGProgressEvery time.Duration // progress recompute cadence
	EPGWindowLimit   int           // listings per get_short_epg call

	// Playback
	PlaybackRetryDelay  time.Duration // delay before the single automatic retry
	PlaybackSampleEvery time.Duration // position/duration sampling cadence

	// Server / relay
	ListenAddr        string
	MaxConns          int  // concurrent-connection cap on the listener
	RelayEnabled      bool // route browser fetches through /relay; a config value, not a runtime sniff
	RelayAllowedHosts []string

	// Persistence
	HistoryPath string // sqlite file for watch history / favorites
}

// Load reads config from environment.
// If ProviderUser or ProviderPass are empty, Load tries IPTVDECK_CREDENTIALS_FILE
// with "Username:" / "Password:" lines.
func Load() *Config {
	c := &Config{
		ProviderBaseURL:     strings.TrimSuffix(os.Getenv("IPTVDECK_PROVIDER_URL"), "/"),
		ProviderUser:        os.Getenv("IPTVDECK_PROVIDER_USER"),
		ProviderPass:        os.Getenv("IPTVDECK_PROVIDER_PASS"),
		StreamExt:           getEnv("IPTVDECK_STREAM_EXT", "m3u8"),
		FreshTTL:            getEnvDuration("IPTVDECK_CACHE_FRESH_TTL", 5*time.Minute),
		StaleTTL:            getEnvDuration("IPTVDECK_CACHE_STALE_TTL", 30*time.Minute),
		APITimeout:          getEnvDuration("IPTVDECK_API_TIMEOUT", 45*time.Second),
		PrefetchEnabled:     getEnvBool("IPTVDECK_PREFETCH_ENABLED", true),
		PrefetchSpacing:     getEnvDuration("IPTVDECK_PREFETCH_SPACING", time.Second),
		EPGRefreshEvery:     getEnvDuration("IPTVDECK_EPG_REFRESH_EVERY", 2*time.Minute),
		EPGProgressEvery:    getEnvDuration("IPTVDECK_EPG_PROGRESS_EVERY", 30*time.Second),
		EPGWindowLimit:      getEnvInt("IPTVDECK_EPG_WINDOW_LIMIT", 10),
		PlaybackRetryDelay:  getEnvDuration("IPTVDECK_PLAYBACK_RETRY_DELAY", 2*time.Second),
		PlaybackSampleEvery: getEnvDuration("IPTVDECK_PLAYBACK_SAMPLE_EVERY", time.Second),
		ListenAddr:          getEnv("IPTVDECK_LISTEN_ADDR", ":8089"),
		MaxConns:            getEnvInt("IPTVDECK_MAX_CONNS", 256),
		RelayEnabled:        getEnvBool("IPTVDECK_RELAY_ENABLED", false),
		RelayAllowedHosts:   splitHosts(os.Getenv("IPTVDECK_RELAY_ALLOWED_HOSTS")),
		HistoryPath:         getEnv("IPTVDECK_HISTORY_PATH", "./iptvdeck.db"),
	}
	if c.FreshTTL <= 0 {
		c.FreshTTL = 5 * time.Minute
	}
	if c.StaleTTL <= c.FreshTTL {
		c.StaleTTL = c.FreshTTL + 25*time.Minute
	}
	if c.APITimeout <= 0 {
		c.APITimeout = 45 * time.Second
	}
	if c.EPGWindowLimit <= 0 {
		c.EPGWindowLimit = 10
	}
	if c.MaxConns <= 0 {
		c.MaxConns = 256
	}
	// Credentials-file fallback keeps secrets out of the environment.
	if c.ProviderUser == "" || c.ProviderPass == "" {
		if user, pass, err := readCredentialsFile(os.Getenv("IPTVDECK_CREDENTIALS_FILE")); err == nil {
			if c.ProviderUser == "" {
				c.ProviderUser = user
			}
			if c.ProviderPass == "" {
				c.ProviderPass = pass
			}
		}
	}
	return c
}

// Validate reports configuration that cannot work at all.
func (c *Config) Validate() error {
	if c.ProviderBaseURL == "" {
		return fmt.Errorf("config: IPTVDECK_PROVIDER_URL required")
	}
	if c.ProviderUser == "" || c.ProviderPass == "" {
		return fmt.Errorf("config: provider credentials required (env or IPTVDECK_CREDENTIALS_FILE)")
	}
	return nil
}

// readCredentialsFile reads "Username: x" and "Password: x" lines from path.
func readCredentialsFile(path string) (user, pass string, err error) {
	if path == "" {
		return "", "", os.ErrNotExist
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", "", err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "Username:") {
			user = strings.TrimSpace(strings.TrimPrefix(line, "Username:"))
		} else if strings.HasPrefix(line, "Password:") {
			pass = strings.TrimSpace(strings.TrimPrefix(line, "Password:"))
		}
	}
	if err := sc.Err(); err != nil {
		return "", "", err
	}
	if user == "" || pass == "" {
		return "", "", fmt.Errorf("credentials file: missing Username or Password")
	}
	return user, pass, nil
}

func splitHosts(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, _ := strconv.Atoi(v)
		return n
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
