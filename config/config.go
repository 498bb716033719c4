package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"skport-checkin/models"
)

const (
	DefaultBaseURL     = "https://zonai.skport.com"
	DefaultSchedule    = "30 0 * * *"
	DefaultListenAddr  = ":5200"
	DefaultNATSSubject = "skport.checkin.completed"
)

// ErrNoProfiles is returned when neither PROFILES nor PROFILES_FILE yields an account.
var ErrNoProfiles = errors.New("no profiles configured: set PROFILES or PROFILES_FILE")

type Config struct {
	Profiles []models.Profile

	BaseURL      string        // SKPORT_BASE_URL
	AccountDelay time.Duration // ACCOUNT_DELAY (default 1s)
	HTTPTimeout  time.Duration // HTTP_TIMEOUT (default 30s)

	Discord DiscordConfig

	// Serve mode
	Schedule   string // CHECKIN_SCHEDULE (cron, UTC)
	ListenAddr string // LISTEN_ADDR
	AdminToken string // ADMIN_TOKEN (empty = manual trigger disabled)

	DatabaseURL string // DATABASE_URL (optional, empty = no history)
	NATSURL     string // NATS_URL (optional, empty = no events)
	NATSSubject string // NATS_SUBJECT

	Archive ArchiveConfig

	LogLevel string // LOG_LEVEL
}

type DiscordConfig struct {
	Enabled    bool   // ENABLE_DISCORD_NOTIFY (default true)
	WebhookURL string // DISCORD_WEBHOOK_URL
	UserID     string // DISCORD_USER_ID
}

// Active reports whether webhook delivery should be attempted at all.
func (d DiscordConfig) Active() bool {
	return d.Enabled && d.WebhookURL != ""
}

type ArchiveConfig struct {
	AccountID       string // CLOUDFLARE_ACCOUNT_ID
	AccessKeyID     string // R2_ACCESS_KEY_ID
	AccessKeySecret string // R2_ACCESS_KEY_SECRET
	Bucket          string // R2_BUCKET_NAME
	Endpoint        string // R2_ENDPOINT (overrides the account-derived endpoint)
	LocalDir        string // REPORT_DIR (used when R2 is not configured)
}

// R2Enabled reports whether enough settings are present to build an R2 client.
func (a ArchiveConfig) R2Enabled() bool {
	return a.Bucket != "" && (a.AccountID != "" || a.Endpoint != "")
}

// Load reads the whole configuration from the environment.
func Load() (*Config, error) {
	c := &Config{
		BaseURL: strings.TrimRight(envOrDefault("SKPORT_BASE_URL", DefaultBaseURL), "/"),
		Discord: DiscordConfig{
			Enabled:    envOrDefault("ENABLE_DISCORD_NOTIFY", "true") == "true",
			WebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
			UserID:     os.Getenv("DISCORD_USER_ID"),
		},
		Schedule:    envOrDefault("CHECKIN_SCHEDULE", DefaultSchedule),
		ListenAddr:  envOrDefault("LISTEN_ADDR", DefaultListenAddr),
		AdminToken:  os.Getenv("ADMIN_TOKEN"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		NATSURL:     os.Getenv("NATS_URL"),
		NATSSubject: envOrDefault("NATS_SUBJECT", DefaultNATSSubject),
		Archive: ArchiveConfig{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			Endpoint:        os.Getenv("R2_ENDPOINT"),
			LocalDir:        os.Getenv("REPORT_DIR"),
		},
		LogLevel: envOrDefault("LOG_LEVEL", "info"),
	}

	var err error
	if c.AccountDelay, err = durationEnv("ACCOUNT_DELAY", time.Second); err != nil {
		return nil, err
	}
	if c.HTTPTimeout, err = durationEnv("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	profiles, err := loadProfiles()
	if err != nil {
		return nil, err
	}
	c.Profiles = profiles

	return c, nil
}

func loadProfiles() ([]models.Profile, error) {
	var (
		profiles []models.Profile
		err      error
	)
	if path := os.Getenv("PROFILES_FILE"); path != "" {
		profiles, err = ParseProfilesFile(path)
	} else if raw := os.Getenv("PROFILES"); raw != "" {
		profiles, err = ParseProfilesJSON([]byte(raw))
		if err != nil {
			err = fmt.Errorf("PROFILES: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}
	return normalizeProfiles(profiles)
}

// ParseProfilesJSON decodes a JSON array of profiles.
func ParseProfilesJSON(data []byte) ([]models.Profile, error) {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "[") {
		return nil, fmt.Errorf("must be a JSON array")
	}
	var profiles []models.Profile
	if err := json.Unmarshal([]byte(trimmed), &profiles); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return profiles, nil
}

// profileFile is the on-disk shape for TOML and YAML files.
type profileFile struct {
	Profiles []models.Profile `toml:"profiles" yaml:"profiles"`
}

// ParseProfilesFile reads profiles from a .toml, .yaml/.yml or .json file.
func ParseProfilesFile(path string) ([]models.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("PROFILES_FILE: %w", err)
	}

	var pf profileFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &pf); err != nil {
			return nil, fmt.Errorf("PROFILES_FILE %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &pf); err != nil {
			return nil, fmt.Errorf("PROFILES_FILE %s: %w", path, err)
		}
	case ".json":
		profiles, err := ParseProfilesJSON(data)
		if err != nil {
			return nil, fmt.Errorf("PROFILES_FILE %s: %w", path, err)
		}
		return profiles, nil
	default:
		return nil, fmt.Errorf("PROFILES_FILE %s: unsupported extension %q", path, ext)
	}
	return pf.Profiles, nil
}

func normalizeProfiles(profiles []models.Profile) ([]models.Profile, error) {
	if len(profiles) == 0 {
		return nil, ErrNoProfiles
	}
	out := make([]models.Profile, 0, len(profiles))
	for i, p := range profiles {
		p.AccountName = norm.NFC.String(strings.TrimSpace(p.AccountName))
		if p.AccountName == "" {
			p.AccountName = "Account " + strconv.Itoa(i+1)
		}
		if strings.TrimSpace(p.Cred) == "" {
			return nil, fmt.Errorf("profile %d (%s): cred is required", i+1, p.AccountName)
		}
		p.Token = ""
		out = append(out, p)
	}
	return out, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
