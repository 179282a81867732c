package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the timescope server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// DSN points to where timescope stores range history
	DSN string
	// Version is the current version of server
	Version string

	// DefaultTimezone is the timezone selector used when a request
	// supplies none ("UTC", "local", or an IANA id).
	DefaultTimezone string // TIMESCOPE_DEFAULT_TIMEZONE
	// WeekStartsOn anchors week rounding: "sunday" or "monday".
	WeekStartsOn string // TIMESCOPE_WEEK_STARTS_ON (default: monday)
	// HistoryLimit caps how many applied ranges are retained.
	HistoryLimit int // TIMESCOPE_HISTORY_LIMIT (default: 50)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// WeekStart maps the configured week-start name to a weekday.
func (p *Profile) WeekStart() time.Weekday {
	if strings.EqualFold(p.WeekStartsOn, "sunday") {
		return time.Sunday
	}
	return time.Monday
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from TIMESCOPE_* environment variables.
func (p *Profile) FromEnv() {
	p.DefaultTimezone = getEnvOrDefault("TIMESCOPE_DEFAULT_TIMEZONE", p.DefaultTimezone)
	p.WeekStartsOn = getEnvOrDefault("TIMESCOPE_WEEK_STARTS_ON", p.WeekStartsOn)
	if v := os.Getenv("TIMESCOPE_HISTORY_LIMIT"); v != "" {
		if n, err := parsePositive(v); err == nil {
			p.HistoryLimit = n
		}
	}
	if v := os.Getenv("TIMESCOPE_DRIVER"); v != "" {
		p.Driver = v
	}
	if v := os.Getenv("TIMESCOPE_DSN"); v != "" {
		p.DSN = v
	}
	if v := os.Getenv("TIMESCOPE_DATA"); v != "" {
		p.Data = v
	}
}

func parsePositive(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.Errorf("value must be positive: %s", s)
	}
	return n, nil
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.WeekStartsOn == "" {
		p.WeekStartsOn = "monday"
	}
	if p.HistoryLimit <= 0 {
		p.HistoryLimit = 50
	}

	if p.Data == "" {
		p.Data = "."
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("timescope_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	return nil
}
