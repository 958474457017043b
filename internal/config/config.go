// Package config turns the viper settings into a typed configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/walak/walak/internal/engine"
)

const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// Keys understood in the config file and as WALAK_* variables.
const (
	KeySource       = "source"
	KeyStorePath    = "store.path"
	KeyAPIURL       = "api.url"
	KeyAPITimeout   = "api.timeout"
	KeyAPIRetries   = "api.retries"
	KeyServerAddr   = "server.addr"
	KeyViewScope    = "view.scope"
	KeyViewMonths   = "view.months"
	KeyLogLevel     = "log.level"
	KeyLogFile      = "log.file"
	KeyTaxonomyFile = "taxonomy.file"
	KeyMonthNotes   = "month_notes"
)

type Config struct {
	Source       string
	StorePath    string
	APIURL       string
	APITimeout   time.Duration
	APIRetries   int
	ServerAddr   string
	Scope        engine.Scope
	Months       int
	LogLevel     string
	LogFile      string
	TaxonomyFile string
	// MonthNotes maps yyyy-MM to a short note shown next to the frame
	// title of that month.
	MonthNotes map[string]string
}

// SetDefaults registers every key with its default, so a config file
// written from v lists them all.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeySource, SourceLocal)
	v.SetDefault(KeyStorePath, "")
	v.SetDefault(KeyAPIURL, "")
	v.SetDefault(KeyAPITimeout, "10s")
	v.SetDefault(KeyAPIRetries, 3)
	v.SetDefault(KeyServerAddr, "127.0.0.1:8080")
	v.SetDefault(KeyViewScope, engine.ScopeWeek.String())
	v.SetDefault(KeyViewMonths, engine.DefaultMonths)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyTaxonomyFile, "")
	v.SetDefault(KeyMonthNotes, map[string]string{})
}

var monthKey = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	c := Config{
		Source:       strings.ToLower(strings.TrimSpace(v.GetString(KeySource))),
		StorePath:    v.GetString(KeyStorePath),
		APIURL:       strings.TrimRight(strings.TrimSpace(v.GetString(KeyAPIURL)), "/"),
		APITimeout:   v.GetDuration(KeyAPITimeout),
		APIRetries:   v.GetInt(KeyAPIRetries),
		ServerAddr:   v.GetString(KeyServerAddr),
		Scope:        engine.ParseScope(v.GetString(KeyViewScope)),
		Months:       v.GetInt(KeyViewMonths),
		LogLevel:     v.GetString(KeyLogLevel),
		LogFile:      v.GetString(KeyLogFile),
		TaxonomyFile: v.GetString(KeyTaxonomyFile),
		MonthNotes:   v.GetStringMapString(KeyMonthNotes),
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Source {
	case SourceLocal:
	case SourceRemote:
		if c.APIURL == "" {
			errs = append(errs, fmt.Errorf("%s is required when source is remote", KeyAPIURL))
		}
	default:
		errs = append(errs, fmt.Errorf("%s must be %q or %q, got %q", KeySource, SourceLocal, SourceRemote, c.Source))
	}
	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s is not an http(s) URL: %q", KeyAPIURL, c.APIURL))
		}
	}
	if c.APITimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyAPITimeout))
	}
	if c.APIRetries < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyAPIRetries))
	}
	if c.Months <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyViewMonths))
	}
	for k := range c.MonthNotes {
		if !monthKey.MatchString(k) {
			errs = append(errs, fmt.Errorf("%s key %q is not yyyy-MM", KeyMonthNotes, k))
		}
	}
	return errors.Join(errs...)
}

// MonthNote returns the note for the month containing t.
func (c Config) MonthNote(t time.Time) string {
	return c.MonthNotes[t.Format("2006-01")]
}

// Remote reports whether logs live behind the HTTP API.
func (c Config) Remote() bool {
	return c.Source == SourceRemote
}
