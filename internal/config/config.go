// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DB holds PostgreSQL connection settings.
type DB struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	Name     string `env:"NAME" envDefault:"society_events"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
	// Enabled turns persistence on. Without it the store starts empty and
	// registration changes live only in memory.
	Enabled bool `env:"ENABLED" envDefault:"false"`
}

// DSN builds a libpq-compatible connection string.
func (c DB) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Config is the top-level application configuration.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	SiteTitle       string `env:"SITE_TITLE" envDefault:"Society Events"`
	SiteDescription string `env:"SITE_DESCRIPTION" envDefault:"Workshops, meetings and exhibitions"`
	SiteURL         string `env:"SITE_URL" envDefault:"http://localhost:8080"`
	ICalDomain      string `env:"ICAL_DOMAIN" envDefault:"events.local"`

	// Timezone is the IANA zone calendar dates are evaluated in.
	Timezone string `env:"TIMEZONE" envDefault:"UTC"`
	// WeekStart is "monday" or "sunday".
	WeekStart string `env:"WEEK_START" envDefault:"monday"`

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"society.registrations"`

	DB DB `envPrefix:"DB_"`
}

// Load parses the environment and normalises the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Normalize fills blank values and folds unknown enumerations to defaults.
func (c *Config) Normalize() {
	switch strings.ToLower(c.WeekStart) {
	case "sunday":
		c.WeekStart = "sunday"
	default:
		c.WeekStart = "monday"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	c.SiteURL = strings.TrimRight(c.SiteURL, "/")
}

// Weekday returns the configured first day of the week.
func (c *Config) Weekday() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
