// Package config reads the gateway's bootstrap configuration from the
// environment. There is no file-based layer: spec.md places configuration
// loading outside the core, so this stays a thin boundary struct.
package config

import (
	"fmt"
	"os"
)

// Config holds every environment variable the gateway recognizes.
type Config struct {
	DBUser         string
	DBPassword     string
	DBHost         string
	GitHubPAT      string
	SignPassphrase string
	Domain         string
	HTTPPort       string
	HTTPSPort      string
	CertPEM        string
	KeyPEM         string
}

// Load reads every recognized variable, applying the teacher's convention
// of defaulting the plain HTTP port rather than failing bootstrap over it.
func Load() (*Config, error) {
	c := &Config{
		DBUser:         os.Getenv("PACKHUB_DB_USER"),
		DBPassword:     os.Getenv("PACKHUB_DB_PASSWORD"),
		DBHost:         os.Getenv("PACKHUB_DB_HOST"),
		GitHubPAT:      os.Getenv("PACKHUB_GITHUB_PAT"),
		SignPassphrase: os.Getenv("PACKHUB_SIGN_PASSPHRASE"),
		Domain:         os.Getenv("PACKHUB_DOMAIN"),
		HTTPPort:       os.Getenv("PACKHUB_HTTP_PORT"),
		HTTPSPort:      os.Getenv("PACKHUB_HTTPS_PORT"),
		CertPEM:        os.Getenv("PACKHUB_CERT_PEM"),
		KeyPEM:         os.Getenv("PACKHUB_KEY_PEM"),
	}
	if c.HTTPPort == "" {
		c.HTTPPort = "3000"
	}
	if c.DBHost == "" {
		return nil, fmt.Errorf("PACKHUB_DB_HOST is required")
	}
	return c, nil
}

// MongoURI builds the connection string from the discrete DB_* variables,
// the same shape the original bootstrap assembles by hand.
func (c *Config) MongoURI() string {
	if c.DBUser == "" {
		return fmt.Sprintf("mongodb://%s", c.DBHost)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s", c.DBUser, c.DBPassword, c.DBHost)
}

// TLSEnabled reports whether enough material was provided to serve HTTPS.
func (c *Config) TLSEnabled() bool {
	return c.CertPEM != "" && c.KeyPEM != "" && c.HTTPSPort != ""
}
