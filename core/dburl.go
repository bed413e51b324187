package core

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// DefaultDatabaseURL points at the test database of the e-commerce compose
// project, as seen from a container on its network.
const DefaultDatabaseURL = "postgresql://postgres:pass123@db:5432/ecommerce_test"

// DatabaseURLEnv is the variable the test suite reads its connection string from.
const DatabaseURLEnv = "TEST_DATABASE_URL"

var (
	ErrInvalidDatabaseURL = errors.New("invalid database URL")
	ErrUnsupportedScheme  = errors.New("unsupported database URL scheme")
)

// DatabaseURL is a parsed PostgreSQL connection string.
type DatabaseURL struct {
	u *url.URL

	// Driver is the SQLAlchemy driver suffix of the scheme ("psycopg" in
	// postgresql+psycopg://), empty when none is given.
	Driver   string
	Host     string
	Port     string
	Database string
	User     string
}

// ParseDatabaseURL parses raw and checks that it names a PostgreSQL host and
// database. A driver suffix on the scheme is accepted.
func ParseDatabaseURL(raw string) (*DatabaseURL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidDatabaseURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		// url.Error repeats the raw string, which carries the password.
		return nil, fmt.Errorf("%w: malformed URL", ErrInvalidDatabaseURL)
	}

	base, driver, _ := strings.Cut(strings.ToLower(u.Scheme), "+")
	if base != "postgres" && base != "postgresql" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidDatabaseURL)
	}

	database := strings.TrimPrefix(u.Path, "/")
	if database == "" || strings.Contains(database, "/") {
		return nil, fmt.Errorf("%w: missing database name", ErrInvalidDatabaseURL)
	}

	d := &DatabaseURL{
		u:        u,
		Driver:   driver,
		Host:     u.Hostname(),
		Port:     u.Port(),
		Database: database,
	}
	if u.User != nil {
		d.User = u.User.Username()
	}
	return d, nil
}

// String returns the full connection string, password included.
func (d *DatabaseURL) String() string {
	return d.u.String()
}

// Redacted returns the connection string with the password masked.
func (d *DatabaseURL) Redacted() string {
	return d.u.Redacted()
}

// WithDriver returns a copy whose scheme is postgresql+driver. A URL that
// already names a driver is returned unchanged.
func (d *DatabaseURL) WithDriver(driver string) *DatabaseURL {
	if driver == "" || d.Driver != "" {
		return d
	}

	u := *d.u
	if d.u.User != nil {
		user := *d.u.User
		u.User = &user
	}
	u.Scheme = "postgresql+" + driver

	c := *d
	c.u = &u
	c.Driver = driver
	return &c
}

// IsLoopback reports whether the host only resolves on the machine it is
// used from. Such a URL taken from a host-side .env does not reach the
// database from inside a container.
func (d *DatabaseURL) IsLoopback() bool {
	if strings.EqualFold(d.Host, "localhost") {
		return true
	}
	ip := net.ParseIP(d.Host)
	return ip != nil && ip.IsLoopback()
}

// RedactDatabaseURL masks the password of raw for display. Unparseable
// input is replaced entirely.
func RedactDatabaseURL(raw string) string {
	if raw == "" {
		return ""
	}
	d, err := ParseDatabaseURL(raw)
	if err != nil {
		return "<invalid>"
	}
	return d.Redacted()
}
