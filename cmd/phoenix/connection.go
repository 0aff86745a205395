package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"phoenix/internal/parser/toml"
)

const defaultPort = 5432

// connFlags holds the PostgreSQL connection flags shared by the commands
// that talk to a database.
type connFlags struct {
	dsn      string
	host     string
	port     int
	database string
	user     string
	password string
	sslMode  string
}

func (c *connFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.dsn, "dsn", "", "PostgreSQL connection string; replaces the other connection flags")
	cmd.Flags().StringVar(&c.host, "host", "localhost", "Database host")
	cmd.Flags().IntVar(&c.port, "port", defaultPort, "Database port")
	cmd.Flags().StringVar(&c.database, "db", "", "Database name")
	cmd.Flags().StringVar(&c.user, "user", "", "Database user")
	cmd.Flags().StringVar(&c.password, "password", "", "Database password (prompted when omitted on a terminal)")
	cmd.Flags().StringVar(&c.sslMode, "sslmode", "", "SSL mode, e.g. disable or require")
}

// configured reports whether a database was named by flags or the job file.
func (c *connFlags) configured(job *toml.Connection) bool {
	if c.dsn != "" || c.database != "" {
		return true
	}
	return job != nil && (job.DSN != "" || job.Database != "")
}

// resolve builds the DSN from the flags, falling back to the job file for
// every flag the user did not set.
func (c *connFlags) resolve(cmd *cobra.Command, job *toml.Connection) (string, error) {
	merged := *c
	if job != nil {
		flags := cmd.Flags()
		if !flags.Changed("dsn") && job.DSN != "" {
			merged.dsn = job.DSN
		}
		if !flags.Changed("host") && job.Host != "" {
			merged.host = job.Host
		}
		if !flags.Changed("port") && job.Port != 0 {
			merged.port = job.Port
		}
		if !flags.Changed("db") && job.Database != "" {
			merged.database = job.Database
		}
		if !flags.Changed("user") && job.User != "" {
			merged.user = job.User
		}
		if !flags.Changed("sslmode") && job.SSLMode != "" {
			merged.sslMode = job.SSLMode
		}
	}

	if merged.dsn != "" {
		return merged.dsn, nil
	}
	if merged.database == "" {
		return "", fmt.Errorf("--dsn or --db is required")
	}

	if merged.password == "" && merged.user != "" && os.Getenv("PGPASSWORD") == "" {
		password, err := promptPassword(cmd, merged.user)
		if err != nil {
			return "", err
		}
		merged.password = password
	}
	return merged.buildDSN(), nil
}

// buildDSN renders the flags as a postgres:// URL. Unset parts are left to
// pgx and the PG* environment variables.
func (c *connFlags) buildDSN() string {
	port := c.port
	if port == 0 {
		port = defaultPort
	}
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.host, strconv.Itoa(port)),
		Path:   "/" + c.database,
	}
	switch {
	case c.user != "" && c.password != "":
		u.User = url.UserPassword(c.user, c.password)
	case c.user != "":
		u.User = url.User(c.user)
	}
	if c.sslMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.sslMode}}.Encode()
	}
	return u.String()
}

// promptPassword reads a password from the terminal without echo. Off a
// terminal it returns an empty password.
func promptPassword(cmd *cobra.Command, user string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Password for %s: ", user)
	b, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func withTimeout(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}
