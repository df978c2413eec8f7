// Package config loads configuration from command-line flags, falling back to
// environment variables.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the gateway configuration.
type Config struct {
	// Upstream FTP server
	UpstreamAddr string
	Username     string
	Password     string
	TLS          bool
	TLSInsecure  bool
	Timeout      time.Duration
	KeepAlive    time.Duration

	// HTTP server
	Host        string
	Port        int
	MetricsAddr string

	// Presentation
	Style           string
	StreamDownloads bool
	WebDAV          bool
	QRCode          bool

	// Logging
	LogLevel  string
	LogFormat string
	LogOutput string
}

// ErrMissingUpstream is returned when no FTP server address was given.
var ErrMissingUpstream = errors.New("ftp server address is required")

// Load parses args (without the program name) on top of environment defaults.
// The upstream address is the single positional argument and may appear
// before or after the flags.
func Load(args []string) (*Config, error) {
	return load(args, io.Discard)
}

// LoadWithUsage is Load with flag usage and errors written to out.
func LoadWithUsage(args []string, out io.Writer) (*Config, error) {
	return load(args, out)
}

func load(args []string, out io.Writer) (*Config, error) {
	cfg := &Config{
		UpstreamAddr:    envOr("FTP_ADDR", ""),
		Username:        envOr("FTP_USERNAME", ""),
		Password:        envOr("FTP_PASSWORD", ""),
		TLS:             envBool("FTP_TLS", false),
		TLSInsecure:     envBool("FTP_TLS_INSECURE", false),
		Timeout:         envDuration("FTP_TIMEOUT", 30*time.Second),
		KeepAlive:       envDuration("FTP_KEEPALIVE", 0),
		Host:            envOr("HOST", "0.0.0.0"),
		Port:            envInt("PORT", 8080),
		MetricsAddr:     envOr("METRICS_ADDR", ""),
		Style:           envOr("STYLE", "default"),
		StreamDownloads: envBool("STREAM_DOWNLOADS", false),
		WebDAV:          envBool("WEBDAV", false),
		QRCode:          envBool("QR", true),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		LogFormat:       envOr("LOG_FORMAT", "console"),
		LogOutput:       envOr("LOG_OUTPUT", ""),
	}

	fs := flag.NewFlagSet("ftp-web", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: ftp-web [flags] <ftp-host[:port]>\n\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&cfg.Username, "username", cfg.Username, "FTP username (anonymous when empty)")
	fs.StringVar(&cfg.Username, "u", cfg.Username, "shorthand for -username")
	fs.StringVar(&cfg.Password, "password", cfg.Password, "FTP password")
	fs.StringVar(&cfg.Password, "p", cfg.Password, "shorthand for -password")
	fs.BoolVar(&cfg.TLS, "tls", cfg.TLS, "use explicit FTPS (AUTH TLS)")
	fs.BoolVar(&cfg.TLSInsecure, "insecure", cfg.TLSInsecure, "skip FTPS certificate verification")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "FTP operation timeout")
	fs.DurationVar(&cfg.KeepAlive, "keepalive", cfg.KeepAlive, "send NOOP after this much idle time (0 disables)")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "HTTP bind host")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP port (the nearest free port is used if busy)")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus listen address (empty disables)")
	fs.StringVar(&cfg.Style, "style", cfg.Style, "listing style: default, emoji, plain")
	fs.BoolVar(&cfg.StreamDownloads, "stream", cfg.StreamDownloads, "stream downloads instead of buffering them")
	fs.BoolVar(&cfg.WebDAV, "webdav", cfg.WebDAV, "serve a read-only WebDAV view under /webdav/")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console, json")
	fs.StringVar(&cfg.LogOutput, "log-output", cfg.LogOutput, "log destination: stderr, stdout or a file path (default stderr)")
	fs.BoolVar(&cfg.QRCode, "qr", cfg.QRCode, "print a QR code of the LAN URL at startup")

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}

	switch len(positional) {
	case 0:
	case 1:
		cfg.UpstreamAddr = positional[0]
	default:
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(positional[1:], " "))
	}

	if cfg.UpstreamAddr == "" {
		return nil, ErrMissingUpstream
	}
	cfg.UpstreamAddr = withDefaultPort(cfg.UpstreamAddr)

	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}

	return cfg, nil
}

// ListenAddr returns host:port for the HTTP server.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// withDefaultPort strips an ftp:// scheme and appends :21 when no port is given.
func withDefaultPort(addr string) string {
	addr = strings.TrimPrefix(addr, "ftp://")
	addr = strings.TrimSuffix(addr, "/")
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(strings.Trim(addr, "[]"), "21")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
