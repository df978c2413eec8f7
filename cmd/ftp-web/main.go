// ftp-web serves the contents of an FTP server as browsable HTML pages.
//
// Usage:
//
//	ftp-web [flags] <ftp-host[:port]>
//
// Every flag also has an environment variable; see internal/config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ahaoboy/ftp-web/internal/api"
	"github.com/ahaoboy/ftp-web/internal/config"
	"github.com/ahaoboy/ftp-web/internal/download"
	"github.com/ahaoboy/ftp-web/internal/listing"
	"github.com/ahaoboy/ftp-web/internal/logging"
	"github.com/ahaoboy/ftp-web/internal/metrics"
	"github.com/ahaoboy/ftp-web/internal/netutil"
	"github.com/ahaoboy/ftp-web/internal/qrterm"
	"github.com/ahaoboy/ftp-web/internal/render"
	"github.com/ahaoboy/ftp-web/internal/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadWithUsage(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "ftp-web: "+err.Error())
		os.Exit(2)
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "logging init error: "+err.Error())
		os.Exit(1)
	}
	defer logging.Sync()

	style, err := render.StyleByName(cfg.Style)
	if err != nil {
		logging.Fatal("invalid style", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info("connecting to FTP server...",
		zap.String("addr", cfg.UpstreamAddr),
		zap.Bool("tls", cfg.TLS))

	sessCfg := session.Config{
		Addr:        cfg.UpstreamAddr,
		Username:    cfg.Username,
		Password:    cfg.Password,
		TLS:         cfg.TLS,
		TLSInsecure: cfg.TLSInsecure,
		Timeout:     cfg.Timeout,
		KeepAlive:   cfg.KeepAlive,
	}
	sess, err := session.Open(ctx, sessCfg, session.FTPDialer(sessCfg))
	if err != nil {
		logging.Fatal("FTP login failed", zap.Error(err))
	}
	defer sess.Close()
	logging.Info("FTP session ready")

	srv := api.NewServer(
		listing.NewTranslator(sess),
		download.New(sess),
		render.New(style),
		api.Options{Stream: cfg.StreamDownloads, WebDAV: cfg.WebDAV},
	)

	port, err := netutil.FindPort(cfg.Host, cfg.Port)
	if err != nil {
		logging.Fatal("no port to listen on", zap.Error(err))
	}
	if port != cfg.Port {
		logging.Warn("port busy, using the next free one",
			zap.Int("requested", cfg.Port),
			zap.Int("port", port))
		cfg.Port = port
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	servers := []*http.Server{httpServer}

	if cfg.MetricsAddr != "" {
		servers = append(servers, &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	lan := printURLs(cfg.Host, port, cfg.WebDAV)
	if cfg.QRCode && lan != "" {
		if err := qrterm.Write(os.Stdout, lan); err != nil {
			logging.Warn("qr code not printed", zap.Error(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		g.Go(func() error {
			logging.Info("listening", zap.String("addr", s.Addr))
			if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", s.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logging.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, s := range servers {
			if err := s.Shutdown(shutdownCtx); err != nil {
				logging.Warn("shutdown incomplete", zap.String("addr", s.Addr), zap.Error(err))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logging.Error("server error", zap.Error(err))
		sess.Close()
		logging.Sync()
		os.Exit(1)
	}
	logging.Info("server stopped")
}

// printURLs shows where the gateway can be reached and returns the URL
// other machines should use, or "" when it only listens on loopback.
func printURLs(host string, port int, webdav bool) string {
	p := strconv.Itoa(port)
	hosts := []string{"localhost"}
	lan := ""
	switch host {
	case "0.0.0.0", "::", "":
		if ip := netutil.LocalIP(); ip != nil {
			lan = ip.String()
			hosts = append(hosts, lan)
		}
	case "localhost", "127.0.0.1", "::1":
	default:
		lan = host
		hosts = []string{host}
	}
	for _, h := range hosts {
		fmt.Printf("  http://%s/\n", net.JoinHostPort(h, p))
		if webdav {
			fmt.Printf("  webdav: http://%s/webdav/\n", net.JoinHostPort(h, p))
		}
	}
	if lan == "" {
		return ""
	}
	return "http://" + net.JoinHostPort(lan, p) + "/"
}
