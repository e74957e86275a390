package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/veilnet/veilnet/health"
	"github.com/veilnet/veilnet/internal/federation"
	"github.com/veilnet/veilnet/internal/filerelay"
	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/internal/meshstate"
	"github.com/veilnet/veilnet/internal/nodeconfig"
	"github.com/veilnet/veilnet/internal/presence"
	"github.com/veilnet/veilnet/internal/routing"
	"github.com/veilnet/veilnet/internal/transport/httpapi"
	"github.com/veilnet/veilnet/internal/transport/peerlink"
	"github.com/veilnet/veilnet/pkg/nodekey"
	"github.com/veilnet/veilnet/pkg/wire"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run this node: HTTP client API, websocket peer link, bootstrap and sweep loops",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "path to node config YAML (overridden by CONFIG_FILE)")
}

func now() int64 { return time.Now().UnixMilli() }

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := nodeconfig.Load(serveConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.Logging)

	selfKey, err := loadOrCreateNodeKey(log)
	if err != nil {
		return fmt.Errorf("load node key: %w", err)
	}

	selfID, err := nodekeyServerID(selfKey)
	if err != nil {
		return fmt.Errorf("derive self server id: %w", err)
	}

	mesh := meshstate.New(selfID, selfKey, cfg.Pending.MaxQueueLen, cfg.PublicChannel.RingSize)

	dialer := peerlink.NewWSDialer(federation.WelcomeTimeout)
	fed := federation.New(mesh, cfg.Host, cfg.Port, cfg.BootstrapServers, dialer, log)
	pres := presence.New(mesh, fed, log)
	rt := routing.New(mesh, log)
	rel := filerelay.New(mesh, log)

	hc := health.NewHealthChecker(5 * time.Second)
	hc.SetLogger(log)
	hc.RegisterCheck("bootstrap", health.BootstrapHealthCheck(fed.Bootstrapped))
	hc.RegisterCheck("peers", health.PeerLivenessHealthCheck(
		func() bool { return len(cfg.BootstrapServers) > 0 },
		mesh.PeerCount,
	))
	hc.RegisterCheck("mesh_state", health.MeshStateHealthCheck(func(ctx context.Context) error { return nil }))

	api := httpapi.New(mesh, pres, rt, rel, fed, hc, log)
	dispatcher := peerlink.NewDispatcher(mesh, fed, pres, rt, log)

	mux := http.NewServeMux()
	mux.Handle("/peer", dispatcher.Handler())
	mux.Handle("/", api.Handler())

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpSrv := &http.Server{Addr: addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("veilnetd listening", logger.String("addr", addr), logger.String("server_id", selfID))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", logger.Error(err))
		}
	}()

	go dispatcher.MaintainOutbound(ctx, dialer, 10*time.Second)
	go pres.RunSweep(ctx, cfg.Presence.HeartbeatInterval, cfg.Presence.StaleAfter, now)

	if !cfg.SkipBootstrap {
		go func() {
			if err := fed.Bootstrap(ctx, now); err != nil {
				log.Warn("bootstrap did not complete, running isolated", logger.Error(err))
			}
		}()
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func newLogger(cfg nodeconfig.LoggingConfig) *logger.StructuredLogger {
	return logger.NewLogger(os.Stdout, parseLevel(cfg.Level))
}

func parseLevel(level string) logger.Level {
	switch level {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}

// loadOrCreateNodeKey reads PRIVATE_KEY_FILE if set and present, generates
// and persists a new key to that path if set but absent, or generates a
// purely in-memory key (logged as ephemeral) if unset.
func loadOrCreateNodeKey(log logger.Logger) (*nodekey.KeyPair, error) {
	path := os.Getenv("PRIVATE_KEY_FILE")
	if path == "" {
		log.Warn("PRIVATE_KEY_FILE not set, generating an ephemeral node identity that will not survive a restart")
		return nodekey.Generate()
	}

	if data, err := os.ReadFile(path); err == nil {
		return nodekey.LoadPrivateKeyPEM(data)
	}

	key, err := nodekey.Generate()
	if err != nil {
		return nil, err
	}
	pem, err := key.PrivateKeyPEM()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, pem, 0o600); err != nil {
		return nil, fmt.Errorf("write new node key to %s: %w", path, err)
	}
	log.Info("generated new node identity key", logger.String("path", path))
	return key, nil
}

// nodekeyServerID derives this node's server_id from SERVER_ID if set,
// otherwise from a random UUID minted once at startup — matching the
// reference's fallback of treating an absent configured id as "assign me
// one", since SPEC_FULL.md's wire.Identifier never requires a server's own
// id to be anything but a UUID.
func nodekeyServerID(key *nodekey.KeyPair) (string, error) {
	if id := os.Getenv("SERVER_ID"); id != "" {
		return id, nil
	}
	return wire.NewRandomID().String(), nil
}
