package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feng-zhe/zhechord/internal/bootstrap"
	"github.com/feng-zhe/zhechord/internal/chordnode"
	"github.com/feng-zhe/zhechord/internal/config"
	"github.com/feng-zhe/zhechord/internal/logger"
	zapfactory "github.com/feng-zhe/zhechord/internal/logger/zap"
	"github.com/feng-zhe/zhechord/internal/ring"
	"github.com/feng-zhe/zhechord/internal/store"
	"github.com/feng-zhe/zhechord/internal/telemetry"
	"github.com/feng-zhe/zhechord/internal/transport"
)

var defaultConfigPath = "config/node/config.yaml"

// Usage: node [flags] SELF_ID [JOIN_NODE_ID]
//
// SELF_ID is this node's hex identifier; JOIN_NODE_ID, when present, is the
// hex identifier of any live ring member to join through. Both are
// reformatted to canonical zero-padded width before use. With no positional
// arguments the identifier comes from the config file (or is derived from
// the advertised address) and the join target from the bootstrap section.
func main() {
	// Parse command-line flags
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %q: %v", *configPath, err)
	}

	// Validate configuration
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// Initialize logger
	var lgr logger.Logger
	if cfg.Logger.Active {
		lgr, err = zapfactory.New(zapfactory.Config{
			Level:      cfg.Logger.Level,
			FilePath:   cfg.Logger.FilePath,
			MaxSizeMB:  cfg.Logger.MaxSizeMB,
			MaxBackups: cfg.Logger.MaxBackups,
			MaxAgeDays: cfg.Logger.MaxAgeDays,
		})
		if err != nil {
			log.Fatalf("failed to initialize logger: %v", err)
		}
	} else {
		lgr = logger.NopLogger{}
	}

	cfg.LogConfig(lgr)

	// Initialize identifier space
	space, err := ring.NewSpace(cfg.Ring.Bits, cfg.Ring.BackupSuccessors)
	if err != nil {
		lgr.Error("failed to initialize identifier space", logger.F("err", err))
		os.Exit(1)
	}
	lgr.Debug("identifier space initialized",
		logger.F("bits", space.Bits),
		logger.F("backup_successors", space.BackupCount))

	// Resolve this node's identity: positional SELF_ID wins over config,
	// config over an address-derived hash.
	selfID, err := resolveSelfID(space, flag.Arg(0), cfg)
	if err != nil {
		lgr.Error("invalid node identifier", logger.F("err", err))
		os.Exit(1)
	}
	self := ring.Peer{ID: selfID, Addr: cfg.Node.Advertise}
	lgr = lgr.Named("node")
	lgr.Info("new node initializing",
		logger.F("id", space.Hex(selfID)), logger.F("advertise", cfg.Node.Advertise))

	// Initialize telemetry
	shutdownTracer := telemetry.InitTracer(cfg.Telemetry.Tracing, "zhechord-node", space.Hex(selfID))
	defer func() { _ = shutdownTracer(context.Background()) }()

	// Initialize RPC client
	client := transport.NewClient(transport.Policy{
		Timeout:    time.Duration(cfg.Transport.RequestTimeoutMS) * time.Millisecond,
		Retries:    cfg.Transport.ConnRetry,
		BackoffMin: time.Duration(cfg.Transport.BackoffMinMS) * time.Millisecond,
		BackoffMax: time.Duration(cfg.Transport.BackoffMaxMS) * time.Millisecond,
	}, lgr.Named("client"))
	lgr.Debug("initialized rpc client")

	// Initialize storage
	st := store.New()
	lgr.Debug("initialized in-memory store")

	// Initialize chord engine
	n := chordnode.New(space, self, client, st,
		chordnode.WithLogger(lgr.Named("chord")),
	)

	// Initialize RPC server
	srv := transport.NewServer(cfg.Node.Bind, chordnode.NewRPCHandler(n), lgr.Named("rpc-server"))

	// Run RPC server in background
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()
	lgr.Debug("rpc server started", logger.F("bind", cfg.Node.Bind))

	// Bootstrap: join an existing ring or found a new one
	if err := joinOrCreate(n, space, flag.Arg(1), cfg, lgr); err != nil {
		lgr.Error("bootstrap failed", logger.F("err", err))
		_ = srv.Stop(context.Background())
		os.Exit(1)
	}

	// Setup signal handler
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start maintenance worker
	minIvl, maxIvl := cfg.StabilizeInterval()
	go n.MaintenanceLoop(ctx, minIvl, maxIvl)
	lgr.Debug("maintenance worker started",
		logger.F("interval_min", minIvl), logger.F("interval_max", maxIvl))

	// Wait for termination
	select {
	case <-ctx.Done():
		lgr.Info("shutdown signal received, stopping server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			lgr.Warn("rpc server shutdown error", logger.F("err", err))
		}
	case err := <-serveErr:
		lgr.Error("rpc server terminated unexpectedly", logger.F("err", err))
		stop()
		os.Exit(1)
	}
}

// resolveSelfID picks the node's identifier from, in order of precedence,
// the SELF_ID positional argument, the config file, or a hash of the
// advertised address. Hex arguments round-trip through the space so an
// operator-typed "3" comes out as the canonical zero-padded form.
func resolveSelfID(space ring.Space, arg string, cfg *config.Config) (ring.ID, error) {
	switch {
	case arg != "":
		return space.FromHexString(arg)
	case cfg.Node.ID != "":
		return space.FromHexString(cfg.Node.ID)
	default:
		return space.HashName(cfg.Node.Advertise), nil
	}
}

// joinOrCreate connects the node to the ring: through the JOIN_NODE_ID
// positional argument when given, else through whatever peers the configured
// bootstrap mode discovers. No argument and no peers means this node founds
// a new ring.
func joinOrCreate(n *chordnode.Node, space ring.Space, joinArg string, cfg *config.Config, lgr logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if joinArg != "" {
		seedID, err := space.FromHexString(joinArg)
		if err != nil {
			return fmt.Errorf("invalid JOIN_NODE_ID %q: %w", joinArg, err)
		}
		lgr.Info("joining ring", logger.F("via", space.Hex(seedID)))
		return n.Join(ctx, n.PeerFor(seedID))
	}

	disc, err := bootstrap.NewDiscoverer(cfg.Bootstrap)
	if err != nil {
		return err
	}
	peers, err := disc.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover bootstrap peers: %w", err)
	}
	lgr.Info("resolved bootstrap peers", logger.F("peers", peers))

	for _, addr := range peers {
		if addr == cfg.Node.Advertise {
			continue
		}
		if err := n.Join(ctx, ring.Peer{Addr: addr}); err != nil {
			lgr.Warn("join attempt failed, trying next peer",
				logger.F("peer", addr), logger.F("err", err))
			continue
		}
		return nil
	}
	n.CreateNewDHT()
	return nil
}
