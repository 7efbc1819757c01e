// Package mcp provides an MCP (Model Context Protocol) server that exposes
// event log generation and verification as tools.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/doorsim/internal/config"
	"github.com/nvandessel/doorsim/internal/logging"
	"github.com/nvandessel/doorsim/internal/pathutil"
	"github.com/nvandessel/doorsim/internal/ratelimit"
	"github.com/nvandessel/doorsim/internal/store"
)

// Server wraps the MCP SDK server and provides doorsim tools.
type Server struct {
	server       *sdk.Server
	ledger       store.Ledger
	root         string
	settings     *config.Config
	allowedDirs  []string
	logger       *slog.Logger
	trace        *logging.TraceLogger
	auditLogger  *AuditLogger
	toolLimiters ratelimit.ToolLimiters

	closeOnce sync.Once
	closeErr  error
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "doorsim")
	Version string // Server version
	Root    string // Project root directory

	// Settings supplies tool defaults. Nil uses config.Default().
	Settings *config.Config

	// Ledger records runs and verifications. Nil opens the SQLite ledger
	// under Root, or an in-memory one when history is disabled.
	Ledger store.Ledger

	// Logger receives operational logs. Nil discards them.
	Logger *slog.Logger
}

// NewServer creates a new MCP server with doorsim tools.
func NewServer(cfg *Config) (*Server, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	ledger := cfg.Ledger
	if ledger == nil {
		if settings.History.Enabled {
			l, err := store.NewSQLiteLedger(cfg.Root)
			if err != nil {
				return nil, fmt.Errorf("failed to open run ledger: %w", err)
			}
			ledger = l
		} else {
			ledger = store.NewInMemoryLedger()
		}
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		ledger:       ledger,
		root:         cfg.Root,
		settings:     settings,
		allowedDirs:  pathutil.PipelineDirs(cfg.Root),
		logger:       logger,
		trace:        logging.NewTraceLogger(store.LocalPath(cfg.Root), settings.Logging.Level),
		auditLogger:  NewAuditLogger(cfg.Root),
		toolLimiters: ratelimit.NewToolLimiters(),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("mcp server listening on stdio", "root", s.root)
	err := s.server.Run(ctx, &sdk.StdioTransport{})

	s.Close()
	return err
}

// Close releases the ledger, trace and audit files. It is safe to call
// more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.trace.Close()
		if err := s.auditLogger.Close(); err != nil {
			s.logger.Warn("failed to close audit log", "error", err)
		}
		s.closeErr = s.ledger.Close()
	})
	return s.closeErr
}
