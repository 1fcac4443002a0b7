package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/shopper/internal/api"
	"github.com/kalambet/shopper/internal/catalog"
	"github.com/kalambet/shopper/internal/config"
	"github.com/kalambet/shopper/internal/dialogue"
	"github.com/kalambet/shopper/internal/engine"
	"github.com/kalambet/shopper/internal/session"
	"github.com/kalambet/shopper/internal/shop"
	"github.com/kalambet/shopper/internal/storage"
)

const janitorInterval = time.Minute

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the shopper server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show shopper system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	startCmd.Flags().Bool("mcp", false, "also serve the shopping tools over MCP on stdio")
}

func runServer(withMCP bool) error {
	fmt.Fprintln(os.Stderr, versionString())

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := engine.Select(engine.Config{
		Provider: cfg.Reasoner.Provider,
		BaseURL:  cfg.Reasoner.BaseURL,
		Model:    cfg.Reasoner.Model,
		APIKey:   cfg.Reasoner.APIKey,
	})
	if err != nil {
		return err
	}
	if err := engine.EnsureReady(ctx, eng, os.Stderr); err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	if err := ensureCatalog(ctx, store, cfg.Catalog.SeedCount, uint64(cfg.Catalog.Seed)); err != nil {
		return err
	}

	searcher := catalog.NewSearcher(store)
	toolbox := shop.NewToolbox(searcher, store)
	sessions := session.NewManager(cfg.SessionTTL())

	handler := api.NewHandler(api.Deps{
		Dialogue: dialogue.New(eng, toolbox),
		Sessions: sessions,
		Catalog:  searcher,
		Orders:   store,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "shopper listening on %s (reasoner %s)\n", addr, eng.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return sessions.Run(gctx, janitorInterval)
	})

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Sessions: sessions,
			Toolbox:  toolbox,
			Catalog:  searcher,
			Orders:   store,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// catalogStore is the storage surface used for seeding.
type catalogStore interface {
	CountProducts(ctx context.Context) (int, error)
	SaveProducts(ctx context.Context, products []catalog.Product) error
}

// ensureCatalog seeds an empty catalog with count generated products.
func ensureCatalog(ctx context.Context, store catalogStore, count int, seed uint64) error {
	n, err := store.CountProducts(ctx)
	if err != nil {
		return fmt.Errorf("counting products: %w", err)
	}
	if n > 0 {
		slog.Info("catalog ready", "products", n)
		return nil
	}
	if count <= 0 {
		printWarning("catalog is empty and seeding is disabled (catalog.seed_count = 0)")
		return nil
	}

	printStep("Seeding catalog with %d products", count)
	if err := store.SaveProducts(ctx, catalog.Generate(count, seed)); err != nil {
		return fmt.Errorf("seeding catalog: %w", err)
	}
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Reasoner", "%s (%s)", cfg.Reasoner.Provider, cfg.Reasoner.Model)
	if cfg.Reasoner.APIKey == "" {
		printStatus("API key", "not set, rule engine only")
	}

	if store, err := storage.Open(cfg.Storage.DataDir); err == nil {
		if n, err := store.CountProducts(context.Background()); err == nil {
			printStatus("Products", "%d", n)
		}
		if orders, err := store.ListOrders(context.Background(), 1); err == nil && len(orders) > 0 {
			printStatus("Last order", "%s at %s", orders[0].Number, orders[0].CreatedAt.Format(time.RFC3339))
		}
		store.Close()
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
