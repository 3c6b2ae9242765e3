package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/contextharness/ctx/internal/httpserver"
	"github.com/contextharness/ctx/internal/registry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP/MCP tool-call server",
}

var serveMCPCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve REST tool/agent endpoints plus an MCP transport at /mcp",
	Args:  cobra.NoArgs,
	RunE:  runServeMCP,
}

func init() {
	serveCmd.AddCommand(serveMCPCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServeMCP(cmd *cobra.Command, args []string) error {
	app, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	reloadedAt := time.Now().UTC()

	reg, err := registry.Build(ctx, buildRegistryDeps(app, app.Config))
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	srv := httpserver.New(reg, func() httpserver.HealthStatus {
		return serverHealth(app, reg, reloadedAt)
	})
	srv.MountMCP(reg)

	httpSrv := &http.Server{Addr: app.Config.Server.Bind, Handler: srv.Handler()}

	go func() {
		<-ctx.Done()
		log.Println("shutdown signal received, draining in-flight requests...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("http server shutdown error: %v", err)
		}
	}()

	log.Printf("serving %d tools, %d agents on %s", len(reg.ListTools()), len(reg.ListAgents()), app.Config.Server.Bind)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// serverHealth computes extended /health fields from the
// live store, per the App's already-open handles — no extra query round
// trip beyond what stats already does.
func serverHealth(app *App, reg *registry.Registry, reloadedAt time.Time) httpserver.HealthStatus {
	statuses, err := app.Store.ListSources()
	if err != nil {
		return httpserver.HealthStatus{Status: "degraded"}
	}
	var documents, chunks int
	for _, s := range statuses {
		documents += s.DocumentCount
		chunks += s.ChunkCount
	}
	pending, err := app.Store.PendingChunkIDs(1 << 30)
	if err != nil {
		return httpserver.HealthStatus{Status: "degraded"}
	}
	return httpserver.HealthStatus{
		Documents:        documents,
		Chunks:           chunks,
		PendingEmbeds:    len(pending),
		RegistryReloaded: reloadedAt,
		ToolCount:        len(reg.ListTools()),
		AgentCount:       len(reg.ListAgents()),
	}
}
