package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/metaformsystems/xregistry-oci/internal/logger"
	"github.com/metaformsystems/xregistry-oci/internal/server"
)

const apiKeyEnvVar = "XROCI_API_KEY"

func newServeCmd(root *rootOptions) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry tools over MCP",
		Long: `Runs an MCP server exposing list_artifacts, parse_filename,
validate_registry, build_package and inspect_layout for the project.
The server speaks stdio by default. With --listen it serves streamable HTTP
at /mcp and a health check at /health; if ` + apiKeyEnvVar + ` is set, requests
to /mcp must carry it in the Authorization header.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := server.New(server.Options{
				ProjectDir: root.projectDir,
				Config:     root.cfg,
				Version:    version,
			})
			if err != nil {
				return err
			}

			if listenAddr == "" {
				return s.Run(ctx)
			}
			return serveHTTP(ctx, server.CreateHTTPServer(listenAddr, s, os.Getenv(apiKeyEnvVar)))
		},
	}

	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Serve streamable HTTP on this address instead of stdio (e.g. 127.0.0.1:3000)")
	return cmd
}

// serveHTTP runs httpServer until ctx is done, then shuts it down
func serveHTTP(ctx context.Context, httpServer *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Serving MCP on http://%s/mcp", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Println("Shutting down...")
		logger.LogInfo("shutdown", "Stopping HTTP server on %s", httpServer.Addr)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
