package server

import (
	"encoding/json"
	"net/http"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/metaformsystems/xregistry-oci/internal/auth"
	"github.com/metaformsystems/xregistry-oci/internal/logger"
	"github.com/metaformsystems/xregistry-oci/internal/logger/sanitize"
)

var logHTTP = logger.New("server:http")

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status  string   `json:"status"`
	Version string   `json:"version"`
	Project string   `json:"project"`
	Tools   []string `json:"tools"`
}

// HandleHealth returns the /health handler. It is never behind auth.
func HandleHealth(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(HealthResponse{
			Status:  "healthy",
			Version: s.opts.Version,
			Project: s.opts.ProjectDir,
			Tools:   s.ToolNames(),
		})
	}
}

// authMiddleware rejects requests whose Authorization header does not carry
// apiKey, either bare or as a Bearer token
func authMiddleware(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided, err := auth.ParseAuthHeader(r.Header.Get("Authorization"))
		if err != nil {
			logger.LogErrorMd("auth", "Authentication failed: %v, remote=%s, path=%s", err, r.RemoteAddr, r.URL.Path)
			http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
			return
		}
		if !auth.ValidateAPIKey(provided, apiKey) {
			logger.LogErrorMd("auth", "Authentication failed: invalid API key %s, remote=%s, path=%s",
				sanitize.TruncateSecret(provided), r.RemoteAddr, r.URL.Path)
			http.Error(w, "Unauthorized: invalid API key", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateHTTPServer creates an HTTP server that handles MCP over the
// streamable HTTP transport at /mcp. If apiKey is set, every request except
// /health must carry it.
func CreateHTTPServer(addr string, s *Server, apiKey string) *http.Server {
	logHTTP.Printf("Creating HTTP server: addr=%s, auth_enabled=%v", addr, apiKey != "")
	mux := http.NewServeMux()

	var mcpHandler http.Handler = sdk.NewStreamableHTTPHandler(func(r *http.Request) *sdk.Server {
		logger.LogInfo("client", "MCP session started, remote=%s", r.RemoteAddr)
		return s.server
	}, nil)
	if apiKey != "" {
		mcpHandler = authMiddleware(apiKey, mcpHandler)
	}

	mux.Handle("/mcp", mcpHandler)
	mux.Handle("/mcp/", mcpHandler)
	mux.Handle("/health", HandleHealth(s))

	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}
