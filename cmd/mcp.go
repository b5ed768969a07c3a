package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/logging"
	"github.com/Siddhant-K-code/minelab/pkg/service"
	"github.com/Siddhant-K-code/minelab/pkg/telemetry"
)

const (
	datasetsURI = "minelab://datasets"
	configURI   = "minelab://config"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start minelab as an MCP server",
	Long: `Starts minelab as a Model Context Protocol (MCP) server so AI assistants
can cluster points and mine association rules directly.

Transports:
  stdio (default) - For local desktop apps (Claude Desktop, Cursor)
  http            - For remote deployments (streamable HTTP on /mcp)

Tools exposed:
  kmeans_run    - Cluster points with K-Means
  kmeans_sweep  - Run K-Means over a range of k and pick the best
  apriori_mine  - Mine pair rules from a catalogue or raw baskets
  pca_project   - Project vectors onto principal components

Resources exposed:
  minelab://datasets - Point datasets and item catalogues
  minelab://config   - Active clustering and mining defaults

Example:
  minelab mcp
  minelab mcp --transport http --port 8081

Configure in Claude Desktop (claude_desktop_config.json):
  {
    "mcpServers": {
      "minelab": {
        "command": "minelab",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	// Transport settings
	mcpCmd.Flags().String("transport", "stdio", "Transport type: stdio or http")
	mcpCmd.Flags().Int("port", 8081, "HTTP server port (for http transport)")
	mcpCmd.Flags().String("host", "0.0.0.0", "HTTP server host (for http transport)")
}

// MCPServer exposes the analysis service as MCP tools.
type MCPServer struct {
	svc    *service.Service
	tracer *telemetry.Provider
	log    *zap.SugaredLogger
}

func runMCP(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{host: "mcp"})
	if err != nil {
		return err
	}
	defer a.Close()

	s := newMCPServer(a.svc, a.tracer).build()

	// Start server based on transport
	switch transport {
	case "stdio":
		if err := server.ServeStdio(s); err != nil {
			return errors.Wrap(err, "MCP server error")
		}

	case "http":
		addr := fmt.Sprintf("%s:%d", host, port)
		fmt.Printf("minelab MCP server starting on http://%s\n", addr)
		fmt.Printf("  Endpoint: http://%s/mcp\n", addr)
		fmt.Printf("  Health:   http://%s/health\n", addr)
		fmt.Println()

		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok","server":"minelab-mcp"}`))
		})
		// MCP endpoint with stateful sessions
		mux.Handle("/mcp", server.NewStreamableHTTPServer(s, server.WithStateful(true)))

		httpServer := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "HTTP server error")
		}

	default:
		return errors.Newf("unsupported transport: %s (use 'stdio' or 'http')", transport)
	}

	return nil
}

func newMCPServer(svc *service.Service, tp *telemetry.Provider) *MCPServer {
	if tp == nil {
		tp = telemetry.Noop()
	}
	return &MCPServer{svc: svc, tracer: tp, log: logging.Named("mcp")}
}

// build creates the MCP server with every tool, resource and prompt registered.
func (m *MCPServer) build() *server.MCPServer {
	s := server.NewMCPServer(
		"minelab",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(false),
	)
	m.registerTools(s)
	m.registerResources(s)
	m.registerPrompts(s)
	return s
}

func (m *MCPServer) registerTools(s *server.MCPServer) {
	kmeansTool := mcp.NewTool("kmeans_run",
		mcp.WithDescription(`Cluster 3-D points with K-Means.

Returns centroids, per-point cluster assignments, cluster sizes, inertia and a
silhouette quality score in [-1, 1] (higher is better separated).

INPUT: either 'points' ([[x,y,z], ...]) or a 'dataset' name (blobs, iris,
random, elongated, or source for the configured vector database).`),
		mcp.WithString("dataset",
			mcp.Description("Point dataset to cluster when 'points' is not given"),
		),
		mcp.WithArray("points",
			mcp.Description("Array of [x, y, z] coordinates"),
		),
		mcp.WithNumber("k",
			mcp.Description("Number of clusters (default from config, usually 3)"),
		),
		mcp.WithNumber("max_iterations",
			mcp.Description("Maximum assignment passes (default 100)"),
		),
		mcp.WithString("init",
			mcp.Description("Seeding: 'first-k' (deterministic, default) or 'kmeans++'"),
		),
		mcp.WithNumber("seed",
			mcp.Description("Seed for kmeans++ seeding"),
		),
	)
	s.AddTool(kmeansTool, m.handleKMeans)

	sweepTool := mcp.NewTool("kmeans_sweep",
		mcp.WithDescription(`Run K-Means once per k in [k_min, k_max] to choose the number of clusters.

Returns inertia and quality for every k, 'bestK' (highest silhouette) and
'elbowK' (knee of the inertia curve). Call this before kmeans_run when the
right k is unknown.`),
		mcp.WithString("dataset",
			mcp.Description("Point dataset when 'points' is not given"),
		),
		mcp.WithArray("points",
			mcp.Description("Array of [x, y, z] coordinates"),
		),
		mcp.WithNumber("k_min",
			mcp.Description("Smallest k (default 2)"),
		),
		mcp.WithNumber("k_max",
			mcp.Description("Largest k (default 10, at most 100)"),
		),
		mcp.WithNumber("max_iterations",
			mcp.Description("Maximum assignment passes per run"),
		),
		mcp.WithString("init",
			mcp.Description("Seeding: 'first-k' or 'kmeans++'"),
		),
		mcp.WithNumber("seed",
			mcp.Description("Seed for kmeans++ seeding"),
		),
	)
	s.AddTool(sweepTool, m.handleSweep)

	aprioriTool := mcp.NewTool("apriori_mine",
		mcp.WithDescription(`Mine pairwise association rules A -> B with support, confidence and lift.

Three inputs are accepted, in order of precedence:
- 'baskets': raw transactions ([["milk","bread"], ...]); pair counts are
  measured and frequent itemsets are returned too
- 'items' + 'total_transactions': a custom catalogue of {name, count}
- 'dataset': a named catalogue (grocery, ecommerce, bookstore, ...)`),
		mcp.WithString("dataset",
			mcp.Description("Catalogue name"),
		),
		mcp.WithArray("items",
			mcp.Description("Array of {\"name\": string, \"count\": number} catalogue entries"),
		),
		mcp.WithNumber("total_transactions",
			mcp.Description("Transaction total for 'items'"),
		),
		mcp.WithArray("baskets",
			mcp.Description("Array of transactions, each an array of item names"),
		),
		mcp.WithNumber("min_support",
			mcp.Description("Minimum support in [0, 1] (default from config)"),
		),
		mcp.WithNumber("min_confidence",
			mcp.Description("Minimum confidence in [0, 1] (default from config)"),
		),
		mcp.WithString("cooccurrence",
			mcp.Description("Pair count policy for catalogues: 'synthetic' or 'transactions'"),
		),
		mcp.WithNumber("seed",
			mcp.Description("Seed for the synthetic policy"),
		),
		mcp.WithNumber("max_size",
			mcp.Description("Largest itemset size when mining 'baskets' (default 3)"),
		),
	)
	s.AddTool(aprioriTool, m.handleApriori)

	pcaTool := mcp.NewTool("pca_project",
		mcp.WithDescription(`Project vectors onto their principal components.

Returns the components, explained variance ratios and projected coordinates.
Useful to check how much structure survives a reduction to 3-D before
clustering embeddings.`),
		mcp.WithString("dataset",
			mcp.Description("Point dataset or 'source' when 'vectors' is not given"),
		),
		mcp.WithArray("vectors",
			mcp.Description("Array of equal-length numeric vectors"),
		),
		mcp.WithNumber("components",
			mcp.Description("Number of components (default 3)"),
		),
	)
	s.AddTool(pcaTool, m.handlePCA)
}

func (m *MCPServer) registerResources(s *server.MCPServer) {
	datasets := mcp.NewResource(
		datasetsURI,
		"minelab Datasets",
		mcp.WithResourceDescription("Point datasets, item catalogues and the configured point source"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(datasets, m.readDatasets)

	// Configuration resource - shows current defaults
	configResource := mcp.NewResource(
		configURI,
		"minelab Configuration",
		mcp.WithResourceDescription("Clustering and mining defaults applied to omitted tool arguments"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(configResource, m.readConfig)
}

func (m *MCPServer) registerPrompts(s *server.MCPServer) {
	segmentPrompt := mcp.NewPrompt(
		"segment-points",
		mcp.WithPromptDescription("Find a good number of clusters for a dataset and describe the segments"),
		mcp.WithArgument("dataset", mcp.ArgumentDescription("Point dataset to segment")),
	)

	s.AddPrompt(segmentPrompt, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		name := request.Params.Arguments["dataset"]
		if name == "" {
			name = m.svc.Config().Cluster.Dataset
		}

		return &mcp.GetPromptResult{
			Description: "Segment a point dataset",
			Messages: []mcp.PromptMessage{
				{
					Role: mcp.RoleUser,
					Content: mcp.TextContent{
						Type: "text",
						Text: fmt.Sprintf(`I want to segment the %q dataset.

Please:
1. Call kmeans_sweep on it to compare k from 2 to 10
2. Pick k from bestK, mentioning elbowK if it differs
3. Call kmeans_run with that k and describe each cluster by its centroid and size`, name),
					},
				},
			},
		}, nil
	})
}

func (m *MCPServer) handleKMeans(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := m.tracer.StartRequest(ctx, "mcp.kmeans_run")
	defer span.End()

	req := service.KMeansRequest{
		Dataset:       request.GetString("dataset", ""),
		K:             int(request.GetFloat("k", 0)),
		MaxIterations: int(request.GetFloat("max_iterations", 0)),
		Init:          request.GetString("init", ""),
		Seed:          int64(request.GetFloat("seed", 0)),
	}
	if err := decodeArg(request.GetArguments(), "points", &req.Points); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := m.svc.RunKMeans(ctx, req)
	if err != nil {
		return m.toolError("kmeans_run", err)
	}
	return toolJSON(resp)
}

func (m *MCPServer) handleSweep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := m.tracer.StartRequest(ctx, "mcp.kmeans_sweep")
	defer span.End()

	req := service.SweepRequest{
		Dataset:       request.GetString("dataset", ""),
		KMin:          int(request.GetFloat("k_min", 0)),
		KMax:          int(request.GetFloat("k_max", 0)),
		MaxIterations: int(request.GetFloat("max_iterations", 0)),
		Init:          request.GetString("init", ""),
		Seed:          int64(request.GetFloat("seed", 0)),
	}
	if err := decodeArg(request.GetArguments(), "points", &req.Points); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := m.svc.Sweep(ctx, req, nil)
	if err != nil {
		return m.toolError("kmeans_sweep", err)
	}
	return toolJSON(resp)
}

func (m *MCPServer) handleApriori(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := m.tracer.StartRequest(ctx, "mcp.apriori_mine")
	defer span.End()

	args := request.GetArguments()
	minSupport := optionalFloat(args, "min_support")
	minConfidence := optionalFloat(args, "min_confidence")

	var baskets [][]string
	if err := decodeArg(args, "baskets", &baskets); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(baskets) > 0 {
		resp, err := m.svc.MineTransactions(ctx, service.TransactionsRequest{
			Baskets:       baskets,
			MinSupport:    minSupport,
			MinConfidence: minConfidence,
			MaxSize:       int(request.GetFloat("max_size", 0)),
		})
		if err != nil {
			return m.toolError("apriori_mine", err)
		}
		return toolJSON(resp)
	}

	req := service.MineRequest{
		Dataset:           request.GetString("dataset", ""),
		TotalTransactions: int(request.GetFloat("total_transactions", 0)),
		MinSupport:        minSupport,
		MinConfidence:     minConfidence,
		CoOccurrence:      request.GetString("cooccurrence", ""),
		Seed:              int64(request.GetFloat("seed", 0)),
	}
	if err := decodeArg(args, "items", &req.Items); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := m.svc.Mine(ctx, req)
	if err != nil {
		return m.toolError("apriori_mine", err)
	}
	return toolJSON(resp)
}

func (m *MCPServer) handlePCA(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := m.tracer.StartRequest(ctx, "mcp.pca_project")
	defer span.End()

	req := service.PCARequest{
		Dataset:    request.GetString("dataset", ""),
		Components: int(request.GetFloat("components", 0)),
	}
	if err := decodeArg(request.GetArguments(), "vectors", &req.Vectors); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := m.svc.Project(ctx, req)
	if err != nil {
		return m.toolError("pca_project", err)
	}
	return toolJSON(resp)
}

func (m *MCPServer) readDatasets(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	body := struct {
		service.DatasetsResponse
		Defaults map[string]string `json:"defaults"`
	}{
		DatasetsResponse: m.svc.Datasets(),
		Defaults: map[string]string{
			"points":    m.svc.Config().Cluster.Dataset,
			"catalogue": m.svc.Config().Mining.Dataset,
		},
	}
	data, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode datasets")
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      datasetsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (m *MCPServer) readConfig(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	cfg := m.svc.Config()
	defaults := map[string]interface{}{
		"cluster": map[string]interface{}{
			"dataset":        cfg.Cluster.Dataset,
			"k":              cfg.Cluster.K,
			"max_iterations": cfg.Cluster.MaxIterations,
			"init":           cfg.Cluster.Init,
		},
		"mining": map[string]interface{}{
			"dataset":        cfg.Mining.Dataset,
			"min_support":    cfg.Mining.MinSupport,
			"min_confidence": cfg.Mining.MinConfidence,
			"cooccurrence":   cfg.Mining.CoOccurrence,
		},
		"source_configured": cfg.Source.Backend != "",
	}
	data, err := json.MarshalIndent(defaults, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode config")
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      configURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// toolError turns caller mistakes into tool results the model can read and
// act on. Anything else fails the call.
func (m *MCPServer) toolError(tool string, err error) (*mcp.CallToolResult, error) {
	if errors.IsInvalidParameter(err) || errors.IsComputation(err) || errors.IsNotFound(err) {
		m.log.Debugw("tool call rejected", "tool", tool, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	m.log.Errorw("tool call failed", "tool", tool, "error", err)
	return nil, err
}

func toolJSON(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// decodeArg re-encodes args[name] into v. A missing or null argument leaves v
// untouched.
func decodeArg(args map[string]interface{}, name string, v interface{}) error {
	raw, ok := args[name]
	if !ok || raw == nil {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return errors.Newf("invalid %s format: %v", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Newf("failed to parse %s: %v", name, err)
	}
	return nil
}

func optionalFloat(args map[string]interface{}, name string) *float64 {
	v, ok := args[name].(float64)
	if !ok {
		return nil
	}
	return &v
}
