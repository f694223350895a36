package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/simik394/osobni-wf-sub002/internal/config"
	"github.com/simik394/osobni-wf-sub002/internal/domain"
	"github.com/simik394/osobni-wf-sub002/internal/ledger"
	"github.com/simik394/osobni-wf-sub002/internal/policy"
	"github.com/simik394/osobni-wf-sub002/internal/provider"
	"github.com/simik394/osobni-wf-sub002/internal/registry"
	"github.com/simik394/osobni-wf-sub002/internal/store"
	transport "github.com/simik394/osobni-wf-sub002/internal/transport/http"
	"github.com/simik394/osobni-wf-sub002/internal/workflow"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting orchestration core...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Graph store: %s:%d", cfg.StoreHost, cfg.StorePort)
	log.Printf("Workflows dir: %s", cfg.WorkflowsDir)

	ctx := context.Background()

	// Connect the resilient store
	driver := store.NewBoltDriver(cfg.StoreUser, cfg.StorePassword)
	breaker := store.NewBreaker(cfg.BreakerThreshold, cfg.BreakerResetWindow)
	resilient := store.NewResilientStoreWithBreaker(driver, breaker)
	if err := resilient.Connect(ctx, cfg.StoreHost, cfg.StorePort, cfg.StoreConnectAttempts); err != nil {
		log.Fatalf("Failed to connect to graph store: %v", err)
	}
	defer func() {
		if err := resilient.Disconnect(context.Background()); err != nil {
			log.Printf("WARN: store disconnect failed: %v", err)
		}
	}()
	graphStore := store.NewGraphStore(resilient)

	// Initialize artifact registry
	artifacts, err := registry.Load(cfg.ArtifactIndex)
	if err != nil {
		log.Fatalf("Failed to load artifact registry: %v", err)
	}

	// Initialize capability providers
	providers := provider.NewRegistry()
	for name, baseURL := range map[string]string{
		"research-agent":    cfg.ResearchAgentURL,
		"query-agent":       cfg.QueryAgentURL,
		"document-exporter": cfg.DocumentExporterURL,
		"audio-synthesizer": cfg.AudioSynthesizerURL,
	} {
		if err := providers.Register(provider.NewHTTPProvider(name, baseURL, cfg.ProviderTimeout, cfg.ProviderRetryDelay)); err != nil {
			log.Fatalf("Failed to register provider %s: %v", name, err)
		}
	}

	// Initialize policy engine
	policyContent := policy.DefaultPolicy
	if cfg.PolicyPath != "" {
		data, err := os.ReadFile(cfg.PolicyPath)
		if err != nil {
			log.Fatalf("Failed to read policy %s: %v", cfg.PolicyPath, err)
		}
		policyContent = string(data)
	}
	policyEngine, err := policy.NewEngine(ctx, policyContent)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Load workflow definitions
	defs, err := workflow.LoadDir(cfg.WorkflowsDir)
	if err != nil {
		log.Fatalf("Failed to load workflows: %v", err)
	}
	log.Printf("Loaded %d workflow definition(s)", len(defs))

	engine := workflow.NewEngine(graphStore, providers, policyEngine, defs, cfg.StepTimeout)

	// Initialize job ledger and worker
	jobs := ledger.New(graphStore)
	worker := ledger.NewWorker(jobs, cfg.JobPollInterval, cfg.JobTimeout)
	registerJobHandlers(worker, engine, providers)

	workerCtx, stopWorker := context.WithCancel(ctx)
	go worker.Run(workerCtx)

	// Start HTTP server
	server := transport.NewServer(jobs, engine, artifacts)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down orchestration core...")
	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Orchestration core stopped")
}

// registerJobHandlers wires the asynchronous job types onto the worker.
func registerJobHandlers(worker *ledger.Worker, engine *workflow.Engine, providers *provider.Registry) {
	// workflow.run executes a named workflow from a queued job.
	must(worker.Register("workflow.run", func(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
		var payload struct {
			Workflow string         `json:"workflow"`
			Inputs   map[string]any `json:"inputs"`
		}
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return nil, fmt.Errorf("invalid payload: %w", err)
		}
		exec, err := engine.Execute(ctx, payload.Workflow, payload.Inputs)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]string{"executionId": exec.ID})
	}))

	// research.query dispatches a single deep query without a workflow.
	must(worker.Register("research.query", func(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
		var payload struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return nil, fmt.Errorf("invalid payload: %w", err)
		}
		agent, err := providers.Get("research-agent")
		if err != nil {
			return nil, err
		}
		result, err := agent.Invoke(ctx, "deep_research", map[string]any{"query": payload.Query})
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]any{"result": result})
	}))
}

func must(err error) {
	if err != nil {
		log.Fatalf("Failed to register job handler: %v", err)
	}
}
