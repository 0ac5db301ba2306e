// Command agentmemory wires the memory subsystem's components together and
// demonstrates the auto-capture/auto-recall lifecycle against a local
// store. Object-graph wiring is done by hand here rather than via
// google/wire codegen, matching backend2's simpler manual main.go wiring
// where no generated provider set is present (see DESIGN.md).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"agentmemory/internal/capture"
	memctx "agentmemory/internal/context"
	"agentmemory/internal/embed"
	"agentmemory/internal/llm"
	"agentmemory/internal/recall"
	"agentmemory/internal/store"
	"agentmemory/internal/tools"
	"agentmemory/internal/vector"
	"agentmemory/pkg/config"
	"agentmemory/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config override file")
	dev := flag.Bool("dev", false, "use a development logger")
	flag.Parse()

	log, err := logging.New(*dev)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	base, err := config.LoadFromFile(*configPath)
	if err != nil {
		log.Fatal("failed to load config file", zap.Error(err))
	}
	cfg := config.Load(base)

	st, err := store.Open(cfg.StoreFilePath)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer st.Close()

	vecGateway := vector.New(vector.Config{
		Host: cfg.VectorHost, Port: cfg.VectorPort, Collection: cfg.VectorCollection,
		VectorSize: cfg.VectorSize, MaxRetries: cfg.VectorMaxRetries, Timeout: config.VectorTimeout(),
	}, log)

	embedGateway := embed.New(embed.Config{
		BaseURL: cfg.EmbedBaseURL, Model: cfg.EmbedModel, Dimensions: cfg.EmbedDimensions,
	}, log)

	provider := llm.NewHTTPProvider(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	extractor := llm.NewService(provider, cfg.AutoCaptureMinConfidence, log)

	windowCfg := memctx.Config{MaxConversationTokens: cfg.ContextWindowMaxTokens, AbsoluteMaxMessages: 200, TokenEstimateDivisor: 4}
	capturePipeline := capture.New(st, vecGateway, embedGateway, extractor, windowCfg, log)
	recallEngine := recall.New(st, vecGateway, embedGateway, log)

	dispatcher := tools.New(st, vecGateway, embedGateway, capturePipeline, recallEngine)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := vecGateway.EnsureCollection(ctx); err != nil {
		log.Warn("failed to ensure vector collection at startup", zap.Error(err))
	}

	runDemo(ctx, dispatcher, log)
}

// runDemo exercises the tool surface against a single scratch session, so
// the binary does something visible even with no host runtime attached.
func runDemo(ctx context.Context, d *tools.Dispatcher, log *zap.Logger) {
	res := d.MemorySlotSet("demo-user", "assistant", "profile.name", "MrC", "", "manual", "")
	log.Info(res.Summary)

	res = d.MemorySlotGet("demo-user", "assistant", "profile.name", "", "")
	log.Info(res.Summary)

	entRes := d.MemoryGraphEntitySet("demo-user", "assistant", "", "agentmemory project", "project", nil)
	log.Info(entRes.Summary)

	captureRes := d.MemoryAutoCapture(ctx, "demo-user", "assistant",
		"We finished the slot store and moved on to the vector gateway.", true)
	log.Info(captureRes.Summary)
}
