package cli

import (
	"fmt"
	"time"

	"tekbot/config"
	"tekbot/internal/adapter/embedding"
	"tekbot/internal/adapter/llm"
	"tekbot/internal/adapter/store"
	"tekbot/internal/answer"
	"tekbot/internal/assistant"
	"tekbot/internal/conversation"
	"tekbot/internal/interaction"
	"tekbot/internal/port"
	"tekbot/internal/retrieval"
)

// openStore opens the document store at the configured path.
func openStore() (*store.BoltStore, error) {
	path := cfg.Store.Path
	if path == "" {
		if err := config.EnsureDataDir(rootDir); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		path = config.StorePath(rootDir)
	}

	st, err := store.NewBoltStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

// newEmbedder constructs the configured embedding client. Construction
// failure here aborts the command; the model identity is fixed for the
// process lifetime.
func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	e := cfg.Embedding

	var inner port.Embedder
	var err error
	switch e.Provider {
	case "openai":
		inner, err = embedding.NewOpenAIEmbedder(e.APIKeyEnv, e.Model, e.BaseURL, e.BatchSize)
	case "ollama":
		inner, err = embedding.NewOllamaEmbedder(e.Model, e.BaseURL, e.BatchSize)
	case "mock":
		inner = embedding.NewMockEmbedder(e.Dimension)
	default:
		err = fmt.Errorf("unknown embedding provider: %s", e.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return embedding.NewCachedEmbedder(inner, 256, 5*time.Minute), nil
}

func newGenerator(cfg *config.Config) (port.Generator, error) {
	g := cfg.Generation
	gen, err := llm.NewClient(g.Provider, g.Model, g.BaseURL, g.APIKeyEnv, time.Duration(g.TimeoutSeconds)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}
	return gen, nil
}

// pipeline bundles the wired components behind one question-answering
// instance. Close releases the store.
type pipeline struct {
	store     *store.BoltStore
	convo     *conversation.Context
	assistant *assistant.Assistant
}

func (p *pipeline) Close() {
	p.convo.Save()
	p.store.Close()
}

// buildPipeline wires store, embedder, generator and the pipeline stages.
// With restore set, the most recent session inside the recency window is
// resumed.
func buildPipeline(restore bool) (*pipeline, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	generator, err := newGenerator(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	convo := conversation.NewContext(st, cfg.Conversation.HistoryLimit, cfg.Conversation.CharBudget, logger)
	if restore {
		window := time.Duration(cfg.Conversation.SessionRecencyH) * time.Hour
		if convo.RestoreRecent(window) {
			logger.Info("session restored", "session", convo.SessionID())
		}
	}

	retriever := retrieval.NewRetriever(st, embedder, cfg.Retrieve.MinScore, cfg.Retrieve.TopK, logger)
	selector := answer.NewSelector(embedder, generator, convo, answer.Options{
		DirectThreshold:  cfg.Answer.DirectThreshold,
		ContinuationMode: cfg.Answer.ContinuationMode,
		RenderLimit:      cfg.Conversation.RenderLimit,
		Generation: port.GenerateOptions{
			Temperature: cfg.Generation.Temperature,
			MaxTokens:   cfg.Generation.MaxTokens,
		},
	}, logger)
	audit := interaction.NewLogger(st, convo, logger)

	return &pipeline{
		store:     st,
		convo:     convo,
		assistant: assistant.New(retriever, selector, audit),
	}, nil
}
