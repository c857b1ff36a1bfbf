package container

import (
	"fmt"

	"trialmetrics/adapters/llm"
	"trialmetrics/adapters/registry"
	"trialmetrics/app"
	"trialmetrics/internal"
	"trialmetrics/internal/config"
	"trialmetrics/internal/narrative"
	"trialmetrics/ports"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Adapters
	Registry  ports.TrialRegistryPort
	Generator narrative.Generator // nil when no LLM is configured

	// Narrative
	Summarizer   *narrative.Summarizer
	SummaryCache *narrative.Cache

	// Application services
	Analysis *app.AnalysisService
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		Logger: internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel)),
	}

	c.initAdapters()
	c.initNarrative()
	c.initServices()

	return c, nil
}

func (c *Container) initAdapters() {
	c.Registry = registry.NewClient(c.Config.Registry, c.Logger)

	if !c.Config.AI.Enabled() {
		c.Logger.Info("OPENAI_API_KEY not set, summaries use the template")
		return
	}
	gen, err := llm.NewGeneratorAdapter(llm.ConfigFromApp(c.Config.AI))
	if err != nil {
		c.Logger.Warn("LLM adapter unavailable, summaries use the template: %v", err)
		return
	}
	c.Generator = gen
	c.Logger.Info("LLM summaries enabled with model %s", c.Config.AI.OpenAIModel)
}

func (c *Container) initNarrative() {
	c.Summarizer = narrative.NewSummarizer(c.Generator, c.Logger)
	c.SummaryCache = narrative.NewCache(c.Config.Summary.CacheTTL)
}

func (c *Container) initServices() {
	c.Analysis = app.NewAnalysisService(
		c.Registry,
		c.Summarizer,
		c.SummaryCache,
		app.DefaultsFromConfig(c.Config.Analysis),
		c.Logger,
	)
}
