// Package dependency wires kidslingo services using go.uber.org/dig.
package dependency

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/dig"

	"github.com/kidslingo/kidslingo/internal/agent"
	"github.com/kidslingo/kidslingo/internal/api"
	"github.com/kidslingo/kidslingo/internal/config"
	"github.com/kidslingo/kidslingo/internal/config/tool"
	"github.com/kidslingo/kidslingo/internal/contract"
	"github.com/kidslingo/kidslingo/internal/executor"
	"github.com/kidslingo/kidslingo/internal/learning"
	"github.com/kidslingo/kidslingo/internal/providers"
	"github.com/kidslingo/kidslingo/internal/scheduler"
	"github.com/kidslingo/kidslingo/internal/schema"
	"github.com/kidslingo/kidslingo/internal/session"
	"github.com/kidslingo/kidslingo/internal/store"
	"github.com/kidslingo/kidslingo/internal/toolserver"
)

// Container holds the resolved service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	cfg          *config.Config
	provider     schema.LLMProvider
	contract     *contract.Catalog
	store        store.Store
	orchestrator *agent.Orchestrator
	sessions     *session.Manager
	d            *dig.Container
}

func (c *Container) Config() *config.Config            { return c.cfg }
func (c *Container) Provider() schema.LLMProvider      { return c.provider }
func (c *Container) Contract() *contract.Catalog       { return c.contract }
func (c *Container) Orchestrator() *agent.Orchestrator { return c.orchestrator }
func (c *Container) Sessions() *session.Manager        { return c.sessions }

// Store returns the document store, or nil when persistence is off.
func (c *Container) Store() store.Store { return c.store }

// APIServer builds the turn API server.
func (c *Container) APIServer() (*api.Server, error) {
	var srv *api.Server
	err := c.d.Invoke(func(s *api.Server) { srv = s })
	return srv, err
}

// ToolServer builds the HTTP tool backend.
func (c *Container) ToolServer() (*toolserver.Server, error) {
	var srv *toolserver.Server
	err := c.d.Invoke(func(s *toolserver.Server) { srv = s })
	return srv, err
}

// Scheduler builds the parent report scheduler.
func (c *Container) Scheduler() (*scheduler.Scheduler, error) {
	var s *scheduler.Scheduler
	err := c.d.Invoke(func(v *scheduler.Scheduler) { s = v })
	return s, err
}

// Close releases the document store.
func (c *Container) Close() error {
	if closer, ok := c.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// LLMModel is a named string type so dig can distinguish it from plain
// strings when injecting the effective model name.
type LLMModel string

// TurnExecutor is the executor the orchestrator dispatches through.
type TurnExecutor struct{ schema.Executor }

// ServedExecutor is the in-process executor behind the tool server. It always
// runs local handlers, whatever backend the orchestrator uses.
type ServedExecutor struct{ schema.Executor }

// ServedCatalog is the contract published by the tool server.
type ServedCatalog struct{ *contract.Catalog }

// New builds and wires all services from cfg.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	constructors := []any{
		func() *config.Config { return cfg },
		newProvider,
		resolveLLMModel,
		newContract,
		newServedCatalog,
		newStore,
		newLearningService,
		newTurnExecutor,
		newServedExecutor,
		newPromptContext,
		newOrchestrator,
		newSessionManager,
		newAPIServer,
		newToolServer,
		newScheduler,
	}
	for _, fn := range constructors {
		if err := d.Provide(fn); err != nil {
			return nil, err
		}
	}

	result := &Container{cfg: cfg, d: d}
	err := d.Invoke(func(
		provider schema.LLMProvider,
		catalog *contract.Catalog,
		st store.Store,
		orch *agent.Orchestrator,
		sessions *session.Manager,
	) {
		result.provider = provider
		result.contract = catalog
		result.store = st
		result.orchestrator = orch
		result.sessions = sessions
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func newProvider(cfg *config.Config) (schema.LLMProvider, error) {
	model := cfg.Agents.Defaults.Model
	result := cfg.MatchProvider(model)

	if result.Provider == nil {
		return nil, fmt.Errorf("no API key configured for model %q, edit %s or set AZURE_OPENAI_ENDPOINT", model, config.ConfigPath())
	}

	apiBase := result.Provider.APIBase
	if apiBase == "" {
		apiBase = cfg.GetAPIBase(model)
	}

	var breaker *providers.BreakerConfig
	if b := cfg.Providers.Breaker; b.Enabled {
		breaker = &providers.BreakerConfig{
			MaxFailures: uint32(max(b.MaxFailures, 0)),
			Timeout:     time.Duration(b.OpenSeconds) * time.Second,
		}
	}

	return providers.New(providers.Params{
		APIKey:       result.Provider.APIKey,
		APIBase:      apiBase,
		APIVersion:   result.Provider.APIVersion,
		ExtraHeaders: result.Provider.ExtraHeaders,
		DefaultModel: model,
		ProviderName: result.Name,
		Timeout:      time.Duration(cfg.Providers.TimeoutSeconds) * time.Second,
		Breaker:      breaker,
	}), nil
}

func resolveLLMModel(cfg *config.Config, p schema.LLMProvider) LLMModel {
	m := cfg.Agents.Defaults.Model
	if m == "" {
		m = p.DefaultModel()
	}
	return LLMModel(m)
}

func newContract(cfg *config.Config) (*contract.Catalog, error) {
	return contract.Load(cfg.Tools.Contract)
}

func newServedCatalog() (ServedCatalog, error) {
	c, err := contract.Load(contract.Learning)
	return ServedCatalog{c}, err
}

// newStore returns a nil store.Store when persistence is disabled.
func newStore(cfg *config.Config) (store.Store, error) {
	path := cfg.StorePath()
	if path == "" {
		return nil, nil
	}
	st, err := store.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func newLearningService(cfg *config.Config, st store.Store, p schema.LLMProvider, m LLMModel) *learning.Service {
	return learning.New(learning.Options{
		Tools: cfg.Tools,
		Store: st,
		LLM:   p,
		Model: string(m),
	})
}

func toolTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Tools.TimeoutSeconds) * time.Second
}

func newTurnExecutor(cfg *config.Config, svc *learning.Service) (TurnExecutor, error) {
	switch cfg.Tools.Backend {
	case tool.BackendRemote:
		if cfg.Tools.Remote.BaseURL == "" {
			return TurnExecutor{}, errors.New("tools.backend is remote but tools.remote.baseUrl (TOOLS_BASE_URL) is empty")
		}
		return TurnExecutor{executor.NewRemote(executor.RemoteConfig{
			BaseURL:       cfg.Tools.Remote.BaseURL,
			PathTemplates: cfg.Tools.Remote.PathTemplates,
			Code:          cfg.Tools.Remote.Code,
			Timeout:       toolTimeout(cfg),
		})}, nil
	case tool.BackendLocal, "":
		return TurnExecutor{executor.NewLocal(svc.AllHandlers(), toolTimeout(cfg))}, nil
	}
	return TurnExecutor{}, fmt.Errorf("unknown tools.backend %q", cfg.Tools.Backend)
}

func newServedExecutor(cfg *config.Config, svc *learning.Service) ServedExecutor {
	return ServedExecutor{executor.NewLocal(svc.AllHandlers(), toolTimeout(cfg))}
}

func newPromptContext(cfg *config.Config) (*agent.PromptContext, error) {
	return agent.NewPromptContext(cfg.Agents.Defaults.PromptFile)
}

func newOrchestrator(
	cfg *config.Config,
	p schema.LLMProvider,
	m LLMModel,
	catalog *contract.Catalog,
	exec TurnExecutor,
	pc *agent.PromptContext,
) *agent.Orchestrator {
	d := cfg.Agents.Defaults
	settings := schema.NewAgentSettings(string(m), d.MaxToolRounds, d.Temperature, d.MaxTokens)
	if d.ToolChoice != "" {
		settings.ToolChoice = d.ToolChoice
	}
	settings.DisableTools = d.DisableTools
	settings.EmptyReply = d.EmptyReply
	return agent.NewOrchestrator(p, catalog, exec.Executor, settings, pc)
}

func newSessionManager(cfg *config.Config) (*session.Manager, error) {
	return session.NewManager(cfg.WorkspacePath())
}

func newAPIServer(cfg *config.Config, orch *agent.Orchestrator) *api.Server {
	return api.New(cfg.Gateway, orch)
}

func newToolServer(cfg *config.Config, catalog ServedCatalog, exec ServedExecutor) *toolserver.Server {
	return toolserver.New(cfg.ToolServer, catalog.Catalog, exec.Executor)
}

func newScheduler(cfg *config.Config, orch *agent.Orchestrator, st store.Store) (*scheduler.Scheduler, error) {
	var sink scheduler.Sink
	if st != nil {
		sink = scheduler.StoreSink(st)
	}
	return scheduler.New(cfg.Reports, orch, sink)
}
