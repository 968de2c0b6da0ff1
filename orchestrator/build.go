package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clearcoat/paintdesk/agent"
	"github.com/clearcoat/paintdesk/cache"
	"github.com/clearcoat/paintdesk/catalog"
	"github.com/clearcoat/paintdesk/config"
	pderrors "github.com/clearcoat/paintdesk/errors"
	"github.com/clearcoat/paintdesk/intent"
	"github.com/clearcoat/paintdesk/pkg/logging"
	"github.com/clearcoat/paintdesk/pkg/tokens"
	claudeprovider "github.com/clearcoat/paintdesk/provider/claude"
	geminiprovider "github.com/clearcoat/paintdesk/provider/gemini"
	openaiprovider "github.com/clearcoat/paintdesk/provider/openai"
	"github.com/clearcoat/paintdesk/thread"
	"github.com/clearcoat/paintdesk/thread/store"
	"github.com/clearcoat/paintdesk/tool"
	toolmcp "github.com/clearcoat/paintdesk/tool/mcp"
	"github.com/clearcoat/paintdesk/toolset"
)

// defaultInstructions are used when an agent definition omits instructions
// or no definition source is available.
var defaultInstructions = map[string]string{
	intent.ProductLookupAgent: "You are a product specialist for a paint retailer. " +
		"Use the product tools to search the catalog and answer questions about " +
		"paints, finishes, prices and availability. Be concise and friendly.",
	intent.OrderStatusAgent: "You are an order support specialist for a paint retailer. " +
		"Use the order tools to look up orders and report their current status. " +
		"Ask for the order ID if the customer has not provided one.",
	intent.KnowledgeAgent: "You answer questions about store policies such as returns, " +
		"refunds, warranty and shipping for a paint retailer. Look up the relevant " +
		"policy document before answering.",
}

// Build assembles a production orchestrator from settings: stores, model
// client, agents and the thread cache. Agents whose definitions cannot be
// resolved are skipped with a log line; the orchestrator degrades to the
// "not configured" state only when no agent could be built at all.
func Build(ctx context.Context, settings *config.Settings) (*Orchestrator, error) {
	logger := logging.WithComponent("orchestrator")

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	opts := []Option{
		WithInvokeTimeout(settings.InvokeTimeout),
		WithLogger(logger),
	}

	if !settings.Configured() {
		logger.Warn("model endpoint/API key or agent IDs missing, serving degraded responses")
		return New(opts...), nil
	}

	var mongoClient *mongo.Client
	if settings.MongoURI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(settings.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
		}
		mongoClient = client
		opts = append(opts, WithShutdown(func(ctx context.Context) error {
			return mongoClient.Disconnect(ctx)
		}))
	}

	threads, closeThreads, err := buildThreadStore(settings, mongoClient)
	if err != nil {
		return nil, err
	}
	if closeThreads != nil {
		opts = append(opts, WithShutdown(func(context.Context) error {
			return closeThreads()
		}))
	}

	var cat *catalog.Store
	var resolver agent.Resolver
	if mongoClient != nil {
		cat, err = catalog.NewStore(mongoClient, &catalog.Config{
			Database:  settings.MongoDatabase,
			Products:  "products",
			Orders:    "orders",
			Knowledge: "knowledge",
			Agents:    "agent_profiles",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
		resolver = catalogResolver(cat)
	} else {
		logger.Warn("MongoDB not configured, agents run without catalog tools")
	}

	client := buildModelClient(settings)

	var counter tokens.Counter = tokens.RuneEstimator{}
	if tk, err := tokens.NewTokenizer(tokenizerName(settings)); err == nil {
		counter = tk
	} else {
		logger.Warn("tiktoken encoding unavailable, falling back to rune estimate", "error", err)
	}

	var mcpProvider tool.Provider
	if settings.MCPEndpoint != "" {
		mcpClient, err := toolmcp.NewStreamableClient(ctx, settings.MCPEndpoint)
		if err != nil {
			logger.Warn("failed to connect MCP tool server", "endpoint", settings.MCPEndpoint, "error", err)
		} else {
			mcpProvider = mcpClient
			opts = append(opts, WithShutdown(func(context.Context) error {
				return mcpClient.Close()
			}))
		}
	}

	threadCache := cache.New(
		releaseThread(threads, logger),
		cache.WithCapacity(settings.CacheCapacity),
		cache.WithTTL(settings.CacheTTL),
	)
	opts = append(opts, WithCache(threadCache))

	built := 0
	for name, id := range settings.AgentIDs() {
		def := resolveDefinition(ctx, resolver, id, logger)
		if def == nil {
			continue
		}

		agentOpts := []agent.Option{
			agent.WithName(name),
			agent.WithInstructions(instructionsFor(name, def)),
			agent.WithClient(client),
			agent.WithStore(threads),
			agent.WithCounter(counter),
			agent.WithTokenBudget(settings.TokenBudget),
			agent.WithMaxIterations(settings.MaxIterations),
			agent.WithTemperature(temperatureFor(settings, def)),
			agent.WithLogger(logging.WithComponent("agent")),
		}
		if def.Model != "" {
			agentOpts = append(agentOpts, agent.WithModel(def.Model))
		} else if settings.Model != "" {
			agentOpts = append(agentOpts, agent.WithModel(settings.Model))
		}
		if cat != nil {
			agentOpts = append(agentOpts, agent.WithTools(toolsFor(name, cat)...))
		}
		if mcpProvider != nil {
			agentOpts = append(agentOpts, agent.WithToolProvider(mcpProvider))
		}

		opts = append(opts, WithAgent(agent.New(agentOpts...)))
		built++
		logger.Info("agent built", "agent", name, "definition", id)
	}

	if built == 0 {
		logger.Error("no agents could be built, serving degraded responses")
	}

	return New(opts...), nil
}

// releaseThread deletes the transcript of a thread dropped from the cache.
func releaseThread(threads thread.Store, logger *slog.Logger) cache.ReleaseFunc {
	return func(handle string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("releasing thread", "thread", handle)
		return threads.Delete(ctx, handle)
	}
}

func buildThreadStore(settings *config.Settings, mongoClient *mongo.Client) (thread.Store, func() error, error) {
	switch settings.ThreadStore {
	case config.ThreadStoreMongo:
		if mongoClient == nil {
			return nil, nil, fmt.Errorf("mongo thread store requires PAINTDESK_MONGODB_URI")
		}
		s, err := store.NewMongoStore(mongoClient, &store.MongoConfig{
			Database:   settings.MongoDatabase,
			Collection: "threads",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open mongo thread store: %w", err)
		}
		return s, nil, nil
	case config.ThreadStoreRedis:
		s := store.NewRedisStore(&store.RedisConfig{
			Addr:     settings.RedisAddr,
			Password: settings.RedisPassword,
			DB:       settings.RedisDB,
			Prefix:   "paintdesk:thread:",
			TTL:      24 * time.Hour,
		})
		return s, s.Close, nil
	case config.ThreadStorePostgres:
		s, err := store.NewPostgresStore(&store.PostgresConfig{
			Host:     settings.PostgresHost,
			Port:     settings.PostgresPort,
			User:     settings.PostgresUser,
			Password: settings.PostgresPassword,
			DBName:   settings.PostgresDB,
			SSLMode:  settings.PostgresSSLMode,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres thread store: %w", err)
		}
		return s, s.Close, nil
	default:
		return store.NewInMemoryStore(), nil, nil
	}
}

func buildModelClient(settings *config.Settings) agent.ModelClient {
	switch settings.ModelProvider {
	case config.ProviderClaude:
		return claudeprovider.New(&claudeprovider.Config{
			APIKey:      settings.ModelAPIKey,
			BaseURL:     settings.ModelEndpoint,
			Model:       settings.Model,
			MaxTokens:   4096,
			Temperature: settings.Temperature,
		})
	case config.ProviderGemini:
		return geminiprovider.New(&geminiprovider.Config{
			APIKey:      settings.ModelAPIKey,
			BaseURL:     settings.ModelEndpoint,
			Model:       settings.Model,
			MaxTokens:   2048,
			Temperature: float32(settings.Temperature),
		})
	default:
		return openaiprovider.New(&openaiprovider.Config{
			APIKey:      settings.ModelAPIKey,
			BaseURL:     settings.ModelEndpoint,
			Model:       settings.Model,
			MaxTokens:   2000,
			Temperature: settings.Temperature,
		})
	}
}

// catalogResolver adapts the catalog's agent-profile lookup to the
// agent.Resolver interface.
func catalogResolver(cat *catalog.Store) agent.Resolver {
	return agent.ResolverFunc(func(ctx context.Context, id string) (*agent.Definition, error) {
		profile, err := cat.AgentProfile(ctx, id)
		if err != nil {
			return nil, err
		}
		return &agent.Definition{
			ID:           profile.ID,
			Instructions: profile.Instructions,
			Model:        profile.Model,
			Temperature:  profile.Temperature,
		}, nil
	})
}

// resolveDefinition looks up the agent definition for id. A missing or
// failing lookup skips the agent when a resolver is available; without one
// the ID is accepted as opaque and defaults apply.
func resolveDefinition(ctx context.Context, resolver agent.Resolver, id string, logger *slog.Logger) *agent.Definition {
	if resolver == nil {
		return &agent.Definition{ID: id}
	}

	def, err := resolver.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, pderrors.ErrNotFound) {
			logger.Warn("agent definition not found, skipping agent", "definition", id)
		} else {
			logger.Warn("failed to resolve agent definition, skipping agent", "definition", id, "error", err)
		}
		return nil
	}
	return def
}

// tokenizerName picks the tiktoken lookup key: the configured model when
// set, otherwise the cl100k_base encoding shared by recent chat models.
func tokenizerName(settings *config.Settings) string {
	if settings.Model != "" {
		return settings.Model
	}
	return "cl100k_base"
}

func instructionsFor(name string, def *agent.Definition) string {
	if def.Instructions != "" {
		return def.Instructions
	}
	return defaultInstructions[name]
}

func temperatureFor(settings *config.Settings, def *agent.Definition) float64 {
	if def.Temperature > 0 {
		return def.Temperature
	}
	return settings.Temperature
}

func toolsFor(name string, cat *catalog.Store) []*tool.Tool {
	switch name {
	case intent.ProductLookupAgent:
		return toolset.ProductTools(cat)
	case intent.OrderStatusAgent:
		return toolset.OrderTools(cat)
	case intent.KnowledgeAgent:
		return toolset.ReferenceTools(cat)
	}
	return nil
}
