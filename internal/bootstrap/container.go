package bootstrap

import (
	"context"
	"fmt"
	"log"

	"studymate-be/internal/config"
	"studymate-be/internal/constant"
	"studymate-be/internal/controller"
	"studymate-be/internal/pkg/logger"
	"studymate-be/internal/pkg/monitoring"
	"studymate-be/internal/repository/contract"
	"studymate-be/internal/repository/filestore"
	"studymate-be/internal/repository/memory"
	"studymate-be/internal/repository/redisstore"
	"studymate-be/internal/service"
	"studymate-be/pkg/extract"
	"studymate-be/pkg/llm/factory"
	"studymate-be/pkg/rag/session"
	"studymate-be/pkg/speech"
	"studymate-be/pkg/speech/elevenlabs"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	BookController  controller.IBookController
	ChatController  controller.IChatController
	StudyController controller.IStudyController
	AudioController controller.IAudioController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Metrics *monitoring.Metrics
	Logger  logger.ILogger

	closers []func() error
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	llmLogger := logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)
	metrics := monitoring.NewMetrics()

	c := &Container{Metrics: metrics, Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, pubSub.Close)

	// 3. Storage
	uploads, err := filestore.NewUploadStore(cfg.App.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("upload store: %w", err)
	}

	sessionRepo, err := newSessionRepository(cfg, c)
	if err != nil {
		return nil, err
	}

	// 4. Collaborators
	llmProvider, err := factory.NewLLMProvider(factory.Settings{
		Provider:      cfg.Ai.LLMProvider,
		Model:         cfg.Ai.LLMModel,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		RouterBaseURL: cfg.Ai.OpenRouterURL,
		RouterAPIKey:  cfg.Ai.OpenRouterAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	speechProvider := elevenlabs.NewProvider(cfg.Speech.ElevenLabsBaseURL, cfg.Speech.ElevenLabsAPIKey, cfg.Speech.DefaultVoice)
	if cfg.Speech.ElevenLabsAPIKey == "" {
		log.Printf("[WARN] ELEVENLABS_API_KEY is not set, audio summaries will fail")
	}
	progress := speech.NewProgressRegister(cfg.Speech.AssumedChunks, cfg.Speech.ArtifactTTL)

	manager := session.NewManager(
		extract.NewPDFExtractor(),
		uploads,
		sysLogger,
		session.WithRecentTurns(cfg.Ai.RecentTurns),
		session.WithMaxPages(cfg.Ai.MaxPages),
	)

	// 5. Services
	chatSettings := service.ChatSettings{
		ContextMaxChars:  cfg.Ai.ContextMaxChars,
		InferenceTimeout: cfg.Ai.InferenceTimeout,
	}

	publisherService := service.NewPublisherService(constant.AudioJobTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(
		pubSub,
		constant.AudioJobTopic,
		speechProvider,
		progress,
		cfg.App.AudioDir,
		cfg.Speech.MaxCharsPerRequest,
		cfg.Speech.JobTimeout,
		sysLogger,
		metrics,
	)

	sessions := service.NewSessionStore(sessionRepo, sysLogger, metrics)
	bookService := service.NewBookService(sessions, manager, uploads, sysLogger, metrics)
	chatService := service.NewChatService(sessions, manager, llmProvider, chatSettings, sysLogger, llmLogger, metrics)
	studyService := service.NewStudyService(sessions, manager, llmProvider, chatSettings, sysLogger, metrics)
	audioService := service.NewAudioService(studyService, publisherService, progress, cfg.App.AudioDir, cfg.Speech.ArtifactTTL, sysLogger)

	// 6. Controllers
	c.BookController = controller.NewBookController(bookService)
	c.ChatController = controller.NewChatController(chatService, sysLogger)
	c.StudyController = controller.NewStudyController(studyService)
	c.AudioController = controller.NewAudioController(audioService)

	return c, nil
}

func newSessionRepository(cfg *config.Config, c *Container) (contract.SessionRepository, error) {
	switch cfg.App.SessionStore {
	case "", "memory":
		log.Printf("[INFO] Using in-memory session store")
		return memory.NewSessionRepository(cfg.App.SessionTTL), nil
	case "redis":
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis session store: %w", err)
		}
		c.closers = append(c.closers, rdb.Close)
		log.Printf("[INFO] Using Redis session store")
		return redisstore.NewSessionRepository(rdb, cfg.App.SessionTTL), nil
	default:
		return nil, fmt.Errorf("unsupported SESSION_STORE: %s", cfg.App.SessionStore)
	}
}

// Close releases the event bus, the redis client and flushes logs.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Printf("[WARN] close: %v", err)
		}
	}
	_ = c.Logger.Sync()
}
