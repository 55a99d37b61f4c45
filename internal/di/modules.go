package di

import (
	"time"

	"notebook-ai/config"
	"notebook-ai/internal/apis/handlers"
	"notebook-ai/internal/observability"
	"notebook-ai/internal/repositories"
	"notebook-ai/internal/services"
	"notebook-ai/internal/utils"
	"notebook-ai/pkg/answerengine"
	"notebook-ai/pkg/mongodb"
	"notebook-ai/pkg/redis"

	"github.com/rs/zerolog/log"
	"go.uber.org/dig"
)

var DiContainer *dig.Container

func Initialize() {
	DiContainer = dig.New()

	// Initialize MongoDB
	dbConfig := mongodb.MongoDbConfigModel{
		ConnectionUrl: config.Env.MongoURI,
		DatabaseName:  config.Env.MongoDatabaseName,
	}
	mongodbClient, err := mongodb.InitializeDatabaseConnection(dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize MongoDB client")
	}

	// Initialize Redis
	redisClient, err := redis.RedisClient(config.Env.RedisHost, config.Env.RedisPort, config.Env.RedisUsername, config.Env.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Redis client")
	}
	redisRepo := redis.NewRedisRepositories(redisClient)

	jwtService := utils.NewJWTService(
		config.Env.JWTSecret,
		time.Millisecond*time.Duration(config.Env.JWTExpirationMilliseconds),
		time.Millisecond*time.Duration(config.Env.JWTRefreshExpirationMilliseconds),
	)

	providers := []struct {
		name     string
		provider interface{}
	}{
		{"MongoDB client", func() *mongodb.MongoDBClient { return mongodbClient }},
		{"Redis repositories", func() redis.IRedisRepositories { return redisRepo }},
		{"JWT service", func() utils.JWTService { return jwtService }},
		{"submission metrics", func() *observability.SubmissionMetrics {
			return observability.NewSubmissionMetrics(nil)
		}},
		{"answer engine client", func() services.AnswerEngine {
			return answerengine.NewClient(answerengine.Config{
				URL:     config.Env.AnswerEngineURL,
				Timeout: config.Env.AnswerEngineTimeout,
			})
		}},
		{"submission registry", services.NewSubmissionRegistry},
		{"cancel bus", services.NewRedisCancelBus},

		// Repositories
		{"notebook repository", repositories.NewNotebookRepository},
		{"user repository", repositories.NewUserRepository},
		{"token repository", repositories.NewTokenRepository},

		// Services
		{"auth service", func(userRepo repositories.UserRepository, jwt utils.JWTService, tokenRepo repositories.TokenRepository) services.AuthService {
			return services.NewAuthService(userRepo, jwt, tokenRepo, services.TokenLifetimes{
				Access:  time.Millisecond * time.Duration(config.Env.JWTExpirationMilliseconds),
				Refresh: time.Millisecond * time.Duration(config.Env.JWTRefreshExpirationMilliseconds),
			})
		}},
		{"notebook service", services.NewNotebookService},
		{"message service", services.NewMessageService},
		{"submission service", func(
			repo repositories.NotebookRepository,
			engine services.AnswerEngine,
			registry *services.SubmissionRegistry,
			metrics *observability.SubmissionMetrics,
		) services.SubmissionService {
			return services.NewSubmissionService(repo, engine, registry, metrics, services.SubmissionConfig{
				SendTimeout: config.Env.StatusSendTimeout,
			})
		}},

		// Handlers
		{"auth handler", handlers.NewAuthHandler},
		{"notebook handler", handlers.NewNotebookHandler},
		{"message handler", func(submissionService services.SubmissionService, messageService services.MessageService) *handlers.MessageHandler {
			return handlers.NewMessageHandler(submissionService, messageService, config.Env.StreamHeartbeatInterval)
		}},
	}

	for _, p := range providers {
		if err := DiContainer.Provide(p.provider); err != nil {
			log.Fatal().Err(err).Str("provider", p.name).Msg("failed to provide dependency")
		}
	}
}

func resolve[T any]() (T, error) {
	var out T
	err := DiContainer.Invoke(func(v T) {
		out = v
	})
	return out, err
}

// GetAuthHandler retrieves the AuthHandler from the DI container
func GetAuthHandler() (*handlers.AuthHandler, error) {
	return resolve[*handlers.AuthHandler]()
}

func GetNotebookHandler() (*handlers.NotebookHandler, error) {
	return resolve[*handlers.NotebookHandler]()
}

func GetMessageHandler() (*handlers.MessageHandler, error) {
	return resolve[*handlers.MessageHandler]()
}

func GetSubmissionRegistry() (*services.SubmissionRegistry, error) {
	return resolve[*services.SubmissionRegistry]()
}

func GetCancelBus() (services.CancelBus, error) {
	return resolve[services.CancelBus]()
}

func GetMongoClient() (*mongodb.MongoDBClient, error) {
	return resolve[*mongodb.MongoDBClient]()
}
