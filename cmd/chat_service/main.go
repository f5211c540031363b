package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"reelconnect_service/internal/chat/app"
	"reelconnect_service/internal/chat/domain"
	"reelconnect_service/internal/chat/feed"
	"reelconnect_service/internal/chat/media"
	"reelconnect_service/internal/chat/repository"
	firestorerepo "reelconnect_service/internal/chat/repository/firestore"
	"reelconnect_service/internal/chat/router"
	"reelconnect_service/pkg/config"
	"reelconnect_service/pkg/database"
	"reelconnect_service/pkg/logger"
	testtool "reelconnect_service/pkg/test_tool"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

// backend message store, live source and the rest of the chat read side
type backend struct {
	messages     repository.MessageRepository
	summaries    repository.SummaryRepository
	participants repository.ParticipantRepository
	source       feed.Source
	notifier     app.ChangeNotifier
	cache        database.RedisRepository[[]domain.Participant]
	closers      []func()
}

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)

	ctx := context.Background()
	testtool.StartPprof("localhost:6060")

	// 1. 訊息儲存與 live feed
	var be backend
	switch cfg.Backend {
	case config.BackendFirestore:
		be = firestoreBackend(ctx, cfg)
	default:
		be = mongoBackend(ctx, cfg)
	}
	defer func() {
		for _, c := range be.closers {
			c()
		}
	}()

	// 2. 建立 MinIO 連線 (存圖片/影片)
	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      fmt.Sprintf("%s:%d", cfg.MinIO.Host, cfg.MinIO.Port),
		User:          cfg.MinIO.User,
		Password:      cfg.MinIO.Password,
		BucketName:    cfg.MinIO.BucketName,
		UseSSL:        cfg.MinIO.UseSSL,
		PublicBaseURL: cfg.MinIO.PublicBaseURL,
		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: cfg.MinIO.RetryInterval,
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to minio after retries", zap.Error(err))
	}
	storage := repository.NewMediaStorage(minioClient)
	thumbnailer := media.NewFFmpegThumbnailer(cfg.Feed.FFmpegPath, cfg.Feed.FFprobePath)

	// 3. message created 事件
	events, closeEvents := eventPublisher(cfg.Events)
	defer closeEvents()

	// 4. 初始化 UseCases
	messageUC := app.NewMessageUseCase(be.messages, be.summaries, be.notifier, events)
	conversationUC := app.NewConversationUseCase(be.participants, be.summaries, be.cache)

	feedCfg := feed.Config{
		PageSize:      cfg.Feed.PageSize,
		UploadTimeout: cfg.Feed.UploadTimeout,
		MaxMediaBytes: cfg.Feed.MaxMediaBytes,
	}
	newFeed := func(identity feed.Identity, notifier feed.Notifier) *feed.Feed {
		return feed.New(feed.Deps{
			Source:      be.source,
			Pager:       messageUC,
			Committer:   messageUC,
			Storage:     storage,
			Thumbnailer: thumbnailer,
			Notifier:    notifier,
		}, feedCfg, identity)
	}

	// 5. 啟動 Fiber
	r := fiber.New(fiber.Config{BodyLimit: int(cfg.Feed.MaxMediaBytes) * 2})
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file, // 将日志输出到文件
	}))

	// 注册路由
	router.RegisterRoutes(r,
		app.NewChatWebsocketHandler(newFeed, conversationUC, cfg.Feed.MaxMediaBytes),
		app.NewChatHTTPHandler(messageUC, conversationUC, cfg.Feed.PageSize),
	)

	port := ":" + cfg.Port
	logger.Log.Info("Chat Service listening", zap.String("port", port), zap.String("backend", cfg.Backend))
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}

// mongoBackend messages in mongo, live feed over redis pub/sub
func mongoBackend(ctx context.Context, cfg config.Chat) backend {
	uri := database.MongoURI(cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval) * time.Second,
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("host", cfg.MongoSQL.Host),
			zap.Error(err),
		)
	}

	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(ctx, database.RedisConnection{
		MasterName:    masterName,
		SentinelAddrs: sentinel,
		Addr:          cfg.Redis.Addr,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.RedisDB,
	})
	if err != nil {
		logger.Log.Fatal("connect redis failed", zap.Error(err))
	}

	msgRepo := repository.NewMongoChatMessageRepository(mongo.Database)
	if err := msgRepo.EnsureIndexes(ctx); err != nil {
		logger.Log.Fatal("create message indexes failed", zap.Error(err))
	}
	pubsub := repository.NewRedisPubSub(redisClient, msgRepo)

	return backend{
		messages:     msgRepo,
		summaries:    repository.NewMongoSummaryRepository(mongo.Database),
		participants: repository.NewMongoParticipantRepository(mongo.Database),
		source:       pubsub,
		notifier:     pubsub,
		cache:        database.NewRedisRepository[[]domain.Participant](redisClient),
		closers: []func(){
			func() { _ = redisClient.Close() },
			func() { _ = mongo.Close(context.Background()) },
		},
	}
}

// firestoreBackend firestore 同時負責儲存與 snapshot 推送
func firestoreBackend(ctx context.Context, cfg config.Chat) backend {
	client, err := database.NewFirestoreClient(ctx, cfg.Firestore.ProjectID)
	if err != nil {
		logger.Log.Fatal("connect firestore failed", zap.String("project", cfg.Firestore.ProjectID), zap.Error(err))
	}
	store := firestorerepo.NewStore(client)
	return backend{
		messages:     store,
		summaries:    store,
		participants: store,
		source:       store,
		closers:      []func(){func() { _ = store.Close() }},
	}
}

// eventPublisher kafka / rabbitmq publisher, nil when disabled
func eventPublisher(cfg config.EventsConfig) (repository.EventPublisher, func()) {
	topic := cfg.Topic
	if topic == "" {
		topic = domain.MessageCreatedTopic
	}

	switch cfg.Driver {
	case "kafka":
		writer, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
			Brokers:       cfg.Brokers,
			Topic:         topic,
			RetryCount:    cfg.Retry,
			RetryInterval: cfg.Interval,
		})
		if err != nil {
			logger.Log.Fatal("connect kafka failed", zap.Error(err))
		}
		return repository.NewKafkaPublisher(writer), func() { _ = writer.Close() }

	case "rabbitmq":
		conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
			ConnectStr:    cfg.RabbitURL,
			RetryCount:    cfg.Retry,
			RetryInterval: cfg.Interval,
		})
		if err != nil {
			logger.Log.Fatal("connect rabbitmq failed", zap.Error(err))
		}
		ch, err := database.GetRabbitMQChannelWithRetry(conn, cfg.Retry, cfg.Interval)
		if err != nil {
			logger.Log.Fatal("open rabbitmq channel failed", zap.Error(err))
		}
		pub, err := repository.NewRabbitPublisher(ch, topic)
		if err != nil {
			logger.Log.Fatal("declare rabbitmq queue failed", zap.Error(err))
		}
		return pub, func() {
			_ = ch.Close()
			_ = conn.Close()
		}

	default:
		logger.Log.Info("message events disabled")
		return nil, func() {}
	}
}
