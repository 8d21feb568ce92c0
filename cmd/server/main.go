// Package main 是应用程序的入口点。
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whispr-go/internal/ai"
	"whispr-go/internal/config"
	"whispr-go/internal/handler"
	"whispr-go/internal/middleware"
	"whispr-go/internal/pipeline"
	"whispr-go/internal/repository"
	"whispr-go/internal/service"
	"whispr-go/pkg/database"
	"whispr-go/pkg/es"
	"whispr-go/pkg/kafka"
	"whispr-go/pkg/llm"
	"whispr-go/pkg/log"
	"whispr-go/pkg/storage"
	"whispr-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 1. 初始化配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// 3. 初始化数据库和 Redis
	db, err := database.NewMySQL(cfg.Database.MySQL.DSN, cfg.Database.MySQL.AutoMigrate)
	if err != nil {
		log.Fatal("MySQL 初始化失败", err)
	}
	rdb, err := database.NewRedis(rootCtx, cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err != nil {
		log.Fatal("Redis 初始化失败", err)
	}

	// 4. 可选组件：未配置地址时不启用
	var searchClient service.SearchClient
	var indexer service.PostIndexer
	if cfg.Elasticsearch.Addresses != "" {
		esClient, err := es.NewClient(cfg.Elasticsearch)
		if err != nil {
			log.Error("Elasticsearch 初始化失败, 检索功能不可用", err)
		} else {
			searchClient, indexer = esClient, esClient
		}
	}
	var objectStore service.ObjectStore
	if cfg.MinIO.Endpoint != "" {
		minioClient, err := storage.NewMinIO(rootCtx, cfg.MinIO)
		if err != nil {
			log.Error("MinIO 初始化失败, 导出功能不可用", err)
		} else {
			objectStore = minioClient
		}
	}

	// 5. 初始化 Repository
	postRepo := repository.NewPostRepository(db)
	chatRepo := repository.NewChatSessionRepository(db)
	actionRepo := repository.NewAdminActionRepository(db)
	feed := repository.NewChangeFeed(rdb)

	// 6. 初始化 AI
	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		log.Fatal("LLM 客户端初始化失败", err)
	}
	guardian := ai.NewInvoker(llmClient, time.Duration(cfg.LLM.TimeoutSeconds)*time.Second)

	// 7. 反馈管道：配置了 Kafka 时经由 Kafka，否则在进程内执行
	processor := pipeline.NewProcessor(guardian, feed)
	var dispatcher service.FeedbackDispatcher
	if cfg.Kafka.Brokers != "" {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		dispatcher = pipeline.NewKafkaDispatcher(producer)
		go kafka.StartConsumer(rootCtx, cfg.Kafka, processor)
	} else {
		log.Info("未配置 Kafka, 反馈任务将在进程内执行")
		dispatcher = pipeline.NewInProcessDispatcher(processor)
	}

	// 8. 初始化 Service (依赖注入)
	identityJWT := token.NewJWTManager(cfg.Identity.Secret, time.Duration(cfg.Identity.TokenExpireDays)*24*time.Hour)
	sessionJWT := token.NewJWTManager(cfg.Admin.SessionSecret, time.Duration(cfg.Admin.SessionMaxAgeHour)*time.Hour)

	identityService := service.NewIdentityService(identityJWT)
	adminAuthService := service.NewAdminAuthService(cfg.Admin, sessionJWT)
	notifier := service.NewErrorNotifier(feed)
	whisperService := service.NewWhisperService(postRepo, guardian, dispatcher, feed, indexer)
	chatService := service.NewChatService(chatRepo, guardian, notifier, feed)
	moderationService := service.NewModerationService(postRepo, actionRepo, guardian, feed, indexer)
	searchService := service.NewSearchService(searchClient, postRepo)
	exportService := service.NewExportService(postRepo, actionRepo, objectStore, time.Duration(cfg.MinIO.URLExpireMinute)*time.Minute)
	liveService := service.NewLiveService(feed, whisperService, chatService, moderationService)

	// 8.1 启用检索时在后台补建索引
	if searchClient != nil {
		go func() {
			if _, err := searchService.Reindex(rootCtx); err != nil {
				log.Error("重建检索索引失败", err)
			}
		}()
	}

	// 9. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	registerRoutes(r, routeDeps{
		identity:  handler.NewIdentityHandler(identityService),
		helplines: handler.NewHelplineHandler(cfg.Helplines),
		whispers:  handler.NewWhisperHandler(whisperService),
		chat:      handler.NewChatHandler(chatService),
		live:      handler.NewLiveHandler(liveService, identityService),
		admin:     handler.NewAdminHandler(adminAuthService, moderationService, searchService, exportService, gin.Mode() == gin.ReleaseMode),
		userAuth:  middleware.AuthMiddleware(identityService),
		adminAuth: middleware.AdminAuthMiddleware(adminAuthService),
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 先停止后台任务和实时订阅，再关闭 HTTP 服务器
	cancelRoot()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}
	if err := rdb.Close(); err != nil {
		log.Errorf("关闭 Redis 连接失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

type routeDeps struct {
	identity  *handler.IdentityHandler
	helplines *handler.HelplineHandler
	whispers  *handler.WhisperHandler
	chat      *handler.ChatHandler
	live      *handler.LiveHandler
	admin     *handler.AdminHandler
	userAuth  gin.HandlerFunc
	adminAuth gin.HandlerFunc
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	apiV1 := r.Group("/api/v1")
	{
		// 无需认证的路由
		apiV1.POST("/identity", d.identity.Issue)
		apiV1.GET("/helplines", d.helplines.List)

		// 需要匿名身份的路由
		whispers := apiV1.Group("/whispers")
		whispers.Use(d.userAuth)
		{
			whispers.GET("", d.whispers.List)
			whispers.POST("", d.whispers.Submit)
		}

		chat := apiV1.Group("/chat")
		chat.Use(d.userAuth)
		{
			chat.POST("", d.chat.Send)
			chat.GET("/session", d.chat.Session)
		}

		// 实时订阅 (WebSocket)，token 放在路径中
		live := apiV1.Group("/live")
		{
			live.GET("/feed/:token", d.live.Feed)
			live.GET("/chat/:token", d.live.Chat)
		}

		admin := apiV1.Group("/admin")
		{
			admin.POST("/login", d.admin.Login)
			admin.POST("/logout", d.admin.Logout)

			// 管理员路由组，需要有效的会话 cookie
			authed := admin.Group("")
			authed.Use(d.adminAuth)
			{
				authed.GET("/session", d.admin.Session)
				authed.GET("/posts", d.admin.ListPosts)
				authed.GET("/posts/search", d.admin.SearchPosts)
				authed.PUT("/posts/:id/label", d.admin.Relabel)
				authed.POST("/posts/:id/visibility", d.admin.ToggleVisibility)
				authed.POST("/posts/:id/reply", d.admin.GenerateReply)
				authed.GET("/actions", d.admin.ListActions)
				authed.POST("/export", d.admin.Export)
				authed.GET("/live", d.live.Admin)
			}
		}
	}
}
