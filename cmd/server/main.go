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
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"labot-admin-go/internal/config"
	"labot-admin-go/internal/handler"
	"labot-admin-go/internal/middleware"
	"labot-admin-go/internal/model"
	"labot-admin-go/internal/repository"
	"labot-admin-go/internal/service"
	"labot-admin-go/pkg/database"
	"labot-admin-go/pkg/embedding"
	"labot-admin-go/pkg/es"
	"labot-admin-go/pkg/kafka"
	"labot-admin-go/pkg/llm"
	"labot-admin-go/pkg/log"
	"labot-admin-go/pkg/notification"
	"labot-admin-go/pkg/token"
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
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和 Redis
	adminDB, err := database.Open(database.Options{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		log.Fatal("管理库连接失败", err)
	}
	defer database.Close(adminDB)

	dataDB := adminDB
	if cfg.Database.DataDSN != "" && cfg.Database.DataDSN != cfg.Database.DSN {
		dataDB, err = database.Open(database.Options{
			Driver:       cfg.Database.Driver,
			DSN:          cfg.Database.DataDSN,
			MaxIdleConns: cfg.Database.MaxIdleConns,
			MaxOpenConns: cfg.Database.MaxOpenConns,
		})
		if err != nil {
			log.Fatal("数据库连接失败", err)
		}
		defer database.Close(dataDB)
	}

	if cfg.Database.AutoMigrate {
		if err := migrate(cfg.Database.Driver, adminDB, dataDB); err != nil {
			log.Fatal("数据库迁移失败", err)
		}
	}

	rdb, err := database.NewRedis(context.Background(), cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err != nil {
		log.Fatal("Redis 连接失败", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// 4. 初始化外部客户端
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	notifier := notification.NewClient(cfg.Notification)
	publisher := kafka.NewPublisher(cfg.Kafka)
	defer publisher.Close()
	index, err := es.NewCacheGroupIndex(cfg.Elasticsearch, cfg.Embedding.Dimensions)
	if err != nil {
		log.Fatal("Elasticsearch 初始化失败", err)
	}
	location, err := time.LoadLocation(cfg.Notification.Timezone)
	if err != nil {
		log.Warnf("未知时区 '%s'，使用 UTC: %v", cfg.Notification.Timezone, err)
		location = time.UTC
	}

	// 5. 初始化 Repository
	cacheGroupRepo := repository.NewCacheGroupRepository(adminDB, cfg.Catalog.DefaultTrack)
	historyRepo := repository.NewHistoricalQuestionRepository(adminDB)
	pendingRepo := repository.NewPendingQuestionRepository(adminDB)
	catalogRepo := repository.NewCatalogRepository(adminDB)
	chunkRepo := repository.NewChunkRepository(dataDB, rdb, cfg.Catalog.ChunkTTL)
	var regionResolver repository.RegionResolver = repository.StaticRegionResolver{}
	if cfg.Database.Driver == "postgres" {
		regionResolver = repository.NewRegionResolver(adminDB, rdb, cfg.Catalog.RegionTTL)
	} else {
		log.Warnf("数据库驱动 '%s' 不支持 search_oposicion_by_topic_id，所有提问按 nacional 处理", cfg.Database.Driver)
	}

	// 6. 初始化 Service (依赖注入)
	reconcileService := service.NewReconcileService(historyRepo, regionResolver, notifier, service.ReconcileOptions{
		Dispatch:       cfg.Reconcile.Dispatch,
		MaxConcurrency: cfg.Reconcile.MaxConcurrency,
		Level:          cfg.Notification.Level,
		Type:           cfg.Notification.Type,
		Location:       location,
	})
	cacheGroupService := service.NewCacheGroupService(cacheGroupRepo, embeddingClient, reconcileService, publisher, index,
		cfg.Catalog.PageSize, cfg.Catalog.SimilarityLimit)
	draftService := service.NewDraftService(chunkRepo, catalogRepo, llmClient, cfg.LLM, cfg.Catalog.KBFolderID)
	reviewService := service.NewReviewService(cacheGroupRepo, pendingRepo, regionResolver, cfg.Catalog.PageSize)
	catalogService := service.NewCatalogService(catalogRepo, chunkRepo, cfg.Catalog.KBFolderID)

	// 7. 设置 Gin 模式并创建路由引擎
	if err := handler.RegisterValidators(); err != nil {
		log.Fatal("注册校验规则失败", err)
	}
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "ok", "data": nil})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8. 注册路由
	cacheGroupHandler := handler.NewCacheGroupHandler(cacheGroupService)
	draftHandler := handler.NewDraftHandler(draftService)
	reviewHandler := handler.NewReviewHandler(reviewService)
	catalogHandler := handler.NewCatalogHandler(catalogService)

	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager), middleware.AdminAuthMiddleware(cfg.JWT.AllowedEmailDomain))
	{
		cacheGroups := admin.Group("/cache-groups")
		{
			cacheGroups.GET("", cacheGroupHandler.List)
			cacheGroups.POST("", cacheGroupHandler.Create)
			cacheGroups.GET("/similar", cacheGroupHandler.Similar)
			cacheGroups.GET("/:id", cacheGroupHandler.Get)
			cacheGroups.PUT("/:id", cacheGroupHandler.Edit)
		}
		admin.POST("/drafts", draftHandler.Draft)
		admin.GET("/review-items", reviewHandler.List)
		admin.GET("/topics", catalogHandler.Topics)
		admin.GET("/exam-tracks", catalogHandler.ExamTracks)
		admin.GET("/message-types", catalogHandler.MessageTypes)
		admin.GET("/chunk-catalog", catalogHandler.ChunkCatalog)
	}

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 保存请求包含通知派发，留出比默认更长的收尾时间
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

// migrate 迁移本服务拥有的表；非 postgres 环境（本地开发）同时创建聊天与数据库的表。
func migrate(driver string, adminDB, dataDB *gorm.DB) error {
	if err := database.Migrate(adminDB, model.CacheTables()...); err != nil {
		return err
	}
	if driver == "postgres" {
		return nil
	}
	if err := database.Migrate(adminDB, model.ChatTables()...); err != nil {
		return err
	}
	return database.Migrate(dataDB, model.DataTables()...)
}
