// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"taible-storage-go/internal/config"
	"taible-storage-go/internal/handler"
	"taible-storage-go/internal/middleware"
	"taible-storage-go/internal/model"
	"taible-storage-go/internal/repository"
	"taible-storage-go/internal/service"
	"taible-storage-go/pkg/cache"
	"taible-storage-go/pkg/database"
	"taible-storage-go/pkg/kafka"
	"taible-storage-go/pkg/log"
	"taible-storage-go/pkg/storage"
)

func main() {
	// 1. 初始化配置
	cfg, err := config.Load("./configs/config.yaml")
	if err != nil {
		panic(err)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis 和对象存储
	db, err := database.NewMySQL(cfg.Database.MySQL.DSN)
	if err != nil {
		log.Fatal("连接 MySQL 失败", err)
	}
	if err := db.AutoMigrate(&model.FileRecord{}); err != nil {
		log.Fatal("数据库迁移失败", err)
	}
	log.Info("MySQL 连接就绪，file_records 表迁移完成")

	redisClient, err := database.NewRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err != nil {
		log.Fatal("连接 Redis 失败", err)
	}
	if redisClient == nil {
		log.Warnf("Redis 未配置，缓存降级为直通")
	} else {
		log.Info("Redis 连接就绪")
	}

	objectStore, err := storage.New(cfg.MinIO)
	if err != nil {
		log.Fatal("初始化对象存储失败", err)
	}
	log.Infof("对象存储客户端初始化成功，存储桶: %s", cfg.MinIO.BucketName)

	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	// 4. 初始化 Repository
	fileRecordRepo := repository.NewFileRecordRepository(db)
	userRepo := repository.NewUserRepository()

	// 5. 初始化 Service (依赖注入)
	cacheStore := cache.NewRedisStore(redisClient)
	presignTTL := time.Duration(cfg.Cache.PresignTTLSeconds) * time.Second
	storageService := service.NewStorageService(fileRecordRepo, objectStore, cacheStore, producer, presignTTL)
	userService := service.NewUserService(userRepo)

	// 6. 初始化 Handler
	storageHandler := handler.NewStorageHandler(storageService, cfg.App.Debug)
	userHandler := handler.NewUserHandler(userService, cfg.App.Debug)
	systemHandler := handler.NewSystemHandler(cfg, db, redisClient)

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), middleware.CORS(cfg.CORS.AllowedOrigins), gin.Recovery())

	// 8. 注册路由
	r.GET("/", systemHandler.Root)
	r.GET("/health", systemHandler.Health)

	api := r.Group("/api")
	{
		// 文件存储路由组
		storageGroup := api.Group("/storage")
		{
			storageGroup.POST("/presigned-upload-url", storageHandler.CreatePresignedUploadURL)
			storageGroup.GET("/files/:id", storageHandler.GetFileRecord)
			storageGroup.PATCH("/files/:id", storageHandler.UpdateFileRecord)
			storageGroup.GET("/files/:id/download-url", storageHandler.GetDownloadURL)
			storageGroup.POST("/files/:id/complete", storageHandler.MarkUploadComplete)
		}

		// 用户管理路由组
		users := api.Group("/users")
		{
			users.GET("", userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
			users.POST("", userHandler.CreateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
		}
	}

	// 9. 启动 HTTP 服务器并实现优雅停机
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
