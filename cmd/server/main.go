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

	"medi-chat-go/internal/config"
	"medi-chat-go/internal/handler"
	"medi-chat-go/internal/middleware"
	"medi-chat-go/internal/model"
	"medi-chat-go/internal/repository"
	"medi-chat-go/internal/service"
	"medi-chat-go/pkg/cache"
	"medi-chat-go/pkg/database"
	"medi-chat-go/pkg/kafka"
	"medi-chat-go/pkg/llm"
	"medi-chat-go/pkg/log"
	"medi-chat-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和 Redis（Redis 不可用时降级为无缓存运行）
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err := database.DB.AutoMigrate(
		&model.User{},
		&model.ChatSession{},
		&model.ChatMessage{},
		&model.ChatHistory{},
	); err != nil {
		log.Fatalf("数据库表结构迁移失败: %v", err)
	}
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	userRepository := repository.NewUserRepository(database.DB)
	chatRepository := repository.NewChatRepository(database.DB)
	historyRepository := repository.NewHistoryRepository(database.DB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	llmClient := llm.NewClient(cfg.OpenAI)
	var respCache cache.Cache
	if database.RDB != nil {
		respCache = cache.NewRedisCache(database.RDB)
	}
	userService := service.NewUserService(userRepository, jwtManager)
	chatService := service.NewChatService(chatRepository, llmClient, respCache, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	historyService := service.NewHistoryService(historyRepository)

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 7. 注册路由
	api := r.Group("/api")
	{
		// Auth 路由组
		auth := api.Group("/auth")
		{
			// 无需认证的路由 (公开访问)
			auth.POST("/register", handler.NewUserHandler(userService).Register)
			auth.POST("/login", handler.NewUserHandler(userService).Login)
			auth.POST("/refresh", handler.NewAuthHandler(userService).RefreshToken)

			// 需要认证的路由 (仅限登录用户访问)
			authed := auth.Group("/")
			authed.Use(middleware.AuthMiddleware(jwtManager, userService))
			{
				authed.GET("/me", handler.NewUserHandler(userService).GetProfile)
			}
		}

		// Chat 路由组，需要认证
		chat := api.Group("/chat")
		chat.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			chat.POST("/send", handler.NewChatHandler(chatService).SendMessage)
			chat.GET("/sessions", handler.NewChatHandler(chatService).GetSessions)
			chat.GET("/sessions/:id", handler.NewChatHandler(chatService).GetSession)
			chat.DELETE("/sessions/:id", handler.NewChatHandler(chatService).DeleteSession)
		}

		// History 路由组，需要认证
		history := api.Group("/history")
		history.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			history.GET("", handler.NewHistoryHandler(historyService).GetHistory)
			history.GET("/:id", handler.NewHistoryHandler(historyService).GetHistoryItem)
			history.DELETE("/:id", handler.NewHistoryHandler(historyService).DeleteHistoryItem)
			history.DELETE("/clear", handler.NewHistoryHandler(historyService).ClearHistory)
		}
	}

	// 8. 启动 HTTP 服务器并实现优雅停机
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

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
