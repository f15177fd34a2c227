package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuttingtoolsjd-ai/JDMES/internal/config"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/entity"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/handler"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/repository"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/service"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/middleware"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting JDMES service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 自动迁移 + 预置账号
	if err := entity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}
	seedUsers(db, zapLogger)

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, db, cfg, zapLogger)
	handlers := handler.NewHandlers(services)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// seedUsers 首次启动时预置账号，PIN均为000000，首次登录强制修改
func seedUsers(db *gorm.DB, zapLogger *zap.Logger) {
	var total int64
	db.Model(&entity.User{}).Count(&total)
	if total > 0 {
		return
	}

	seeds := []entity.User{
		{Username: "Anushwa", Role: entity.RoleMaster},
		{Username: "Jayant", Role: entity.RoleMaster},
		{Username: "GOVIND KHOSE", Role: entity.RoleManager},
		{Username: "PRAKASH SINGH SAINI", Role: entity.RoleManager},
		{Username: "SUSHIL BABAR", Role: entity.RoleOperator},
		{Username: "ANIL PARGAVE", Role: entity.RoleOperator},
		{Username: "POOJA CHAVAN", Role: entity.RoleOperator},
		{Username: "RAMESH KOKATE", Role: entity.RoleOperator},
		{Username: "VISHAL KAKADE", Role: entity.RoleOperator},
		{Username: "SAGAR GAVDE", Role: entity.RoleOperator},
	}
	for i := range seeds {
		seeds[i].PIN = "000000"
		seeds[i].MustChangePIN = true
	}
	if err := db.Create(&seeds).Error; err != nil {
		zapLogger.Warn("Failed to seed users", zap.Error(err))
		return
	}
	zapLogger.Info("Seeded default users", zap.Int("count", len(seeds)))
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 认证 (无需登录)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 需要认证的接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 当前用户
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.POST("/auth/pin", h.Auth.SetPIN)
			authorized.POST("/auth/logout", h.Auth.Logout)

			// 工单
			orders := authorized.Group("/work-orders")
			{
				orders.GET("", h.Order.List)
				orders.POST("", middleware.RequireRole(entity.RoleManager, entity.RoleMaster), h.Order.Create)
				orders.POST("/scan", h.Order.Scan)
				orders.GET("/:orderNo", h.Order.Get)
				orders.POST("/:orderNo/report", h.Order.Report)
				orders.GET("/:orderNo/logs", h.Order.Logs)
				orders.GET("/:orderNo/qrcode", h.Order.DownloadQRCode)
			}

			// 二维码清单
			authorized.GET("/qrcodes", h.Order.ListQRCodes)

			// 统计
			stats := authorized.Group("/stats")
			{
				stats.GET("/efficiency", h.Stats.Efficiency)
				stats.GET("/operators/:username", h.Stats.OperatorStats)
				stats.GET("/dashboard", middleware.RequireRole(entity.RoleManager, entity.RoleMaster), h.Stats.Dashboard)
			}

			// 导出 (仅管理员)
			exports := authorized.Group("/exports")
			exports.Use(middleware.RequireRole(entity.RoleManager, entity.RoleMaster))
			{
				exports.GET("/work-orders", h.Export.WorkOrders)
				exports.GET("/efficiency", h.Export.Efficiency)
			}
		}
	}
}
