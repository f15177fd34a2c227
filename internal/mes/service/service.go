package service

import (
	"github.com/cuttingtoolsjd-ai/JDMES/internal/config"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/repository"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Auth   *AuthService
	Order  *OrderService
	Stats  *StatsService
	QRCode *QRCodeService
	Export *ExportService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, db *gorm.DB, cfg *config.Config, logger *zap.Logger) *Services {
	// 初始化MinIO客户端，未配置时二维码落本地目录
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("MinIO初始化失败，二维码改存本地", zap.Error(err))
			minioClient = nil
		}
	}

	qrSvc := NewQRCodeService(minioClient, cfg.MinIO.Bucket, cfg.QRCode.LocalDir)
	statsSvc := NewStatsService(repos.User, db)

	return &Services{
		Auth:   NewAuthService(repos.User, rdb, cfg),
		Order:  NewOrderService(repos.WorkOrder, repos.RejectionLog, qrSvc, db, logger),
		Stats:  statsSvc,
		QRCode: qrSvc,
		Export: NewExportService(statsSvc, db),
	}
}
