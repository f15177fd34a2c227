package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	qrcode "github.com/skip2/go-qrcode"
)

// QRCodeService 工单二维码生成与存储。
// 配置了MinIO则存对象存储，否则落本地目录。
type QRCodeService struct {
	minioClient *minio.Client
	bucket      string
	localDir    string
}

func NewQRCodeService(minioClient *minio.Client, bucket, localDir string) *QRCodeService {
	if localDir == "" {
		localDir = filepath.Join("static", "qrcodes")
	}
	return &QRCodeService{minioClient: minioClient, bucket: bucket, localDir: localDir}
}

// Generate 为工单号生成二维码PNG并保存，返回制品路径
func (s *QRCodeService) Generate(ctx context.Context, orderNo string) (string, error) {
	png, err := qrcode.Encode(orderNo, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("编码二维码失败: %w", err)
	}

	objectName := orderNo + ".png"
	if s.minioClient != nil {
		_, err = s.minioClient.PutObject(ctx, s.bucket, objectName,
			bytes.NewReader(png), int64(len(png)),
			minio.PutObjectOptions{ContentType: "image/png"})
		if err != nil {
			return "", fmt.Errorf("上传二维码失败: %w", err)
		}
		return s.bucket + "/" + objectName, nil
	}

	if err := os.MkdirAll(s.localDir, 0o755); err != nil {
		return "", fmt.Errorf("创建二维码目录失败: %w", err)
	}
	path := filepath.Join(s.localDir, objectName)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("保存二维码失败: %w", err)
	}
	return path, nil
}

// List 列出已生成的二维码文件名
func (s *QRCodeService) List(ctx context.Context) ([]string, error) {
	if s.minioClient != nil {
		var names []string
		for obj := range s.minioClient.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{}) {
			if obj.Err != nil {
				return nil, obj.Err
			}
			if strings.HasSuffix(obj.Key, ".png") {
				names = append(names, obj.Key)
			}
		}
		return names, nil
	}

	entries, err := os.ReadDir(s.localDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".png") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Fetch 读取二维码内容用于下载
func (s *QRCodeService) Fetch(ctx context.Context, orderNo string) ([]byte, error) {
	objectName := orderNo + ".png"
	if s.minioClient != nil {
		obj, err := s.minioClient.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}
		defer obj.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(obj); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return os.ReadFile(filepath.Join(s.localDir, objectName))
}
