package config

import (
	"sync"
)

var (
	minioOnce   sync.Once
	minioConfig *MinioConfig
)

type MinioConfig struct {
	AccessKey  string `yaml:"accessKey"`
	SecretKey  string `yaml:"secretKey"`
	Endpoint   string `yaml:"endpoint"`
	UseSSL     bool   `yaml:"useSSL"`
	Region     string `yaml:"region"`
	BucketName string `yaml:"bucketName"`
}

// LoadMinioConfig reads the MinIO settings from the environment.
func LoadMinioConfig() *MinioConfig {
	loadDotEnv()
	return &MinioConfig{
		AccessKey:  getEnv("MINIO_ACCESS_KEY", ""),
		SecretKey:  getEnv("MINIO_SECRET_KEY", ""),
		Endpoint:   getEnv("MINIO_ENDPOINT", "localhost:9000"),
		UseSSL:     getEnvBool("MINIO_USE_SSL", false),
		Region:     getEnv("MINIO_REGION", ""),
		BucketName: getEnv("MINIO_BUCKET_NAME", "document-analyzer"),
	}
}

func GetMinioConfig() *MinioConfig {
	minioOnce.Do(func() {
		minioConfig = LoadMinioConfig()
	})
	return minioConfig
}
