package config

import (
	"sync"
)

var (
	s3Once   sync.Once
	s3Config *S3Config
)

type S3Config struct {
	BucketName string `yaml:"bucketName"`
	Region     string `yaml:"region"`
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"accessKey"`
	SecretKey  string `yaml:"secretKey"`
}

// LoadS3Config reads the S3 settings from the environment.
func LoadS3Config() *S3Config {
	loadDotEnv()
	return &S3Config{
		BucketName: getEnv("AWS_S3_BUCKET_NAME", ""),
		Region:     getEnv("AWS_REGION", "us-east-1"),
		Endpoint:   getEnv("AWS_ENDPOINT", ""),
		AccessKey:  getEnv("AWS_ACCESS_KEY", ""),
		SecretKey:  getEnv("AWS_SECRET_KEY", ""),
	}
}

func GetS3Config() *S3Config {
	s3Once.Do(func() {
		s3Config = LoadS3Config()
	})
	return s3Config
}
