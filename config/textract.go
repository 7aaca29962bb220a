package config

import (
	"sync"
)

var (
	textractOnce   sync.Once
	textractConfig *TextractConfig
)

type TextractConfig struct {
	Region        string  `yaml:"region"`
	Endpoint      string  `yaml:"endpoint"`
	AccessKey     string  `yaml:"accessKey"`
	SecretKey     string  `yaml:"secretKey"`
	MinConfidence float64 `yaml:"minConfidence"`
}

// LoadTextractConfig reads the Textract settings from the environment.
func LoadTextractConfig() *TextractConfig {
	loadDotEnv()
	return &TextractConfig{
		Region:        getEnv("AWS_REGION", "us-east-1"),
		Endpoint:      getEnv("AWS_ENDPOINT", ""),
		AccessKey:     getEnv("AWS_ACCESS_KEY", ""),
		SecretKey:     getEnv("AWS_SECRET_KEY", ""),
		MinConfidence: getEnvFloat("TEXTRACT_MIN_CONFIDENCE", 80),
	}
}

func GetTextractConfig() *TextractConfig {
	textractOnce.Do(func() {
		textractConfig = LoadTextractConfig()
	})
	return textractConfig
}
