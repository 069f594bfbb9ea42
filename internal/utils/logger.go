package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger dev 用彩色控制台输出，其他环境输出 JSON
func NewLogger(env string) (*zap.Logger, error) {
	var config zap.Config
	if env == "dev" {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	return config.Build()
}

// InitLogger 初始化并替换全局 Logger，之后各处直接用 zap.L()
func InitLogger(env string) *zap.Logger {
	logger, err := NewLogger(env)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	zap.ReplaceGlobals(logger)
	return logger
}
