package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"gift-store/internal/config"
)

// Rotation limits for the optional log file.
const (
	maxFileSizeMB = 64
	maxBackups    = 7
	maxAgeDays    = 7
)

// New creates a new structured logger
func New(env string) (*zap.Logger, error) {
	config := baseConfig(env)

	logger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return logger, nil
}

// NewFromConfig builds the application logger. When file logging is enabled the
// output is teed to stdout and a size-rotated JSON file.
func NewFromConfig(cfg *config.Config) (*zap.Logger, error) {
	if !cfg.Logger.FileEnable || cfg.Logger.Filename == "" {
		return New(cfg.Server.Env)
	}

	base := baseConfig(cfg.Server.Env)
	rotator := &lumberjack.Logger{
		Filename:   cfg.Logger.Filename,
		MaxSize:    maxFileSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}

	var consoleEncoder zapcore.Encoder
	if base.Encoding == "json" {
		consoleEncoder = zapcore.NewJSONEncoder(base.EncoderConfig)
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(base.EncoderConfig)
	}

	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(FileEncoderConfig()),
			zapcore.AddSync(rotator),
			base.Level,
		),
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), base.Level),
	)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// FileEncoderConfig is the JSON layout written to rotated log files.
func FileEncoderConfig() zapcore.EncoderConfig {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return encoderConfig
}

func baseConfig(env string) zap.Config {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
		config.Encoding = "json"
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	// Always log to stdout for container compatibility
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	return config
}
