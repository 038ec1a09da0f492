package logging

import (
	"github.com/birdhop/game/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel returns the zap level named by s, or info when s is not a level.
func ParseLevel(s string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// NewConfig builds the zap configuration for cfg without constructing the
// logger.
func NewConfig(cfg config.LoggingConfig) zap.Config {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	return zapCfg
}

// New builds the process logger.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	return NewConfig(cfg).Build()
}

// NewFile builds a logger that writes to path instead of stderr. The
// terminal front end uses it so log lines do not tear the screen.
func NewFile(cfg config.LoggingConfig, path string) (*zap.Logger, error) {
	zapCfg := NewConfig(cfg)
	if cfg.Format != "json" {
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zapCfg.OutputPaths = []string{path}
	zapCfg.ErrorOutputPaths = []string{path}
	return zapCfg.Build()
}
