package logger

import (
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// LoggerConfig is read from LOG_LEVEL, LOG_FORMAT and LOG_OUTPUT_FILE.
type LoggerConfig struct {
	Level      string
	Format     string
	OutputFile string
}

func DefaultConfig() *LoggerConfig {
	cfg := &LoggerConfig{Level: "info", Format: "json", OutputFile: "stdout"}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		cfg.Level = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := os.LookupEnv("LOG_FORMAT"); ok {
		cfg.Format = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := os.LookupEnv("LOG_OUTPUT_FILE"); ok {
		cfg.OutputFile = strings.TrimSpace(v)
	}
	return cfg
}

// ToZapLevel converts the configured level. Unknown values mean info.
func (c *LoggerConfig) ToZapLevel() zapcore.Level {
	if c.Level == "warning" {
		return zapcore.WarnLevel
	}
	lvl, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
