// Package log holds the process wide zap logger and adapts it to decode
// diagnostics.
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logger = zap.NewNop()

// InitProductionLogger logs info and above to stderr in console format.
func InitProductionLogger() error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	return build(cfg)
}

// InitDevelopmentLogger logs debug and above with caller information.
func InitDevelopmentLogger() error {
	return build(zap.NewDevelopmentConfig())
}

func build(cfg zap.Config) error {
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Logger = l
	return nil
}
