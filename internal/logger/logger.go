package logger

import (
	"go.uber.org/zap"
)

// New builds a zap logger; development mode uses the console encoder.
func New(development bool) (*zap.Logger, error) {
	if development {
		cfg := zap.NewDevelopmentConfig()
		return cfg.Build()
	}
	return zap.NewProduction()
}
