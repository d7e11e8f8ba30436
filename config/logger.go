// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package config

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the config package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the config package's logger.
func SetLogger(l *zap.Logger) {
	logger = l
}

func declFields(d *Declarations) []zap.Field {
	return []zap.Field{
		zap.Int("types", len(d.Module.Types)),
		zap.Int("buffers", len(d.Module.ConstantBuffers)),
		zap.Int("functions", len(d.Module.Functions)),
		zap.Int("calls", len(d.Calls)),
		zap.Stringer("orientation", d.Layout.DefaultOrientation),
	}
}
