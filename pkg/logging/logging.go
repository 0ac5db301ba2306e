// Package logging centralizes zap logger construction so every component
// receives the same injected logger rather than reaching for a global.
package logging

import "go.uber.org/zap"

// New builds a production logger, or a development logger when dev is true.
func New(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Nop returns a no-op logger.
func Nop() *zap.Logger {
	return zap.NewNop()
}
