package logger

import (
	"go.uber.org/zap"
)

type Options struct {
	Service string
	Env     string
}

// New returns a production JSON logger, or a console logger in dev.
func New(opts Options) (*zap.Logger, error) {
	var (
		base *zap.Logger
		err  error
	)
	if opts.Env == "dev" {
		base, err = zap.NewDevelopment()
	} else {
		base, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	return base.With(
		zap.String("service", opts.Service),
		zap.String("env", opts.Env),
	), nil
}
