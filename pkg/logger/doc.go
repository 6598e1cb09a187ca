// Package logger builds the process-wide slog.Logger for the notification
// service. It supports JSON output for log aggregation and text output for
// local development, static service attributes, and context extractors that
// inject request-scoped values (such as the notification id) into every
// record logged with a Context-aware method.
//
// Typical setup:
//
//	var cfg logger.Config
//	config.MustLoad(&cfg)
//
//	log := logger.New(
//		logger.WithConfig(cfg),
//		logger.WithAttr(slog.String("service", "notify")),
//	)
//	slog.SetDefault(log)
package logger
