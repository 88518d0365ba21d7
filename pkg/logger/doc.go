// Package logger builds *slog.Logger values for accesskit binaries and
// provides attribute helpers so every component names fields the same way.
//
// New applies functional options (format, level, output, static attributes,
// environment presets) and runs registered ContextExtractor callbacks on every
// record. Components such as authstate expose an extractor that adds the
// signed-in identity:
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.AppEnv, "accessdemo"),
//	    logger.WithLevelName(cfg.LogLevel),
//	    logger.WithContextExtractors(authstate.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "organization switched", logger.OrganizationID(org.ID))
//
// Helpers return an empty attribute for nil errors and zero ids, so they can
// be passed unconditionally. Values under keys such as "password", "code" and
// "pending_token" are redacted; see WithRedactedKeys.
package logger
