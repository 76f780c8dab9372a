// Package logger builds the *slog.Logger used across notifykit and provides
// attribute helpers that keep key names consistent between components.
//
// New assembles a JSON or text handler from functional options and wraps it
// in a decorator that pulls request-scoped values (scan id, actor id) out of
// the context on every record:
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "notifyd"),
//	    logger.WithContextValue("scan_id", scanIDKey{}),
//	)
//	logger.SetAsDefault(log)
//
//	log.LogAttrs(ctx, slog.LevelWarn, "webhook delivery failed",
//	    logger.WebhookID(cfg.ID),
//	    logger.EventType(evt),
//	    logger.RetryCount(attempt),
//	    logger.Error(err),
//	)
//
// Error, UserID and the other helpers return an empty slog.Attr for nil
// input, so call sites never need their own nil checks.
package logger
