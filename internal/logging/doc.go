// Package logging provides guild's structured logger: zap with context
// correlation, secret redaction and an optional OpenTelemetry output.
//
// Every method takes a context. Fields stored with WithRunID, WithModule and
// WithRequestID, and the active trace and span IDs, are prepended to each
// entry:
//
//	ctx = logging.WithRunID(ctx, run.ID)
//	ctx = logging.WithModule(ctx, "core/agent-framework")
//	logger.Info(ctx, "module compressed", zap.String("level", "minimal"))
//
// Console output is redacted twice over. Fields named in
// RedactionConfig.Fields are replaced outright, and messages and string
// values pass through the secret scrubber that also cleans module text, so a
// token quoted from a guideline never reaches the log. Use Secret for
// config.Secret values and RedactedString for ad hoc ones.
//
// TraceLevel sits below Debug and is meant for per-element extraction
// detail.
//
// Tests use NewTestLogger and its assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "module compressed", zap.String("level", "minimal"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "module compressed")
//	tl.AssertField(t, "module compressed", "level", "minimal")
//	tl.AssertNoSecrets(t)
package logging
