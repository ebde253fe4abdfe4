// Package logging provides the small logging facade used across fhevm-go.
//
// The Logger interface is context-aware and deliberately narrow so that
// applications can plug in their own sink:
//
//	type Logger interface {
//	    Debug(ctx context.Context, msg string, args ...any)
//	    Info(ctx context.Context, msg string, args ...any)
//	    Warn(ctx context.Context, msg string, args ...any)
//	    Error(ctx context.Context, msg string, args ...any)
//	    With(args ...any) Logger
//	}
//
// Two implementations ship with the package:
//
//	logger := logging.New(nil)            // slog.Default()
//	logger := logging.NewZap(zapLogger)   // go.uber.org/zap
//
// Arguments follow the slog convention of alternating keys and values.
//
// # Secrets
//
// Reencryption private keys and EIP-712 signatures must never reach a log
// sink. Use Redacted to record that a value was intentionally dropped:
//
//	logger.Debug(ctx, "reencrypting", "contract", addr, logging.Redacted("privateKey"))
package logging
