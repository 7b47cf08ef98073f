package observability

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// InitLogger points the global zerolog logger at stdout
func InitLogger(serviceName, env string) {
	InitLoggerWithWriter(serviceName, env, os.Stdout)
}

// InitLoggerWithWriter points the global logger at out. Development gets a human readable
// console at debug level; everything else gets JSON lines at info level.
func InitLoggerWithWriter(serviceName, env string, out io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	ctx := zerolog.New(out).With().Timestamp()
	if env == "development" {
		level = zerolog.DebugLevel
		ctx = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Timestamp()
	} else {
		ctx = ctx.Caller()
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = ctx.Str("service", serviceName).Logger()
}

// LoggerFromContext returns the global logger, tagged with trace and span ids when ctx
// carries a sampled span context.
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	logger := log.Logger

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		logger = logger.With().
			Str("trace_id", sc.TraceID().String()).
			Str("span_id", sc.SpanID().String()).
			Logger()
	}
	return &logger
}
