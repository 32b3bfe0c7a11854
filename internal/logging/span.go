package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span represents a logical unit of work within a request.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
}

// StartSpan derives a child span from the provided context, enriching the
// request logger with the span metadata. It returns the derived context and
// the span handle.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx).With(
		slog.String("span_id", uuid.NewString()),
		slog.String("span_name", name),
	)
	ctx = WithLogger(ctx, logger)

	return ctx, &Span{
		name:   name,
		logger: logger,
		start:  time.Now(),
	}
}

// End finalizes the span and emits a completion log entry.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.logger.Info("span completed", slog.Duration("duration", time.Since(s.start)))
}
