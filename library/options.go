package library

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "lending-library/library"

// settings are shared by the catalog, member and loan components.
type settings struct {
	now    func() time.Time
	logger Logger
	tracer trace.Tracer
}

// Option configures a CatalogManager, MemberManager or LoanEngine.
type Option func(*settings)

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(logger Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer used for loan operation spans. The default is
// the global OpenTelemetry provider's tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *settings) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		now:    time.Now,
		logger: discardLogger(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s settings) today() time.Time { return dateOf(s.now()) }
