// Package generator fills in a product description and safety notes from a
// name or formula with one call to the Gemini text-generation API.
package generator

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/genai"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"
)

// FailedMessage is the only text a caller ever sees for a failed generation.
const FailedMessage = "Failed to generate product information."

var (
	ErrMissingAPIKey = errors.New("generation api key not configured")
	ErrBadStatus     = errors.New("generation bad status")
	ErrEmptyResponse = errors.New("generation returned no text")
	ErrBadPayload    = errors.New("generation payload does not match schema")
)

// GenerationError hides the underlying cause behind FailedMessage. The cause
// stays reachable through errors.Unwrap for logs and tests.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return FailedMessage }

func (e *GenerationError) Unwrap() error { return e.Err }

// Info is the structured result of a generation call.
type Info struct {
	Description string `json:"description"`
	SafetyInfo  string `json:"safetyInfo"`
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string

	// HTTPClient defaults to a client with an otelhttp transport and no
	// timeout of its own; the caller's context bounds each call.
	HTTPClient *http.Client
}

type Generator struct {
	model     string
	client    *genai.Client
	clientErr error

	log      *zap.Logger
	tracer   trace.Tracer
	requests *prometheus.CounterVec
	inflight singleflight.Group
}

// New builds a generator. A missing API key is logged, not returned: the
// generator still works, every call just fails.
func New(cfg Config, log *zap.Logger, reg *prometheus.Registry) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	g := &Generator{
		model:  cfg.Model,
		log:    log,
		tracer: otel.Tracer("chembase/generator"),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "generator_requests_total",
				Help: "Product info generation calls by result",
			},
			[]string{"result"},
		),
	}
	if reg != nil {
		reg.MustRegister(g.requests)
	}

	if cfg.APIKey == "" {
		log.Warn("API_KEY environment variable not set; product info generation is disabled")
		g.clientErr = ErrMissingAPIKey
		return g
	}
	g.client, g.clientErr = newGeminiClient(cfg)
	if g.clientErr != nil {
		log.Error("gemini client init failed", zap.Error(g.clientErr))
	}
	return g
}

// Generate makes exactly one request for identifier. Concurrent calls for the
// same identifier wait on the request already in flight instead of issuing
// another. The shared request is not tied to any one caller's cancellation;
// each caller stops waiting when its own ctx is done. Every failure is a
// *GenerationError.
func (g *Generator) Generate(ctx context.Context, identifier string) (Info, error) {
	ctx, span := g.tracer.Start(ctx, "Generator.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("product.identifier", identifier))

	fail := func(err error) (Info, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return Info{}, err
	}

	if err := ctx.Err(); err != nil {
		g.requests.WithLabelValues("canceled").Inc()
		return fail(&GenerationError{Err: err})
	}

	shared := context.WithoutCancel(ctx)
	ch := g.inflight.DoChan(identifier, func() (any, error) {
		info, err := g.generate(shared, identifier)
		if err != nil {
			g.requests.WithLabelValues("error").Inc()
			g.log.Error("generate product info failed",
				zap.Error(errors.Unwrap(err)),
				zap.String("identifier", identifier),
			)
			return Info{}, err
		}
		g.requests.WithLabelValues("ok").Inc()
		return info, nil
	})

	select {
	case <-ctx.Done():
		g.requests.WithLabelValues("canceled").Inc()
		return fail(&GenerationError{Err: ctx.Err()})
	case res := <-ch:
		span.SetAttributes(attribute.Bool("generator.shared", res.Shared))
		if res.Err != nil {
			return fail(res.Err)
		}
		return res.Val.(Info), nil
	}
}

func (g *Generator) generate(ctx context.Context, identifier string) (Info, error) {
	if g.clientErr != nil {
		return Info{}, &GenerationError{Err: g.clientErr}
	}

	text, err := g.call(ctx, prompt(identifier))
	if err != nil {
		return Info{}, &GenerationError{Err: err}
	}

	info, err := parseInfo(text)
	if err != nil {
		return Info{}, &GenerationError{Err: err}
	}
	return info, nil
}
