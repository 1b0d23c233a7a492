// Package generation runs one exam generation: fetch source documents,
// prompt the provider chain with failover, parse the reply and persist the
// exam.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/examgen/internal/llm"
	"github.com/abhisek/examgen/internal/metrics"
	"github.com/abhisek/examgen/internal/questiongen"
	"github.com/abhisek/examgen/internal/store"
)

const (
	tracerName = "github.com/abhisek/examgen/internal/generation"
	purpose    = "exam-generation"
)

// Request asks for QuestionCount questions about the caller's documents.
type Request struct {
	DocumentIDs   []string
	QuestionCount int
	CallerID      string
}

// Result describes a persisted exam. QuestionCount may be lower than
// requested when the model returned fewer valid questions.
type Result struct {
	ExamID        string
	QuestionCount int
	Provider      string
	Dropped       int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for state transitions and warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics records run outcomes and dropped questions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithTransitionHook is called on every state change of every run.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(o *Orchestrator) { o.onTransition = fn }
}

// Orchestrator generates and stores exams. It is safe for concurrent use;
// runs share nothing but their collaborators.
type Orchestrator struct {
	providers    []llm.Provider
	docs         store.DocumentRepo
	exams        store.ExamRepo
	cfg          Config
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	onTransition func(from, to State)
}

// New creates an Orchestrator that tries providers in order.
func New(providers []llm.Provider, docs store.DocumentRepo, exams store.ExamRepo, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		providers: providers,
		docs:      docs,
		exams:     exams,
		cfg:       cfg.withDefaults(),
		logger:    slog.New(slog.DiscardHandler),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run tracks the state of a single Generate call.
type run struct {
	o     *Orchestrator
	req   Request
	state State
	span  trace.Span
}

func (r *run) transition(ctx context.Context, next State) {
	prev := r.state
	r.state = next
	r.span.AddEvent(next.String())
	r.o.logger.DebugContext(ctx, "generation state",
		slog.String("from", prev.String()),
		slog.String("to", next.String()),
		slog.String("caller_id", r.req.CallerID))
	if r.o.onTransition != nil {
		r.o.onTransition(prev, next)
	}
}

// attempt is a provider reply that parsed.
type attempt struct {
	provider llm.Provider
	resp     *llm.Response
	parsed   questiongen.ParseResult
}

// Generate runs the full pipeline. No step is retried; a new exam is
// created on every successful call.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (res *Result, err error) {
	ctx, span := o.tracer.Start(ctx, "generation.Generate", trace.WithAttributes(
		attribute.Int("exam.question_count", req.QuestionCount),
		attribute.Int("exam.document_count", len(req.DocumentIDs)),
	))
	r := &run{o: o, req: req, span: span}

	defer func() {
		if err != nil {
			r.transition(ctx, StateAborted)
			span.RecordError(err)
			span.SetStatus(codes.Error, "generation aborted")
			o.metrics.GenerationResult(outcome(err))
		} else {
			o.metrics.GenerationResult("success")
		}
		span.End()
	}()

	if err := o.validate(req); err != nil {
		return nil, err
	}

	r.transition(ctx, StateFetchingSource)
	source, err := o.fetchSource(ctx, req)
	if err != nil {
		return nil, err
	}

	r.transition(ctx, StatePrompting)
	prompt := questiongen.BuildPrompt(source, req.QuestionCount, o.cfg.MaxSourceChars)

	a, err := o.callProviders(ctx, r, prompt)
	if err != nil {
		return nil, err
	}

	questions := a.parsed.Questions
	if len(questions) == 0 {
		return nil, &NoQuestionsGeneratedError{Provider: a.provider.Name(), Dropped: a.parsed.Dropped}
	}
	if a.parsed.Dropped > 0 {
		o.metrics.Dropped(a.parsed.Dropped)
		o.logger.InfoContext(ctx, "dropped invalid questions",
			slog.String("provider", a.provider.Name()),
			slog.Int("dropped", a.parsed.Dropped),
			slog.Any("reasons", a.parsed.DropReasons))
	}
	if len(questions) > req.QuestionCount {
		questions = questions[:req.QuestionCount]
	}

	r.transition(ctx, StatePersisting)
	examID, err := o.persist(ctx, req, a, questions)
	if err != nil {
		return nil, err
	}

	r.transition(ctx, StateDone)
	span.SetAttributes(
		attribute.String("exam.id", examID),
		attribute.String("exam.provider", a.provider.Name()),
	)
	return &Result{
		ExamID:        examID,
		QuestionCount: len(questions),
		Provider:      a.provider.Name(),
		Dropped:       a.parsed.Dropped,
	}, nil
}

func (o *Orchestrator) validate(req Request) error {
	switch {
	case strings.TrimSpace(req.CallerID) == "":
		return &InvalidRequestError{Field: "callerId", Reason: "is required"}
	case len(req.DocumentIDs) == 0:
		return &InvalidRequestError{Field: "documentIds", Reason: "must not be empty"}
	case req.QuestionCount <= 0:
		return &InvalidRequestError{Field: "questionCount", Reason: "must be positive"}
	case req.QuestionCount > o.cfg.MaxQuestions:
		return &InvalidRequestError{Field: "questionCount", Reason: fmt.Sprintf("must be at most %d", o.cfg.MaxQuestions)}
	}
	for _, id := range req.DocumentIDs {
		if strings.TrimSpace(id) == "" {
			return &InvalidRequestError{Field: "documentIds", Reason: "must not contain blank ids"}
		}
	}
	return nil
}

// fetchSource loads every document concurrently and joins the texts in
// request order. Documents the caller cannot see are skipped.
func (o *Orchestrator) fetchSource(ctx context.Context, req Request) (string, error) {
	ctx, span := o.tracer.Start(ctx, "generation.FetchSource")
	defer span.End()

	texts := make([]string, len(req.DocumentIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.FetchConcurrency)

	for i, id := range req.DocumentIDs {
		g.Go(func() error {
			text, err := o.docs.FetchText(gctx, id, req.CallerID)
			if errors.Is(err, store.ErrNotFound) {
				o.logger.WarnContext(ctx, "source document not found",
					slog.String("document_id", id),
					slog.String("caller_id", req.CallerID))
				return nil
			}
			if err != nil {
				return fmt.Errorf("fetch document %s: %w", id, err)
			}
			texts[i] = strings.TrimSpace(text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return "", err
	}

	var parts []string
	for _, t := range texts {
		if t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", &EmptySourceError{DocumentIDs: req.DocumentIDs}
	}
	return strings.Join(parts, "\n\n"), nil
}

// callProviders tries each provider in order under one combined timeout.
// A call error or an unparseable reply moves on to the next provider.
func (o *Orchestrator) callProviders(ctx context.Context, r *run, prompt string) (*attempt, error) {
	pctx, cancel := context.WithTimeout(llm.WithPurpose(ctx, purpose), o.cfg.ProviderTimeout)
	defer cancel()

	req := llm.Request{
		System:      questiongen.SystemPrompt,
		Prompt:      prompt,
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	}

	var errs []error
	for i, p := range o.providers {
		if i == 0 {
			r.transition(ctx, StateCallingPrimary)
		} else {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			r.transition(ctx, StateCallingFallback)
		}

		a, err := o.callOne(pctx, r, p, req)
		if err != nil {
			o.logger.WarnContext(ctx, "provider attempt failed",
				slog.String("provider", p.Name()),
				slog.Int("attempt", i+1),
				slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		return a, nil
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no providers configured"))
	}
	return nil, &AllProvidersFailedError{Errors: errs}
}

func (o *Orchestrator) callOne(ctx context.Context, r *run, p llm.Provider, req llm.Request) (*attempt, error) {
	ctx, span := o.tracer.Start(ctx, "generation.CallProvider",
		trace.WithAttributes(attribute.String("llm.provider", p.Name())))
	defer span.End()

	resp, err := p.Generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")
		return nil, err
	}

	r.transition(ctx, StateParsing)
	parsed, err := questiongen.Parse(resp.Text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unparseable reply")
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}
	return &attempt{provider: p, resp: resp, parsed: parsed}, nil
}

// persist writes the exam header, then its questions. A failed question
// write deletes the header again.
func (o *Orchestrator) persist(ctx context.Context, req Request, a *attempt, questions []questiongen.Question) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ctx, span := o.tracer.Start(ctx, "generation.Persist")
	defer span.End()

	model := a.resp.Model
	if model == "" {
		model = a.provider.ModelID()
	}
	exam := &store.Exam{
		OwnerID:       req.CallerID,
		Provider:      a.provider.Name(),
		Model:         model,
		DocumentIDs:   req.DocumentIDs,
		QuestionCount: len(questions),
	}
	if err := o.exams.CreateExam(ctx, exam); err != nil {
		span.RecordError(err)
		return "", &PersistenceError{Op: "create exam", Err: err}
	}

	if err := o.exams.AddQuestions(ctx, exam.ID, toExamQuestions(questions)); err != nil {
		span.RecordError(err)
		if derr := o.exams.DeleteExam(context.WithoutCancel(ctx), exam.ID); derr != nil {
			o.logger.ErrorContext(ctx, "compensating exam delete failed",
				slog.String("exam_id", exam.ID),
				slog.Any("error", derr))
		}
		return "", &PersistenceError{Op: "add questions", ExamID: exam.ID, Err: err}
	}
	return exam.ID, nil
}

func toExamQuestions(qs []questiongen.Question) []store.ExamQuestion {
	out := make([]store.ExamQuestion, len(qs))
	for i, q := range qs {
		opts := make([]store.QuestionOption, len(q.Options))
		for j, opt := range q.Options {
			opts[j] = store.QuestionOption{ID: opt.ID, Text: opt.Text}
		}
		out[i] = store.ExamQuestion{
			Position:        i + 1,
			Text:            q.Text,
			Options:         opts,
			CorrectOptionID: q.CorrectOptionID,
			Explanation:     q.Explanation,
		}
	}
	return out
}

// outcome labels a failed run for metrics.
func outcome(err error) string {
	var (
		invalid   *InvalidRequestError
		empty     *EmptySourceError
		allFailed *AllProvidersFailedError
		noQ       *NoQuestionsGeneratedError
		persist   *PersistenceError
	)
	switch {
	case errors.As(err, &invalid):
		return "invalid_request"
	case errors.As(err, &empty):
		return "empty_source"
	case errors.As(err, &allFailed):
		return "providers_failed"
	case errors.As(err, &noQ):
		return "no_questions"
	case errors.As(err, &persist):
		return "persistence_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "error"
}
