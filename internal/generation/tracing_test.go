package generation

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/abhisek/examgen/internal/llm"
)

// tracedOrchestrator records every ended span of its runs.
func (s *OrchestratorSuite) tracedOrchestrator() (*Orchestrator, *tracetest.SpanRecorder) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	s.T().Cleanup(func() { tp.Shutdown(context.Background()) })

	o := New([]llm.Provider{s.primary, s.fallback}, s.st.DocumentRepo(), s.exams, DefaultConfig(),
		WithTracer(tp.Tracer("test")),
		WithTransitionHook(func(_, to State) { s.states = append(s.states, to) }))
	return o, rec
}

func spanByName(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, sp := range spans {
		if sp.Name() == name {
			return sp
		}
	}
	return nil
}

func eventNames(sp sdktrace.ReadOnlySpan) []string {
	var names []string
	for _, e := range sp.Events() {
		names = append(names, e.Name)
	}
	return names
}

func transitionNames(states []State) []string {
	names := make([]string, len(states))
	for i, st := range states {
		names[i] = st.String()
	}
	return names
}

func (s *OrchestratorSuite) TestSpansFollowStateSequence() {
	s.primary.AddResponse(llm.MockResponse{Err: &llm.ProviderError{Provider: "primary", HTTPStatus: 503, Message: "provider unavailable"}})
	s.fallback.AddResponse(llm.MockResponse{Text: questionsJSON(2)})
	o, rec := s.tracedOrchestrator()

	_, err := o.Generate(context.Background(), s.request(2))
	s.Require().NoError(err)

	spans := rec.Ended()
	root := spanByName(spans, "generation.Generate")
	s.Require().NotNil(root)
	s.Equal(transitionNames(s.states), eventNames(root))
	s.Equal([]string{
		"fetching_source", "prompting", "calling_primary", "calling_fallback",
		"parsing", "persisting", "done",
	}, eventNames(root))
	s.NotEqual(codes.Error, root.Status().Code)

	for _, name := range []string{"generation.FetchSource", "generation.CallProvider", "generation.Persist"} {
		child := spanByName(spans, name)
		s.Require().NotNil(child, name)
		s.Equal(root.SpanContext().SpanID(), child.Parent().SpanID(), name)
	}
}

func (s *OrchestratorSuite) TestAbortedRunMarksSpanFailed() {
	s.primary.AddResponse(llm.MockResponse{Err: &llm.ProviderError{Provider: "primary", Message: "request failed"}})
	s.fallback.AddResponse(llm.MockResponse{Err: &llm.ProviderError{Provider: "fallback", Message: "request failed"}})
	o, rec := s.tracedOrchestrator()

	_, err := o.Generate(context.Background(), s.request(2))
	s.Require().Error(err)

	root := spanByName(rec.Ended(), "generation.Generate")
	s.Require().NotNil(root)
	var transitions []string
	recorded := false
	for _, name := range eventNames(root) {
		if name == "exception" {
			recorded = true
			continue
		}
		transitions = append(transitions, name)
	}
	s.Equal(transitionNames(s.states), transitions)
	s.Equal("aborted", transitions[len(transitions)-1])
	s.True(recorded, "the aborting error is recorded on the span")
	s.Equal(codes.Error, root.Status().Code)
}
