package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/abhisek/examgen/internal/llm"
	"github.com/abhisek/examgen/internal/metrics"
	"github.com/abhisek/examgen/internal/questiongen"
	"github.com/abhisek/examgen/internal/store"
)

// questionsJSON renders n well-formed questions; ids listed in bad get a
// correct option that is not among their options.
func questionsJSON(n int, bad ...int) string {
	badSet := map[int]bool{}
	for _, b := range bad {
		badSet[b] = true
	}
	var qs []map[string]any
	for i := range n {
		correct := "A"
		if badSet[i] {
			correct = "Q"
		}
		qs = append(qs, map[string]any{
			"question": fmt.Sprintf("Question %d?", i+1),
			"options": []map[string]string{
				{"id": "A", "text": "alpha"}, {"id": "B", "text": "beta"},
				{"id": "C", "text": "gamma"}, {"id": "D", "text": "delta"},
			},
			"correctOptionId": correct,
			"explanation":     "Because.",
		})
	}
	b, _ := json.Marshal(map[string]any{"questions": qs})
	return "Here is the exam:\n" + string(b)
}

// examRepoSpy wraps a real ExamRepo to inject failures and count calls.
type examRepoSpy struct {
	store.ExamRepo
	failAdd  error
	creates  atomic.Int32
	deletes  atomic.Int32
	lastExam string
}

func (s *examRepoSpy) CreateExam(ctx context.Context, exam *store.Exam) error {
	s.creates.Add(1)
	err := s.ExamRepo.CreateExam(ctx, exam)
	s.lastExam = exam.ID
	return err
}

func (s *examRepoSpy) AddQuestions(ctx context.Context, examID string, qs []store.ExamQuestion) error {
	if s.failAdd != nil {
		return s.failAdd
	}
	return s.ExamRepo.AddQuestions(ctx, examID, qs)
}

func (s *examRepoSpy) DeleteExam(ctx context.Context, examID string) error {
	s.deletes.Add(1)
	return s.ExamRepo.DeleteExam(ctx, examID)
}

// funcProvider lets a test run code inside a provider call.
type funcProvider struct {
	name string
	fn   func(ctx context.Context) (*llm.Response, error)
}

func (p funcProvider) Generate(ctx context.Context, _ llm.Request) (*llm.Response, error) {
	return p.fn(ctx)
}
func (p funcProvider) Name() string    { return p.name }
func (p funcProvider) ModelID() string { return "func" }

type OrchestratorSuite struct {
	suite.Suite
	st       *store.Store
	exams    *examRepoSpy
	metrics  *metrics.Metrics
	docID    string
	states   []State
	primary  *llm.MockProvider
	fallback *llm.MockProvider
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	st, err := store.Open(store.DriverSQLite, filepath.Join(s.T().TempDir(), "gen.db"))
	s.Require().NoError(err)
	s.T().Cleanup(func() { st.Close() })
	s.st = st
	s.exams = &examRepoSpy{ExamRepo: st.ExamRepo()}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.states = nil
	s.primary = llm.NewNamedMockProvider("primary")
	s.fallback = llm.NewNamedMockProvider("fallback")

	doc := &store.Document{OwnerID: "u1", Title: "Cells", Text: "Mitochondria produce ATP."}
	s.Require().NoError(st.DocumentRepo().CreateDocument(context.Background(), doc))
	s.docID = doc.ID
}

func (s *OrchestratorSuite) orchestrator(cfg Config, providers ...llm.Provider) *Orchestrator {
	if providers == nil {
		providers = []llm.Provider{s.primary, s.fallback}
	}
	return New(providers, s.st.DocumentRepo(), s.exams, cfg,
		WithMetrics(s.metrics),
		WithTransitionHook(func(_, to State) { s.states = append(s.states, to) }))
}

func (s *OrchestratorSuite) request(count int) Request {
	return Request{DocumentIDs: []string{s.docID}, QuestionCount: count, CallerID: "u1"}
}

func (s *OrchestratorSuite) TestHappyPath() {
	s.primary.AddResponse(llm.MockResponse{Text: questionsJSON(5)})

	res, err := s.orchestrator(DefaultConfig()).Generate(context.Background(), s.request(5))
	s.Require().NoError(err)
	s.Equal(5, res.QuestionCount)
	s.Equal("primary", res.Provider)
	s.Zero(s.fallback.CallCount())

	exam, err := s.st.ExamRepo().GetExam(context.Background(), res.ExamID)
	s.Require().NoError(err)
	s.Equal("u1", exam.OwnerID)
	s.Require().Len(exam.Questions, 5)
	for i, q := range exam.Questions {
		s.Equal(i+1, q.Position)
		s.Equal(fmt.Sprintf("Question %d?", i+1), q.Text)
	}

	s.Equal([]State{
		StateFetchingSource, StatePrompting, StateCallingPrimary,
		StateParsing, StatePersisting, StateDone,
	}, s.states)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.GenerationResults.WithLabelValues("success")))

	prompt := s.primary.Calls[0]
	s.Equal(questiongen.SystemPrompt, prompt.System)
	s.Contains(prompt.Prompt, "Mitochondria produce ATP.")
}

func (s *OrchestratorSuite) TestFailoverWithoutRollback() {
	s.primary.AddResponse(llm.MockResponse{Err: &llm.ProviderError{Provider: "primary", HTTPStatus: 503, Message: "provider unavailable"}})
	s.fallback.AddResponse(llm.MockResponse{Text: questionsJSON(3)})

	res, err := s.orchestrator(DefaultConfig()).Generate(context.Background(), s.request(3))
	s.Require().NoError(err)
	s.Equal("fallback", res.Provider)
	s.Equal(3, res.QuestionCount)
	s.Zero(s.exams.deletes.Load())
	s.Contains(s.states, StateCallingFallback)
	s.Equal(StateDone, s.states[len(s.states)-1])
}

func (s *OrchestratorSuite) TestUnparseableReplyFailsOver() {
	s.primary.AddResponse(llm.MockResponse{Text: "I'm sorry, I can't do that."})
	s.fallback.AddResponse(llm.MockResponse{Text: questionsJSON(2)})

	res, err := s.orchestrator(DefaultConfig()).Generate(context.Background(), s.request(2))
	s.Require().NoError(err)
	s.Equal("fallback", res.Provider)
}

func (s *OrchestratorSuite) TestAllProvidersFailed() {
	s.primary.AddResponse(llm.MockResponse{Err: &llm.ProviderError{Provider: "primary", Message: "request failed"}})
	s.fallback.AddResponse(llm.MockResponse{Text: "{not json"})

	_, err := s.orchestrator(DefaultConfig()).Generate(context.Background(), s.request(2))
	var all *AllProvidersFailedError
	s.Require().ErrorAs(err, &all)
	s.Len(all.Errors, 2)

	var pe *llm.ProviderError
	s.ErrorAs(all.Errors[0], &pe)
	var parseErr *questiongen.ParseError
	s.ErrorAs(all.Errors[1], &parseErr)

	s.Zero(s.exams.creates.Load())
	s.Equal(StateAborted, s.states[len(s.states)-1])
	s.Equal(1.0, testutil.ToFloat64(s.metrics.GenerationResults.WithLabelValues("providers_failed")))
}

func (s *OrchestratorSuite) TestMissingPrimaryKeyFailsOver() {
	cfg := llm.DefaultConfig()
	cfg.OpenAI.APIKey = "sk-test"
	chain, err := llm.NewChain(context.Background(), cfg, nil, nil, nil)
	s.Require().NoError(err)
	s.fallback.AddResponse(llm.MockResponse{Text: questionsJSON(1)})

	res, err := s.orchestrator(DefaultConfig(), chain[0], s.fallback).Generate(context.Background(), s.request(1))
	s.Require().NoError(err)
	s.Equal("fallback", res.Provider)
}

func (s *OrchestratorSuite) TestCombinedProviderTimeout() {
	s.primary.AddResponse(llm.MockResponse{Text: questionsJSON(1), Delay: time.Second})
	s.fallback.AddResponse(llm.MockResponse{Text: questionsJSON(1), Delay: time.Second})

	cfg := DefaultConfig()
	cfg.ProviderTimeout = 30 * time.Millisecond

	start := time.Now()
	_, err := s.orchestrator(cfg).Generate(context.Background(), s.request(1))
	s.Less(time.Since(start), 900*time.Millisecond)

	var all *AllProvidersFailedError
	s.Require().ErrorAs(err, &all)
	s.ErrorIs(err, context.DeadlineExceeded)
}

func (s *OrchestratorSuite) TestCallerGoneBeforeFallback() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	primary := funcProvider{name: "primary", fn: func(context.Context) (*llm.Response, error) {
		cancel()
		return nil, &llm.ProviderError{Provider: "primary", Message: "request failed"}
	}}

	_, err := s.orchestrator(DefaultConfig(), primary, s.fallback).Generate(ctx, s.request(1))
	s.ErrorIs(err, context.Canceled)
	s.Zero(s.fallback.CallCount())
}

func (s *OrchestratorSuite) TestNoPersistenceAfterDisconnect() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	primary := funcProvider{name: "primary", fn: func(context.Context) (*llm.Response, error) {
		cancel()
		return &llm.Response{Text: questionsJSON(2)}, nil
	}}

	_, err := s.orchestrator(DefaultConfig(), primary, s.fallback).Generate(ctx, s.request(2))
	s.ErrorIs(err, context.Canceled)
	s.Zero(s.exams.creates.Load())
}

func (s *OrchestratorSuite) TestEmptySourceSkipsProviders() {
	empty := &store.Document{OwnerID: "u1", Text: "   \n\t "}
	s.Require().NoError(s.st.DocumentRepo().CreateDocument(context.Background(), empty))

	req := Request{DocumentIDs: []string{empty.ID, "missing"}, QuestionCount: 3, CallerID: "u1"}
	_, err := s.orchestrator(DefaultConfig()).Generate(context.Background(), req)

	var es *EmptySourceError
	s.Require().ErrorAs(err, &es)
	s.Zero(s.primary.CallCount())
	s.Zero(s.fallback.CallCount())
}

func (s *OrchestratorSuite) TestOtherOwnersDocumentsAreSkipped() {
	other := &store.Document{OwnerID: "u2", Text: "Secret notes."}
	s.Require().NoError(s.st.DocumentRepo().CreateDocument(context.Background(), other))
	s.primary.AddResponse(llm.MockResponse{Text: questionsJSON(1)})

	req := Request{DocumentIDs: []string{other.ID, s.docID}, QuestionCount: 1, CallerID: "u1"}
	_, err := s.orchestrator(DefaultConfig()).Generate(context.Background(), req)
	s.Require().NoError(err)
	s.NotContains(s.primary.Calls[0].Prompt, "Secret notes.")
}

func (s *OrchestratorSuite) TestSourcesJoinedInRequestOrder() {
	second := &store.Document{OwnerID: "u1", Text: "Ribosomes build proteins."}
	s.Require().NoError(s.st.DocumentRepo().CreateDocument(context.Background(), second))
	s.primary.AddResponse(llm.MockResponse{Text: questionsJSON(1)})

	req := Request{DocumentIDs: []string{second.ID, s.docID}, QuestionCount: 1, CallerID: "u1"}
	_, err := s.orchestrator(DefaultConfig()).Generate(context.Background(), req)
	s.Require().NoError(err)
	s.Contains(s.primary.Calls[0].Prompt, "Ribosomes build proteins.\n\nMitochondria produce ATP.")
}

func (s *OrchestratorSuite) TestNoValidQuestions() {
	s.primary.AddResponse(llm.MockResponse{Text: questionsJSON(2, 0, 1)})

	_, err := s.orchestrator(DefaultConfig()).Generate(context.Background(), s.request(2))
	var nq *NoQuestionsGeneratedError
	s.Require().ErrorAs(err, &nq)
	s.Equal(2, nq.Dropped)
	s.Zero(s.fallback.CallCount())
}

func (s *OrchestratorSuite) TestPartialDropAndTrim() {
	s.primary.AddResponse(llm.MockResponse{Text: questionsJSON(10, 3, 7)})

	res, err := s.orchestrator(DefaultConfig()).Generate(context.Background(), s.request(5))
	s.Require().NoError(err)
	s.Equal(5, res.QuestionCount)
	s.Equal(2, res.Dropped)
	s.Equal(2.0, testutil.ToFloat64(s.metrics.DroppedQuestions))

	exam, err := s.st.ExamRepo().GetExam(context.Background(), res.ExamID)
	s.Require().NoError(err)
	s.Len(exam.Questions, 5)
	s.Equal(5, exam.QuestionCount)
}

func (s *OrchestratorSuite) TestFewerQuestionsThanRequested() {
	s.primary.AddResponse(llm.MockResponse{Text: questionsJSON(3)})

	res, err := s.orchestrator(DefaultConfig()).Generate(context.Background(), s.request(10))
	s.Require().NoError(err)
	s.Equal(3, res.QuestionCount)
}

func (s *OrchestratorSuite) TestRollbackOnQuestionWriteFailure() {
	s.exams.failAdd = errors.New("disk full")
	s.primary.AddResponse(llm.MockResponse{Text: questionsJSON(2)})

	_, err := s.orchestrator(DefaultConfig()).Generate(context.Background(), s.request(2))
	var pe *PersistenceError
	s.Require().ErrorAs(err, &pe)
	s.Equal(s.exams.lastExam, pe.ExamID)
	s.Equal(int32(1), s.exams.deletes.Load())

	_, err = s.st.ExamRepo().GetExam(context.Background(), pe.ExamID)
	s.ErrorIs(err, store.ErrNotFound)
}

func TestInvalidRequests(t *testing.T) {
	o := New(nil, nil, nil, Config{MaxQuestions: 10})
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"zero count", Request{DocumentIDs: []string{"d"}, QuestionCount: 0, CallerID: "u"}, "questionCount"},
		{"negative count", Request{DocumentIDs: []string{"d"}, QuestionCount: -1, CallerID: "u"}, "questionCount"},
		{"too many", Request{DocumentIDs: []string{"d"}, QuestionCount: 11, CallerID: "u"}, "questionCount"},
		{"no documents", Request{QuestionCount: 1, CallerID: "u"}, "documentIds"},
		{"blank document", Request{DocumentIDs: []string{" "}, QuestionCount: 1, CallerID: "u"}, "documentIds"},
		{"no caller", Request{DocumentIDs: []string{"d"}, QuestionCount: 1}, "callerId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Generate(context.Background(), tt.req)
			var ir *InvalidRequestError
			require.ErrorAs(t, err, &ir)
			assert.Equal(t, tt.field, ir.Field)
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "calling_fallback", StateCallingFallback.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.True(t, StateAborted.Terminal())
	assert.False(t, StateParsing.Terminal())
}
