package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int    // max results (0 = unlimited)
	Purpose string // exact match, empty = any
	Failed  bool   // only unsuccessful calls
}

// Document is a registered source text owned by one user.
type Document struct {
	ID        string
	OwnerID   string
	Title     string
	Text      string
	CreatedAt time.Time
}

// Exam is a generated question set. Questions are ordered by Position,
// which runs 1..N.
type Exam struct {
	ID            string
	OwnerID       string
	Provider      string
	Model         string
	DocumentIDs   []string
	QuestionCount int
	CreatedAt     time.Time
	Questions     []ExamQuestion
}

// ExamQuestion is one persisted multiple-choice question.
type ExamQuestion struct {
	Position        int
	Text            string
	Options         []QuestionOption
	CorrectOptionID string
	Explanation     string
}

// QuestionOption is a single answer choice.
type QuestionOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// DocumentRepo stores source documents.
type DocumentRepo interface {
	CreateDocument(ctx context.Context, doc *Document) error

	// FetchText returns the text of docID if ownerID owns it, and
	// ErrNotFound otherwise.
	FetchText(ctx context.Context, docID, ownerID string) (string, error)
}

// ExamRepo stores exams and their questions. Exam headers and questions are
// written separately so callers can compensate a failed question write by
// deleting the header.
type ExamRepo interface {
	CreateExam(ctx context.Context, exam *Exam) error

	// AddQuestions writes all questions in one transaction, numbering them
	// 1..N in slice order.
	AddQuestions(ctx context.Context, examID string, questions []ExamQuestion) error

	// DeleteExam removes the exam and its questions. Deleting a missing exam
	// is not an error.
	DeleteExam(ctx context.Context, examID string) error

	// GetExam returns the exam with ordered questions, or ErrNotFound.
	GetExam(ctx context.Context, examID string) (*Exam, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM call.
type LLMRequestEvent struct {
	ID        int
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates calls grouped by purpose or model.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to LLM call events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns nil when id does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)

	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}
