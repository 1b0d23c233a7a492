package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abhisek/examgen/internal/generation"
	"github.com/abhisek/examgen/internal/httputil"
	"github.com/abhisek/examgen/internal/identity"
	"github.com/abhisek/examgen/internal/store"
)

const (
	maxGenerateBody = 64 << 10
	maxDocumentBody = 5 << 20
)

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	DocumentIDs   []string `json:"documentIds"`
	QuestionCount int      `json:"questionCount"`
	CallerID      string   `json:"callerId"`
}

// GenerateResponse is the body of a successful POST /generate.
type GenerateResponse struct {
	ExamID        string `json:"examId"`
	QuestionCount int    `json:"questionCount"`
}

// CreateDocumentRequest is the body of POST /documents.
type CreateDocumentRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// CreateDocumentResponse is the body of a successful POST /documents.
type CreateDocumentResponse struct {
	DocumentID string `json:"documentId"`
}

// ExamResponse is the body of GET /exams/{id}.
type ExamResponse struct {
	ExamID        string             `json:"examId"`
	Provider      string             `json:"provider"`
	Model         string             `json:"model"`
	DocumentIDs   []string           `json:"documentIds"`
	QuestionCount int                `json:"questionCount"`
	CreatedAt     time.Time          `json:"createdAt"`
	Questions     []QuestionResponse `json:"questions"`
}

// QuestionResponse is one stored question.
type QuestionResponse struct {
	Position        int                    `json:"position"`
	Question        string                 `json:"question"`
	Options         []store.QuestionOption `json:"options"`
	CorrectOptionID string                 `json:"correctOptionId"`
	Explanation     string                 `json:"explanation,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := identity.SubjectFrom(ctx)

	var req GenerateRequest
	if !decodeJSON(w, r, maxGenerateBody, &req) {
		return
	}
	if req.CallerID != "" && req.CallerID != subject {
		s.logger.WarnContext(ctx, "caller id does not match token subject",
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.String("subject", subject))
		httputil.WriteError(w, http.StatusUnauthorized, "callerId does not match the authenticated user")
		return
	}

	res, err := s.deps.Generator.Generate(ctx, generation.Request{
		DocumentIDs:   req.DocumentIDs,
		QuestionCount: req.QuestionCount,
		CallerID:      req.CallerID,
	})
	if err != nil {
		s.writeGenerationError(w, r, err)
		return
	}

	s.logger.InfoContext(ctx, "exam generated",
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.String("exam_id", res.ExamID),
		slog.String("provider", res.Provider),
		slog.Int("question_count", res.QuestionCount),
		slog.Int("dropped", res.Dropped))
	httputil.WriteJSON(w, http.StatusOK, GenerateResponse{ExamID: res.ExamID, QuestionCount: res.QuestionCount})
}

// writeGenerationError maps orchestrator errors to status codes. Upstream
// details stay in the log.
func (s *Server) writeGenerationError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid *generation.InvalidRequestError
		empty   *generation.EmptySourceError
	)
	switch {
	case errors.As(err, &invalid):
		httputil.WriteError(w, http.StatusBadRequest, invalid.Error())
		return
	case errors.As(err, &empty):
		httputil.WriteError(w, http.StatusBadRequest, "referenced documents contain no text")
		return
	}

	s.logger.ErrorContext(r.Context(), "exam generation failed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Any("error", err))
	httputil.WriteError(w, http.StatusInternalServerError, "exam generation failed")
}

func (s *Server) handleGetExam(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	exam, err := s.deps.Exams.GetExam(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) || (err == nil && exam.OwnerID != identity.SubjectFrom(ctx)) {
		httputil.WriteError(w, http.StatusNotFound, "exam not found")
		return
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "load exam failed",
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.Any("error", err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load exam")
		return
	}

	resp := ExamResponse{
		ExamID:        exam.ID,
		Provider:      exam.Provider,
		Model:         exam.Model,
		DocumentIDs:   exam.DocumentIDs,
		QuestionCount: exam.QuestionCount,
		CreatedAt:     exam.CreatedAt,
		Questions:     make([]QuestionResponse, len(exam.Questions)),
	}
	for i, q := range exam.Questions {
		resp.Questions[i] = QuestionResponse{
			Position:        q.Position,
			Question:        q.Text,
			Options:         q.Options,
			CorrectOptionID: q.CorrectOptionID,
			Explanation:     q.Explanation,
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateDocumentRequest
	if !decodeJSON(w, r, maxDocumentBody, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		httputil.WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	doc := &store.Document{
		OwnerID: identity.SubjectFrom(ctx),
		Title:   strings.TrimSpace(req.Title),
		Text:    req.Text,
	}
	if err := s.deps.Documents.CreateDocument(ctx, doc); err != nil {
		s.logger.ErrorContext(ctx, "create document failed",
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.Any("error", err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to store document")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, CreateDocumentResponse{DocumentID: doc.ID})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON reads a size-limited JSON body into v, writing 400 on
// failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
