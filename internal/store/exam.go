package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

type examRepo struct {
	s *Store
}

// ExamRepo returns an ExamRepo backed by this store.
func (s *Store) ExamRepo() ExamRepo {
	return &examRepo{s: s}
}

func (r *examRepo) CreateExam(ctx context.Context, exam *Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = time.Now().UTC()
	}
	docIDs, err := json.Marshal(exam.DocumentIDs)
	if err != nil {
		return fmt.Errorf("encode document ids: %w", err)
	}

	query, args := r.s.builder().Insert(ExamsTable.Name).
		Columns("id", "owner_id", "provider", "model", "document_ids", "question_count", "created_at").
		Values(exam.ID, exam.OwnerID, exam.Provider, exam.Model, string(docIDs), exam.QuestionCount, exam.CreatedAt.UnixMilli()).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}
	return nil
}

func (r *examRepo) AddQuestions(ctx context.Context, examID string, questions []ExamQuestion) error {
	if len(questions) == 0 {
		return errors.New("add questions: empty question set")
	}

	insert := r.s.builder().Insert(ExamQuestionsTable.Name).
		Columns("exam_id", "position", "text", "options", "correct_option_id", "explanation")
	for i, q := range questions {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options for question %d: %w", i+1, err)
		}
		insert.Values(examID, i+1, q.Text, string(opts), q.CorrectOptionID, q.Explanation)
	}
	query, args := insert.Query()

	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}

	update, uargs := r.s.builder().Update(ExamsTable.Name).
		Set("question_count", len(questions)).
		Where(entsql.EQ("id", examID)).
		Query()
	res, err := tx.ExecContext(ctx, update, uargs...)
	if err != nil {
		return fmt.Errorf("update question count: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("add questions to exam %s: %w", examID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit questions: %w", err)
	}
	return nil
}

func (r *examRepo) DeleteExam(ctx context.Context, examID string) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Children first.
	for _, q := range []struct {
		table, column string
	}{
		{ExamQuestionsTable.Name, "exam_id"},
		{ExamsTable.Name, "id"},
	} {
		query, args := r.s.builder().Delete(q.table).Where(entsql.EQ(q.column, examID)).Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete from %s: %w", q.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (r *examRepo) GetExam(ctx context.Context, examID string) (*Exam, error) {
	query, args := r.s.builder().
		Select("id", "owner_id", "provider", "model", "document_ids", "question_count", "created_at").
		From(entsql.Table(ExamsTable.Name)).
		Where(entsql.EQ("id", examID)).
		Query()

	var (
		e         Exam
		docIDs    string
		createdAt int64
	)
	err := r.s.db.QueryRowContext(ctx, query, args...).
		Scan(&e.ID, &e.OwnerID, &e.Provider, &e.Model, &docIDs, &e.QuestionCount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get exam %s: %w", examID, err)
	}
	e.CreatedAt = time.UnixMilli(createdAt).UTC()
	if err := json.Unmarshal([]byte(docIDs), &e.DocumentIDs); err != nil {
		return nil, fmt.Errorf("decode document ids: %w", err)
	}

	questions, err := r.questions(ctx, examID)
	if err != nil {
		return nil, err
	}
	e.Questions = questions
	return &e, nil
}

func (r *examRepo) questions(ctx context.Context, examID string) ([]ExamQuestion, error) {
	query, args := r.s.builder().
		Select("position", "text", "options", "correct_option_id", "explanation").
		From(entsql.Table(ExamQuestionsTable.Name)).
		Where(entsql.EQ("exam_id", examID)).
		OrderBy("position").
		Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []ExamQuestion
	for rows.Next() {
		var (
			q    ExamQuestion
			opts string
		)
		if err := rows.Scan(&q.Position, &q.Text, &opts, &q.CorrectOptionID, &q.Explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
