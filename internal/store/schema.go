package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Tables are declared the way ent's generated migrate package declares them
// and applied with ent's schema migrator. Timestamps are unix milliseconds.

const textSize = 2147483647

var (
	// DocumentsColumns holds the columns for the "documents" table.
	DocumentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "owner_id", Type: field.TypeString},
		{Name: "title", Type: field.TypeString},
		{Name: "text", Type: field.TypeString, Size: textSize},
		{Name: "created_at", Type: field.TypeInt64},
	}
	// DocumentsTable holds the schema information for the "documents" table.
	DocumentsTable = &schema.Table{
		Name:       "documents",
		Columns:    DocumentsColumns,
		PrimaryKey: []*schema.Column{DocumentsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "document_owner_id", Columns: []*schema.Column{DocumentsColumns[1]}},
		},
	}

	// ExamsColumns holds the columns for the "exams" table.
	ExamsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "owner_id", Type: field.TypeString},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "document_ids", Type: field.TypeString, Size: textSize},
		{Name: "question_count", Type: field.TypeInt},
		{Name: "created_at", Type: field.TypeInt64},
	}
	// ExamsTable holds the schema information for the "exams" table.
	ExamsTable = &schema.Table{
		Name:       "exams",
		Columns:    ExamsColumns,
		PrimaryKey: []*schema.Column{ExamsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "exam_owner_id", Columns: []*schema.Column{ExamsColumns[1]}},
		},
	}

	// ExamQuestionsColumns holds the columns for the "exam_questions" table.
	ExamQuestionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "exam_id", Type: field.TypeString, Size: 36},
		{Name: "position", Type: field.TypeInt},
		{Name: "text", Type: field.TypeString, Size: textSize},
		{Name: "options", Type: field.TypeString, Size: textSize},
		{Name: "correct_option_id", Type: field.TypeString},
		{Name: "explanation", Type: field.TypeString, Size: textSize},
	}
	// ExamQuestionsTable holds the schema information for the "exam_questions" table.
	ExamQuestionsTable = &schema.Table{
		Name:       "exam_questions",
		Columns:    ExamQuestionsColumns,
		PrimaryKey: []*schema.Column{ExamQuestionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "exam_questions_exams_questions",
				Columns:    []*schema.Column{ExamQuestionsColumns[1]},
				RefColumns: []*schema.Column{ExamsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "examquestion_exam_id_position",
				Unique:  true,
				Columns: []*schema.Column{ExamQuestionsColumns[1], ExamQuestionsColumns[2]},
			},
		},
	}

	// QuotaEntriesColumns holds the columns for the "quota_entries" table.
	QuotaEntriesColumns = []*schema.Column{
		{Name: "bucket_key", Type: field.TypeString, Size: 255},
		{Name: "hits", Type: field.TypeInt64},
		{Name: "window_start", Type: field.TypeInt64},
		{Name: "expires_at", Type: field.TypeInt64},
	}
	// QuotaEntriesTable holds the schema information for the "quota_entries" table.
	QuotaEntriesTable = &schema.Table{
		Name:       "quota_entries",
		Columns:    QuotaEntriesColumns,
		PrimaryKey: []*schema.Column{QuotaEntriesColumns[0]},
		Indexes: []*schema.Index{
			{Name: "quotaentry_expires_at", Columns: []*schema.Column{QuotaEntriesColumns[3]}},
		},
	}

	// LlmRequestEventsColumns holds the columns for the "llm_request_events" table.
	LlmRequestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "created_at", Type: field.TypeInt64},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt},
		{Name: "output_tokens", Type: field.TypeInt},
		{Name: "latency_ms", Type: field.TypeInt64},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: textSize},
		{Name: "request_body", Type: field.TypeString, Size: textSize},
		{Name: "response_body", Type: field.TypeString, Size: textSize},
	}
	// LlmRequestEventsTable holds the schema information for the "llm_request_events" table.
	LlmRequestEventsTable = &schema.Table{
		Name:       "llm_request_events",
		Columns:    LlmRequestEventsColumns,
		PrimaryKey: []*schema.Column{LlmRequestEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmrequestevent_provider", Columns: []*schema.Column{LlmRequestEventsColumns[2]}},
			{Name: "llmrequestevent_purpose", Columns: []*schema.Column{LlmRequestEventsColumns[4]}},
			{Name: "llmrequestevent_created_at", Columns: []*schema.Column{LlmRequestEventsColumns[1]}},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		DocumentsTable,
		ExamsTable,
		ExamQuestionsTable,
		QuotaEntriesTable,
		LlmRequestEventsTable,
	}
)

func init() {
	ExamQuestionsTable.ForeignKeys[0].RefTable = ExamsTable
}
