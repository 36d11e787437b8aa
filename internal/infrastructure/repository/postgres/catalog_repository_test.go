package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/physai/textbook-rag/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*CatalogRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &CatalogRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetSectionRefResolvesTitles(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "title", "id", "title"}).
		AddRow("01-nodes-topics", "Nodes and Topics", "module-01-ros2", "ROS2 Fundamentals")
	mock.ExpectQuery("SELECT s.id, s.title, m.id, m.title").
		WithArgs("01-nodes-topics").
		WillReturnRows(rows)

	ref, err := repo.GetSectionRef(context.Background(), "01-nodes-topics")
	if err != nil {
		t.Fatalf("GetSectionRef() error = %v", err)
	}
	if ref.SectionTitle != "Nodes and Topics" || ref.ModuleTitle != "ROS2 Fundamentals" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetSectionRefMissingRowReportsInconsistency(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT s.id, s.title, m.id, m.title").
		WithArgs("ghost-section").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetSectionRef(context.Background(), "ghost-section")
	if !domain.IsKind(err, domain.ErrCatalogInconsistency) {
		t.Fatalf("expected ErrCatalogInconsistency, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetSectionRefConnectivityFailureReportsUnavailable(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT s.id, s.title, m.id, m.title").
		WithArgs("01-nodes-topics").
		WillReturnError(sql.ErrConnDone)

	_, err := repo.GetSectionRef(context.Background(), "01-nodes-topics")
	if !domain.IsKind(err, domain.ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListSectionsScansMetadata(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	grade := 9.5
	rows := sqlmock.NewRows([]string{"id", "module_id", "title", "word_count", "flesch_kincaid_grade", "created_at", "updated_at"}).
		AddRow("01-nodes-topics", "module-01-ros2", "Nodes and Topics", 1800, grade, now, now).
		AddRow("02-services", "module-01-ros2", "Services", 1200, nil, now, now)
	mock.ExpectQuery("SELECT s.id, s.module_id, s.title, s.word_count").
		WillReturnRows(rows)

	sections, err := repo.ListSections(context.Background())
	if err != nil {
		t.Fatalf("ListSections() error = %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].ReadabilityGrade == nil || *sections[0].ReadabilityGrade != grade {
		t.Fatalf("expected readability grade %v, got %+v", grade, sections[0].ReadabilityGrade)
	}
	if sections[1].ReadabilityGrade != nil {
		t.Fatalf("expected nil readability grade, got %v", *sections[1].ReadabilityGrade)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListSectionChunksDecodesMetadata(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "section_id", "chunk_index", "text", "word_count", "start_char_offset", "end_char_offset", "metadata"}).
		AddRow("chunk-1", "01-nodes-topics", 0, "Topics enable pub/sub.", 4, 0, 22, []byte(`{"heading":"Topics"}`)).
		AddRow("chunk-2", "01-nodes-topics", 1, "Nodes are processes.", 3, 23, 43, []byte(`{}`))
	mock.ExpectQuery("SELECT id, section_id, chunk_index, text").
		WithArgs("01-nodes-topics").
		WillReturnRows(rows)

	chunks, err := repo.ListSectionChunks(context.Background(), "01-nodes-topics")
	if err != nil {
		t.Fatalf("ListSectionChunks() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Metadata["heading"] != "Topics" {
		t.Fatalf("unexpected metadata: %+v", chunks[0].Metadata)
	}
	if chunks[1].ChunkIndex != 1 {
		t.Fatalf("expected chunk order by index, got %+v", chunks[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLogQueryInsertsRow(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO chat_queries").
		WithArgs("query-1", "How do ROS topics work?", nil, nil, 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.LogQuery(context.Background(), &domain.QueryLog{
		ID:        "query-1",
		QueryText: "How do ROS topics work?",
		TopK:      3,
	})
	if err != nil {
		t.Fatalf("LogQuery() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLogResponseMarshalsEnvelopeAsJSON(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO chat_responses").
		WithArgs("resp-1", "query-1", "Topics enable pub/sub.", sqlmock.AnyArg(), sqlmock.AnyArg(), 0.82, int64(40), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.LogResponse(context.Background(), &domain.ResponseLog{
		ID:           "resp-1",
		QueryID:      "query-1",
		ResponseText: "Topics enable pub/sub.",
		RetrievedChunks: []domain.RetrievedChunk{
			{ChunkID: "chunk-1", SectionID: "01-nodes-topics", SimilarityScore: 0.82, Rank: 1},
		},
		Citations: []domain.Citation{
			{SectionID: "01-nodes-topics", URL: "/docs/module-01-ros2/01-nodes-topics"},
		},
		Confidence:   0.82,
		GenerationMS: 40,
	})
	if err != nil {
		t.Fatalf("LogResponse() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPingFailureReportsCatalogUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	repo := &CatalogRepository{db: db}

	mock.ExpectPing().WillReturnError(sql.ErrConnDone)

	if err := repo.Ping(context.Background()); !domain.IsKind(err, domain.ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}
