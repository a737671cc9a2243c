package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsession/internal/document"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"documents", "revisions"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	if err == nil {
		t.Error("Open() should fail for a path in a missing directory")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.verifyPragma(tt.name, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestSchema_Columns(t *testing.T) {
	s := openTestStore(t)

	docCols := getTableColumns(t, s.db, "documents")
	for _, col := range []string{"id", "title", "body", "content_hash", "revision", "version", "persisted_at"} {
		if !slices.Contains(docCols, col) {
			t.Errorf("documents missing column %q", col)
		}
	}

	revCols := getTableColumns(t, s.db, "revisions")
	for _, col := range []string{"seq", "document_id", "version", "content_hash", "revision", "body", "persisted_at"} {
		if !slices.Contains(revCols, col) {
			t.Errorf("revisions missing column %q", col)
		}
	}
}

func TestMigration_SchemaVersion(t *testing.T) {
	s := openTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("query user_version: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("user_version = %d, expected %d", version, len(migrations))
	}

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_revisions_document_seq'",
	).Scan(&name)
	if err != nil {
		t.Errorf("revision index missing: %v", err)
	}
}

func TestSave_InsertAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	doc := testDocument()

	require.NoError(t, s.Save(ctx, doc))

	got, err := s.Load(ctx, doc.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_FullReplace(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := testDocument()
	require.NoError(t, s.Save(ctx, first))

	second := testDocument()
	second.Fields = second.Fields[:1]
	second.Design = document.Design{}
	second.Revision = 9
	second.PersistedAt = first.PersistedAt.Add(time.Minute)
	require.NoError(t, s.Save(ctx, second))

	got, err := s.Load(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, got.Fields, 1)
	assert.Empty(t, got.Design.Custom)
	assert.Equal(t, int64(9), got.Revision)
}

func TestSave_UnchangedContentIsNoop(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	doc := testDocument()

	require.NoError(t, s.Save(ctx, doc))

	// Same content, new bookkeeping: still a no-op.
	retry := doc.Clone()
	retry.Revision++
	retry.PersistedAt = doc.PersistedAt.Add(time.Second)
	require.NoError(t, s.Save(ctx, retry))

	revs, err := s.ListRevisions(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, revs, 1)

	infos, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, int64(1), infos[0].Version)
	assert.True(t, infos[0].PersistedAt.Equal(doc.PersistedAt))
}

func TestSave_AppendsRevisions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	doc := testDocument()

	require.NoError(t, s.Save(ctx, doc))
	doc.Title = "Second"
	doc.Revision = 2
	require.NoError(t, s.Save(ctx, doc))
	doc.Title = "Third"
	doc.Revision = 3
	require.NoError(t, s.Save(ctx, doc))

	revs, err := s.ListRevisions(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, revs, 3)
	for i, r := range revs {
		assert.Equal(t, int64(i+1), r.Version)
		assert.Equal(t, doc.ID, r.DocumentID)
		if i > 0 {
			assert.Greater(t, r.Seq, revs[i-1].Seq)
			assert.NotEqual(t, revs[i-1].ContentHash, r.ContentHash)
		}
	}

	v1, err := s.LoadVersion(ctx, doc.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Contact", v1.Title)

	hash, err := document.Hash(doc)
	require.NoError(t, err)
	assert.Equal(t, hash, revs[2].ContentHash)
}

func TestSave_StampsZeroPersistedAt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	doc := testDocument()
	doc.PersistedAt = time.Time{}

	before := time.Now().Add(-time.Second)
	require.NoError(t, s.Save(ctx, doc))

	got, err := s.Load(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, got.PersistedAt.After(before))
}

func TestSave_MissingID(t *testing.T) {
	s := openTestStore(t)
	doc := testDocument()
	doc.ID = ""

	err := s.Save(context.Background(), doc)
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestLoad_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Load(context.Background(), "nope")
	assert.True(t, IsNotFound(err))

	_, err = s.LoadVersion(context.Background(), "nope", 1)
	assert.True(t, IsNotFound(err))
}

func TestList_OrderedByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	empty, err := s.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, id := range []string{"form-b", "form-a", "form-c"} {
		doc := testDocument()
		doc.ID = id
		require.NoError(t, s.Save(ctx, doc))
	}

	infos, err := s.List(ctx)
	require.NoError(t, err)
	ids := make([]string, len(infos))
	for i, info := range infos {
		ids[i] = info.ID
	}
	assert.Equal(t, []string{"form-a", "form-b", "form-c"}, ids)
}

func TestDelete_CascadesRevisions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	doc := testDocument()

	require.NoError(t, s.Save(ctx, doc))
	require.NoError(t, s.Delete(ctx, doc.ID))

	revs, err := s.ListRevisions(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, revs)

	assert.True(t, IsNotFound(s.Delete(ctx, doc.ID)))
}

func TestSave_ReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()
	doc := testDocument()

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Save(ctx, doc))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Load(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Title, got.Title)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testDocument() document.Document {
	return document.Document{
		ID:    "form-1",
		Title: "Contact",
		Fields: []document.Field{
			{ID: "name", Type: document.FieldTypeText, Label: "Name", Required: true, Order: 0},
			{ID: "email", Type: document.FieldTypeEmail, Label: "Email", Order: 1},
		},
		Design: document.Design{
			Theme:  "light",
			Custom: map[string]string{"font": "serif"},
		},
		Behavior: document.Behavior{
			SubmitLabel: "Send",
			Delivery:    &document.Delivery{Kind: "webhook", Target: "https://example.com/hook"},
		},
		PersistedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Revision:    1,
	}
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("table_info(%s): %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			t.Fatalf("scan column: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}
