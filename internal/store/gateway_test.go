package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsession/internal/document"
	"github.com/roach88/formsession/internal/logging"
	"github.com/roach88/formsession/internal/session"
	"github.com/roach88/formsession/internal/status"
	"github.com/roach88/formsession/internal/store"
	"github.com/roach88/formsession/internal/testutil"
)

func TestStore_AsSessionGateway(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "forms.db"))
	require.NoError(t, err)
	defer st.Close()

	clk := testutil.NewFakeClock()
	doc := document.Document{
		ID:     "form-1",
		Fields: []document.Field{{ID: "f1", Type: document.FieldTypeText, Label: "Name"}},
	}
	s, err := session.New(st, doc,
		session.WithClock(clk),
		session.WithLogger(logging.Discard()),
		session.WithIDGenerator(document.NewSequenceGenerator("")),
	)
	require.NoError(t, err)

	_, err = s.ApplyMutation(document.UpdateField(document.Field{ID: "f1", Label: "Full name"}))
	require.NoError(t, err)
	clk.Advance(2 * time.Second)
	assert.Equal(t, status.Saved, s.Status().State)

	_, err = s.ApplyMutation(document.AddField(document.Field{Type: document.FieldTypeEmail, Label: "Email"}))
	require.NoError(t, err)
	require.NoError(t, s.Close(context.Background()))

	ctx := context.Background()
	got, err := st.Load(ctx, "form-1")
	require.NoError(t, err)
	require.Len(t, got.Fields, 2)
	assert.Equal(t, "Full name", got.Fields[0].Label)
	assert.Equal(t, "field-1", got.Fields[1].ID)

	revs, err := st.ListRevisions(ctx, "form-1")
	require.NoError(t, err)
	assert.Len(t, revs, 2)
}
