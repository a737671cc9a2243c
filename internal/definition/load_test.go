package definition

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsession/internal/document"
)

func TestLoad_CUE(t *testing.T) {
	doc, err := Load(filepath.Join("testdata", "contact.cue"))
	require.NoError(t, err)

	assert.Equal(t, "contact", doc.ID)
	assert.Equal(t, "Contact us", doc.Title)
	require.Len(t, doc.Fields, 3)
	assert.Equal(t, document.FieldTypeSelect, doc.Fields[2].Type)
	assert.Len(t, doc.Fields[2].Options, 2)
	assert.False(t, doc.Fields[2].Required, "required defaults to false")
	assert.Equal(t, "serif", doc.Design.Custom["font"])
	require.NotNil(t, doc.Behavior.Delivery)
	assert.Equal(t, "webhook", doc.Behavior.Delivery.Kind)
}

func TestLoad_YAMLMatchesCUE(t *testing.T) {
	fromCUE, err := Load(filepath.Join("testdata", "contact.cue"))
	require.NoError(t, err)
	fromYAML, err := Load(filepath.Join("testdata", "contact.yaml"))
	require.NoError(t, err)

	if diff := cmp.Diff(fromCUE, fromYAML); diff != "" {
		t.Errorf("CUE and YAML definitions differ (-cue +yaml):\n%s", diff)
	}
}

func TestLoad_CUEPackageDirectory(t *testing.T) {
	doc, err := Load(filepath.Join("testdata", "pkg"))
	require.NoError(t, err)

	assert.Equal(t, "survey", doc.ID)
	require.Len(t, doc.Fields, 1)
	assert.Equal(t, "Thanks!", doc.Behavior.SuccessMessage)
}

func TestLoad_CUESchemaViolationHasPosition(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "bad_type.cue"))
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeBuildFailed))

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.True(t, le.Pos.IsValid())
}

func TestLoad_YAMLUnknownKey(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "unknown_key.yaml"))
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeDecode))
	assert.Contains(t, err.Error(), "colour")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "missing.cue"))
	assert.True(t, IsLoadError(err, ErrCodeNotFound))

	_, err = Load(filepath.Join("testdata", "notes.txt"))
	assert.True(t, IsLoadError(err, ErrCodeUnsupported))
}

func TestParseCUE(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		code    string
		fieldID string
	}{
		{
			name:    "root value",
			src:     `id: "a", fields: [{id: "f", type: "email", label: "E"}]`,
			fieldID: "f",
		},
		{
			name: "empty id",
			src:  `id: "", fields: []`,
			code: ErrCodeBuildFailed,
		},
		{
			name: "unknown key",
			src:  `id: "a", fields: [], colour: "red"`,
			code: ErrCodeBuildFailed,
		},
		{
			name: "syntax error",
			src:  `id: "a" fields: [`,
			code: ErrCodeBuildFailed,
		},
		{
			name: "non-concrete",
			src:  `id: string, fields: []`,
			code: ErrCodeBuildFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseCUE([]byte(tt.src), "inline.cue")
			if tt.code != "" {
				assert.True(t, IsLoadError(err, tt.code), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.Len(t, doc.Fields, 1)
			assert.Equal(t, tt.fieldID, doc.Fields[0].ID)
		})
	}
}

func TestParseYAML_MissingID(t *testing.T) {
	_, err := ParseYAML(strings.NewReader("fields: []\n"))
	assert.True(t, IsLoadError(err, ErrCodeMissingID))
}

func TestParseYAML_JSONInput(t *testing.T) {
	doc, err := ParseYAML(strings.NewReader(`{"id": "j", "fields": [{"id": "f", "type": "text", "label": "T"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "j", doc.ID)
	assert.Len(t, doc.Fields, 1)
}

func TestLoadError_Format(t *testing.T) {
	err := &LoadError{Code: ErrCodeDecode, Message: "boom"}
	assert.Equal(t, "D005: boom", err.Error())
	assert.False(t, IsLoadError(assert.AnError, ""))
}
