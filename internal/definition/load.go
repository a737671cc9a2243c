package definition

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/formsession/internal/document"
)

//go:embed schema.cue
var schemaCUE string

// Error codes.
const (
	ErrCodeNotFound    = "D001" // Path not found
	ErrCodeUnsupported = "D002" // Unknown file extension
	ErrCodeLoadFailed  = "D003" // CUE load failed
	ErrCodeBuildFailed = "D004" // CUE build or schema unification failed
	ErrCodeDecode      = "D005" // Decoding into a document failed
	ErrCodeMissingID   = "D006" // Document has no id
)

// LoadError describes a definition that could not be loaded.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsLoadError reports whether err is a *LoadError with the given code.
// An empty code matches any LoadError.
func IsLoadError(err error, code string) bool {
	var le *LoadError
	if !errors.As(err, &le) {
		return false
	}
	return code == "" || le.Code == code
}

// Load reads a document definition from path, choosing the format by
// extension. A directory is loaded as a CUE package.
func Load(path string) (document.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return document.Document{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definition not found: %v", err)}
	}
	if info.IsDir() {
		return loadCUEDir(path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		data, err := os.ReadFile(path)
		if err != nil {
			return document.Document{}, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
		}
		return ParseCUE(data, path)
	case ".yaml", ".yml", ".json":
		f, err := os.Open(path)
		if err != nil {
			return document.Document{}, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
		}
		defer f.Close()
		return ParseYAML(f)
	default:
		return document.Document{}, &LoadError{
			Code:    ErrCodeUnsupported,
			Message: fmt.Sprintf("unsupported definition format %q (want .cue, .yaml, .yml or .json)", filepath.Ext(path)),
		}
	}
}

// ParseCUE compiles CUE source and decodes the document it defines.
// filename is used for error positions only.
func ParseCUE(src []byte, filename string) (document.Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return decodeCUE(ctx, v)
}

func loadCUEDir(dir string) (document.Document, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return document.Document{}, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return document.Document{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}
	ctx := cuecontext.New()
	return decodeCUE(ctx, ctx.BuildInstance(inst))
}

func decodeCUE(ctx *cue.Context, v cue.Value) (document.Document, error) {
	if err := v.Err(); err != nil {
		return document.Document{}, formatCUEError(err, ErrCodeBuildFailed)
	}

	if docVal := v.LookupPath(cue.ParsePath("document")); docVal.Exists() {
		v = docVal
	}

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return document.Document{}, fmt.Errorf("compile definition schema: %w", err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Document")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return document.Document{}, formatCUEError(err, ErrCodeBuildFailed)
	}

	// Round-trip through JSON so document's json tags and time parsing apply.
	data, err := unified.MarshalJSON()
	if err != nil {
		return document.Document{}, formatCUEError(err, ErrCodeDecode)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc document.Document
	if err := dec.Decode(&doc); err != nil {
		return document.Document{}, &LoadError{Code: ErrCodeDecode, Message: err.Error(), Pos: unified.Pos()}
	}
	return doc, nil
}

// ParseYAML decodes a document from YAML (or JSON) input. Unknown keys are
// an error.
func ParseYAML(r io.Reader) (document.Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document.Document
	if err := dec.Decode(&doc); err != nil {
		return document.Document{}, &LoadError{Code: ErrCodeDecode, Message: err.Error()}
	}
	if doc.ID == "" {
		return document.Document{}, &LoadError{Code: ErrCodeMissingID, Message: "document id is required"}
	}
	return doc, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error, code string) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}

	first := errs[0]
	le := &LoadError{Code: code, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
