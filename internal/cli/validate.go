package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/formsession/internal/definition"
	"github.com/roach88/formsession/internal/document"
	"github.com/roach88/formsession/internal/validation"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	DocumentID string             `json:"document_id"`
	Valid      bool               `json:"valid"`
	Summary    validation.Summary `json:"summary"`
	Errors     []validation.Error `json:"errors,omitempty"`
}

// String renders the result for text output.
func (r ValidationResult) String() string {
	if r.Valid {
		return fmt.Sprintf("✓ %s is ready", r.DocumentID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "✗ %s has %d finding(s)", r.DocumentID, r.Summary.Total)
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "\n  %s", e.Error())
	}
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <definition>",
		Short: "Check a document definition for readiness",
		Long: `Load a CUE or YAML document definition and report every validation
finding: missing fields, missing delivery target, empty labels, choice fields
without options, invalid patterns and ranges, bad redirect URLs.

Exit codes:
  0 - Document is ready
  1 - Document has findings
  2 - Definition could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	doc, err := loadDefinition(formatter, path)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Loaded %s (%d field(s)) from %s", doc.ID, len(doc.Fields), path)

	findings := validation.Validate(doc)
	result := ValidationResult{
		DocumentID: doc.ID,
		Valid:      len(findings) == 0,
		Summary:    validation.Summarize(findings),
		Errors:     findings,
	}

	if !result.Valid {
		if opts.Format == "json" {
			if err := formatter.Error(ErrCodeValidation, "document has validation findings", result); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), result)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation finding(s)", len(findings)))
	}
	return formatter.Success(result)
}

// loadDefinition loads a definition, reporting failures through f.
func loadDefinition(f *OutputFormatter, path string) (document.Document, error) {
	doc, err := definition.Load(path)
	if err == nil {
		return doc, nil
	}

	code := ErrCodeDefinition
	if definition.IsLoadError(err, definition.ErrCodeNotFound) {
		code = ErrCodeNotFound
	}
	var details any
	var le *definition.LoadError
	if errors.As(err, &le) && le.Pos.IsValid() {
		details = map[string]any{
			"file":   le.Pos.Filename(),
			"line":   le.Pos.Line(),
			"column": le.Pos.Column(),
		}
	}
	return document.Document{}, f.Fail(ExitCommandError, code, err.Error(), details)
}
