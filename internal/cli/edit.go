package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/formsession/internal/document"
	"github.com/roach88/formsession/internal/history"
	"github.com/roach88/formsession/internal/metrics"
	"github.com/roach88/formsession/internal/scheduler"
	"github.com/roach88/formsession/internal/session"
	"github.com/roach88/formsession/internal/status"
	"github.com/roach88/formsession/internal/store"
)

// EditOptions holds flags for the edit command.
type EditOptions struct {
	*RootOptions
	DBPath       string
	Debounce     time.Duration
	FlushTimeout time.Duration
	HistoryDepth int
	Script       string
	Fresh        bool // ignore the stored copy and start from the definition
	Metrics      bool // dump session metrics to stderr when done
}

// EditScript is the YAML input of edit --script.
type EditScript struct {
	Steps []ScriptStep `yaml:"steps"`
}

// ScriptStep is one scripted action: a mutation (kind set), undo, redo,
// save, or a wall-clock wait that lets the debounce timer fire.
type ScriptStep struct {
	document.Mutation `yaml:",inline"`

	Undo bool          `yaml:"undo,omitempty"`
	Redo bool          `yaml:"redo,omitempty"`
	Save bool          `yaml:"save,omitempty"`
	Wait time.Duration `yaml:"wait,omitempty"`
}

// EditResult is the outcome of an edit run.
type EditResult struct {
	DocumentID string          `json:"document_id"`
	Revision   int64           `json:"revision"`
	Applied    int             `json:"applied"`
	Rejected   []string        `json:"rejected,omitempty"`
	Status     status.Snapshot `json:"status"`
	Findings   int             `json:"findings"`
	Versions   int             `json:"versions"`
}

// String renders the result for text output.
func (r EditResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d edit(s) applied, status %s, %d stored version(s)",
		r.DocumentID, r.Applied, r.Status.State, r.Versions)
	for _, msg := range r.Rejected {
		fmt.Fprintf(&b, "\n  rejected: %s", msg)
	}
	if r.Findings > 0 {
		fmt.Fprintf(&b, "\n  %d validation finding(s); run validate for details", r.Findings)
	}
	return b.String()
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "edit <definition>",
		Short: "Run an editing session against the database",
		Long: `Open an editing session for a document and apply a script of edits.

The session starts from the stored copy of the document when one exists
(use --fresh to start from the definition instead). Edits are debounced and
persisted through the SQLite store; closing the session flushes anything
still pending.

Script format (YAML):

  steps:
    - {kind: update_field, field_id: name, field: {label: "Full name"}}
    - {kind: add_field, field: {type: email, label: Email}}
    - wait: 3s
    - undo: true
    - save: true

Exit codes:
  0 - All edits persisted
  1 - Edits could not be persisted
  2 - Command error (bad definition, database or script)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "formsession.db", "path to SQLite database")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", scheduler.DefaultDelay, "debounce delay before persisting")
	cmd.Flags().DurationVar(&opts.FlushTimeout, "flush-timeout", 10*time.Second, "bound on a debounced database write (0 for none)")
	cmd.Flags().IntVar(&opts.HistoryDepth, "history-depth", history.DefaultMaxDepth, "number of undo steps kept")
	cmd.Flags().StringVar(&opts.Script, "script", "", "YAML script of edits to apply")
	cmd.Flags().BoolVar(&opts.Fresh, "fresh", false, "start from the definition even if a stored copy exists")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print session metrics to stderr")

	return cmd
}

func runEdit(opts *EditOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	doc, err := loadDefinition(formatter, path)
	if err != nil {
		return err
	}

	var script EditScript
	if opts.Script != "" {
		script, err = readScript(opts.Script)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeScript, err.Error(), nil)
		}
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	defer st.Close()

	if !opts.Fresh {
		stored, err := st.Load(ctx, doc.ID)
		switch {
		case err == nil:
			formatter.VerboseLog("Resuming %s from stored revision %d", doc.ID, stored.Revision)
			doc = stored
		case !store.IsNotFound(err):
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
	}

	reg := prometheus.NewRegistry()
	sess, err := session.New(st, doc,
		session.WithDebounce(opts.Debounce),
		session.WithFlushTimeout(opts.FlushTimeout),
		session.WithHistoryDepth(opts.HistoryDepth),
		session.WithLogger(opts.logger()),
		session.WithMetrics(metrics.New(reg)),
	)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	result := EditResult{DocumentID: doc.ID}
	for i, step := range script.Steps {
		applied, err := runScriptStep(ctx, sess, step)
		logTransitions(formatter, sess.Events())
		if err != nil {
			msg := fmt.Sprintf("steps[%d]: %v", i, err)
			formatter.VerboseLog("%s", msg)
			result.Rejected = append(result.Rejected, msg)
			continue
		}
		if applied {
			result.Applied++
		}
	}

	err = sess.Close(ctx)
	logTransitions(formatter, sess.Events())
	if err != nil {
		_ = sess.Close(ctx, session.WithDiscard())
		return formatter.Fail(ExitFailure, ErrCodeUnsaved, err.Error(), sess.Status())
	}

	final := sess.Document()
	result.Revision = final.Revision
	result.Status = sess.Status()
	result.Findings = len(sess.ValidationErrors())
	revs, err := st.ListRevisions(ctx, doc.ID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	result.Versions = len(revs)

	if opts.Metrics {
		if err := writeMetrics(formatter.GetErrWriter(), reg); err != nil {
			return err
		}
	}
	return formatter.Success(result)
}

// runScriptStep executes one step. applied reports whether the document
// changed.
func runScriptStep(ctx context.Context, sess *session.Session, step ScriptStep) (applied bool, err error) {
	switch {
	case step.Kind != "":
		_, err := sess.ApplyMutation(step.Mutation)
		return err == nil, err
	case step.Undo:
		_, ok, err := sess.Undo()
		return ok, err
	case step.Redo:
		_, ok, err := sess.Redo()
		return ok, err
	case step.Save:
		return false, sess.SaveNow(ctx)
	case step.Wait > 0:
		select {
		case <-time.After(step.Wait):
			return false, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	default:
		return false, fmt.Errorf("empty step")
	}
}

// logTransitions empties the session's transition feed, echoing each entry
// in verbose mode.
func logTransitions(formatter *OutputFormatter, feed *session.Feed) {
	for _, tr := range feed.Drain() {
		if tr.Reason != "" {
			formatter.VerboseLog("status %s -> %s (%s: %s)", tr.From, tr.To, tr.Trigger, tr.Reason)
		} else {
			formatter.VerboseLog("status %s -> %s (%s)", tr.From, tr.To, tr.Trigger)
		}
	}
}

func readScript(path string) (EditScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EditScript{}, fmt.Errorf("read script: %w", err)
	}
	var script EditScript
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&script); err != nil && err != io.EOF {
		return EditScript{}, fmt.Errorf("parse script: %w", err)
	}
	return script, nil
}

// writeMetrics prints every gathered metric family in the Prometheus text
// format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
