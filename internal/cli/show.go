package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/formsession/internal/document"
	"github.com/roach88/formsession/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	DBPath  string
	Version int64
}

// DocumentList is the show output when no ID is given.
type DocumentList struct {
	Documents []store.Info `json:"documents"`
}

// String renders the list for text output.
func (l DocumentList) String() string {
	if len(l.Documents) == 0 {
		return "No documents stored"
	}
	var b strings.Builder
	for i, info := range l.Documents {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s\tv%d\trev %d\t%s\t%s", info.ID, info.Version, info.Revision,
			info.PersistedAt.Format(time.RFC3339), info.Title)
	}
	return b.String()
}

// DocumentView wraps a stored document for output.
type DocumentView struct {
	document.Document
}

// String renders the document for text output.
func (v DocumentView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", v.ID)
	if v.Title != "" {
		fmt.Fprintf(&b, " (%s)", v.Title)
	}
	fmt.Fprintf(&b, "\nrevision %d, persisted %s", v.Revision, v.PersistedAt.Format(time.RFC3339))
	for _, f := range v.Fields {
		req := ""
		if f.Required {
			req = " *"
		}
		fmt.Fprintf(&b, "\n  %-12s %-10s %s%s", f.ID, f.Type, f.Label, req)
	}
	if v.Behavior.Delivery != nil {
		fmt.Fprintf(&b, "\ndelivery: %s", v.Behavior.Delivery.Kind)
	}
	return b.String()
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [document-id]",
		Short: "Show stored documents",
		Long: `List stored documents, or print one document.

With --version, print the document as it was stored at that version.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runShow(opts, id, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "formsession.db", "path to SQLite database")
	cmd.Flags().Int64Var(&opts.Version, "version", 0, "stored version to print (default: latest)")

	return cmd
}

func runShow(opts *ShowOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	defer st.Close()

	if id == "" {
		if opts.Version != 0 {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--version requires a document ID", nil)
		}
		infos, err := st.List(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		return formatter.Success(DocumentList{Documents: infos})
	}

	var doc document.Document
	if opts.Version > 0 {
		doc, err = st.LoadVersion(ctx, id, opts.Version)
	} else {
		doc, err = st.Load(ctx, id)
	}
	if err != nil {
		return storeFailure(formatter, err)
	}
	return formatter.Success(DocumentView{Document: doc})
}

// storeFailure maps a store error to ErrCodeNotFound or ErrCodeStore.
func storeFailure(f *OutputFormatter, err error) error {
	if store.IsNotFound(err) {
		return f.Fail(ExitFailure, ErrCodeNotFound, err.Error(), nil)
	}
	return f.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
}
