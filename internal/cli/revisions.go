package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/formsession/internal/store"
)

// RevisionLog is the output of the revisions command.
type RevisionLog struct {
	DocumentID string           `json:"document_id"`
	Revisions  []store.Revision `json:"revisions"`
}

// String renders the log for text output.
func (l RevisionLog) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d version(s)", l.DocumentID, len(l.Revisions))
	for _, r := range l.Revisions {
		hash := r.ContentHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		fmt.Fprintf(&b, "\n  v%-4d rev %-6d %s  %s", r.Version, r.Revision, hash, r.PersistedAt.Format(time.RFC3339))
	}
	return b.String()
}

// NewRevisionsCommand creates the revisions command.
func NewRevisionsCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "revisions <document-id>",
		Short: "List the stored versions of a document",
		Long: `Print the revision log of a document, oldest first. Each persisted
change is one version; saves with unchanged content do not add a version.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)

			st, err := store.Open(dbPath)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
			}
			defer st.Close()

			revs, err := st.ListRevisions(cmd.Context(), args[0])
			if err != nil {
				return storeFailure(formatter, err)
			}
			if len(revs) == 0 {
				return formatter.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("no revisions for %s", args[0]), nil)
			}
			return formatter.Success(RevisionLog{DocumentID: args[0], Revisions: revs})
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "formsession.db", "path to SQLite database")

	return cmd
}
