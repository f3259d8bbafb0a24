package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wasmbridge/internal/journal"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Limit int
}

// JournalListing is the output of the journal command.
type JournalListing struct {
	Total   int64           `json:"total"`
	Entries []journal.Entry `json:"entries"`
}

func (l JournalListing) String() string {
	var b strings.Builder
	for _, e := range l.Entries {
		fmt.Fprintf(&b, "%d\ttick=%d\t%s\t%s\n", e.Seq, e.Tick, shortDigest(e.Digest), e.Body)
	}
	fmt.Fprintf(&b, "%d of %d deliveries", len(l.Entries), l.Total)
	return b.String()
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal <db>",
		Short: "List payloads recorded by run --journal",
		Long: `List the deliveries recorded in a journal database, oldest first.

Each entry shows its sequence number, the tick it was delivered on, the
payload digest and the canonical JSON body.

Example:
  wasmbridge journal ./deliveries.db
  wasmbridge journal ./deliveries.db --limit 5 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(cmd, opts, args[0])
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "show at most n entries (0 = all)")

	return cmd
}

func runJournal(cmd *cobra.Command, opts *JournalOptions, path string) error {
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "limit must not be negative")
	}

	// Opening creates the database; a typo should not leave an empty journal behind.
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}

	j, err := journal.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	ctx := cmd.Context()
	entries, err := j.List(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	total, err := j.Count(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	return opts.formatter(cmd).Success(JournalListing{Total: total, Entries: entries})
}
