package cli

import (
	"github.com/spf13/cobra"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved story",
		Long: `Delete the story with the given id from the local store.

Deleting an id that does not exist succeeds. An id that is not a number
is rejected.

Examples:
  taleweaver delete 3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runDelete(cmd *cobra.Command, opts *RootOptions, id string) error {
	app, out, err := opts.start(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Stories.DeleteByID(cmd.Context(), id); err != nil {
		return fail(out, "failed to delete story", err)
	}

	if out.Format == "json" {
		return out.Success(map[string]string{"deleted": id})
	}
	out.Printf("Deleted story %s\n", id)
	return nil
}
