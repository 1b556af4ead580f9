package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newTagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage the tag hierarchy",
	}

	cmd.AddCommand(newTagsListCmd())
	cmd.AddCommand(newTagsPathCmd())
	cmd.AddCommand(newTagsMoveCmd())
	cmd.AddCommand(newTagsDeleteCmd())

	return cmd
}

func newTagsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			tags, err := a.store.Tags.List(ctx)
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tags")
				return nil
			}
			for _, t := range tags {
				if t.ParentID != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%d. %s (parent: %d)\n", t.ID, t.Name, *t.ParentID)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", t.ID, t.Name)
				}
			}
			return nil
		},
	}
}

func newTagsPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <tag_id>",
		Short: "Show a tag's ancestor path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tagID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid tag id %q", args[0])
			}

			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			path, err := a.store.Tags.Path(ctx, tagID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newTagsMoveCmd() *cobra.Command {
	var detach bool

	cmd := &cobra.Command{
		Use:   "move <tag_id> [new_parent_id]",
		Short: "Move a tag under a new parent",
		Long: `Move a tag under a new parent, or detach it to the root with
--detach. Moves that would create a cycle are rejected.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tagID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid tag id %q", args[0])
			}

			var newParent *int64
			switch {
			case detach:
			case len(args) == 2:
				parentID, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid parent id %q", args[1])
				}
				newParent = &parentID
			default:
				return fmt.Errorf("provide a new parent id or --detach")
			}

			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.Tags.MoveTo(ctx, tagID, newParent); err != nil {
				return err
			}
			if newParent != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Moved tag %d under %d\n", tagID, *newParent)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Detached tag %d\n", tagID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&detach, "detach", false, "Detach the tag to the root")
	return cmd
}

func newTagsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <tag_id>",
		Short: "Delete a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tagID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid tag id %q", args[0])
			}

			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.Tags.Delete(ctx, tagID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted tag %d\n", tagID)
			return nil
		},
	}
}
