package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newTopicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Manage research topics",
		Long: `Manage research topics: named groupings of sections and tags
that support centroid-based recommendation.`,
	}

	cmd.AddCommand(newTopicsCreateCmd())
	cmd.AddCommand(newTopicsListCmd())
	cmd.AddCommand(newTopicsUpdateCmd())
	cmd.AddCommand(newTopicsAddDocCmd())
	cmd.AddCommand(newTopicsRemoveDocCmd())
	cmd.AddCommand(newTopicsLinkTagCmd())
	cmd.AddCommand(newTopicsRecommendCmd())
	cmd.AddCommand(newTopicsDeleteCmd())

	return cmd
}

func newTopicsCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a research topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			topic, err := a.store.Topics.Create(ctx, args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created topic %d: %s\n", topic.ID, topic.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Topic description")
	return cmd
}

func newTopicsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List research topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			topics, err := a.store.Topics.List(ctx)
			if err != nil {
				return err
			}
			if len(topics) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No topics")
				return nil
			}
			for _, t := range topics {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s", t.ID, t.Name)
				if t.Description != "" {
					fmt.Fprintf(cmd.OutOrStdout(), " - %s", t.Description)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
}

func newTopicsUpdateCmd() *cobra.Command {
	var (
		name        string
		description string
	)

	cmd := &cobra.Command{
		Use:   "update <topic_id>",
		Short: "Rename a topic or change its description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topicID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid topic id %q", args[0])
			}
			if name == "" && !cmd.Flags().Changed("description") {
				return fmt.Errorf("provide --name or --description")
			}

			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			topic, err := a.store.Topics.GetByID(ctx, topicID)
			if err != nil {
				return err
			}
			if name == "" {
				name = topic.Name
			}
			if !cmd.Flags().Changed("description") {
				description = topic.Description
			}

			if err := a.store.Topics.Update(ctx, topicID, name, description); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated topic %d: %s\n", topicID, name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "New topic name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New topic description")
	return cmd
}

func newTopicsAddDocCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "add-doc <topic_id> <document_id>",
		Aliases: []string{"add"},
		Short:   "Attach a document's sections to a topic",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			topicID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid topic id %q", args[0])
			}
			documentID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid document id %q", args[1])
			}

			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.Topics.AddDocument(ctx, topicID, documentID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added document %d to topic %d\n", documentID, topicID)
			return nil
		},
	}
}

func newTopicsRemoveDocCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-doc <topic_id> <document_id>",
		Short: "Detach a document's sections from a topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			topicID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid topic id %q", args[0])
			}
			documentID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid document id %q", args[1])
			}

			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.Topics.RemoveDocument(ctx, topicID, documentID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed document %d from topic %d\n", documentID, topicID)
			return nil
		},
	}
}

func newTopicsLinkTagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link-tag <topic_id> <tag_id>",
		Short: "Associate a tag with a topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			topicID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid topic id %q", args[0])
			}
			tagID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid tag id %q", args[1])
			}

			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.Topics.LinkTag(ctx, topicID, tagID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Linked tag %d to topic %d\n", tagID, topicID)
			return nil
		},
	}
}

func newTopicsRecommendCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recommend <topic_id>",
		Short: "Recommend sections similar to a topic",
		Long: `Recommend sections similar to a topic by searching with the
centroid of the topic's linked section embeddings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topicID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid topic id %q", args[0])
			}

			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			centroid, err := a.store.Topics.Centroid(ctx, topicID)
			if err != nil {
				return err
			}
			if centroid == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Topic has no embedded sections yet")
				return nil
			}

			hits, err := a.store.Vectors.Search(ctx, centroid, limit, 0, nil)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recommendations")
				return nil
			}
			for i, h := range hits {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s (section %d, similarity: %.4f)\n",
					i+1, h.Title, h.SectionID, h.Similarity)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of recommendations")
	return cmd
}

func newTopicsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <topic_id>",
		Short: "Delete a research topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topicID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid topic id %q", args[0])
			}

			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.Topics.Delete(ctx, topicID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted topic %d\n", topicID)
			return nil
		},
	}
}
