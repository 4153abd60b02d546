package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/tgwatch/internal/journal"
	"github.com/nextlevelbuilder/tgwatch/internal/textutil"
)

func journalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Manage the local post journal",
	}
	cmd.AddCommand(journalChatsCmd())
	cmd.AddCommand(journalPruneCmd())
	cmd.AddCommand(journalStatusCmd())
	return cmd
}

func journalStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the journal schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			ctx := cmd.Context()
			j, err := openJournal(ctx)
			if err != nil {
				return err
			}
			defer j.Close()

			s, err := j.Status(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("schema: %s\n", s)
			return nil
		},
	}
}

func openJournal(ctx context.Context) (*journal.Journal, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return journal.Open(ctx, cfg.JournalPath())
}

func journalChatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List chats the bot has seen",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			ctx := cmd.Context()
			j, err := openJournal(ctx)
			if err != nil {
				return err
			}
			defer j.Close()

			chats, err := j.Chats(ctx)
			if err != nil {
				return err
			}
			if len(chats) == 0 {
				fmt.Println("No chats recorded yet. Add the bot to your channels and run `tgwatch`.")
				return nil
			}
			fmt.Printf("%s  %s  %s  %s\n",
				textutil.PadRight("ID", 16), textutil.PadRight("KIND", 8),
				textutil.PadRight("USERNAME", 20), "TITLE")
			for _, c := range chats {
				user := ""
				if c.Username != "" {
					user = "@" + c.Username
				}
				fmt.Printf("%s  %s  %s  %s\n",
					textutil.PadRight(fmt.Sprint(c.ID), 16), textutil.PadRight(c.Kind, 8),
					textutil.PadRight(user, 20), textutil.Preview(c.Title, 48))
			}
			return nil
		},
	}
}

func journalPruneCmd() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete journaled posts older than a duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			ctx := cmd.Context()
			j, err := openJournal(ctx)
			if err != nil {
				return err
			}
			defer j.Close()

			n, err := j.Prune(ctx, time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Printf("pruned %d posts\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 720*time.Hour, "age threshold")
	return cmd
}
