package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/tgwatch/internal/state"
	"github.com/nextlevelbuilder/tgwatch/internal/textutil"
)

func stateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or reset monitor bookkeeping",
	}
	cmd.AddCommand(stateShowCmd())
	cmd.AddCommand(stateResetCmd())
	return cmd
}

func openState() (*state.State, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	st := state.New(statePaths(cfg))
	st.Load()
	return st, nil
}

func stateShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print last run, last seen messages and sent count",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			st, err := openState()
			if err != nil {
				return err
			}

			if lr := st.LastRun(); lr.IsZero() {
				fmt.Println("last run:  never")
			} else {
				fmt.Printf("last run:  %s\n", lr.Format("2006-01-02 15:04:05"))
			}
			fmt.Printf("sent:      %d\n", st.SentCount())

			last := st.LastMessages()
			chats := make([]string, 0, len(last))
			for chat := range last {
				chats = append(chats, chat)
			}
			sort.Strings(chats)
			if len(chats) > 0 {
				fmt.Println()
				fmt.Printf("%s  %s\n", textutil.PadRight("CHAT", 16), "LAST MESSAGE")
				for _, chat := range chats {
					fmt.Printf("%s  %d\n", textutil.PadRight(chat, 16), last[chat])
				}
			}
			return nil
		},
	}
}

func stateResetCmd() *cobra.Command {
	var sent, lastMessages, lastRun bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear persisted records (all of them when no flag is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			if !sent && !lastMessages && !lastRun {
				sent, lastMessages, lastRun = true, true, true
			}
			st, err := openState()
			if err != nil {
				return err
			}

			if sent {
				st.ResetSentMessages()
				if err := st.SaveSentMessages(); err != nil {
					return err
				}
				fmt.Println("sent messages cleared")
			}
			if lastMessages {
				st.ResetLastMessages()
				if err := st.SaveLastMessages(); err != nil {
					return err
				}
				fmt.Println("last messages cleared")
			}
			if lastRun {
				st.ResetLastRun()
				if err := st.SaveLastRun(); err != nil {
					return err
				}
				fmt.Println("last run cleared")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sent, "sent", false, "clear forwarded message hashes")
	cmd.Flags().BoolVar(&lastMessages, "last-messages", false, "clear last seen message IDs")
	cmd.Flags().BoolVar(&lastRun, "last-run", false, "clear the last run time (next start skips backfill)")
	return cmd
}
