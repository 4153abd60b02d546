package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/tgwatch/internal/matcher"
)

func matchCmd() *cobra.Command {
	var keywords []string
	cmd := &cobra.Command{
		Use:   "match <text>",
		Short: "Test text against the configured keywords",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			if len(keywords) == 0 {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				keywords = cfg.Monitor.Keywords
			}
			if len(keywords) == 0 {
				return fmt.Errorf("no keywords configured")
			}

			text := strings.Join(args, " ")
			m := matcher.New(keywords)
			res := m.Match(text)

			fmt.Printf("cleaned:  %s\n", strings.ToLower(matcher.Clean(text)))
			if !res.Matched() {
				fmt.Println("no match")
				return nil
			}
			fmt.Printf("matched:  %s\n", strings.Join(res.Keywords, ", "))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&keywords, "keyword", "k", nil, "keyword to test (overrides config, repeatable)")
	return cmd
}
