package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/tgwatch/internal/journal"
	"github.com/nextlevelbuilder/tgwatch/internal/monitor"
	"github.com/nextlevelbuilder/tgwatch/internal/state"
	"github.com/nextlevelbuilder/tgwatch/internal/telegram"
)

func doctorCmd() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, journal and channel access",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor(cmd.Context(), offline)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "skip Telegram API checks")
	return cmd
}

func runDoctor(ctx context.Context, offline bool) {
	fmt.Println("tgwatch doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println("  Config problems:")
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Printf("    - %s\n", line)
		}
	}

	fmt.Println()
	fmt.Println("  Monitor:")
	fmt.Printf("    %-12s %s\n", "Token:", maskSecret(cfg.Telegram.Token))
	fmt.Printf("    %-12s %s\n", "Target:", orNone(string(cfg.Monitor.Target)))
	fmt.Printf("    %-12s %d\n", "Channels:", len(cfg.Monitor.Channels))
	fmt.Printf("    %-12s %s\n", "Keywords:", orNone(strings.Join(cfg.Monitor.Keywords, ", ")))
	if cfg.Monitor.PollSchedule != "" {
		fmt.Printf("    %-12s %s\n", "Schedule:", cfg.Monitor.PollSchedule)
	} else {
		fmt.Printf("    %-12s %s\n", "Interval:", cfg.Monitor.Interval())
	}

	fmt.Println()
	fmt.Println("  State:")
	st := state.New(statePaths(cfg))
	st.Load()
	if lr := st.LastRun(); lr.IsZero() {
		fmt.Printf("    %-12s never\n", "Last run:")
	} else {
		fmt.Printf("    %-12s %s (%s ago)\n", "Last run:", lr.Format("2006-01-02 15:04:05"), time.Since(lr).Round(time.Second))
	}
	fmt.Printf("    %-12s %d\n", "Sent:", st.SentCount())

	fmt.Println()
	fmt.Println("  Journal:")
	fmt.Printf("    %-12s %s\n", "Path:", cfg.JournalPath())
	j, err := journal.Open(ctx, cfg.JournalPath())
	if err != nil {
		fmt.Printf("    %-12s OPEN FAILED (%s)\n", "Status:", err)
		return
	}
	defer j.Close()
	if s, err := j.Status(ctx); err != nil {
		fmt.Printf("    %-12s CHECK FAILED (%s)\n", "Schema:", err)
	} else {
		fmt.Printf("    %-12s %s\n", "Schema:", s)
	}
	if chats, err := j.Chats(ctx); err == nil {
		fmt.Printf("    %-12s %d\n", "Chats seen:", len(chats))
	}

	if offline || cfg.Telegram.Token == "" {
		fmt.Println()
		fmt.Println("Doctor check complete.")
		return
	}

	fmt.Println()
	fmt.Println("  Telegram:")
	client, err := telegram.New(cfg.Telegram, j)
	if err != nil {
		fmt.Printf("    %-12s FAILED (%s)\n", "Bot:", err)
		return
	}
	fmt.Printf("    %-12s @%s\n", "Bot:", client.Username())

	resolver := monitor.NewResolver(client)
	checkRef(ctx, resolver, "target", string(cfg.Monitor.Target))
	for _, ref := range cfg.Monitor.Channels {
		checkRef(ctx, resolver, "channel", ref)
	}

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func checkRef(ctx context.Context, r *monitor.Resolver, label, ref string) {
	if ref == "" {
		return
	}
	peer, ok := r.Resolve(ctx, ref)
	if !ok {
		fmt.Printf("    %-8s %s (NOT FOUND)\n", label, ref)
		return
	}
	fmt.Printf("    %-8s %s -> %d %s %q\n", label, ref, peer.ID, peer.Kind, peer.Title)
}

func maskSecret(s string) string {
	if s == "" {
		return "(not configured)"
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
