package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/tgwatch/internal/config"
)

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Interactive setup wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnboard()
		},
	}
}

// runOnboard asks for the essentials and writes config.json. The bot token
// goes to the dotenv file, never to the config.
func runOnboard() error {
	cfgPath := resolveConfigPath()
	cfg, token := onboardDefaults(cfgPath, envFile)

	var (
		target   = string(cfg.Monitor.Target)
		channels = strings.Join(cfg.Monitor.Channels, "\n")
		keywords = strings.Join(cfg.Monitor.Keywords, ", ")
		backfill = cfg.Monitor.BackfillEnabled()
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bot token").
				Description("From @BotFather. Stored in " + envFile + ", not in the config.").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(required("token")),
			huh.NewInput().
				Title("Destination chat").
				Description("Numeric ID, @handle, t.me link or exact title.").
				Value(&target).
				Validate(required("destination")),
		),
		huh.NewGroup(
			huh.NewText().
				Title("Channels to watch").
				Description("One per line: t.me link, @handle, numeric ID or exact title.").
				Value(&channels).
				Validate(required("channels")),
			huh.NewInput().
				Title("Keywords").
				Description("Comma separated, matched as whole words.").
				Value(&keywords).
				Validate(required("keywords")),
			huh.NewConfirm().
				Title("Scan posts missed while stopped?").
				Value(&backfill),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("Setup cancelled.")
			return nil
		}
		return err
	}

	cfg.Monitor.Target = config.FlexibleString(strings.TrimSpace(target))
	cfg.Monitor.Channels = splitNonEmpty(channels, "\n")
	cfg.Monitor.Keywords = splitNonEmpty(keywords, ",")
	cfg.Monitor.Backfill = &backfill

	if err := writeDotEnv(envFile, "TGWATCH_TELEGRAM_TOKEN", strings.TrimSpace(token)); err != nil {
		return fmt.Errorf("write %s: %w", envFile, err)
	}
	cfg.StripSecrets()
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("Config saved to %s, token saved to %s.\n", cfgPath, envFile)
	fmt.Println("Add the bot to each watched channel and the destination, then run:  tgwatch")
	return nil
}

// onboardDefaults returns the config file contents, without env overrides so
// that saving it does not copy environment values into the file, and the
// token already present in the dotenv file or environment.
func onboardDefaults(cfgPath, envPath string) (*config.Config, string) {
	if err := config.LoadDotEnv(envPath); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s\n", err)
	}
	cfg, err := config.LoadFile(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s, starting from defaults\n", err)
		cfg = config.Default()
	}
	return cfg, os.Getenv("TGWATCH_TELEGRAM_TOKEN")
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// writeDotEnv sets key in the dotenv file, keeping other entries.
func writeDotEnv(path, key, value string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		env = map[string]string{}
	}
	env[key] = value
	if err := godotenv.Write(env, path); err != nil {
		return err
	}
	return os.Chmod(path, 0600)
}
