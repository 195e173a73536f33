package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/flemzord/chatmem/internal/config"
	"github.com/flemzord/chatmem/internal/core"
	"github.com/flemzord/chatmem/internal/security"
	"github.com/flemzord/chatmem/pkg/app"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(configCheckCmd(), configInitCmd())
	return cmd
}

func configCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration and provision every module",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			cfgPath, cfg, err := app.LoadConfig(path)
			if err != nil {
				return err
			}

			redactor := security.NewRedactor()
			logger := app.NewLogger(cmd.ErrOrStderr(), config.LoggingConfig{Level: "warn", Format: cfg.Logging.Format}, redactor)
			appCtx := core.NewAppContext(logger).
				WithModuleConfigs(cfg.Modules).
				WithSecretSink(redactor.AddLiteral)

			application := core.NewApp(appCtx)
			ids := config.Resolve(cfg)
			if err := application.LoadModules(ids); err != nil {
				return err
			}
			defer application.Stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK: %s (%d modules)\n", cfgPath, len(ids))
			for _, id := range ids {
				fmt.Fprintf(out, "  %s\n", id)
			}
			fmt.Fprintf(out, "Provider: %s\n", config.SelectedProvider(cfg))
			return nil
		},
	}
}

// initAnswers are the choices behind a starter configuration.
type initAnswers struct {
	config.StarterOptions
	Path  string
	Force bool
}

func configInitCmd() *cobra.Command {
	var (
		answers        initAnswers
		nonInteractive bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !nonInteractive {
				if err := askInit(&answers); err != nil {
					return err
				}
			}
			return writeStarter(cmd.OutOrStdout(), answers)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&answers.Path, "output", "o", config.FileName, "Where to write the file")
	f.StringVar(&answers.Provider, "provider", "openai_compatible", "Provider: openai_compatible or anthropic")
	f.StringVar(&answers.Model, "model", "", "Model name (provider default when empty)")
	f.StringVar(&answers.BaseURL, "base-url", "", "Base URL of the OpenAI-compatible API")
	f.BoolVar(&answers.EnableGateway, "gateway", false, "Enable the HTTP admin gateway")
	f.StringVar(&answers.GatewayBind, "gateway-bind", "", "Gateway listen address")
	f.BoolVar(&answers.Force, "force", false, "Overwrite an existing file")
	f.BoolVarP(&nonInteractive, "yes", "y", false, "Skip the questions and use the flags as given")
	return cmd
}

// askInit runs the interactive form, pre-filled with the flag values.
func askInit(a *initAnswers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which model provider?").
				Options(
					huh.NewOption("OpenAI-compatible (Groq, OpenAI, local servers)", "openai_compatible"),
					huh.NewOption("Anthropic", "anthropic"),
				).
				Value(&a.Provider),
			huh.NewInput().
				Title("Model").
				Description("Leave empty for the provider default.").
				Value(&a.Model),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Base URL").
				Placeholder("https://api.groq.com/openai/v1").
				Value(&a.BaseURL),
		).WithHideFunc(func() bool { return a.Provider == "anthropic" }),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable the HTTP admin gateway?").
				Value(&a.EnableGateway),
			huh.NewInput().
				Title("Config file").
				Value(&a.Path),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("config init: %w", err)
	}
	return nil
}

// writeStarter renders the starter file and writes it to a.Path.
func writeStarter(out io.Writer, a initAnswers) error {
	raw, err := config.Starter(a.StarterOptions)
	if err != nil {
		return err
	}

	if !a.Force {
		if _, err := os.Stat(a.Path); err == nil {
			return fmt.Errorf("config init: %s already exists (use --force to overwrite)", a.Path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config init: %w", err)
		}
	}
	if dir := filepath.Dir(a.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config init: %w", err)
		}
	}
	if err := os.WriteFile(a.Path, raw, 0o600); err != nil {
		return fmt.Errorf("config init: %w", err)
	}

	fmt.Fprintf(out, "Wrote %s\n", a.Path)
	fmt.Fprintln(out, "Set TELEGRAM_TOKEN and the provider API key in the environment, then run: chatmem start -c", a.Path)
	return nil
}
