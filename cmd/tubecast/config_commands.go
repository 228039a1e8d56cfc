package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tubecast/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set messaging.allowed_sender and the google client credentials before starting tubecastd.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if ctx.configPath != "" {
				fmt.Fprintf(out, "Config file:     %s\n", ctx.configPath)
			} else {
				fmt.Fprintln(out, "Config file:     (defaults, no file found)")
			}
			fmt.Fprintf(out, "Staging dir:     %s\n", cfg.Paths.StagingDir)
			fmt.Fprintf(out, "Credentials dir: %s\n", cfg.Paths.CredentialsDir)
			fmt.Fprintf(out, "Log dir:         %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "Bind:            %s\n", cfg.Paths.Bind)
			fmt.Fprintf(out, "Allowed sender:  %s\n", valueOrDash(cfg.Messaging.AllowedSender))
			fmt.Fprintf(out, "Send URL:        %s\n", valueOrDash(cfg.Messaging.SendURL))
			fmt.Fprintf(out, "OAuth client:    %s\n", oauthLabel(cfg))
			fmt.Fprintf(out, "Category ID:     %s\n", cfg.Upload.CategoryID)
			fmt.Fprintf(out, "Chunk size:      %d MiB\n", cfg.Upload.ChunkMiB)
			fmt.Fprintf(out, "yt-dlp:          %s\n", cfg.Tools.YtDlp)
			fmt.Fprintf(out, "ffmpeg:          %s\n", cfg.Tools.FFmpeg)
			fmt.Fprintf(out, "ffprobe:         %s\n", cfg.Tools.FFprobe)
			return nil
		},
	}
}

func oauthLabel(cfg *config.Config) string {
	if cfg.OAuthConfigured() {
		return "configured"
	}
	return "not configured"
}
