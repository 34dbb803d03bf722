package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ZacxDev/video-captioner/internal/config"
	"github.com/ZacxDev/video-captioner/pkg/captioner"
	"github.com/ZacxDev/video-captioner/pkg/types"
	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "video-captioner",
		Short: "Burns timed captions into vertical short-form videos",
		Long: `video-captioner merges a video with a voice-over and burns a caption into it,
fitting the result to a 9:16 frame.

Examples:
  # Serve the /merge endpoint
  video-captioner serve

  # Render a single file with word-by-word highlighting
  video-captioner render -v clip.mp4 -a voice.mp3 -c "Order now while stock lasts" -s audio-words -o out.mp4`,
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}

			c, err := captioner.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("starting", "platform", c.Profile().GetName(), "strategy", cfg.Caption.Strategy, "scratch_dir", cfg.Server.ScratchDir)
			return c.Server().Run(ctx)
		},
	}

	renderCmd = &cobra.Command{
		Use:   "render",
		Short: "Render one captioned video",
		Long: fmt.Sprintf(`Render one captioned video from local files.

Supported strategies:
%s
Supported platforms:
%s`, formatList(captioner.SupportedStrategies()), formatList(captioner.SupportedPlatforms())),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}

			opts := captioner.RenderOptions{}
			opts.VideoPath, _ = cmd.Flags().GetString("video")
			opts.AudioPath, _ = cmd.Flags().GetString("audio")
			opts.ImagePath, _ = cmd.Flags().GetString("image")
			opts.Caption, _ = cmd.Flags().GetString("caption")
			opts.OutputPath, _ = cmd.Flags().GetString("output")
			strategy, _ := cmd.Flags().GetString("strategy")
			opts.Strategy = types.CaptionStrategy(strategy)

			if opts.VideoPath == "" || opts.AudioPath == "" {
				return fmt.Errorf("video and audio paths are required")
			}

			c, err := captioner.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := c.RenderFile(ctx, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.OutputPath)
			return nil
		},
	}
)

// setup loads .env, the configuration and the root logger.
func setup(cmd *cobra.Command) (config.Config, hclog.Logger, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}

	if platform, _ := cmd.Flags().GetString("platform"); platform != "" {
		cfg.FFmpeg.Platform = platform
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Log.Level = "debug"
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "captioner",
		Level:      hclog.LevelFromString(cfg.Log.Level),
		JSONFormat: cfg.Log.JSON,
		Output:     os.Stderr,
	})
	return cfg, logger, nil
}

func formatList(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("- %s\n", item))
	}
	return sb.String()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("platform", "",
		fmt.Sprintf("Output platform profile (%s)", strings.Join(captioner.SupportedPlatforms(), ", ")))
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	// Render command flags
	renderCmd.Flags().StringP("video", "v", "", "Input video file")
	renderCmd.Flags().StringP("audio", "a", "", "Input audio file")
	renderCmd.Flags().StringP("image", "i", "", "Optional image composited over the video")
	renderCmd.Flags().StringP("caption", "c", "", "Caption text")
	renderCmd.Flags().StringP("output", "o", "", "Output video path")
	renderCmd.Flags().StringP("strategy", "s", "",
		fmt.Sprintf("Caption strategy (%s)", strings.Join(captioner.SupportedStrategies(), ", ")))

	renderCmd.MarkFlagRequired("video")
	renderCmd.MarkFlagRequired("audio")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
