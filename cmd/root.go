package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rtzll/ytpost/internal"
)

var (
	config    *internal.Config
	logger    = zerolog.Nop()
	logCloser io.Closer

	shutdownMu    sync.Mutex
	shutdownHooks []func()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ytpost",
	Short: "Upload and schedule YouTube videos with AI-written titles",
	Long: `ytpost uploads local videos to YouTube, now or at a scheduled time.

Titles and descriptions are written by an OpenAI-compatible model from the
file name and an optional context hint. Without an API key they are derived
from the file name.

Run without arguments for the interactive menu. Scheduled uploads only run
while ytpost is running.`,
	Example: `  # Interactive menu (upload now, schedule, list)
  ytpost

  # Authorise YouTube access once
  ytpost auth

  # Upload a video right away
  ytpost upload "Sunset Timelapse [raw].mp4" --privacy unlisted

  # Upload at 9pm today (or tomorrow if 9pm has passed)
  ytpost schedule video.mp4 9pm --tags travel,sunset`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.HandleVerboseFlag(cmd, config); err != nil {
			return err
		}
		logger, logCloser = internal.NewLogger(config, config.Verbose)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}

		fmt.Println(strings.Repeat("=", 60))
		fmt.Println("YouTube Auto-Poster with Scheduler")
		fmt.Println(strings.Repeat("=", 60))

		return internal.NewMenu(app, os.Stdin, os.Stdout).Run(cmd.Context())
	},
}

// newApp applies the generator flags and builds the App. The App's
// dispatcher is stopped on interrupt.
func newApp(cmd *cobra.Command, opts ...internal.AppOption) (*internal.App, error) {
	if err := internal.HandleGeneratorFlags(cmd, config); err != nil {
		return nil, err
	}

	app := internal.NewApp(config, append([]internal.AppOption{internal.WithLogger(logger)}, opts...)...)
	if err := internal.HandlePromptFlag(cmd, app); err != nil {
		return nil, err
	}

	onShutdown(app.Close)
	return app, nil
}

func onShutdown(fn func()) {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	shutdownHooks = append(shutdownHooks, fn)
}

func runShutdownHooks() {
	shutdownMu.Lock()
	hooks := shutdownHooks
	shutdownHooks = nil
	shutdownMu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

func initConfig() {
	configFile, _ := rootCmd.PersistentFlags().GetString("config")
	config = internal.InitConfig(configFile)

	// Ensure XDG directories exist
	if err := internal.EnsureDirs(config.ConfigDir, config.DataDir, config.CacheDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating XDG directories: %v\n", err)
		os.Exit(1)
	}

	// Ensure default config exists in XDG config directory
	if err := internal.EnsureDefaultConfig(config.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default config: %v\n", err)
	}

	// Ensure default prompt exists in XDG config directory
	if err := internal.EnsureDefaultPrompt(config.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default prompt: %v\n", err)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Create a cancellable context for the entire application
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt signal. Stopping scheduler and shutting down...")
		logger.Info().Msg("interrupt received")

		cancel()

		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cleanupCancel()

		cleanupDone := make(chan struct{})
		go func() {
			runShutdownHooks()
			close(cleanupDone)
		}()

		select {
		case <-cleanupDone:
		case <-cleanupCtx.Done():
			fmt.Fprintln(os.Stderr, "Warning: Cleanup timed out, forcing exit")
		}

		if logCloser != nil {
			_ = logCloser.Close()
		}
		os.Exit(0)
	}()

	rootCmd.SetContext(ctx)

	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	internal.AddGeneratorFlags(rootCmd)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for debugging")
	rootCmd.PersistentFlags().String("config", "", "Config file (default is $XDG_CONFIG_HOME/ytpost/config.toml)")
}
