package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"auto_tweet_agent/agent"
	"auto_tweet_agent/config"
	"auto_tweet_agent/scheduler"
	"auto_tweet_agent/server"
)

var (
	configPath string
	verbose    bool

	topic      string
	text       string
	triggerArg string
	addr       string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "auto-tweet-agent",
	Short: "Generate tweets with an LLM and publish them on demand or on a schedule",
	Long: `auto-tweet-agent drafts short posts with an LLM, publishes them through the X API
and records the outcome of the last attempt.

Examples:
  # Serve the HTTP API (and the schedule, when agent.schedule is set)
  auto-tweet-agent serve

  # Draft without publishing
  auto-tweet-agent preview --topic "developer tools"

  # Publish literal text
  auto-tweet-agent publish --text "Launch day!"`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to config.json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")

	serveCmd.Flags().StringVar(&addr, "addr", "", "http listen address (overrides config.server_addr)")
	previewCmd.Flags().StringVar(&topic, "topic", "", "optional topic to steer the draft")
	publishCmd.Flags().StringVar(&topic, "topic", "", "topic to generate from when --text is empty")
	publishCmd.Flags().StringVar(&text, "text", "", "literal post text; skips generation")
	publishCmd.Flags().StringVar(&triggerArg, "trigger", "manual", "provenance tag: manual or cron")

	rootCmd.AddCommand(serveCmd, previewCmd, publishCmd, statusCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run the publish schedule",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Generate a draft and print it without publishing",
	Args:  cobra.NoArgs,
	RunE:  runPreview,
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish literal text or a freshly generated draft",
	Args:  cobra.NoArgs,
	RunE:  runPublish,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the outcome of the last publish attempt",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd.Context(), configPath, verbose)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.Agent.Schedule != "" {
		sched, err := scheduler.New(a.cfg.Agent.Schedule, a.cfg.Agent.Topics, a.orch,
			a.cfg.Agent.GenerateTimeout()+a.cfg.Agent.PublishTimeout(), a.logger)
		if err != nil {
			return fmt.Errorf("agent.schedule: %w", err)
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
		a.logger.WithField("next_run", sched.Next()).Info("Publishing on schedule")
	}

	srv, err := server.New(a.orch, server.Options{
		CronSecret: a.cfg.CronSecret,
		Registry:   a.registry,
		Logger:     a.logger,
	})
	if err != nil {
		return err
	}
	listen := a.cfg.ServerAddr
	if addr != "" {
		listen = addr
	}
	return srv.ListenAndServe(ctx, listen)
}

func runPreview(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd.Context(), configPath, verbose)
	if err != nil {
		return err
	}
	defer a.close()

	draft, err := a.orch.Preview(cmd.Context(), topic)
	if err != nil {
		return err
	}
	return printJSON(cmd, draft)
}

func runPublish(cmd *cobra.Command, _ []string) error {
	trigger, err := agent.ParseTrigger(triggerArg)
	if err != nil {
		return err
	}
	a, err := buildApp(cmd.Context(), configPath, verbose)
	if err != nil {
		return err
	}
	defer a.close()
	if a.cfg.Status.Backend == config.BackendMemory {
		a.logger.Warn("status.backend is memory: the outcome of this run is lost when the command exits")
	}

	var out agent.Outcome
	if text != "" {
		out = a.orch.PublishExplicit(cmd.Context(), text, map[string]any{"trigger": string(trigger)})
	} else {
		out = a.orch.PublishFromTopic(cmd.Context(), topic, trigger)
	}
	if err := printJSON(cmd, out); err != nil {
		return err
	}
	if !out.OK {
		return fmt.Errorf("publish failed: %s", out.Error)
	}
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd.Context(), configPath, verbose)
	if err != nil {
		return err
	}
	defer a.close()
	if a.cfg.Status.Backend == config.BackendMemory {
		return errMemoryStatus
	}
	return printJSON(cmd, a.orch.Status(cmd.Context()))
}

// errMemoryStatus: a fresh process always reads the default record from memory.
var errMemoryStatus = errors.New("status.backend memory does not outlive a process; set status.backend to bolt or redis (STATUS_BACKEND) to read status from the CLI")

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
