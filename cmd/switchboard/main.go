// Package main is the entry point for the Switchboard CLI.
// Switchboard routes conversations through LLM agent workflows: a classifier
// splits chat between a logical agent with approval-gated tools and an
// empathetic one, and a supervisor drives a research pipeline of researcher,
// analyst, and writer agents.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/normanking/switchboard/internal/chatbot"
	"github.com/normanking/switchboard/internal/config"
	"github.com/normanking/switchboard/internal/httpapi"
	"github.com/normanking/switchboard/internal/llm"
	"github.com/normanking/switchboard/internal/logging"
	"github.com/normanking/switchboard/internal/supervisor"
	"github.com/normanking/switchboard/internal/tools"
)

var (
	version  = "0.1.0"
	cfgPath  string
	provider string
	verbose  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "switchboard",
		Short: "Switchboard - LLM agent workflows with tool approval",
		Long: `Switchboard is a conversational agent router:
  • Messages are classified logical or emotional and answered by the matching agent
  • Tool calls pause for your approval before anything executes
  • Research tasks run through a supervised researcher/analyst/writer pipeline

Start an interactive chat:  switchboard chat
Run a research task:        switchboard research "EV market trends"
Serve the HTTP API:         switchboard serve`,
		PersistentPreRunE: initLogging,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.switchboard/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "LLM provider to use (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Switchboard v%s\n", version)
		},
	})
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(researchCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(graphCmd())
	rootCmd.AddCommand(configCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func initLogging(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err == nil {
		log.Debug().Str("component", "main").Msg("loaded .env file")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logging.Setup(level, cfg.Logging.Pretty)
	return nil
}

func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.LoadFromPath(cfgPath)
	}
	return config.Load()
}

// buildGateway resolves the configured provider into a live gateway.
func buildGateway(cfg *config.Config) (llm.Provider, error) {
	name, pc, err := cfg.Provider(provider)
	if err != nil {
		return nil, err
	}
	base := llm.DefaultConfig(name)
	if pc.Endpoint != "" {
		base.Endpoint = pc.Endpoint
	}
	if pc.APIKey != "" {
		base.APIKey = pc.APIKey
	}
	if pc.Model != "" {
		base.Model = pc.Model
	}
	if pc.MaxTokens > 0 {
		base.MaxTokens = pc.MaxTokens
	}
	if pc.Temperature > 0 {
		base.Temperature = pc.Temperature
	}
	if pc.TimeoutSec > 0 {
		base.Timeout = time.Duration(pc.TimeoutSec) * time.Second
	}
	return llm.NewProvider(name, base)
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
	}
}

// runChat is the interactive loop: each line is one turn, tool proposals ask
// for approval inline.
func runChat(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gateway, err := buildGateway(cfg)
	if err != nil {
		return err
	}
	svc, err := chatbot.NewService(gateway, tools.DefaultRegistry(), chatbot.Config{
		TurnTimeout: cfg.TurnTimeout(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Switchboard v%s (%s). Type 'exit' to quit.\n", version, gateway.Name())
	scanner := bufio.NewScanner(os.Stdin)
	threadID := ""
	for {
		fmt.Print("Message: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "exit" || text == "quit" {
			fmt.Println("Bye!")
			return nil
		}

		reply, err := svc.Send(ctx, threadID, text)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Printf("error: %v\n", err)
			continue
		}
		threadID = reply.ThreadID

		if reply.Pending != nil {
			fmt.Println(reply.Pending.Question)
			fmt.Print("> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			reply, err = svc.Resolve(ctx, reply.Pending.Token, scanner.Text())
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
		}
		fmt.Printf("Assistant: %s\n", reply.Text)
	}
}

func researchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "research [task]",
		Short: "Run a task through the research pipeline",
		Long: `Run a one-shot task through the multi-agent research pipeline.

Examples:
  switchboard research "Research the latest trends in AI agents"
  switchboard research "Analyze the renewable energy market"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.Join(args, " ")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			gateway, err := buildGateway(cfg)
			if err != nil {
				return err
			}
			svc, err := supervisor.NewService(gateway, supervisor.Config{
				TaskTimeout: cfg.TaskTimeout(),
			})
			if err != nil {
				return err
			}

			out, err := svc.Run(cmd.Context(), task)
			if err != nil {
				return err
			}

			for _, msg := range out.Messages {
				if msg.Role == llm.RoleAssistant {
					fmt.Println(msg.Content)
					fmt.Println()
				}
			}
			if out.FinalReport != "" {
				fmt.Println(out.FinalReport)
			}
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			gateway, err := buildGateway(cfg)
			if err != nil {
				return err
			}
			chat, err := chatbot.NewService(gateway, tools.DefaultRegistry(), chatbot.Config{
				TurnTimeout: cfg.TurnTimeout(),
			})
			if err != nil {
				return err
			}
			pipeline, err := supervisor.NewService(gateway, supervisor.Config{
				TaskTimeout: cfg.TaskTimeout(),
			})
			if err != nil {
				return err
			}

			handler := httpapi.NewHandler(gateway, chat, pipeline)
			server := &http.Server{
				Addr:    cfg.Server.Addr,
				Handler: handler.Router(),
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("component", "server").Str("addr", cfg.Server.Addr).
					Str("provider", gateway.Name()).Msg("listening")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			log.Info().Str("component", "server").Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func graphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph [chat|research]",
		Short: "Print a workflow graph as Mermaid",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			which := "chat"
			if len(args) == 1 {
				which = args[0]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			gateway, err := buildGateway(cfg)
			if err != nil {
				return err
			}

			switch which {
			case "chat":
				svc, err := chatbot.NewService(gateway, tools.DefaultRegistry(), chatbot.Config{})
				if err != nil {
					return err
				}
				fmt.Println(svc.Mermaid())
			case "research":
				svc, err := supervisor.NewService(gateway, supervisor.Config{})
				if err != nil {
					return err
				}
				fmt.Println(svc.Mermaid())
			default:
				return fmt.Errorf("unknown graph %q, want chat or research", which)
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			if cfgPath != "" {
				fmt.Println(cfgPath)
				return
			}
			fmt.Println(config.DefaultPath())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgPath
			if path == "" {
				path = config.DefaultPath()
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config file already exists at %s", path)
			}
			if err := config.Default().SaveToPath(path); err != nil {
				return err
			}
			fmt.Printf("Wrote default config to %s\n", path)
			return nil
		},
	})

	return cmd
}
