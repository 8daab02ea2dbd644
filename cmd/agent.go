package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kidslingo/kidslingo/internal/agent"
	"github.com/kidslingo/kidslingo/internal/schema"
	"github.com/kidslingo/kidslingo/internal/session"
	"github.com/kidslingo/kidslingo/internal/shared/cmdutils"
)

var (
	agentMessage string
	agentSession string
	agentHistory int
	agentLogs    bool
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Talk to the tutor",
	RunE:  runAgent,
}

func init() {
	agentCmd.Flags().StringVarP(&agentMessage, "message", "m", "", "Send a single message and exit")
	agentCmd.Flags().StringVarP(&agentSession, "session", "s", "cli:direct", "Session ID")
	agentCmd.Flags().IntVar(&agentHistory, "history", 40, "Messages of history replayed per turn")
	agentCmd.Flags().BoolVar(&agentLogs, "logs", false, "Show runtime logs")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func runAgent(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !agentLogs {
		cfg.Logger.Level = "error"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, cleanup, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	orch := container.Orchestrator()
	sess := container.Sessions().GetOrCreate(agentSession)

	if agentMessage != "" {
		return runSingleMessage(ctx, orch, container.Sessions(), sess)
	}
	return runInteractive(ctx, orch, container.Sessions(), sess)
}

// runSingleMessage sends one message with the stored history and prints the reply.
func runSingleMessage(ctx context.Context, orch *agent.Orchestrator, mgr *session.Manager, sess *session.Session) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	fmt.Fprintf(os.Stderr, "  ↳ thinking...\n")
	return turn(ctx, orch, mgr, sess, agentMessage)
}

// runInteractive starts the REPL: each line is one turn, and the session
// keeps the conversation between turns.
func runInteractive(ctx context.Context, orch *agent.Orchestrator, mgr *session.Manager, sess *session.Session) error {
	fmt.Printf("%s Interactive mode (type 'exit' or Ctrl+C to quit, /new to start over)\n\n", logo)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("You: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Println("\nGoodbye!")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Println("\nGoodbye!")
				return nil
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			fmt.Println("Goodbye!")
			return nil
		}
		if line == "/new" {
			sess.Clear()
			if err := mgr.Save(sess); err != nil {
				fmt.Fprintf(os.Stderr, "save session: %v\n", err)
			}
			fmt.Println("New conversation started.")
			continue
		}

		if err := turn(ctx, orch, mgr, sess, line); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

// turn runs one orchestrated turn and persists the resulting conversation.
func turn(ctx context.Context, orch *agent.Orchestrator, mgr *session.Manager, sess *session.Session, text string) error {
	history := append(sess.History(agentHistory), schema.NewUserMessage(text))

	res, err := orch.RunWithProgress(ctx, history, cmdutils.PrintProgress)
	if err != nil {
		return err
	}

	sess.Replace(res.Messages)
	if err := mgr.Save(sess); err != nil {
		fmt.Fprintf(os.Stderr, "save session: %v\n", err)
	}
	cmdutils.PrintResponse(res.Content)
	return nil
}
