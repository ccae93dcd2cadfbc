package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kalambet/heracles/internal/runtime"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the coaching agents in a local REPL",
	Long: `Talk to the coaching agents in a local REPL.

Type a message and press enter. Commands:
  /state   print the session state
  /agent   print the active agent
  /quit    leave the chat`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		memory, _ := cmd.Flags().GetBool("memory")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// Logs share the terminal with the conversation; keep them quiet
		// unless debugging.
		level := cfg.Log.Level
		if !strings.EqualFold(level, "debug") {
			level = "warn"
		}
		logger := setupLogging(level)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger, appOptions{memory: memory, progress: os.Stderr})
		if err != nil {
			return err
		}
		defer a.Close()

		return runChat(ctx, a.runner, sessionID, os.Stdin, os.Stdout)
	},
}

func init() {
	chatCmd.Flags().String("session", "", "resume an existing session")
	chatCmd.Flags().Bool("memory", false, "do not persist the session")
}

func runChat(ctx context.Context, r *runtime.Runner, sessionID string, in io.Reader, out io.Writer) error {
	var sess *runtime.Session
	var err error
	if sessionID != "" {
		sess, err = r.Get(sessionID)
		if err != nil {
			return fmt.Errorf("resuming session %s: %w", sessionID, err)
		}
	} else {
		sess, err = r.Create(ctx)
		if err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "%s %s (type /quit to leave)\n", colorize(colorBold, "session"), sess.ID)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, colorize(colorBold, "> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/state":
			data, err := json.MarshalIndent(sess.State.Snapshot(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			continue
		case "/agent":
			fmt.Fprintln(out, sess.Info(false).ActiveAgent)
			continue
		}

		turn, err := r.Turn(ctx, sess.ID, line)
		if err != nil {
			return err
		}
		printTurn(out, turn)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func printTurn(out io.Writer, turn runtime.Turn) {
	for _, m := range turn.Messages {
		fmt.Fprintf(out, "%s %s\n\n", colorize(colorCyan, "["+m.Agent+"]"), m.Text)
	}
	if turn.Error != "" {
		fmt.Fprintln(out, colorize(colorRed, "✗ "+turn.Error))
	}
}
