package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"

	"github.com/dbchat-dev/dbchat/internal/chat"
	"github.com/dbchat-dev/dbchat/internal/mcpclient"
	"github.com/dbchat-dev/dbchat/internal/orchestrator"
	"github.com/dbchat-dev/dbchat/internal/provider"
	"github.com/dbchat-dev/dbchat/internal/telemetry"
	"github.com/dbchat-dev/dbchat/memory"
)

var (
	dbPath     = flag.String("db", "dbchat.db", "Path to the SQLite database file")
	serverCmd  = flag.String("server", "", "Tool server command; defaults to spawning the bundled sqlite-mcp binary")
	verbose    = flag.Bool("verbose", false, "Print tool inputs and outputs")
	transcript = flag.String("transcript", "conversation.json", "Path for the persisted text transcript")
)

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: invalid %s=%q, using %d\n", name, v, def)
		return def
	}
	return n
}

func main() {
	_ = godotenv.Load()
	flag.Parse()

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		fmt.Println("Missing ANTHROPIC_API_KEY; export it before running.")
		os.Exit(1)
	}
	if *verbose {
		telemetry.SetVerbose(true)
	}

	// Load prior conversation if exists
	persisted, err := memory.LoadConversation(*transcript)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load persisted conversation: %v\n", err)
	}
	conv := memory.ToChat(persisted)

	// Interrupts are honored between turns only, so a tool round is never
	// left without its recorded result.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigch)
	go func() {
		<-sigch
		fmt.Println("\nExiting...")
		cancel()
	}()

	command, args := serverCommand()
	tools, err := mcpclient.NewStdio(command, nil, args...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer tools.Close()
	if err := tools.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	catalog, err := tools.Catalog(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	model := provider.DefaultModel
	if m := os.Getenv("DBCHAT_MODEL"); m != "" {
		model = anthropic.Model(m)
	}
	backend := provider.NewBackend(
		provider.NewAnthropicClient(),
		model,
		int64(envInt("DBCHAT_MAX_TOKENS", provider.DefaultMaxTokens)),
		envInt("DBCHAT_TOKEN_BUDGET", 0),
	)

	orch := orchestrator.New(backend, tools, chat.SystemPrompt(catalog), catalog)
	if n := envInt("DBCHAT_MAX_ROUNDS", 0); n > 0 {
		orch.MaxRounds = n
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Chat with your database (type quit to exit, Ctrl-C between turns)")

	// stdin reader goroutine -> lines into channel
	inputCh := make(chan string)
	go func() {
		for scanner.Scan() {
			inputCh <- scanner.Text()
		}
		close(inputCh)
	}()

outer:
	for {
		fmt.Print("\u001b[94mYou\u001b[0m: ")
		var (
			user string
			ok   bool
		)
		select {
		case <-ctx.Done():
			break outer
		case user, ok = <-inputCh:
			if !ok {
				break outer
			}
		}

		user = strings.TrimSpace(user)
		switch strings.ToLower(user) {
		case "":
			continue
		case "quit", "exit", "q":
			break outer
		}

		newConv, text, err := orch.RunTurn(ctx, conv, user)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		conv = newConv
		fmt.Printf("\u001b[93mAgent\u001b[0m: %s\n", text)

		if err := memory.SaveConversation(*transcript, memory.FromChat(conv)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to save conversation: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: stdin read error: %v\n", err)
	}
}

// serverCommand resolves the tool server process to spawn.
func serverCommand() (string, []string) {
	if *serverCmd != "" {
		parts := strings.Fields(*serverCmd)
		return parts[0], parts[1:]
	}
	return "sqlite-mcp", []string{"-db", *dbPath}
}
