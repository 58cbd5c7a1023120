// Command chat is a terminal client for the guidance service. It keeps a
// local session backed by the shared database and asks questions through a
// running server, so it exercises the same flow as the app UI.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"gracechat-server/internal/config"
	"gracechat-server/internal/domain/conversation"
	"gracechat-server/internal/domain/session"
	"gracechat-server/internal/infrastructure/database"
	"gracechat-server/internal/infrastructure/logger"
	conversationrepo "gracechat-server/internal/infrastructure/repository/conversation"
	"gracechat-server/pkg/chatclient"
)

func main() {
	for _, path := range []string{".env", "../.env"} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Overload(path)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	userID := os.Getenv("CHAT_USER_ID")
	if userID == "" {
		userID = "guest"
	}

	var opts []chatclient.Option
	if token := os.Getenv("CHAT_ACCESS_TOKEN"); token != "" {
		opts = append(opts, chatclient.WithBearerToken(token))
	}
	client := chatclient.NewClient(cfg.ServerURL, opts...)

	sess := session.New(
		userID,
		conversationrepo.NewRepository(db),
		conversationrepo.NewMessageRepository(db),
		client,
		log,
	)
	defer sess.Flush()

	fmt.Printf("connected to %s as %s\n", cfg.ServerURL, userID)
	fmt.Println("type a question, or /help for commands")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := runCommand(ctx, sess, line); quit {
				return
			}
			continue
		}

		before := len(sess.Messages())
		sess.SendUserMessage(ctx, line)
		printMessages(sess.Messages()[before:])
	}
}

func runCommand(ctx context.Context, sess *session.Session, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/help":
		fmt.Println("/list            show your conversations")
		fmt.Println("/open <id>       switch to a conversation")
		fmt.Println("/new             start a fresh conversation")
		fmt.Println("/delete <id>     delete a conversation")
		fmt.Println("/quit            exit")
	case "/list":
		convs, err := sess.FetchConversations(ctx)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		if len(convs) == 0 {
			fmt.Println("no conversations yet")
			return false
		}
		for _, c := range convs {
			fmt.Printf("%s  %s  (%s)\n", c.PublicID, c.Summary, c.UpdatedAt.Format("2006-01-02 15:04"))
		}
	case "/open":
		if len(fields) < 2 {
			fmt.Println("usage: /open <id>")
			return false
		}
		if err := sess.LoadConversation(ctx, fields[1]); err != nil {
			fmt.Println("error:", err)
			return false
		}
		printMessages(sess.Messages())
	case "/new":
		sess.ClearMessages()
		fmt.Println("started a new conversation")
	case "/delete":
		if len(fields) < 2 {
			fmt.Println("usage: /delete <id>")
			return false
		}
		if err := sess.DeleteConversation(ctx, fields[1]); err != nil {
			fmt.Println("error:", err)
			return false
		}
		fmt.Println("deleted", fields[1])
	case "/quit", "/exit":
		return true
	default:
		fmt.Println("unknown command, try /help")
	}
	return false
}

func printMessages(msgs []conversation.Message) {
	for _, m := range msgs {
		label := "you"
		if m.Sender == conversation.SenderBot {
			label = "bot"
		}
		fmt.Printf("[%s] %s\n", label, m.Text)
	}
}
