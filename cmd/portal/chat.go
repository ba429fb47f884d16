package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"restaurant_portal/internal/chat"
	"restaurant_portal/internal/config"
	"restaurant_portal/internal/models"
	"restaurant_portal/pkg/foodapi"
	"restaurant_portal/pkg/logger"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open a support chat session from the terminal",
	Long: `chat logs in to the food delivery API, joins (or opens) a support chat
session and relays lines typed on stdin. Type /quit to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("PORTAL_PASSWORD")
		}
		restaurantID, _ := cmd.Flags().GetString("restaurant")
		return runChat(cmd.Context(), cfg, email, password, restaurantID)
	},
}

func init() {
	chatCmd.Flags().String("email", "", "account email")
	chatCmd.Flags().String("password", "", "account password (or PORTAL_PASSWORD)")
	chatCmd.Flags().String("restaurant", "", "restaurant id the request is about")
	chatCmd.MarkFlagRequired("email")
}

func runChat(parent context.Context, cfg *config.Config, email, password, restaurantID string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := foodapi.NewClient(cfg.APIBaseURL, cfg.APITimeout)
	login, err := api.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if restaurantID == "" {
		restaurantID = login.User.RestaurantID
	}

	session, err := chat.Bootstrap(ctx, api, login.AccessToken, chat.StartRequest{RestaurantID: restaurantID})
	if err != nil {
		return err
	}
	fmt.Printf("Support chat %s (%s): %s\n", session.ID, session.Status, session.Subject)

	closed := make(chan struct{})
	client := chat.NewClient(session.ID, session.Status, login.AccessToken, chat.WebSocketDialer(cfg.SocketURL),
		chat.WithTypingTimeout(cfg.TypingTimeout),
		chat.WithReconnect(cfg.ReconnectAttempts, cfg.ReconnectDelay),
		chat.WithSender(login.User.ID, login.User.Name, models.SenderRestaurant),
		chat.WithLogger(logger.NewWithWriter("chat", os.Stderr)),
		chat.WithEventHandler(printer(os.Stdout, login.User.ID, closed)),
	)
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return err
	}

	lines := readLines(ctx, os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-closed:
			return nil
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "/quit" {
				return nil
			}
			if _, err := client.Send(line); err != nil {
				if errors.Is(err, chat.ErrEmptyMessage) {
					continue
				}
				fmt.Fprintf(os.Stderr, "! %v\n", err)
				if errors.Is(err, chat.ErrSessionClosed) {
					return nil
				}
			}
		}
	}
}

// readLines streams lines from r until EOF or until ctx is done. The
// channel is closed when the reader goroutine exits.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// printer renders server events on out. closed is closed once the
// session ends.
func printer(out io.Writer, selfID string, closed chan struct{}) func(chat.ServerEvent) {
	var once sync.Once
	return func(ev chat.ServerEvent) {
		switch e := ev.(type) {
		case *chat.JoinedEvent:
			for _, m := range e.Messages {
				printMessage(out, m)
			}
		case *chat.NewMessageEvent:
			if e.Message.SenderID != selfID {
				printMessage(out, e.Message)
			}
		case *chat.ChatAcceptedEvent:
			fmt.Fprintf(out, "* %s has joined the conversation\n", e.DisplayName())
		case *chat.UserTypingEvent:
			fmt.Fprintf(out, "* %s is typing...\n", e.DisplayName())
		case *chat.ChatClosedEvent:
			fmt.Fprintf(out, "* chat closed by %s: %s\n", e.ClosedBy, e.Reason)
			once.Do(func() { close(closed) })
		case *chat.ErrorEvent:
			log.Printf("chat error: %s", e.Message)
		}
	}
}

func printMessage(out io.Writer, m models.ChatMessage) {
	name := m.SenderName
	if name == "" {
		name = string(m.SenderRole)
	}
	fmt.Fprintf(out, "[%s] %s: %s\n", m.CreatedAt.Format("15:04"), name, m.Content)
	for _, a := range m.Attachments {
		fmt.Fprintf(out, "    attachment: %s (%s)\n", a.FileName, a.URL)
	}
}
