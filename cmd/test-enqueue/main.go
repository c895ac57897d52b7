package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/jwebster45206/infamy/internal/config"
	"github.com/jwebster45206/infamy/internal/services/queue"
	"github.com/jwebster45206/infamy/pkg/chat"
	mq "github.com/jwebster45206/infamy/pkg/queue"
)

// test-enqueue pushes one chat line straight onto the message queue,
// bypassing the API. Useful for driving a worker by hand.
func main() {
	if len(os.Args) < 4 {
		fmt.Fprintf(os.Stderr, "Usage: %s <conversation> <participant> <message...>\n", os.Args[0])
		os.Exit(1)
	}
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	client, err := queue.NewClient(cfg.RedisURL, logger)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer func() {
		_ = client.Close()
	}()

	mr := chat.MessageRequest{
		ConversationID: os.Args[1],
		AuthorID:       os.Args[2],
		Content:        strings.Join(os.Args[3:], " "),
	}
	if err := mr.Validate(); err != nil {
		log.Fatal("Invalid message:", err)
	}

	ctx := context.Background()
	messages := queue.NewMessageQueue(client)
	req := mq.NewMessageRequest(mr)
	if err := messages.Enqueue(ctx, req); err != nil {
		log.Fatal("Failed to enqueue message:", err)
	}
	fmt.Printf("✅ Enqueued message: %s\n", req.RequestID)

	depth, err := messages.Depth(ctx)
	if err != nil {
		log.Fatal("Failed to get queue depth:", err)
	}
	fmt.Printf("📊 Queue depth: %d\n", depth)
}
