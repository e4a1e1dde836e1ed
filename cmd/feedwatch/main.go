// feedwatch tails a running server and prints the reconciled movie list:
// history pages merged with the live event streams, ordered by votes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"movienight-backend/internal/feed"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8020", "server base URL")
	admin := flag.Bool("admin", false, "show banned movies")
	interval := flag.Duration("interval", 5*time.Second, "refresh interval")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	log.SetOutput(os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := feed.NewStore()
	client := feed.NewClient(*baseURL, store, log)

	if err := client.LoadMore(ctx); err != nil {
		log.WithError(err).Fatal("Initial page load failed")
	}

	go client.Run(ctx)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		render(store, *admin)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func render(store *feed.Store, admin bool) {
	movies := store.Visible(admin)

	fmt.Printf("\n=== %s | %d movies ===\n", time.Now().Format("15:04:05"), len(movies))
	for i, m := range movies {
		marker := " "
		if m.Banned {
			marker = "B"
		}
		submitter := ""
		if m.SubmittedBy != nil {
			submitter = m.SubmittedBy.Name
		}
		fmt.Printf("%2d. [%s] %-40s %3d votes  %s\n", i+1, marker, m.Title, m.VoteCount(), submitter)
	}
	if store.Exhausted() {
		fmt.Println("-- full history loaded --")
	}
}
