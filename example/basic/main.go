package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/postcardhq/postcard"
	"github.com/postcardhq/postcard/gemini"
	"github.com/postcardhq/postcard/helper"
	"github.com/postcardhq/postcard/model"
)

var sampleNotes = []string{
	"fixed that annoying bug in the auth flow, added proper error handling to the login form component",
	"started evaluating pgvector for the search feature, hnsw index looks like the right default",
	"pairing with Dana on the sync worker, retry loop was swallowing context cancellation",
}

func main() {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY must be set to run this example")
	}

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Name:     "postcard_test",
		Username: "postgres",
		Password: "postgres",
		Schema:   "public",
	}

	p, err := postcard.NewPostcard(dbConfig, gemini.EmbeddingDimensions)
	if err != nil {
		log.Fatalf("Failed to create postcard: %v", err)
	}
	defer p.Close()

	client, err := gemini.NewClient(apiKey)
	if err != nil {
		log.Fatalf("Failed to create gemini client: %v", err)
	}
	p.UseGemini(client)

	ctx := context.Background()
	userID := uuid.New()

	// Insert and enrich a few journal entries
	for _, note := range sampleNotes {
		entry := &model.Entry{UserID: userID, RawText: note}
		if err := p.Entries.InsertEntry(entry); err != nil {
			log.Fatalf("Failed to insert entry: %v", err)
		}

		result, err := p.ProcessEntry(ctx, entry.ID)
		if err != nil {
			log.Fatalf("Failed to process entry: %v", err)
		}
		fmt.Printf("Processed entry %s: %s (%d entities)\n", result.EntryID, result.Status, result.EntityCount)
	}

	// Ask a question over the enriched entries
	answer, err := p.Query(ctx, "What did I do about the login bug?", userID)
	if err != nil {
		log.Fatalf("Failed to answer query: %v", err)
	}
	fmt.Println("\nAnswer:")
	fmt.Println(answer)
}
