package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/postcardhq/postcard"
	"github.com/postcardhq/postcard/gemini"
	"github.com/postcardhq/postcard/helper"
)

func main() {
	_ = godotenv.Load()

	config, err := helper.NewDatabaseConfiguration()
	if err != nil {
		log.Fatalf("CRITICAL: %v", err)
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("CRITICAL: missing required environment variable GEMINI_API_KEY")
	}
	client, err := gemini.NewClient(apiKey)
	if err != nil {
		log.Fatalf("Failed to create gemini client: %v", err)
	}

	p, err := postcard.NewPostcard(config, gemini.EmbeddingDimensions)
	if err != nil {
		log.Fatalf("Failed to create postcard: %v", err)
	}
	defer p.Close()

	p.UseGemini(client)

	port := os.Getenv("POSTCARD_PORT")
	if port == "" {
		port = "8080"
	}
	err = p.Serve(":" + port)
	if err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
