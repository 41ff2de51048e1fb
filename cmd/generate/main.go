package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/solet-asu/MCQ-generation/internal/adapter/embedding"
	"github.com/solet-asu/MCQ-generation/internal/adapter/llm"
	"github.com/solet-asu/MCQ-generation/internal/config"
	"github.com/solet-asu/MCQ-generation/internal/logger"
	"github.com/solet-asu/MCQ-generation/internal/prompt"
	"github.com/solet-asu/MCQ-generation/internal/repository"
	"github.com/solet-asu/MCQ-generation/internal/workflow"

	"go.uber.org/zap"
)

func main() {
	inputFile := flag.String("input", "", "Path to the text file to generate questions from")
	fact := flag.Int("fact", 0, "Number of fact questions")
	inference := flag.Int("inference", 0, "Number of inference questions")
	mainIdea := flag.Int("main-idea", 0, "Number of main idea questions (0 or 1)")
	flag.Parse()

	if *inputFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: generate -input <file> [-fact N] [-inference N] [-main-idea N]")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		// Logger might not be initialized yet, so use fmt for this critical error
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	text, err := os.ReadFile(*inputFile)
	if err != nil {
		log.Fatal("Failed to read input file", zap.String("file", *inputFile), zap.Error(err))
	}

	db, err := repository.Open(cfg.DatabaseFile)
	if err != nil {
		log.Fatal("Failed to open metadata database", zap.Error(err))
	}
	defer db.Close()
	sink := repository.NewSQLiteSink(db)

	client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, log)
	if err != nil {
		log.Fatal("Failed to create completion client", zap.Error(err))
	}
	scorer, err := embedding.NewOpenAIScorer(cfg.OpenAIAPIKey, cfg.Models.Embedding, log)
	if err != nil {
		log.Fatal("Failed to create similarity scorer", zap.Error(err))
	}
	prompts := prompt.NewStore(cfg.PromptDir)

	wf := workflow.New(client, prompts, scorer, sink, cfg, log)
	results, err := wf.Run(context.Background(), workflow.Request{
		Text:      string(text),
		Fact:      *fact,
		Inference: *inference,
		MainIdea:  *mainIdea,
	})
	if err != nil {
		log.Fatal("Workflow failed", zap.Error(err))
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		log.Fatal("Failed to render results", zap.Error(err))
	}
	fmt.Println(string(out))
}
