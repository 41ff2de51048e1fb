package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/solet-asu/MCQ-generation/internal/config"
	"github.com/solet-asu/MCQ-generation/internal/logger"
	"github.com/solet-asu/MCQ-generation/internal/repository"

	"go.uber.org/zap"
)

func main() {
	table := flag.String("table", "mcq_metadata", "Metadata table to export")
	outDir := flag.String("out", "output", "Directory to write the CSV file into")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	db, err := repository.Open(cfg.DatabaseFile)
	if err != nil {
		log.Fatal("Failed to open metadata database", zap.Error(err))
	}
	defer db.Close()
	sink := repository.NewSQLiteSink(db)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal("Failed to create output directory", zap.String("dir", *outDir), zap.Error(err))
	}

	outPath := filepath.Join(*outDir, *table+".csv")
	f, err := os.Create(outPath)
	if err != nil {
		log.Fatal("Failed to create output file", zap.String("file", outPath), zap.Error(err))
	}
	defer f.Close()

	if err := sink.ExportCSV(context.Background(), *table, f); err != nil {
		log.Fatal("Export failed", zap.String("table", *table), zap.Error(err))
	}
	log.Info("Export complete", zap.String("table", *table), zap.String("file", outPath))
}
