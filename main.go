package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"

	"github.com/twdocs/ocr-letter-extraction/client"
	"github.com/twdocs/ocr-letter-extraction/config"
	"github.com/twdocs/ocr-letter-extraction/service"
)

func main() {
	cfg, files, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	tables := config.DefaultTables()
	if cfg.TablesPath != "" {
		tables, err = config.LoadTables(cfg.TablesPath)
		if err != nil {
			log.Fatalf("Failed to load tables: %v", err)
		}
	}
	if cfg.SurnamesPath != "" {
		singles, compounds, err := config.LoadSurnames(cfg.SurnamesPath)
		if err != nil {
			log.Fatalf("Failed to load surname dictionary: %v", err)
		}
		tables.SingleSurnames = singles
		if len(compounds) > 0 {
			tables.CompoundSurnames = compounds
		}
	}

	var ner client.NERClient = client.NoopClient{}
	if cfg.NERURL != "" {
		ner = client.NewHTTPClient(cfg.NERURL, cfg.NERTimeout)
		log.Printf("Person recognizer enabled at %s", cfg.NERURL)
	}

	svc, err := service.NewExtractService(tables, ner)
	if err != nil {
		log.Fatalf("Failed to initialize extraction service: %v", err)
	}

	docs, err := readDocuments(files)
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}

	resp := svc.ExtractBatch(context.Background(), docs, cfg.Workers)

	enc := json.NewEncoder(os.Stdout)
	if cfg.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(resp); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
}

// readDocuments loads every named file, or stdin when no files are given.
func readDocuments(files []string) ([]service.Document, error) {
	if len(files) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
		return []service.Document{{Source: "-", Text: string(data)}}, nil
	}

	docs := make([]service.Document, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, service.Document{Source: path, Text: string(data)})
	}
	return docs, nil
}
