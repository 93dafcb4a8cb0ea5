package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	quotemuse "github.com/kailas-cloud/quotemuse"
	logpkg "github.com/kailas-cloud/quotemuse/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "quoteload",
		Usage: "Load a CSV quote dataset into the quotemuse store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Usage:    "Path to the CSV file (columns: text,author,tags)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "redis",
				Usage:   "Redis address",
				Sources: cli.EnvVars("QUOTEMUSE_REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				Sources: cli.EnvVars("QUOTEMUSE_REDIS_PASSWORD"),
			},
			&cli.StringFlag{
				Name:  "chromem",
				Usage: "Chromem persistence directory (alternative to --redis)",
			},
			&cli.StringFlag{
				Name:    "openai-key",
				Usage:   "OpenAI API key",
				Sources: cli.EnvVars("OPENAI_API_KEY"),
			},
			&cli.StringFlag{
				Name:  "collection",
				Usage: "Collection name",
				Value: "quotes",
			},
			&cli.IntFlag{
				Name:  "dimensions",
				Usage: "Embedding dimensions",
				Value: 1536,
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Quotes per embedding batch",
				Value: 50,
			},
			&cli.StringFlag{
				Name:  "tag-delimiter",
				Usage: "Delimiter between tags inside the tags column",
				Value: ";",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err.Error())
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger, err := logpkg.NewLogger("local")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	records, err := readCSV(cmd.String("file"), cmd.String("tag-delimiter"))
	if err != nil {
		return fmt.Errorf("read dataset: %w", err)
	}
	logger.Info("Dataset loaded", zap.Int("records", len(records)))

	opts := []quotemuse.Option{
		quotemuse.WithOpenAI(cmd.String("openai-key")),
		quotemuse.WithCollection(cmd.String("collection")),
		quotemuse.WithDimensions(int(cmd.Int("dimensions"))),
		quotemuse.WithBatchSize(int(cmd.Int("batch-size"))),
		quotemuse.WithLogger(logger),
	}
	switch {
	case cmd.String("redis") != "":
		opts = append(opts, quotemuse.WithRedis(cmd.String("redis"), cmd.String("redis-password")))
	case cmd.String("chromem") != "":
		opts = append(opts, quotemuse.WithChromem(cmd.String("chromem")))
	default:
		return fmt.Errorf("storage required: pass --redis or --chromem")
	}

	client, err := quotemuse.New(opts...)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer client.Close()

	if err := client.Setup(ctx); err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	inserted, err := client.Ingest(ctx, records)
	if err != nil {
		// Earlier chunks are already stored; surface the count anyway.
		logger.Warn("Ingestion stopped", zap.Int("inserted", inserted), zap.Error(err))
		return fmt.Errorf("ingest (stored %d of %d): %w", inserted, len(records), err)
	}

	logger.Info("Ingestion complete", zap.Int("inserted", inserted))
	return nil
}

// readCSV parses a text,author,tags dataset. A header row is skipped when its
// first column reads "text".
func readCSV(path, tagDelimiter string) ([]quotemuse.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var records []quotemuse.Record
	for line := 0; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		if len(row) == 0 {
			continue
		}
		if line == 0 && strings.EqualFold(strings.TrimSpace(row[0]), "text") {
			continue
		}

		rec := quotemuse.Record{Text: row[0]}
		if len(row) > 1 {
			rec.Author = strings.TrimSpace(row[1])
		}
		if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
			for _, t := range strings.Split(row[2], tagDelimiter) {
				if t = strings.TrimSpace(t); t != "" {
					rec.Tags = append(rec.Tags, t)
				}
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
