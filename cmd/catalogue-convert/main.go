// Command catalogue-convert maps Geoscience Australia EATWS feed documents
// onto QuakeML files, optionally publishing a summary of each converted
// event to Kafka.
//
// Usage:
//
//	catalogue-convert -in feed.json -out quakeml/
//	catalogue-convert -in feed-dir/ -out quakeml/ -publish
//
// Publishing requires KAFKA_BROKERS and KAFKA_TOPIC in the environment.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/RichardScottOZ/hiperseis/internal/catalogue"
	"github.com/RichardScottOZ/hiperseis/internal/config"
	"github.com/RichardScottOZ/hiperseis/internal/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	in := flag.String("in", "", "EATWS JSON document or directory of documents")
	out := flag.String("out", "", "output directory for QuakeML files")
	publish := flag.Bool("publish", false, "publish event summaries to Kafka")
	flag.Parse()

	if *in == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -in, -out")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	if *publish && (len(cfg.KafkaBrokers) == 0 || cfg.KafkaTopic == "") {
		return fmt.Errorf("-publish requires KAFKA_BROKERS and KAFKA_TOPIC")
	}

	inputs, err := collectInputs(*in)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no input documents under %s", *in)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	converter := catalogue.NewConverter(logger, metrics)

	var summaries []catalogue.Summary
	for _, path := range inputs {
		doc, err := catalogue.ReadDocumentFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		q, err := converter.Convert(doc)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		eventID := doc.EventDetails.Properties.EventID
		target := filepath.Join(*out, eventID+".xml")
		if err := catalogue.WriteQuakeMLFile(target, q); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		logger.Info("quakeml written", "event_id", eventID, "path", target)

		summary, err := catalogue.Summarize(doc)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		summaries = append(summaries, summary)
	}

	if *publish {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		publisher := catalogue.NewPublisher(cfg, logger, metrics)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		if err := publisher.PublishBatch(ctx, summaries); err != nil {
			return err
		}
	}

	logger.Info("conversion complete", "documents", len(inputs))
	return nil
}

func collectInputs(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading input path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}
	var inputs []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		inputs = append(inputs, filepath.Join(path, entry.Name()))
	}
	return inputs, nil
}
