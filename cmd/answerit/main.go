// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/answerit"
	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/engine"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "answerit",
		Usage: "Answer complex queries by decomposing them into parallel sub-questions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Answer one query and print the result",
				Action:    searchCommand,
				ArgsUsage: "QUERY",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "db",
						Aliases: []string{"d"},
						Usage:   "Path to BadgerDB database directory",
						Value:   "./answerit_db",
					},
					&cli.StringFlag{
						Name:  "host",
						Usage: "Model service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "Model used for segmentation, segments and synthesis",
						Value: "qwen2.5:7b",
					},
					&cli.StringFlag{
						Name:  "escalation-model",
						Usage: "Stronger model for low-confidence retries (defaults to --model)",
					},
					&cli.StringFlag{
						Name:    "user",
						Aliases: []string{"u"},
						Usage:   "User identifier recorded with the query",
						Value:   "cli",
					},
					&cli.BoolFlag{
						Name:  "no-cache",
						Usage: "Skip cached segmentations and segment results",
					},
					&cli.IntFlag{
						Name:  "max-stages",
						Usage: "Limit execution to the first N stages (0 = all)",
					},
					&cli.IntFlag{
						Name:  "max-concurrent",
						Usage: "Maximum concurrent model calls",
						Value: engine.DefaultMaxConcurrent,
					},
					&cli.Float64Flag{
						Name:  "escalation-threshold",
						Usage: "Confidence below which a segment is retried on the escalation model",
						Value: engine.DefaultEscalationThreshold,
					},
					&cli.DurationFlag{
						Name:  "cache-ttl",
						Usage: "Time-to-live for cached segmentations and segment results",
						Value: engine.DefaultCacheTTL,
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Overall deadline for answering the query",
						Value: 5 * time.Minute,
					},
				},
			},
			{
				Name:   "history",
				Usage:  "Show previously synthesized answers, most recent first",
				Action: historyCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "db",
						Aliases: []string{"d"},
						Usage:   "Path to BadgerDB database directory",
						Value:   "./answerit_db",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of answers to show",
						Value:   10,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func searchCommand(c *cli.Context) error {
	queryText := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if queryText == "" {
		return fmt.Errorf("no query given: usage is answerit search QUERY")
	}

	config := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithModel(c.String("model")),
		ai.WithEscalationModel(c.String("escalation-model")),
	)

	app, err := answerit.Open(c.String("db"),
		answerit.WithAIConfig(config),
		answerit.WithEngineOptions(
			engine.WithMaxConcurrent(c.Int("max-concurrent")),
			engine.WithEscalationThreshold(c.Float64("escalation-threshold")),
			engine.WithCacheTTL(c.Duration("cache-ttl")),
		))
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()

	outcome, err := app.Search(ctx, c.String("user"), queryText, engine.RunOptions{
		UseCache:  !c.Bool("no-cache"),
		MaxStages: c.Int("max-stages"),
	})
	if err != nil {
		return fmt.Errorf("error answering query: %w", err)
	}

	printOutcome(outcome)
	return nil
}

func historyCommand(c *cli.Context) error {
	app, err := answerit.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer app.Close()

	records, err := app.History(context.Background(), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("error reading history: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No answers recorded yet.")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("[%s] %s\n", rec.RecordedAt.Format(time.RFC3339), rec.QueryText)
		fmt.Printf("    %s (confidence %.2f)\n", rec.Answer.Text, rec.Answer.Confidence)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
