package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"quizroom/internal/config"
	"quizroom/internal/domain"
)

// NewSeedCmd upserts quiz content into postgres from a JSON file holding
// an ordered question list.
func NewSeedCmd(configPath *string) *cobra.Command {
	var (
		file string
		key  string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert a quiz into the quiz store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file, key)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to quiz JSON (ordered question list)")
	cmd.Flags().StringVar(&key, "key", "", "quiz key to store under")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func runSeed(ctx context.Context, configPath, file, key string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	// validate before writing: the file must be an ordered question list
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return fmt.Errorf("parse quiz file: %w", err)
	}
	if len(questions) == 0 {
		return fmt.Errorf("quiz file has no questions")
	}
	for i, q := range questions {
		if q.Correct < 0 || q.Correct >= len(q.Choices) {
			return fmt.Errorf("question %d: correct index %d out of range", i, q.Correct)
		}
	}

	db := openBun(cfg.Postgres.URL)
	defer db.Close()

	if _, err := db.ExecContext(ctx,
		`INSERT INTO quizzes (key, data) VALUES (?, ?::jsonb) ON CONFLICT (key) DO UPDATE SET data=EXCLUDED.data`,
		key, string(data),
	); err != nil {
		return fmt.Errorf("upsert quiz: %w", err)
	}

	slog.Info("quiz seeded", "key", key, "questions", len(questions))
	return nil
}
