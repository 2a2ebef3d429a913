package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"trivia-board-service/internal/app"
)

// NewSeedCmd imports a YAML question bank into the configured database.
func NewSeedCmd(opts *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import categories and questions from a YAML bank file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return errors.New("seed writes to postgres; set postgres.url")
			}

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			bank, err := loadBank(f)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}

			service, cleanup, err := buildService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := service.ImportBank(cmd.Context(), bank)
			if err != nil {
				return err
			}
			slog.Info("bank imported",
				"categories_created", result.CategoriesCreated,
				"questions_created", result.QuestionsCreated,
				"questions_skipped", result.QuestionsSkipped,
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "bank.yaml", "question bank to import")
	return cmd
}

func loadBank(r io.Reader) (app.Bank, error) {
	var bank app.Bank
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&bank); err != nil {
		return app.Bank{}, err
	}
	if len(bank.Categories) == 0 {
		return app.Bank{}, errors.New("bank has no categories")
	}
	return bank, nil
}
