package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/config"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/runtime"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/catalog"
)

func newMigrateCommand() *cobra.Command {
	var catalogFile string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema and optionally load a catalog seed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := runtime.NewLogger(config.String("SERVICE_NAME", "scheduling-service"))

			b, err := openBackend(ctx, logger)
			if err != nil {
				return err
			}
			defer b.close()

			if err := b.migrate(ctx); err != nil {
				return err
			}
			logger.Info("schema applied")

			if catalogFile == "" {
				return nil
			}
			f, err := os.Open(catalogFile)
			if err != nil {
				return fmt.Errorf("open catalog seed: %w", err)
			}
			defer f.Close()
			services, staff, err := catalog.Load(ctx, f, b.writer)
			if err != nil {
				return err
			}
			logger.Info("catalog loaded", "services", services, "staff", staff)
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogFile, "catalog", "", "JSON file with services and staff to upsert")
	return cmd
}
