package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flavoriz-backend-go/internal/config"
	"flavoriz-backend-go/internal/db"
	"flavoriz-backend-go/pkg/mailer"
)

var (
	rootCmd = &cobra.Command{
		Use:   "flavorizctl",
		Short: "Operational tasks for the Flavoriz backend",
		Long: `flavorizctl reads the same configuration as the server (environment,
.env outside release mode, and PATH_CONFIG) and runs one-off maintenance tasks.`,
		SilenceUsage: true,
	}
	reconcileCmd = &cobra.Command{
		Use:   "reconcile",
		Short: "Copy documents written to the local fallback store into Firestore",
		Long: `Copies users, meal plans and saved meals from the local Badger store into
Firestore under the same document ids. Documents already present remotely are
skipped unless --overwrite is given.`,
		Args: cobra.NoArgs,
		RunE: runReconcile,
	}
	mailTestCmd = &cobra.Command{
		Use:   "mail-test [recipient]",
		Short: "Send a test e-mail through the configured SMTP relay",
		Args:  cobra.ExactArgs(1),
		RunE:  runMailTest,
	}

	overwrite bool
	timeout   time.Duration
)

func init() {
	reconcileCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace documents that already exist in Firestore")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Give up after this long")

	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(mailTestCmd)
}

// setup loads configuration and a logger for a command.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !cfg.RemoteStoreConfigured() {
		return errors.New("FIREBASE_PROJECT_ID is not set, nothing to reconcile into")
	}
	if cfg.LocalStoreInMemory {
		return errors.New("LOCAL_STORE_IN_MEMORY is set, there is no local data to reconcile")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if err := db.InitFirestore(ctx, cfg, logger); err != nil {
		return fmt.Errorf("connect to Firestore: %w", err)
	}
	remote := db.NewFirestoreDocumentStore(db.GetFirestoreClient(), logger)
	defer remote.Close()

	local, err := db.OpenLocalStore(db.LocalStoreConfig{Path: cfg.LocalStorePath}, logger)
	if err != nil {
		return err
	}
	defer local.Close()

	report, err := db.Reconcile(ctx, local, remote, overwrite, logger)
	if err != nil {
		return err
	}
	for _, collection := range []string{db.UsersCollection, db.MealPlansCollection, db.SavedMealsCollection} {
		fmt.Fprintf(cmd.OutOrStdout(), "%-12s copied=%d skipped=%d overwritten=%d\n",
			collection, report.Copied[collection], report.Skipped[collection], report.Overwritten[collection])
	}
	return nil
}

func runMailTest(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.SMTPHost == "" {
		return errors.New("SMTP_HOST is not set")
	}
	m := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPass,
		Sender:   cfg.MailSender,
	})

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	fmt.Fprintf(cmd.OutOrStdout(), "Sending test e-mail to %s via %s:%d...\n", args[0], cfg.SMTPHost, cfg.SMTPPort)
	err = m.Send(ctx, mailer.Message{
		To:      args[0],
		Subject: "Flavoriz test e-mail",
		Body: `<html>
  <body>
    <h1>Hello from Flavoriz!</h1>
    <p>If you can read this, the SMTP settings of the backend work.</p>
  </body>
</html>`,
	})
	if err != nil {
		return fmt.Errorf("send test e-mail: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Test e-mail accepted by the relay.")
	return nil
}
