package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/narrinai/companion/internal/metrics"
	"github.com/narrinai/companion/internal/profile"
	"github.com/narrinai/companion/internal/version"
	"github.com/narrinai/companion/plugin/email"
	"github.com/narrinai/companion/store"
	"github.com/narrinai/companion/store/db"
)

// checkinCmd runs one batch of check-in emails and exits. It is meant to
// be invoked from cron or an equivalent scheduler.
var checkinCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Send check-in emails to users who have been inactive for a week",
	RunE: func(cmd *cobra.Command, _ []string) error {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Port:    viper.GetInt("port"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			return err
		}
		if !instanceProfile.IsMailEnabled() {
			return errors.New("mail is not configured: set COMPANION_MAIL_API_KEY and COMPANION_MAIL_FROM_EMAIL")
		}

		sender, err := email.NewSender(&email.Config{
			APIKey:    instanceProfile.MailAPIKey,
			BaseURL:   instanceProfile.MailBaseURL,
			FromEmail: instanceProfile.MailFromEmail,
			FromName:  instanceProfile.MailFromName,
		}, metrics.New())
		if err != nil {
			return err
		}

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			return err
		}
		storeInstance := store.New(dbDriver, instanceProfile)
		defer storeInstance.Close()
		if err := storeInstance.Migrate(cmd.Context()); err != nil {
			return err
		}

		timeout, err := time.ParseDuration(viper.GetString("checkin-timeout"))
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		sent, err := email.NewCheckinMailer(storeInstance, sender).Run(ctx)
		if err != nil {
			return err
		}
		slog.Info("check-in batch finished", "sent", sent)
		return nil
	},
}

func init() {
	checkinCmd.Flags().String("checkin-timeout", "25s", "overall time budget for the check-in batch")
	if err := viper.BindPFlag("checkin-timeout", checkinCmd.Flags().Lookup("checkin-timeout")); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(checkinCmd)
}
