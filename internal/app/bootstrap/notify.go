package bootstrap

import (
	appconfig "github.com/wolfman30/salon-booking/internal/config"
	"github.com/wolfman30/salon-booking/internal/notify"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// BuildOperatorNotifier selects the e-mail provider for operator notices.
// sesClient may be nil unless NOTIFY_EMAIL_PROVIDER is "ses".
func BuildOperatorNotifier(cfg *appconfig.Config, sesClient notify.SESAPI, logger *logging.Logger) *notify.BookingNotifier {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	sender := notify.NewEmailSender(notify.SenderOptions{
		Provider: cfg.NotifyEmailProvider,
		SendGrid: notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		},
		SES: notify.SESConfig{
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		},
		SESClient: sesClient,
	}, logger)
	if cfg.OperatorEmail == "" {
		logger.Info("OPERATOR_EMAIL not set; booking notifications disabled")
	}
	return notify.NewBookingNotifier(sender, cfg.OperatorEmail, logger)
}
