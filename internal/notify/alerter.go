package notify

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"post-sniper/internal/domain"
	"post-sniper/internal/observability"
)

// Alerter presents alerts on the console log and fans them out to senders.
// Delivery is synchronous and never retried; failures are logged.
type Alerter struct {
	senders []Sender
	logger  *logrus.Entry
}

// NewAlerter creates an Alerter delivering to senders.
func NewAlerter(senders []Sender, logger *logrus.Entry) *Alerter {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Alerter{senders: senders, logger: logger}
}

// Emit presents the alert and delivers it to every sender. It returns the
// number of senders that failed.
func (a *Alerter) Emit(ctx context.Context, alert domain.Alert) int {
	observability.RecordAlert()

	a.logger.WithFields(logrus.Fields{
		"post_id":   alert.PostID,
		"author":    alert.Author,
		"url":       alert.URL,
		"solana":    strings.Join(alert.Finding.SolanaAddresses, ","),
		"base":      strings.Join(alert.Finding.BaseAddresses, ","),
		"keywords":  strings.Join(alert.Finding.Keywords, ","),
		"links":     len(alert.Finding.Links),
		"posted_at": alert.PostedAt,
	}).Warn("SIGNAL DETECTED")

	failed := 0
	for _, s := range a.senders {
		if err := s.Send(ctx, alert); err != nil {
			failed++
			observability.RecordNotifyFailure(s.Name())
			a.logger.WithError(err).WithField("sender", s.Name()).Error("alert delivery failed")
			continue
		}
		a.logger.WithField("sender", s.Name()).Debug("alert delivered")
	}
	return failed
}
