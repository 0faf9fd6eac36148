package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"post-sniper/internal/classifier"
	"post-sniper/internal/domain"
	"post-sniper/internal/feed"
	"post-sniper/internal/observability"
)

// TickResult summarizes one poll.
type TickResult struct {
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration_ns"`
	Fetched      int           `json:"fetched"`
	New          int           `json:"new"`
	Alerts       int           `json:"alerts"`
	Acquisitions int           `json:"acquisitions"` // router calls made
	Opened       int           `json:"opened"`       // successful acquisitions
	Relogin      bool          `json:"relogin"`
	Errors       []string      `json:"errors,omitempty"`
}

// Tick fetches recent posts once and processes unseen ones oldest first.
// Per-item failures are recorded in the result and never abort the tick.
func (s *Scheduler) Tick(ctx context.Context) TickResult {
	res := TickResult{StartedAt: s.now()}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		s.recordTick(res)
	}()

	posts, err := s.feed.FetchRecent(ctx, s.handle, s.fetchLimit)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		if errors.Is(err, feed.ErrUnauthorized) {
			observability.RecordFeedError("auth")
			res.Relogin = true
			s.relogin(ctx, &res)
			return res
		}
		observability.RecordFeedError("fetch")
		s.logger.WithError(err).Warn("feed fetch failed")
		return res
	}

	res.Fetched = len(posts)
	observability.RecordPostsFetched(len(posts))
	if len(posts) == 0 {
		s.logger.WithField("handle", s.handle).Info("no posts returned")
		return res
	}

	// Feed order is newest first.
	for i := len(posts) - 1; i >= 0; i-- {
		s.process(ctx, posts[i], &res)
	}

	s.logger.WithFields(logrus.Fields{
		"fetched": res.Fetched,
		"new":     res.New,
		"alerts":  res.Alerts,
	}).Debug("tick complete")
	return res
}

func (s *Scheduler) relogin(ctx context.Context, res *TickResult) {
	s.logger.Warn("feed unauthorized, attempting re-login")
	ok, err := s.feed.Login(ctx)
	observability.RecordRelogin(ok && err == nil)
	switch {
	case err != nil:
		res.Errors = append(res.Errors, "relogin: "+err.Error())
		s.logger.WithError(err).Error("re-login failed")
	case !ok:
		res.Errors = append(res.Errors, "relogin: rejected")
		s.logger.Error("re-login rejected")
	default:
		s.logger.Info("re-login succeeded")
	}
}

func (s *Scheduler) process(ctx context.Context, post domain.Post, res *TickResult) {
	if s.ledger.Seen(post.ID) {
		return
	}
	s.ledger.Mark(post.ID)
	res.New++
	observability.RecordPostProcessed()

	finding := classifier.Classify(post.Text)
	if !finding.HasSignal {
		return
	}

	alert := domain.Alert{
		PostID:     post.ID,
		Author:     post.Author,
		Text:       post.Text,
		URL:        PostURL(post.Author, post.ID),
		PostedAt:   post.CreatedAt,
		DetectedAt: s.now(),
		Finding:    finding,
	}
	res.Alerts++
	if s.alerts != nil {
		if failed := s.alerts.Emit(ctx, alert); failed > 0 {
			res.Errors = append(res.Errors, "alert delivery failed for post "+post.ID)
		}
	}

	if !s.autoExecute || s.router == nil {
		return
	}
	for _, ref := range finding.Addresses() {
		s.acquire(ctx, post, ref, res)
	}
}

func (s *Scheduler) acquire(ctx context.Context, post domain.Post, ref domain.AssetRef, res *TickResult) {
	if res.Acquisitions > 0 {
		if err := s.sleep(ctx, s.pacing); err != nil {
			res.Errors = append(res.Errors, err.Error())
			return
		}
	}
	res.Acquisitions++

	log := s.logger.WithFields(logrus.Fields{
		"post_id": post.ID,
		"chain":   ref.Chain,
		"asset":   ref.AssetID,
	})

	result := s.router.Acquire(ctx, ref.Chain, ref.AssetID)
	if !result.Success {
		res.Errors = append(res.Errors, "acquire "+ref.AssetID+": "+result.Error)
		log.WithField("venue", result.Venue).WithField("error", result.Error).Warn("acquisition failed")
		return
	}

	res.Opened++
	log.WithFields(logrus.Fields{
		"venue":    result.Venue,
		"spent":    result.AmountSpent.String(),
		"received": result.QuantityReceived.String(),
		"ref":      result.ExternalRef,
	}).Info("acquisition succeeded")

	if s.positions == nil {
		return
	}
	if _, err := s.positions.Add(result, ref.Chain, ref.AssetID); err != nil {
		res.Errors = append(res.Errors, err.Error())
		log.WithError(err).Error("failed to record position")
	}
}
