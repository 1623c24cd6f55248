// Package notify sends status change notifications to webhooks
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/notify"

	"github.com/stelaras36/JobTracker/app/tracker"
)

// Params for NewService
type Params struct {
	URLs    []string      // webhook urls, each gets every notification
	Timeout time.Duration // timeout of a single delivery
}

// Service delivers notifications to all destinations
type Service struct {
	notifier notify.Notifier
	urls     []string
	timeout  time.Duration
}

// NewService makes Service, returns nil if no urls configured
func NewService(p Params) *Service {
	if len(p.URLs) == 0 {
		return nil
	}
	if p.Timeout <= 0 {
		p.Timeout = 5 * time.Second
	}
	wh := notify.NewWebhook(notify.WebhookParams{Timeout: p.Timeout, Headers: []string{"Content-Type:text/plain"}})
	return &Service{notifier: wh, urls: p.URLs, timeout: p.Timeout}
}

// OnStatusChange sends "title at company: prev -> curr" to every destination, errors are logged.
// Safe to call on nil Service.
func (s *Service) OnStatusChange(prev, curr tracker.Entry) {
	if s == nil || prev.Status == curr.Status {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.Send(ctx, MakeStatusText(prev, curr)); err != nil {
		log.Printf("[WARN] failed to notify about %s, %v", curr, err)
	}
}

// Send delivers text to all destinations, returns combined error of failed ones
func (s *Service) Send(ctx context.Context, text string) error {
	var errs []error
	for _, u := range s.urls {
		if err := s.notifier.Send(ctx, u, text); err != nil {
			errs = append(errs, fmt.Errorf("webhook %s: %w", u, err))
			continue
		}
		log.Printf("[DEBUG] notification sent to %s", u)
	}
	return errors.Join(errs...)
}

// MakeStatusText makes notification text for a status change
func MakeStatusText(prev, curr tracker.Entry) string {
	return fmt.Sprintf("%s at %s: %s -> %s", curr.Title, curr.Company, prev.Status, curr.Status)
}
