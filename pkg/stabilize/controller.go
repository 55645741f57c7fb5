// Package stabilize drives a lazily loading page until its item count stops
// growing. The loop scrolls, clicks any load-more control, lets the page
// settle, and recounts; the page is declared stable after enough consecutive
// unchanged counts or once the declared total is reached.
package stabilize

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/YaPengJi1/pachong/pkg/render"
	"github.com/YaPengJi1/pachong/pkg/utils"
)

// Config bounds the stabilization loop. Zero settle durations are valid and
// skip the corresponding sleeps.
type Config struct {
	ScrollSettle    time.Duration
	ClickSettle     time.Duration
	FinalSettle     time.Duration
	StableThreshold int
	MaxRounds       int
	ClickSelectors  []string
}

// Controller runs the scroll-click-settle-count loop.
type Controller struct {
	cfg Config
	log *logrus.Entry
}

func NewController(cfg Config, log *logrus.Logger) *Controller {
	return &Controller{cfg: cfg, log: log.WithField("component", "stabilize")}
}

// Stabilize loops until the count reported by countFn holds steady for the
// configured threshold, reaches declaredTotal (when positive), or the round
// bound trips. It returns the final serialized DOM after a last settle and
// recount. Transient scroll, click, and count errors are logged and the loop
// continues; only context cancellation aborts.
func (c *Controller) Stabilize(ctx context.Context, page render.Page, declaredTotal int, countFn func(html string) (int, error)) (string, error) {
	lastCount := -1
	stableRun := 0

	for round := 1; round <= c.cfg.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("stabilization interrupted: %w", err)
		}

		if err := page.ScrollToBottom(); err != nil {
			c.log.WithError(err).Debug("Scroll failed, continuing")
		}
		if err := sleep(ctx, c.cfg.ScrollSettle); err != nil {
			return "", err
		}

		if len(c.cfg.ClickSelectors) > 0 {
			clicked, err := page.FindAndClick(c.cfg.ClickSelectors)
			if err != nil {
				c.log.WithError(err).Debug("Load-more click failed, continuing")
			} else if clicked {
				c.log.WithField("round", round).Debug("Clicked load-more control")
				if err := sleep(ctx, c.cfg.ClickSettle); err != nil {
					return "", err
				}
			}
		}

		count, err := c.currentCount(page, countFn)
		if err != nil {
			c.log.WithError(err).Debug("Count failed, continuing")
			continue
		}

		if count == lastCount {
			stableRun++
		} else {
			c.log.WithFields(logrus.Fields{
				"round": round, "count": count, "previous": lastCount,
			}).Debug("Item count changed")
			stableRun = 0
			lastCount = count
		}

		if declaredTotal > 0 && count >= declaredTotal {
			c.log.WithFields(logrus.Fields{"count": count, "declared": declaredTotal}).
				Info("Reached declared item count")
			break
		}
		if stableRun >= c.cfg.StableThreshold {
			c.log.WithFields(logrus.Fields{"count": count, "rounds": round}).
				Info("Item count stabilized")
			break
		}
		if round == c.cfg.MaxRounds {
			c.log.WithFields(logrus.Fields{"count": count, "max_rounds": c.cfg.MaxRounds}).
				Warn("Stabilization round bound reached")
		}
	}

	// Final settle before the authoritative snapshot. Late content that
	// arrives during this pause is still captured.
	if err := sleep(ctx, c.cfg.FinalSettle); err != nil {
		return "", err
	}
	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("final snapshot: %w: %v", utils.ErrParsing, err)
	}
	return html, nil
}

// ScrollRounds performs a fixed number of scroll-and-settle rounds without
// counting. Comment pages use this simpler scheme.
func (c *Controller) ScrollRounds(ctx context.Context, page render.Page, rounds int, settle time.Duration) error {
	for i := 0; i < rounds; i++ {
		if err := page.ScrollToBottom(); err != nil {
			c.log.WithError(err).Debug("Scroll failed, continuing")
		}
		if err := sleep(ctx, settle); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) currentCount(page render.Page, countFn func(string) (int, error)) (int, error) {
	html, err := page.HTML()
	if err != nil {
		return 0, err
	}
	return countFn(html)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
