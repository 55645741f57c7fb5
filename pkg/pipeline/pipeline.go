// Package pipeline sequences a full harvest run: root document, stabilized
// timeline, per-event comments, and the combined projection.
package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/YaPengJi1/pachong/pkg/fetch"
	"github.com/YaPengJi1/pachong/pkg/harvest"
	"github.com/YaPengJi1/pachong/pkg/models"
	"github.com/YaPengJi1/pachong/pkg/render"
	"github.com/YaPengJi1/pachong/pkg/store"
	"github.com/YaPengJi1/pachong/pkg/utils"
)

// Pipeline wires the harvester, store, and politeness pacer into one run.
// A single rendered page is reused across every navigation of the run.
type Pipeline struct {
	browser   render.Browser
	harvester *harvest.Harvester
	store     *store.DataStore
	pacer     *fetch.Pacer
	log       *logrus.Entry
}

func New(browser render.Browser, harvester *harvest.Harvester, st *store.DataStore, pacer *fetch.Pacer, log *logrus.Logger) *Pipeline {
	return &Pipeline{
		browser:   browser,
		harvester: harvester,
		store:     st,
		pacer:     pacer,
		log:       log.WithField("component", "pipeline"),
	}
}

// Run harvests the timeline at url end to end. An empty root document or a
// timeline with zero entries aborts the run; failures on individual
// sub-event pages are absorbed and counted.
func (p *Pipeline) Run(ctx context.Context, url string) (*Result, error) {
	result := &Result{State: models.StateInit}
	rlog := p.log.WithField("url", url)

	page, err := p.browser.NewPage(ctx)
	if err != nil {
		result.advance(models.StateAborted, rlog)
		return result, err
	}
	defer page.Close()

	root, err := p.harvester.HarvestRoot(ctx, page, url)
	if err != nil {
		result.advance(models.StateAborted, rlog)
		return result, err
	}
	if root.IsEmpty() {
		result.advance(models.StateAborted, rlog)
		return result, fmt.Errorf("root page yielded no core fields: %w", utils.ErrParsing)
	}
	result.Root = root
	result.advance(models.StateRootHarvested, rlog)

	events, err := p.harvester.HarvestSubEvents(ctx, page, url, root.DeclaredItemCount)
	if err != nil {
		result.advance(models.StateAborted, rlog)
		return result, err
	}
	if len(events) == 0 {
		result.advance(models.StateAborted, rlog)
		return result, fmt.Errorf("timeline yielded no sub-events: %w", utils.ErrParsing)
	}
	result.SubEvents = events
	if err := p.store.SaveTimeline(root, events); err != nil {
		result.advance(models.StateAborted, rlog)
		return result, err
	}
	result.advance(models.StateSubEventsHarvested, rlog)

	for i, ev := range events {
		if err := ctx.Err(); err != nil {
			result.advance(models.StateAborted, rlog)
			return result, err
		}
		elog := rlog.WithFields(logrus.Fields{
			"event": ev.ID, "progress": fmt.Sprintf("%d/%d", i+1, len(events)),
		})
		if ev.Link == "" {
			elog.Warn("Sub-event has no link, skipping")
			continue
		}

		p.pacer.Wait()
		comments, err := p.harvester.HarvestComments(ctx, page, ev)
		p.pacer.Mark()
		if err != nil {
			elog.WithError(err).WithField("category", utils.CategorizeError(err)).
				Error("Comment harvest failed, continuing with remaining events")
			result.FailedEvents++
			comments = nil
		}

		if len(comments) == 0 {
			// Placeholder keeps the ledgers row-aligned per sub-event.
			if err := p.store.AppendComment(models.PlaceholderComment(ev)); err != nil {
				result.advance(models.StateAborted, rlog)
				return result, err
			}
			continue
		}
		for _, c := range comments {
			if err := p.store.AppendComment(c); err != nil {
				result.advance(models.StateAborted, rlog)
				return result, err
			}
		}
		result.TotalComments += len(comments)
	}
	result.advance(models.StateCommentsHarvested, rlog)

	combined, err := p.store.Combine()
	if err != nil {
		rlog.WithError(err).Warn("Could not build combined ledger")
	} else {
		result.Combined = combined
		result.advance(models.StateCombined, rlog)
	}

	result.advance(models.StateDone, rlog)
	p.logSummary(rlog, result)
	return result, nil
}

func (p *Pipeline) logSummary(log *logrus.Entry, r *Result) {
	log.WithFields(logrus.Fields{
		"core_event":    r.Root.Name,
		"sub_events":    len(r.SubEvents),
		"comments":      r.TotalComments,
		"failed_events": r.FailedEvents,
		"run_id":        p.store.RunID(),
	}).Info("Harvest run complete")
}
