package probe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/YaPengJi1/pachong/pkg/config"
	"github.com/YaPengJi1/pachong/pkg/fetch"
	"github.com/YaPengJi1/pachong/pkg/models"
	"github.com/YaPengJi1/pachong/pkg/store"
	"github.com/YaPengJi1/pachong/pkg/translate"
)

// Summary reports the outcome counts of one probing run.
type Summary struct {
	Checked  int
	Valid    int
	Filtered int
	Invalid  int
	Skipped  int
}

// Prober sweeps an inclusive identifier range in batches. Inside a batch a
// weighted semaphore bounds in-flight requests; discoveries are buffered and
// flushed to the ledger at each batch boundary, so an interrupted run loses
// at most one batch.
type Prober struct {
	getter     fetch.Getter
	classifier *Classifier
	translator *translate.Translator
	ledger     *store.CandidateLedger
	cfg        config.ProbeConfig
	log        *logrus.Entry
}

func NewProber(getter fetch.Getter, classifier *Classifier, translator *translate.Translator, ledger *store.CandidateLedger, cfg config.ProbeConfig, log *logrus.Logger) *Prober {
	return &Prober{
		getter:     getter,
		classifier: classifier,
		translator: translator,
		ledger:     ledger,
		cfg:        cfg,
		log:        log.WithField("component", "probe"),
	}
}

// Run probes every identifier in [startID, endID]. Identifiers already in
// the ledger are skipped. Context cancellation stops the sweep after the
// current batch flushes.
func (p *Prober) Run(ctx context.Context, startID, endID int) (Summary, error) {
	if startID > endID {
		return Summary{}, fmt.Errorf("invalid identifier range %d..%d", startID, endID)
	}
	p.log.WithFields(logrus.Fields{
		"start": startID, "end": endID, "batch_size": p.cfg.BatchSize, "concurrency": p.cfg.Concurrency,
	}).Info("Starting identifier sweep")

	var summary Summary
	for batchStart := startID; batchStart <= endID; batchStart += p.cfg.BatchSize {
		batchEnd := batchStart + p.cfg.BatchSize - 1
		if batchEnd > endID {
			batchEnd = endID
		}

		discoveries, batchSum, err := p.runBatch(ctx, batchStart, batchEnd)
		summary.add(batchSum)

		// Flush what the batch found even when it ended early.
		if aerr := p.ledger.Append(discoveries); aerr != nil {
			return summary, aerr
		}
		if err != nil {
			return summary, err
		}

		p.log.WithFields(logrus.Fields{
			"batch_start": batchStart, "batch_end": batchEnd,
			"valid": batchSum.Valid, "filtered": batchSum.Filtered, "invalid": batchSum.Invalid,
		}).Info("Batch complete")
	}

	p.log.WithFields(logrus.Fields{
		"checked": summary.Checked, "valid": summary.Valid,
		"filtered": summary.Filtered, "invalid": summary.Invalid, "skipped": summary.Skipped,
	}).Info("Identifier sweep finished")
	return summary, nil
}

func (p *Prober) runBatch(ctx context.Context, start, end int) ([]models.CandidateRecord, Summary, error) {
	sem := semaphore.NewWeighted(int64(p.cfg.Concurrency))
	var wg sync.WaitGroup

	var mu sync.Mutex
	var discoveries []models.CandidateRecord
	var sum Summary

	for id := start; id <= end; id++ {
		if p.ledger.Known(id) {
			sum.Skipped++
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return discoveries, sum, err
		}
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			defer sem.Release(1)

			record, verdict := p.probeOne(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			sum.Checked++
			switch verdict.Class {
			case models.ClassValid:
				sum.Valid++
				discoveries = append(discoveries, record)
			case models.ClassFiltered:
				sum.Filtered++
			default:
				sum.Invalid++
			}
		}(id)
	}
	wg.Wait()
	return discoveries, sum, nil
}

func (p *Prober) probeOne(ctx context.Context, id int) (models.CandidateRecord, Verdict) {
	url := fmt.Sprintf(p.cfg.URLTemplate, id)
	content, err := p.getter.Get(ctx, url)
	if err != nil {
		p.log.WithFields(logrus.Fields{"id": id}).WithError(err).Debug("Probe request failed")
		return models.CandidateRecord{}, Verdict{Class: models.ClassInvalid}
	}

	verdict := p.classifier.Classify(content)
	switch verdict.Class {
	case models.ClassValid:
		p.log.WithFields(logrus.Fields{
			"id": id, "title": verdict.Title, "update_date": verdict.UpdateDate.Format("2006-01-02"),
		}).Info("Valid identifier found")
		return models.CandidateRecord{
			ID:              id,
			URL:             url,
			TitleNative:     verdict.Title,
			TitleTranslated: p.translator.Translate(verdict.Title),
			UpdateDate:      verdict.UpdateDate,
			DiscoveredAt:    time.Now(),
		}, verdict
	case models.ClassFiltered:
		p.log.WithFields(logrus.Fields{"id": id, "reason": verdict.Reason}).Debug("Identifier filtered")
	default:
		p.log.WithField("id", id).Debug("Identifier invalid")
	}
	return models.CandidateRecord{}, verdict
}

func (s *Summary) add(o Summary) {
	s.Checked += o.Checked
	s.Valid += o.Valid
	s.Filtered += o.Filtered
	s.Invalid += o.Invalid
	s.Skipped += o.Skipped
}
