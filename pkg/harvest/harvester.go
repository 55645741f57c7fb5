// Package harvest turns rendered pages into structured records: the root
// document, the stabilized sub-event timeline, and per-page comments.
package harvest

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/YaPengJi1/pachong/pkg/config"
	"github.com/YaPengJi1/pachong/pkg/extract"
	"github.com/YaPengJi1/pachong/pkg/models"
	"github.com/YaPengJi1/pachong/pkg/render"
	"github.com/YaPengJi1/pachong/pkg/stabilize"
	"github.com/YaPengJi1/pachong/pkg/utils"
)

// Harvester extracts records from rendered pages. It holds no page state;
// one instance serves a whole run.
type Harvester struct {
	stab *stabilize.Controller
	cfg  config.HarvestConfig
	log  *logrus.Entry
}

func NewHarvester(stab *stabilize.Controller, cfg config.HarvestConfig, log *logrus.Logger) *Harvester {
	return &Harvester{
		stab: stab,
		cfg:  cfg,
		log:  log.WithField("component", "harvest"),
	}
}

// HarvestRoot loads the timeline page once and extracts the core fields.
// Missing fields degrade to zero values; only load failures are errors.
func (h *Harvester) HarvestRoot(ctx context.Context, page render.Page, url string) (models.RootDocument, error) {
	if err := page.Load(ctx, url); err != nil {
		return models.RootDocument{}, err
	}
	if err := page.WaitForBody(ctx); err != nil {
		return models.RootDocument{}, err
	}
	html, err := page.HTML()
	if err != nil {
		return models.RootDocument{}, err
	}
	doc, err := parseHTML(html)
	if err != nil {
		return models.RootDocument{}, err
	}

	root := models.RootDocument{
		Name:              extract.Text(doc.Selection, extract.RootNameSpec),
		LastUpdate:        extract.Text(doc.Selection, extract.RootUpdateSpec),
		DeclaredItemCount: extract.Number(doc.Selection, extract.RootCountSpec),
		HarvestedAt:       models.Now(),
	}
	h.log.WithFields(logrus.Fields{
		"name": root.Name, "update": root.LastUpdate, "declared": root.DeclaredItemCount,
	}).Info("Root document harvested")
	return root, nil
}

// HarvestSubEvents stabilizes the timeline and extracts its entries.
// declaredTotal, when positive, lets stabilization stop early. Entries
// without a title are dropped; duplicates by (title, time) keep the first
// occurrence. IDs are sequential in display order.
func (h *Harvester) HarvestSubEvents(ctx context.Context, page render.Page, url string, declaredTotal int) ([]models.SubEvent, error) {
	if err := page.Load(ctx, url); err != nil {
		return nil, err
	}
	if err := page.WaitForBody(ctx); err != nil {
		return nil, err
	}

	html, err := h.stab.Stabilize(ctx, page, declaredTotal, func(html string) (int, error) {
		doc, err := parseHTML(html)
		if err != nil {
			return 0, err
		}
		return extract.CountMatches(doc, extract.SubEventContainerSelectors), nil
	})
	if err != nil {
		return nil, err
	}

	doc, err := parseHTML(html)
	if err != nil {
		return nil, err
	}
	containers, winner := extract.BestContainers(doc, extract.SubEventContainerSelectors)
	if containers == nil {
		h.log.Warn("No sub-event containers found")
		return nil, nil
	}
	h.log.WithFields(logrus.Fields{"selector": winner, "matches": containers.Length()}).
		Debug("Picked sub-event container selector")

	var events []models.SubEvent
	seen := make(map[string]struct{})
	containers.Each(func(_ int, sel *goquery.Selection) {
		ev := parseSubEvent(sel)
		if ev.Title == "" {
			return
		}
		if _, dup := seen[ev.DedupKey()]; dup {
			return
		}
		seen[ev.DedupKey()] = struct{}{}
		ev.ID = models.SubEventID(len(events) + 1)
		events = append(events, ev)
	})

	h.log.WithFields(logrus.Fields{
		"sub_events": len(events), "declared": declaredTotal,
	}).Info("Sub-events harvested")
	return events, nil
}

// HarvestComments loads a sub-event page, scrolls a fixed number of rounds,
// and extracts every comment it can. Containers without usable content are
// dropped; the comment index reflects container position, so gaps reveal
// drops.
func (h *Harvester) HarvestComments(ctx context.Context, page render.Page, ev models.SubEvent) ([]models.Comment, error) {
	if err := page.Load(ctx, ev.Link); err != nil {
		return nil, err
	}
	if err := page.WaitForBody(ctx); err != nil {
		return nil, err
	}
	if err := h.stab.ScrollRounds(ctx, page, h.cfg.CommentScrolls, h.cfg.CommentSettle); err != nil {
		return nil, err
	}

	html, err := page.HTML()
	if err != nil {
		return nil, err
	}
	doc, err := parseHTML(html)
	if err != nil {
		return nil, err
	}

	containers, winner := extract.BestContainers(doc, extract.CommentContainerSelectors)
	if containers == nil || containers.Length() == 0 {
		containers = extract.VocabularyContainers(doc, extract.CommentVocabulary)
		if containers.Length() > 0 {
			h.log.WithField("matches", containers.Length()).
				Debug("Fell back to vocabulary container scan")
		}
	} else {
		h.log.WithFields(logrus.Fields{"selector": winner, "matches": containers.Length()}).
			Debug("Picked comment container selector")
	}

	var comments []models.Comment
	containers.Each(func(i int, sel *goquery.Selection) {
		c := parseComment(sel, ev, i+1)
		if c.Content == "" {
			return
		}
		comments = append(comments, c)
	})

	h.log.WithFields(logrus.Fields{
		"event": ev.ID, "containers": containers.Length(), "comments": len(comments),
	}).Info("Comments harvested")
	return comments, nil
}

func parseSubEvent(sel *goquery.Selection) models.SubEvent {
	ev := models.SubEvent{
		Time:    extract.Text(sel, extract.SubEventTimeSpec),
		Title:   extract.Text(sel, extract.SubEventTitleSpec),
		Link:    extract.Attr(sel, extract.SubEventTitleSpec, "href"),
		Summary: extract.Text(sel, extract.SubEventSummarySpec),
	}
	author := extract.Text(sel, extract.SubEventAuthorSpec)
	ev.Author = strings.NewReplacer("：", "", ":", "").Replace(author)
	return ev
}

func parseComment(sel *goquery.Selection, ev models.SubEvent, index int) models.Comment {
	c := models.Comment{
		EventTitle:  ev.Title,
		EventID:     ev.ID,
		EventURL:    ev.Link,
		EventTime:   ev.Time,
		Index:       index,
		AuthorID:    extract.Text(sel, extract.CommentUserSpec),
		Time:        extract.Text(sel, extract.CommentTimeSpec),
		Content:     extract.Text(sel, extract.CommentContentSpec),
		Location:    extract.Text(sel, extract.CommentLocationSpec),
		LikeCount:   extract.Number(sel, extract.CommentLikeSpec),
		HarvestedAt: models.Now(),
	}
	if c.Content == "" {
		c.Content = extract.ContainerText(sel, extract.CommentContentFallbackFloor)
	}
	return c
}

func parseHTML(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w: %v", utils.ErrParsing, err)
	}
	return doc, nil
}
