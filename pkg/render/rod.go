package render

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"

	"github.com/YaPengJi1/pachong/pkg/utils"
)

// RodBrowser drives a real Chromium instance via the DevTools protocol.
type RodBrowser struct {
	browser         *rod.Browser
	laun            *launcher.Launcher
	userAgent       string
	bodyWaitTimeout time.Duration
	pageLoadTimeout time.Duration
	log             *logrus.Entry
}

// Options configures the browser launch.
type Options struct {
	Headless        bool
	UserAgent       string
	BodyWaitTimeout time.Duration
	PageLoadTimeout time.Duration
}

// NewRodBrowser launches Chromium and connects to it. Launch failures are
// reported as ErrDriverUnavailable so callers can distinguish a missing
// browser from page-level problems.
func NewRodBrowser(opts Options, log *logrus.Logger) (*RodBrowser, error) {
	laun := launcher.New().
		Headless(opts.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-gpu").
		Set("no-sandbox")

	controlURL, err := laun.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w: %v", utils.ErrDriverUnavailable, err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		laun.Cleanup()
		return nil, fmt.Errorf("connecting to browser: %w: %v", utils.ErrDriverUnavailable, err)
	}
	if err := browser.IgnoreCertErrors(true); err != nil {
		log.WithError(err).Warn("Could not disable certificate checks")
	}

	return &RodBrowser{
		browser:         browser,
		laun:            laun,
		userAgent:       opts.UserAgent,
		bodyWaitTimeout: opts.BodyWaitTimeout,
		pageLoadTimeout: opts.PageLoadTimeout,
		log:             log.WithField("component", "render"),
	}, nil
}

// NewPage opens a blank tab.
func (b *RodBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("opening page: %w: %v", utils.ErrDriverUnavailable, err)
	}
	if b.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.userAgent}); err != nil {
			b.log.WithError(err).Warn("Could not override user agent")
		}
	}
	return &rodPage{
		page:            page,
		bodyWaitTimeout: b.bodyWaitTimeout,
		pageLoadTimeout: b.pageLoadTimeout,
		log:             b.log,
	}, nil
}

// Close shuts the browser down and cleans up the launcher's temp state.
func (b *RodBrowser) Close() error {
	err := b.browser.Close()
	b.laun.Cleanup()
	return err
}

type rodPage struct {
	page            *rod.Page
	bodyWaitTimeout time.Duration
	pageLoadTimeout time.Duration
	log             *logrus.Entry
}

func (p *rodPage) Load(ctx context.Context, url string) error {
	page := p.page.Context(ctx).Timeout(p.pageLoadTimeout)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigating to %s: %w: %v", url, utils.ErrTransport, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("waiting for load of %s: %w: %v", url, utils.ErrTransport, err)
	}
	return nil
}

func (p *rodPage) HTML() (string, error) {
	html, err := p.page.HTML()
	if err != nil {
		return "", fmt.Errorf("serializing DOM: %w: %v", utils.ErrParsing, err)
	}
	return html, nil
}

func (p *rodPage) ScrollToBottom() error {
	_, err := p.page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	if err != nil {
		return fmt.Errorf("scrolling: %w: %v", utils.ErrParsing, err)
	}
	return nil
}

// loadMoreText matches the visible label of expand controls.
const loadMoreText = "加载|更多|load|more"

// FindAndClick tries each selector in order and clicks the first element
// that exists and is interactable, then falls back to a text match on
// button and anchor labels. Click failures on one candidate do not stop
// the scan.
func (p *rodPage) FindAndClick(selectors []string) (bool, error) {
	for _, sel := range selectors {
		has, el, err := p.page.Has(sel)
		if err != nil || !has {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			p.log.WithFields(logrus.Fields{"selector": sel}).WithError(err).Debug("Click failed, trying next selector")
			continue
		}
		return true, nil
	}

	has, el, err := p.page.HasR("button, a", loadMoreText)
	if err != nil || !has {
		return false, nil
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		p.log.WithError(err).Debug("Text-hint click failed")
		return false, nil
	}
	return true, nil
}

func (p *rodPage) WaitForBody(ctx context.Context) error {
	page := p.page.Context(ctx).Timeout(p.bodyWaitTimeout)
	if _, err := page.Element("body"); err != nil {
		return fmt.Errorf("waiting for body: %w: %v", utils.ErrTransport, err)
	}
	return nil
}

func (p *rodPage) Close() error {
	return p.page.Close()
}
