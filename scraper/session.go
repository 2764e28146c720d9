package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/prerender/config"
	"github.com/use-agent/prerender/engine"
	"github.com/use-agent/prerender/models"
)

// Long-lived requests that would keep the network from ever going idle.
var idleExcludedTypes = []proto.NetworkResourceType{
	proto.NetworkResourceTypeWebSocket,
	proto.NetworkResourceTypeEventSource,
	proto.NetworkResourceTypeMedia,
}

// session is the single tab shared by every URL of a batch.
type session struct {
	browser    *rod.Browser
	page       *rod.Page
	router     *rod.HijackRouter
	captureCfg config.CaptureConfig
	blockAds   bool
	logger     *slog.Logger
}

// prepare applies everything that must be in place before the first
// navigation: stealth, ad blocking, viewport, cookies, throttling.
func (s *session) prepare(ctx context.Context, req *models.CaptureRequest, useStealth bool) error {
	p := s.page.Context(ctx)

	if useStealth {
		if _, err := p.EvalOnNewDocument(stealth.JS); err != nil {
			s.logger.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	if s.blockAds {
		s.router = setupAdBlocker(s.page)
	}

	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             req.ViewportWidth,
		Height:            req.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return models.NewError(models.ErrCodeBrowserCrash, "failed to set viewport", err)
	}

	if len(req.Cookies) > 0 {
		domain := req.CookieDomain()
		params := make([]*proto.NetworkCookieParam, 0, len(req.Cookies))
		for name, value := range req.Cookies {
			params = append(params, &proto.NetworkCookieParam{
				Name:   name,
				Value:  value,
				Domain: domain,
				Path:   "/",
			})
		}
		if err := p.SetCookies(params); err != nil {
			return models.NewError(models.ErrCodeBrowserCrash, "failed to set cookies", err)
		}
		s.logger.Debug("cookies set", "domain", domain, "count", len(params))
	}

	if s.captureCfg.Throttle {
		if err := emulateNetwork(p, s.captureCfg); err != nil {
			s.logger.Warn("network emulation failed, proceeding unthrottled", "error", err)
		}
	}
	return nil
}

// emulateNetwork slows the tab down to fixed latency and throughput so load
// times are comparable between runs.
func emulateNetwork(p *rod.Page, cfg config.CaptureConfig) error {
	if err := (proto.NetworkEnable{}).Call(p); err != nil {
		return err
	}
	return proto.NetworkEmulateNetworkConditions{
		Offline:            false,
		Latency:            float64(cfg.Latency.Milliseconds()),
		DownloadThroughput: float64(cfg.DownloadKbps) * 1024 / 8,
		UploadThroughput:   float64(cfg.UploadKbps) * 1024 / 8,
	}.Call(p)
}

// Capture brings url to a stable state and snapshots it.
//
//  1. Idle listener  – registered BEFORE Navigate or in-flight requests are missed
//  2. Navigate       – bounded by NavigationTimeout when it is non-zero
//  3. Wait           – network idle, or DOM stable when the ad blocker owns
//     the Fetch domain
//  4. Auto-scroll    – step to the bottom so lazy content loads, then settle
//  5. Reveal/overlay – optional layout knobs
//  6. Extract        – outer HTML + metadata
func (s *session) Capture(ctx context.Context, url string) (*engine.Snapshot, error) {
	navCtx := ctx
	if s.captureCfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, s.captureCfg.NavigationTimeout)
		defer cancel()
	}
	nav := s.page.Context(navCtx)

	// WaitRequestIdle conflicts with HijackRequests on recent Chromium, so
	// the ad blocker falls back to DOM stability.
	var waitIdle func()
	if s.router == nil {
		waitIdle = nav.WaitRequestIdle(s.captureCfg.IdleWindow, nil, nil, idleExcludedTypes)
	}

	if err := nav.Navigate(url); err != nil {
		return nil, categorizeError(err, models.ErrCodeNavigation, "navigation to "+url+" failed")
	}

	if waitIdle != nil {
		waitIdle()
	} else if err := nav.WaitDOMStable(s.captureCfg.IdleWindow, 0.1); err != nil {
		s.logger.Debug("WaitDOMStable did not converge, proceeding with current DOM", "url", url, "error", err)
	}
	if err := navCtx.Err(); err != nil {
		return nil, categorizeError(err, models.ErrCodeNavigation, "page did not settle: "+url)
	}

	p := s.page.Context(ctx)

	if err := autoScroll(p, s.captureCfg); err != nil {
		return nil, categorizeError(err, models.ErrCodeCapture, "auto-scroll failed")
	}
	if s.captureCfg.RemoveOverlays {
		removeOverlays(p)
	}
	if len(s.captureCfg.RevealSelectors) > 0 {
		reveal(p, s.captureCfg.RevealSelectors)
	}

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, models.ErrCodeCapture, "failed to extract page HTML")
	}

	return &engine.Snapshot{
		URL:      url,
		HTML:     rawHTML,
		Page:     &rodPage{page: s.page},
		Metadata: ExtractMetadata(rawHTML, url, s.logger),
	}, nil
}

// Close stops the ad blocker, closes the tab and kills the browser.
func (s *session) Close() error {
	var errs []error
	if s.router != nil {
		if err := s.router.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.closeBrowser(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *session) closeBrowser() error {
	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	return err
}

// categorizeError wraps raw errors into typed PrerenderErrors. Deadline and
// cancellation win over the step-specific code.
func categorizeError(err error, code, msg string) *models.PrerenderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewError(models.ErrCodeTimeout, "capture canceled", err)
	default:
		return models.NewError(code, msg, err)
	}
}

// settle sleeps for d unless ctx ends first.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
