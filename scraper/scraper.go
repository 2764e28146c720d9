package scraper

import (
	"context"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/prerender/config"
	"github.com/use-agent/prerender/engine"
	"github.com/use-agent/prerender/models"
)

// Driver launches Chromium through Rod. Each Open starts a fresh browser
// process with a single tab that is reused for the whole batch.
type Driver struct {
	browserCfg config.BrowserConfig
	captureCfg config.CaptureConfig
	logger     *slog.Logger
}

// NewDriver creates a Driver. A nil logger uses slog.Default().
func NewDriver(browserCfg config.BrowserConfig, captureCfg config.CaptureConfig, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		browserCfg: browserCfg,
		captureCfg: captureCfg,
		logger:     logger,
	}
}

var _ engine.Driver = (*Driver)(nil)

// Open launches the browser and prepares the shared tab.
//
// Order matters: stealth scripts, the ad blocker, cookies and network
// emulation only apply to navigations that happen after they are installed.
func (d *Driver) Open(ctx context.Context, req *models.CaptureRequest) (engine.Session, error) {
	browser, err := d.launch()
	if err != nil {
		return nil, err
	}

	s := &session{
		browser:    browser,
		captureCfg: d.captureCfg,
		blockAds:   d.browserCfg.BlockAds,
		logger:     d.logger,
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		s.closeBrowser()
		return nil, models.NewError(models.ErrCodeBrowserCrash, "failed to open browser tab", err)
	}
	s.page = page

	if err := s.prepare(ctx, req, d.browserCfg.Stealth); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (d *Driver) launch() (*rod.Browser, error) {
	l := launcher.New().
		Headless(d.browserCfg.Headless).
		NoSandbox(d.browserCfg.NoSandbox)

	if d.browserCfg.BrowserBin != "" {
		l = l.Bin(d.browserCfg.BrowserBin)
	}
	if d.browserCfg.Proxy != "" {
		l = l.Proxy(d.browserCfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("hide-scrollbars"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	d.logger.Debug("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}
	return browser, nil
}
