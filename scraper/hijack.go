package scraper

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// adHosts are ad, analytics and consent-tracking hosts. Subdomains match.
var adHosts = map[string]bool{
	"doubleclick.net":       true,
	"googlesyndication.com": true,
	"googleadservices.com":  true,
	"google-analytics.com":  true,
	"googletagmanager.com":  true,
	"googletagservices.com": true,
	"connect.facebook.net":  true,
	"adnxs.com":             true,
	"adsrvr.org":            true,
	"amazon-adsystem.com":   true,
	"criteo.com":            true,
	"criteo.net":            true,
	"outbrain.com":          true,
	"taboola.com":           true,
	"moatads.com":           true,
	"pubmatic.com":          true,
	"rubiconproject.com":    true,
	"scorecardresearch.com": true,
	"quantserve.com":        true,
	"hotjar.com":            true,
	"mixpanel.com":          true,
	"segment.io":            true,
	"chartbeat.com":         true,
	"optimizely.com":        true,
	"openx.net":             true,
	"casalemedia.com":       true,
	"demdex.net":            true,
	"krxd.net":              true,
	"bluekai.com":           true,
	"addthis.com":           true,
	"sharethis.com":         true,
}

// isAdDomain matches host and each of its parent domains against adHosts.
func isAdDomain(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for host != "" {
		if adHosts[host] {
			return true
		}
		dot := strings.IndexByte(host, '.')
		if dot < 0 {
			return false
		}
		host = host[dot+1:]
	}
	return false
}

// setupAdBlocker aborts every request to a known ad or tracking host.
// Everything else, images and stylesheets included, is let through since
// the capture must look like the real page.
//
// Returns the running HijackRouter; the session stops it on Close.
func setupAdBlocker(page *rod.Page) *rod.HijackRouter {
	router := page.HijackRequests()

	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if u, err := url.Parse(ctx.Request.URL().String()); err == nil && isAdDomain(u.Hostname()) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks until router.Stop().
	go router.Run()

	return router
}
