package scraper

import (
	"github.com/go-rod/rod"
	"github.com/use-agent/prerender/config"
)

// autoScrollJS scrolls by a fixed step on a timer until the scrolled
// distance reaches the document's scroll height. Pages that keep growing
// (infinite feeds) are capped at maxSteps.
const autoScrollJS = `(step, interval, maxSteps) => new Promise(resolve => {
	let total = 0;
	let steps = 0;
	const timer = setInterval(() => {
		window.scrollBy(0, step);
		total += step;
		steps++;
		const height = document.body ? document.body.scrollHeight : 0;
		if (total >= height || steps >= maxSteps) {
			clearInterval(timer);
			resolve(total);
		}
	}, interval);
})`

// maxScrollSteps bounds auto-scroll on pages that never stop growing.
const maxScrollSteps = 2000

// autoScroll walks the page to the bottom so lazy-loaded images and
// scroll-triggered transitions render, then waits SettleDelay.
func autoScroll(p *rod.Page, cfg config.CaptureConfig) error {
	step := cfg.ScrollStep
	if step <= 0 {
		step = 50
	}
	interval := cfg.ScrollInterval.Milliseconds()
	if interval <= 0 {
		interval = 100
	}

	if _, err := p.Eval(autoScrollJS, step, interval, maxScrollSteps); err != nil {
		return err
	}
	return settle(p.GetContext(), cfg.SettleDelay)
}

// revealJS forces the matched elements visible. Some layouts only show a
// footer after a scroll animation that headless capture never triggers.
const revealJS = `(selectors) => {
	for (const sel of selectors) {
		let nodes;
		try { nodes = document.querySelectorAll(sel); } catch (e) { continue; }
		nodes.forEach(el => {
			el.style.display = 'block';
			el.style.visibility = 'visible';
			el.style.opacity = '1';
			el.style.transform = 'none';
		});
	}
}`

func reveal(p *rod.Page, selectors []string) {
	_, _ = p.Eval(revealJS, selectors)
}

// removeOverlays strips fixed/sticky elements with a high z-index and the
// usual cookie/consent containers so they do not cover the capture.
func removeOverlays(p *rod.Page) {
	const js = `() => {
		for (const el of document.querySelectorAll('body *')) {
			const style = window.getComputedStyle(el);
			if (style.position !== 'fixed' && style.position !== 'sticky') continue;
			const z = parseInt(style.zIndex, 10);
			if (z >= 900) el.remove();
		}
		const selectors = [
			'[class*="cookie"]', '[id*="cookie"]',
			'[class*="consent"]', '[id*="consent"]',
			'[class*="gdpr"]', '[id*="gdpr"]',
		];
		for (const sel of selectors) {
			document.querySelectorAll(sel).forEach(el => {
				const pos = window.getComputedStyle(el).position;
				if (pos === 'fixed' || pos === 'sticky') el.remove();
			});
		}
		document.documentElement.style.overflow = '';
		if (document.body) document.body.style.overflow = '';
	}`
	_, _ = p.Eval(js)
}
