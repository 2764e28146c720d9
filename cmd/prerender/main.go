// Command prerender renders a page, or every page of a sitemap, into
// offline artifacts.
//
//	prerender -u https://example.com/sitemap.xml -f html-embedded,screenshot -o ./output --csv
//	prerender -c run.json
//	prerender -h config
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
