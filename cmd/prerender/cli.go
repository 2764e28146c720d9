package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/use-agent/prerender/app"
	"github.com/use-agent/prerender/config"
	"github.com/use-agent/prerender/models"
)

const version = "1.3.3"

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type options struct {
	url        string
	formats    string
	output     string
	configPath string
	csv        bool
	cookies    string
	width      int
	debug      bool
	version    bool
}

// newFlagSet registers every option under its short and long name.
func newFlagSet(o *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("prerender", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.url, "u", "", "page URL or sitemap.xml URL")
	fs.StringVar(&o.url, "url", "", "page URL or sitemap.xml URL")
	fs.StringVar(&o.formats, "f", "", "comma-separated formats: html,html-minified,html-embedded,screenshot,pdf,text")
	fs.StringVar(&o.formats, "formats", "", "comma-separated formats")
	fs.StringVar(&o.output, "o", "", "output directory")
	fs.StringVar(&o.output, "output", "", "output directory")
	fs.StringVar(&o.configPath, "c", "", "JSON run file (see -h config)")
	fs.StringVar(&o.configPath, "config", "", "JSON run file")
	fs.BoolVar(&o.csv, "csv", false, "write page load times to timing.csv")
	fs.StringVar(&o.cookies, "cookies", "", `JSON object of cookies, e.g. '{"gdpr":"true"}'`)
	fs.IntVar(&o.width, "w", 0, "viewport width in pixels")
	fs.IntVar(&o.width, "width", 0, "viewport width in pixels")
	fs.BoolVar(&o.debug, "d", false, "debug logging")
	fs.BoolVar(&o.debug, "debug", false, "debug logging")
	fs.BoolVar(&o.version, "v", false, "print version")
	fs.BoolVar(&o.version, "version", false, "print version")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: prerender -u <url|sitemap> -f <formats> -o <output> [options]")
		fmt.Fprintln(stderr, "       prerender -h config   print an example run file")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}
	return fs
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if wantsConfigHelp(args) {
		fmt.Fprintln(stdout, config.ExampleRunFile)
		return exitOK
	}

	var o options
	fs := newFlagSet(&o, stderr)
	if len(args) == 0 {
		fs.Usage()
		return exitOK
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if o.version {
		fmt.Fprintln(stdout, version)
		return exitOK
	}

	cfg := config.Load()
	if o.debug {
		cfg.Log.Level = "debug"
	}
	logger := app.NewLogger(cfg.Log, stderr)

	req, err := buildRequest(&o, cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "prerender: %v\n", err)
		return exitUsage
	}
	logger.Debug("resolved run configuration",
		"url", req.URL,
		"formats", req.Formats,
		"output", req.OutputDir,
		"width", req.ViewportWidth,
		"csv", req.CSV,
		"cookies", len(req.Cookies),
	)

	p := app.NewPipeline(cfg, logger)
	if _, err := p.Runner.Run(ctx, req); err != nil {
		fmt.Fprintf(stderr, "prerender: %v\n", err)
		if models.CodeOf(err) == models.ErrCodeInvalidInput {
			return exitUsage
		}
		return exitError
	}
	return exitOK
}

// wantsConfigHelp matches "-h config" and "--help config".
func wantsConfigHelp(args []string) bool {
	help, cfg := false, false
	for _, a := range args {
		switch a {
		case "-h", "--help", "-help":
			help = true
		case "config":
			cfg = true
		}
	}
	return help && cfg
}

// buildRequest merges, lowest precedence first: environment defaults, the
// run file, then command-line flags. Cookies from --cookies are merged
// over the run file's per name.
func buildRequest(o *options, cfg *config.Config, logger *slog.Logger) (*models.CaptureRequest, error) {
	req := &models.CaptureRequest{
		OutputDir:     cfg.Output.Dir,
		ViewportWidth: cfg.Output.Width,
		CSV:           cfg.Output.CSV,
	}
	rawFormats := cfg.Output.Formats

	if o.configPath != "" {
		rf, err := config.LoadRunFile(o.configPath)
		if err != nil {
			return nil, err
		}
		logger.Debug("run file loaded", "path", o.configPath)
		if rf.URL != "" {
			req.URL = rf.URL
		}
		if len(rf.Formats) > 0 {
			rawFormats = rf.Formats
		}
		if rf.Output != "" {
			req.OutputDir = rf.Output
		}
		if rf.Width > 0 {
			req.ViewportWidth = rf.Width
		}
		if rf.CSV {
			req.CSV = true
		}
		req.Cookies = rf.StringCookies()
	}

	if o.url != "" {
		req.URL = o.url
	}
	if o.formats != "" {
		rawFormats = strings.Split(o.formats, ",")
	}
	if o.output != "" {
		req.OutputDir = o.output
	}
	if o.width > 0 {
		req.ViewportWidth = o.width
	}
	if o.csv {
		req.CSV = true
	}
	if o.cookies != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(o.cookies), &extra); err != nil {
			return nil, fmt.Errorf("--cookies must be a JSON object: %w", err)
		}
		merged := (&config.RunFile{Cookies: extra}).StringCookies()
		if req.Cookies == nil {
			req.Cookies = make(map[string]string, len(merged))
		}
		for k, v := range merged {
			req.Cookies[k] = v
		}
	}

	if req.URL == "" {
		return nil, errors.New("no URL given: use -u or a run file with \"url\"")
	}

	formats, unknown := models.ParseFormats(rawFormats)
	if len(unknown) > 0 {
		logger.Debug("ignoring unknown formats", "formats", unknown)
	}
	req.Formats = formats

	req.Defaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}
