package scraper

import (
	"context"
	"io"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/prerender/engine"
	"github.com/ysmood/gson"
)

// A4 in inches.
const (
	a4Width  = 8.27
	a4Height = 11.69
)

// rodPage exposes the live tab to the post-processors.
type rodPage struct {
	page *rod.Page
}

var _ engine.Page = (*rodPage)(nil)

func (r *rodPage) HTML(ctx context.Context) (string, error) {
	return r.page.Context(ctx).HTML()
}

func (r *rodPage) Text(ctx context.Context) (string, error) {
	res, err := r.page.Context(ctx).Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (r *rodPage) ImageSources(ctx context.Context) ([]string, error) {
	res, err := r.page.Context(ctx).Eval(`() => Array.from(document.images, img => img.src)`)
	if err != nil {
		return nil, err
	}
	return stringsOf(res.Value), nil
}

// replaceImagesJS matches on the resolved src property, so relative and
// absolute spellings of the same image are both rewritten.
const replaceImagesJS = `(replacements) => {
	let n = 0;
	for (const img of document.images) {
		const data = replacements[img.src];
		if (data) {
			img.removeAttribute('srcset');
			img.setAttribute('src', data);
			n++;
		}
	}
	return n;
}`

func (r *rodPage) ReplaceImageSources(ctx context.Context, replacements map[string]string) (int, error) {
	if len(replacements) == 0 {
		return 0, nil
	}
	res, err := r.page.Context(ctx).Eval(replaceImagesJS, replacements)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (r *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return r.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (r *rodPage) PDF(ctx context.Context) ([]byte, error) {
	stream, err := r.page.Context(ctx).PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
		PaperWidth:      gson.Num(a4Width),
		PaperHeight:     gson.Num(a4Height),
	})
	if err != nil {
		return nil, err
	}
	return io.ReadAll(stream)
}

func stringsOf(v gson.JSON) []string {
	arr := v.Arr()
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		out = append(out, item.Str())
	}
	return out
}
