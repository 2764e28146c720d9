package export

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/use-agent/prerender/models"
)

type screenshotProcessor struct{}

func (screenshotProcessor) Format() models.FormatKind { return models.FormatScreenshot }

func (screenshotProcessor) Process(ctx context.Context, st *State) ([]byte, error) {
	return st.Snapshot.Page.Screenshot(ctx)
}

type pdfProcessor struct {
	logger *slog.Logger
}

func (pdfProcessor) Format() models.FormatKind { return models.FormatPDF }

func (p pdfProcessor) Process(ctx context.Context, st *State) ([]byte, error) {
	data, err := st.Snapshot.Page.PDF(ctx)
	if err != nil {
		return nil, err
	}
	if n, err := pageCount(data); err != nil {
		p.logger.Debug("pdf page count unavailable", "url", st.Snapshot.URL, "error", err)
	} else if st.Snapshot.Metadata != nil {
		st.Snapshot.Metadata.PDFPages = n
	}
	return data, nil
}

// pageCount reads the page tree of a printed PDF.
func pageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}
