package render

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/CarlosOrtiz/mail-pdf-backend/internal/errs"
	"github.com/CarlosOrtiz/mail-pdf-backend/pkg/models"
)

// A4 paper with a uniform margin, in inches
const (
	paperWidth  = 8.27
	paperHeight = 11.69
	pageMargin  = 0.2
)

// Renderer turns messages into paginated PDF bytes via headless Chrome
type Renderer struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewRenderer creates a renderer. timeout bounds one render, browser startup
// included.
func NewRenderer(timeout time.Duration, logger *slog.Logger) *Renderer {
	if timeout == 0 {
		timeout = 45 * time.Second
	}
	return &Renderer{
		timeout: timeout,
		logger:  logger.With("component", "render"),
	}
}

// RenderPDF builds the printable HTML document for msg and prints it to PDF
func (r *Renderer) RenderPDF(ctx context.Context, msg *models.Message) ([]byte, error) {
	doc, err := BuildDocument(msg)
	if err != nil {
		return nil, errs.Wrap(errs.KindRenderFailed, "failed to build document", err)
	}
	return r.printToPDF(ctx, doc)
}

// printToPDF renders an HTML document in a fresh browser context. Each
// conversion gets its own browser so concurrent renders cannot interfere
// with each other's page state; every exit path releases it.
func (r *Renderer) printToPDF(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.NoSandbox)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	dataURL := "data:text/html;charset=utf-8," + url.PathEscape(html)

	started := time.Now()
	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(300*time.Millisecond), // let images and fonts settle
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidth).
				WithPaperHeight(paperHeight).
				WithMarginTop(pageMargin).
				WithMarginBottom(pageMargin).
				WithMarginLeft(pageMargin).
				WithMarginRight(pageMargin).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, errs.Wrap(errs.KindRenderFailed, "headless render failed", err)
	}
	if len(pdf) == 0 {
		return nil, errs.New(errs.KindRenderFailed, "renderer produced no output")
	}

	r.logger.Debug("rendered document", "bytes", len(pdf), "duration", time.Since(started))
	return pdf, nil
}
