package pdf

import (
	"bytes"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/CarlosOrtiz/mail-pdf-backend/internal/errs"
	"github.com/CarlosOrtiz/mail-pdf-backend/pkg/models"
)

// IsPDF reports whether an attachment carries a PDF, by declared content
// type or filename extension
func IsPDF(att models.Attachment) bool {
	if strings.HasPrefix(strings.ToLower(att.ContentType), "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(att.Filename), ".pdf")
}

// PDFAttachments returns the content of msg's PDF attachments, in
// attachment-list order
func PDFAttachments(msg *models.Message) [][]byte {
	var out [][]byte
	for _, att := range msg.Attachments {
		if IsPDF(att) {
			out = append(out, att.Content)
		}
	}
	return out
}

// Composer merges a rendered message PDF with its PDF attachments
type Composer struct {
	conf *pdfmodel.Configuration
}

// NewComposer creates a composer. Validation is relaxed: mail attachments
// come from arbitrary producers.
func NewComposer() *Composer {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return &Composer{conf: conf}
}

// Compose appends every page of each attachment, in list order, after the
// pages of the primary document. Page content is copied, not re-rendered.
// With no attachments the primary document is returned unchanged.
func (c *Composer) Compose(primary []byte, attachments [][]byte) ([]byte, error) {
	if len(attachments) == 0 {
		return primary, nil
	}

	readers := make([]io.ReadSeeker, 0, len(attachments)+1)
	readers = append(readers, bytes.NewReader(primary))
	for _, att := range attachments {
		readers = append(readers, bytes.NewReader(att))
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, c.conf); err != nil {
		return nil, errs.Wrap(errs.KindComposeFailed, "failed to merge PDF documents", err)
	}
	return out.Bytes(), nil
}

// PageCount returns the number of pages in a PDF document
func (c *Composer) PageCount(doc []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(doc), c.conf)
	if err != nil {
		return 0, errs.Wrap(errs.KindComposeFailed, "failed to count pages", err)
	}
	return n, nil
}
