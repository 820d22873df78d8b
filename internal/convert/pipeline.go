package convert

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/CarlosOrtiz/mail-pdf-backend/internal/errs"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/pdf"
	"github.com/CarlosOrtiz/mail-pdf-backend/pkg/models"
)

// Drive is the slice of the remote store the conversion flow needs
type Drive interface {
	DownloadItem(ctx context.Context, itemID string) (string, []byte, error)
	Upload(ctx context.Context, folderID, name string, content []byte, contentType string) (models.RemoteItem, error)
	ListChildren(ctx context.Context, folderID string) ([]models.RemoteItem, error)
}

// Folders resolves destination folder names to folder ids
type Folders interface {
	TodayName() string
	Ensure(ctx context.Context, name string) (string, error)
	Lookup(ctx context.Context, name string) (string, bool, error)
}

// Parser decodes raw EML bytes
type Parser interface {
	Parse(raw []byte) (*models.Message, error)
}

// Renderer produces the paginated PDF for a message
type Renderer interface {
	RenderPDF(ctx context.Context, msg *models.Message) ([]byte, error)
}

// Composer merges the rendered PDF with PDF attachments
type Composer interface {
	Compose(primary []byte, attachments [][]byte) ([]byte, error)
}

// Recorder persists conversion outcomes for the history endpoint
type Recorder interface {
	Record(ctx context.Context, res *models.ConversionResult) error
}

// Pipeline converts one stored .eml file into a PDF and uploads it.
// Each stage failure aborts the conversion and carries the stage name; the
// only retry anywhere is the drive client's single credential refresh.
type Pipeline struct {
	drive    Drive
	folders  Folders
	parser   Parser
	renderer Renderer
	composer Composer
	recorder Recorder // optional
	logger   *slog.Logger
}

// NewPipeline creates a conversion pipeline. recorder may be nil.
func NewPipeline(drive Drive, folders Folders, parser Parser, renderer Renderer, composer Composer, recorder Recorder, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		drive:    drive,
		folders:  folders,
		parser:   parser,
		renderer: renderer,
		composer: composer,
		recorder: recorder,
		logger:   logger.With("component", "pipeline"),
	}
}

// ConvertAndUpload downloads the file, renders it to PDF, merges PDF
// attachments, and uploads the result into the named destination folder
// (created when absent). An empty folder name targets today's date folder. The uploaded name is the original with its .eml
// extension replaced by .pdf, or with .pdf appended when there is none.
func (p *Pipeline) ConvertAndUpload(ctx context.Context, fileID, targetFolder string) (*models.ConversionResult, error) {
	res, name, err := p.convert(ctx, fileID, targetFolder)
	if err != nil {
		if name == "" {
			// the download itself failed, the id is all we know
			name = fileID
		}
		failure := FailureResult(name, err)
		p.record(ctx, &failure)
		return nil, err
	}
	p.record(ctx, res)
	return res, nil
}

func (p *Pipeline) convert(ctx context.Context, fileID, targetFolder string) (*models.ConversionResult, string, error) {
	if targetFolder == "" {
		targetFolder = p.folders.TodayName()
	}

	name, raw, err := p.drive.DownloadItem(ctx, fileID)
	if err != nil {
		return nil, "", errs.WithStage("download", err)
	}
	log := p.logger.With("file", name)
	log.Info("converting message", "bytes", len(raw))

	msg, err := p.parser.Parse(raw)
	if err != nil {
		return nil, name, errs.WithStage("parse", err)
	}

	primary, err := p.renderer.RenderPDF(ctx, msg)
	if err != nil {
		return nil, name, errs.WithStage("render", err)
	}

	final := primary
	if atts := pdf.PDFAttachments(msg); len(atts) > 0 {
		log.Info("merging PDF attachments", "count", len(atts))
		final, err = p.composer.Compose(primary, atts)
		if err != nil {
			return nil, name, errs.WithStage("compose", err)
		}
	}

	folderID, err := p.folders.Ensure(ctx, targetFolder)
	if err != nil {
		return nil, name, err
	}

	uploaded, err := p.drive.Upload(ctx, folderID, pdfName(name), final, "application/pdf")
	if err != nil {
		return nil, name, errs.WithStage("upload", err)
	}
	log.Info("uploaded converted document", "name", uploaded.Name, "folder", targetFolder, "size", uploaded.Size)

	return &models.ConversionResult{
		Success:       true,
		OriginalFile:  name,
		ConvertedFile: uploaded.Name,
		FileID:        uploaded.ID,
		WebURL:        uploaded.WebURL,
		Size:          uploaded.Size,
		Folder:        targetFolder,
	}, name, nil
}

func (p *Pipeline) record(ctx context.Context, res *models.ConversionResult) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(ctx, res); err != nil {
		p.logger.Warn("failed to record conversion", "file", res.OriginalFile, "error", err)
	}
}

// FailureResult converts a conversion error into a failed result entry
func FailureResult(originalFile string, err error) models.ConversionResult {
	detail := errs.DetailOf(err)
	return models.ConversionResult{
		Success:      false,
		OriginalFile: originalFile,
		Error: &models.ErrorDetail{
			Kind:    string(errs.KindOf(err)),
			Message: err.Error(),
			Detail:  detail,
		},
	}
}

// pdfName derives the uploaded filename from the source filename
func pdfName(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".eml") {
		return name[:len(name)-len(".eml")] + ".pdf"
	}
	return name + ".pdf"
}
