package convert

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/CarlosOrtiz/mail-pdf-backend/internal/errs"
	"github.com/CarlosOrtiz/mail-pdf-backend/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDrive serves canned files and records uploads
type fakeDrive struct {
	files       map[string]fakeFile // by item id
	downloadErr error
	uploadErr   error
	uploads     []fakeUpload
}

type fakeFile struct {
	name    string
	content []byte
}

type fakeUpload struct {
	folderID    string
	name        string
	content     []byte
	contentType string
}

func (d *fakeDrive) DownloadItem(ctx context.Context, itemID string) (string, []byte, error) {
	if d.downloadErr != nil {
		return "", nil, d.downloadErr
	}
	f, ok := d.files[itemID]
	if !ok {
		return "", nil, errs.Remote(404, "item not found", "")
	}
	return f.name, f.content, nil
}

func (d *fakeDrive) Upload(ctx context.Context, folderID, name string, content []byte, contentType string) (models.RemoteItem, error) {
	if d.uploadErr != nil {
		return models.RemoteItem{}, d.uploadErr
	}
	d.uploads = append(d.uploads, fakeUpload{folderID, name, content, contentType})
	return models.RemoteItem{
		ID:     "uploaded-" + name,
		Name:   name,
		Size:   int64(len(content)),
		WebURL: "https://drive.example/" + name,
	}, nil
}

func (d *fakeDrive) ListChildren(ctx context.Context, folderID string) ([]models.RemoteItem, error) {
	return nil, nil
}

// fakeFolders resolves every name to a fixed id
type fakeFolders struct {
	today     string
	ensureErr error
	ensured   []string
}

func (f *fakeFolders) TodayName() string { return f.today }

func (f *fakeFolders) Ensure(ctx context.Context, name string) (string, error) {
	if f.ensureErr != nil {
		return "", f.ensureErr
	}
	f.ensured = append(f.ensured, name)
	return "folder-" + name, nil
}

func (f *fakeFolders) Lookup(ctx context.Context, name string) (string, bool, error) {
	return "", false, nil
}

type fakeParser struct {
	err error
}

func (p *fakeParser) Parse(raw []byte) (*models.Message, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &models.Message{Subject: "parsed " + string(raw)}, nil
}

type fakeRenderer struct {
	err error
}

func (r *fakeRenderer) RenderPDF(ctx context.Context, msg *models.Message) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF " + msg.Subject), nil
}

type fakeComposer struct {
	err    error
	called bool
}

func (c *fakeComposer) Compose(primary []byte, attachments [][]byte) ([]byte, error) {
	c.called = true
	if c.err != nil {
		return nil, c.err
	}
	out := append([]byte{}, primary...)
	for _, att := range attachments {
		out = append(out, att...)
	}
	return out, nil
}

type memRecorder struct {
	records []models.ConversionResult
	err     error
}

func (r *memRecorder) Record(ctx context.Context, res *models.ConversionResult) error {
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, *res)
	return nil
}

type pipelineFixture struct {
	drive    *fakeDrive
	folders  *fakeFolders
	parser   *fakeParser
	renderer *fakeRenderer
	composer *fakeComposer
	recorder *memRecorder
	pipeline *Pipeline
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		drive: &fakeDrive{files: map[string]fakeFile{
			"id-1": {name: "invoice.eml", content: []byte("raw")},
		}},
		folders:  &fakeFolders{today: "November 12"},
		parser:   &fakeParser{},
		renderer: &fakeRenderer{},
		composer: &fakeComposer{},
		recorder: &memRecorder{},
	}
	f.pipeline = NewPipeline(f.drive, f.folders, f.parser, f.renderer, f.composer, f.recorder, testLogger())
	return f
}

func TestConvertAndUpload(t *testing.T) {
	f := newPipelineFixture()

	res, err := f.pipeline.ConvertAndUpload(context.Background(), "id-1", "Archive")
	if err != nil {
		t.Fatalf("ConvertAndUpload: %v", err)
	}

	if !res.Success {
		t.Error("result not successful")
	}
	if res.OriginalFile != "invoice.eml" || res.ConvertedFile != "invoice.pdf" {
		t.Errorf("names = %q -> %q", res.OriginalFile, res.ConvertedFile)
	}
	if res.Folder != "Archive" {
		t.Errorf("folder = %q", res.Folder)
	}

	if len(f.drive.uploads) != 1 {
		t.Fatalf("got %d uploads, want 1", len(f.drive.uploads))
	}
	up := f.drive.uploads[0]
	if up.folderID != "folder-Archive" || up.contentType != "application/pdf" {
		t.Errorf("upload = %+v", up)
	}
	if f.composer.called {
		t.Error("composer ran although the message has no PDF attachments")
	}

	if len(f.recorder.records) != 1 || !f.recorder.records[0].Success {
		t.Errorf("records = %+v", f.recorder.records)
	}
}

func TestConvertAndUploadDefaultsToTodayFolder(t *testing.T) {
	f := newPipelineFixture()

	res, err := f.pipeline.ConvertAndUpload(context.Background(), "id-1", "")
	if err != nil {
		t.Fatalf("ConvertAndUpload: %v", err)
	}
	if res.Folder != "November 12" {
		t.Errorf("folder = %q, want today's name", res.Folder)
	}
	if len(f.folders.ensured) != 1 || f.folders.ensured[0] != "November 12" {
		t.Errorf("ensured folders = %v", f.folders.ensured)
	}
}

func TestConvertAndUploadMergesPDFAttachments(t *testing.T) {
	f := newPipelineFixture()
	f.parser = &fakeParser{}
	f.pipeline = NewPipeline(f.drive, f.folders, parserWithAttachment{}, f.renderer, f.composer, f.recorder, testLogger())

	_, err := f.pipeline.ConvertAndUpload(context.Background(), "id-1", "Archive")
	if err != nil {
		t.Fatalf("ConvertAndUpload: %v", err)
	}
	if !f.composer.called {
		t.Error("composer did not run for a message with a PDF attachment")
	}
}

type parserWithAttachment struct{}

func (parserWithAttachment) Parse(raw []byte) (*models.Message, error) {
	return &models.Message{
		Subject: "with attachment",
		Attachments: []models.Attachment{
			{Filename: "scan.pdf", ContentType: "application/pdf", Content: []byte("%PDF-att")},
			{Filename: "photo.jpg", ContentType: "image/jpeg", Content: []byte("jpg")},
		},
	}, nil
}

func TestConvertAndUploadStagesFailures(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*pipelineFixture)
		wantKind  errs.Kind
		wantStage string
		wantFile  string
	}{
		{
			name:      "download failure falls back to the file id",
			mutate:    func(f *pipelineFixture) { f.drive.downloadErr = errs.Remote(503, "drive down", "") },
			wantKind:  errs.KindRemoteStore,
			wantStage: "download",
			wantFile:  "id-1",
		},
		{
			name:      "parse failure",
			mutate:    func(f *pipelineFixture) { f.parser.err = errs.New(errs.KindMalformedMessage, "bad mime") },
			wantKind:  errs.KindMalformedMessage,
			wantStage: "parse",
			wantFile:  "invoice.eml",
		},
		{
			name:      "render failure",
			mutate:    func(f *pipelineFixture) { f.renderer.err = errs.New(errs.KindRenderFailed, "chrome crashed") },
			wantKind:  errs.KindRenderFailed,
			wantStage: "render",
			wantFile:  "invoice.eml",
		},
		{
			name:      "upload failure",
			mutate:    func(f *pipelineFixture) { f.drive.uploadErr = errs.Remote(507, "quota", "") },
			wantKind:  errs.KindRemoteStore,
			wantStage: "upload",
			wantFile:  "invoice.eml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture()
			tt.mutate(f)
			f.pipeline = NewPipeline(f.drive, f.folders, f.parser, f.renderer, f.composer, f.recorder, testLogger())

			_, err := f.pipeline.ConvertAndUpload(context.Background(), "id-1", "Archive")
			if err == nil {
				t.Fatal("expected error")
			}
			if kind := errs.KindOf(err); kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", kind, tt.wantKind)
			}
			if stage := errs.StageOf(err); stage != tt.wantStage {
				t.Errorf("stage = %q, want %q", stage, tt.wantStage)
			}

			// the failure still lands in the history
			if len(f.recorder.records) != 1 {
				t.Fatalf("got %d records, want 1", len(f.recorder.records))
			}
			rec := f.recorder.records[0]
			if rec.Success {
				t.Error("failure recorded as success")
			}
			if rec.OriginalFile != tt.wantFile {
				t.Errorf("recorded file = %q, want %q", rec.OriginalFile, tt.wantFile)
			}
			if rec.Error == nil || rec.Error.Kind != string(tt.wantKind) {
				t.Errorf("recorded error = %+v", rec.Error)
			}
		})
	}
}

func TestConvertAndUploadRecorderFailureIsNotFatal(t *testing.T) {
	f := newPipelineFixture()
	f.recorder.err = errs.New(errs.KindRemoteStore, "db locked")
	f.pipeline = NewPipeline(f.drive, f.folders, f.parser, f.renderer, f.composer, f.recorder, testLogger())

	if _, err := f.pipeline.ConvertAndUpload(context.Background(), "id-1", "Archive"); err != nil {
		t.Fatalf("ConvertAndUpload: %v", err)
	}
}

func TestPDFName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"invoice.eml", "invoice.pdf"},
		{"INVOICE.EML", "INVOICE.pdf"},
		{"report.v2.eml", "report.v2.pdf"},
		{"noext", "noext.pdf"},
		{"archive.msg", "archive.msg.pdf"},
	}
	for _, tt := range tests {
		if got := pdfName(tt.in); got != tt.want {
			t.Errorf("pdfName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
