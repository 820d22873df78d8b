package render

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/CarlosOrtiz/mail-pdf-backend/pkg/models"
)

// documentTemplate is the printable rendition of a message: escaped subject
// and header fields, the message body, and an attachment summary. The HTML
// body is inserted as-is; it renders into its own isolated document, never
// into a host UI.
var documentTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
    line-height: 1.6;
    color: #333;
    max-width: 900px;
    margin: 0 auto;
    padding: 40px 20px;
    background-color: #ffffff;
  }
  .email-header {
    background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
    color: white;
    padding: 30px;
    border-radius: 10px;
    margin-bottom: 30px;
  }
  .email-header h1 { margin: 0 0 20px 0; font-size: 24px; font-weight: 600; }
  .email-info { background-color: white; color: #333; padding: 15px; border-radius: 8px; margin-top: 15px; }
  .email-info-row { display: flex; padding: 8px 0; border-bottom: 1px solid #e0e0e0; }
  .email-info-row:last-child { border-bottom: none; }
  .email-info-label { font-weight: 600; min-width: 100px; color: #666; }
  .email-info-value { flex: 1; color: #333; }
  .email-body {
    background-color: #f9f9f9;
    padding: 30px;
    border-radius: 10px;
    border-left: 4px solid #667eea;
    margin: 20px 0;
  }
  .email-body img { max-width: 100%; height: auto; }
  .attachments { margin-top: 30px; padding: 20px; background-color: #f5f5f5; border-radius: 8px; }
  .attachments h3 { color: #333; margin-top: 0; }
  .attachments ul { list-style: none; padding: 0; }
  .attachments li { padding: 10px; background: white; margin: 5px 0; border-radius: 4px; border-left: 3px solid #4CAF50; }
  .attachments .size { color: #666; }
  .footer { margin-top: 40px; padding-top: 20px; border-top: 2px solid #e0e0e0; text-align: center; color: #999; font-size: 12px; }
</style>
</head>
<body>
  <div class="email-header">
    <h1>{{.Subject}}</h1>
    <div class="email-info">
      <div class="email-info-row">
        <span class="email-info-label">From:</span>
        <span class="email-info-value">{{.From}}</span>
      </div>
      <div class="email-info-row">
        <span class="email-info-label">To:</span>
        <span class="email-info-value">{{.To}}</span>
      </div>
      {{if .CC}}<div class="email-info-row">
        <span class="email-info-label">CC:</span>
        <span class="email-info-value">{{.CC}}</span>
      </div>{{end}}
      <div class="email-info-row">
        <span class="email-info-label">Date:</span>
        <span class="email-info-value">{{.Date}}</span>
      </div>
    </div>
  </div>

  <div class="email-body">
    {{if .BodyHTML}}{{.BodyHTML}}{{else}}<pre style="white-space: pre-wrap; font-family: inherit;">{{.BodyText}}</pre>{{end}}
  </div>

  {{if .Attachments}}<div class="attachments">
    <h3>Attachments ({{len .Attachments}})</h3>
    <ul>
      {{range .Attachments}}<li><strong>{{.Name}}</strong> <span class="size">({{.Size}})</span></li>
      {{end}}
    </ul>
  </div>{{end}}

  <div class="footer">Converted from EML to PDF | {{.GeneratedAt}}</div>
</body>
</html>
`))

type attachmentEntry struct {
	Name string
	Size string
}

type documentData struct {
	Subject     string
	From        string
	To          string
	CC          string
	Date        string
	BodyHTML    template.HTML
	BodyText    string
	Attachments []attachmentEntry
	GeneratedAt string
}

// BuildDocument renders a message into the printable HTML document
func BuildDocument(msg *models.Message) (string, error) {
	data := documentData{
		Subject:     msg.Subject,
		From:        formatAddress(msg.From),
		To:          formatAddresses(msg.To),
		CC:          formatAddresses(msg.Cc),
		Date:        formatDate(msg.Date),
		BodyText:    msg.BodyText,
		GeneratedAt: time.Now().Format("Jan 2, 2006 15:04"),
	}
	if data.Subject == "" {
		data.Subject = "(no subject)"
	}
	if msg.BodyHTML != "" {
		data.BodyHTML = template.HTML(cleanBody(msg.BodyHTML))
	} else if msg.BodyText == "" {
		data.BodyText = "(no content)"
	}
	if len(msg.Cc) == 0 {
		data.CC = ""
	}
	for _, att := range msg.Attachments {
		name := att.Filename
		if name == "" {
			name = "(unnamed)"
		}
		data.Attachments = append(data.Attachments, attachmentEntry{
			Name: name,
			Size: humanSize(att.Size),
		})
	}

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build document: %w", err)
	}
	return buf.String(), nil
}

func formatAddress(a *models.Address) string {
	if a == nil || (a.Name == "" && a.Address == "") {
		return "N/A"
	}
	if a.Name != "" {
		return fmt.Sprintf("%s <%s>", a.Name, a.Address)
	}
	return a.Address
}

func formatAddresses(addrs []*models.Address) string {
	if len(addrs) == 0 {
		return "N/A"
	}
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, formatAddress(a))
	}
	return strings.Join(parts, ", ")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("Jan 2, 2006 15:04")
}

// humanSize formats a byte count in base-1024 units, rounded to two decimals
func humanSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + " " + units[i]
}
