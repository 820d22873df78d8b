package api

import (
	"html/template"
	"net/http"
)

// homeTemplate is the status homepage: connection state, the login entry
// point, and a short endpoint overview.
var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>EML to PDF</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
    min-height: 100vh;
    padding: 20px;
  }
  .container { max-width: 700px; margin: 0 auto; background: white; border-radius: 15px; overflow: hidden; }
  .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; }
  .content { padding: 30px; }
  .status { padding: 15px; border-radius: 10px; margin-bottom: 20px; }
  .status.connected { background: #d4edda; border: 2px solid #28a745; color: #155724; }
  .status.disconnected { background: #f8d7da; border: 2px solid #dc3545; color: #721c24; }
  .btn {
    display: inline-block;
    padding: 10px 25px;
    background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
    color: white;
    text-decoration: none;
    border-radius: 25px;
    font-weight: 600;
  }
  ul { list-style: none; margin-top: 20px; }
  li { padding: 8px 0; border-bottom: 1px solid #e9ecef; }
  li:last-child { border-bottom: none; }
  code { background: #e9ecef; padding: 3px 8px; border-radius: 4px; color: #d63384; }
</style>
</head>
<body>
  <div class="container">
    <div class="header"><h1>EML to PDF converter</h1></div>
    <div class="content">
      {{if .HasToken}}
      <div class="status connected">Connected to the drive and ready to convert.</div>
      {{else}}
      <div class="status disconnected">Not authenticated.</div>
      <a href="/auth/login" class="btn">Sign in with Microsoft</a>
      {{end}}
      <ul>
        <li><code>GET /api/files</code> list drive root</li>
        <li><code>POST /api/convert/eml-to-pdf</code> convert one message</li>
        <li><code>GET /api/convert/cron</code> run today's batch</li>
        <li><code>GET /api/convert/history</code> recent conversions</li>
        <li><code>GET /health</code> service health</li>
      </ul>
    </div>
  </div>
</body>
</html>
`))

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct{ HasToken bool }{HasToken: h.creds.Authenticated()}
	if err := homeTemplate.Execute(w, data); err != nil {
		h.logger.Error("failed to render homepage", "error", err)
	}
}
