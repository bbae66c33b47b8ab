package mcp

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Patient Intake MCP Server</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #f8fafc; color: #0f172a; max-width: 640px; margin: 3rem auto; padding: 0 1rem; }
  h1 { font-size: 1.5rem; margin-bottom: 0.25rem; }
  .subtitle { color: #475569; margin-bottom: 1.5rem; }
  code, .endpoint { font-family: "SF Mono", Menlo, monospace; font-size: 0.9rem; }
  li { margin-bottom: 0.35rem; }
</style>
</head>
<body>
  <h1>Patient Intake MCP Server</h1>
  <p class="subtitle">Grounded question answering over indexed intake conversations, one patient at a time.</p>

  <h2>Endpoints</h2>
  <ul>
    <li><a href="/mcp" class="endpoint">/mcp</a> MCP Streamable HTTP</li>
    <li><a href="/health" class="endpoint">/health</a> vector store and records database health</li>
  </ul>

  <h2>Tools</h2>
  <ul>
    <li><code>ask_patient</code> answer a question from one patient's records, with citations</li>
    <li><code>get_structured_record</code> the structured record extracted for an encounter</li>
    <li><code>index_encounter</code> index an encounter, optionally re-extracting first</li>
    <li><code>patient_index_status</code> encounter and chunk counts for a patient</li>
  </ul>
</body>
</html>`

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(landingHTML))
	}
}
