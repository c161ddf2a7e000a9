// Package templates renders the HTML pages of the web UI as templ components.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/tabula/internal/core"
	"github.com/a-h/templ"
)

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem auto;max-width:56rem;color:#1f2937}
h1{font-size:1.5rem}table{border-collapse:collapse;width:100%}
th,td{border-bottom:1px solid #e5e7eb;padding:.5rem;text-align:left;vertical-align:top}
code{background:#f3f4f6;padding:0 .25rem;border-radius:.25rem}
.alert{border:1px solid #fca5a5;background:#fef2f2;padding:1rem;border-radius:.5rem}
.muted{color:#6b7280}`

// Catalogue renders the list of available transformers with their params
// and an example request.
func Catalogue(transformers []core.TransformerInfo) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		writeHead(&b, "Transformers")
		b.WriteString(`<h1>Available transformers</h1>`)
		b.WriteString(`<p class="muted">POST a multipart form with <code>file</code> (CSV) and <code>pipeline</code> (JSON) to <code>/transform/</code>.</p>`)

		if len(transformers) == 0 {
			b.WriteString(`<p>No transformers are registered.</p>`)
		} else {
			b.WriteString(`<table><thead><tr><th>Name</th><th>Params</th><th>Description</th></tr></thead><tbody>`)
			for _, t := range transformers {
				b.WriteString(`<tr><td><code>`)
				b.WriteString(templ.EscapeString(t.Name))
				b.WriteString(`</code></td><td>`)
				for i, p := range t.Params {
					if i > 0 {
						b.WriteString(`, `)
					}
					fmt.Fprintf(&b, `<code>%s</code> <span class="muted">%s</span>`,
						templ.EscapeString(p.Name), templ.EscapeString(p.Type))
				}
				b.WriteString(`</td><td>`)
				b.WriteString(templ.EscapeString(t.Description))
				b.WriteString(`</td></tr>`)
			}
			b.WriteString(`</tbody></table>`)
		}

		b.WriteString(`<h2>Example</h2><pre>`)
		b.WriteString(templ.EscapeString(exampleRequest))
		b.WriteString(`</pre>`)
		writeFoot(&b)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

const exampleRequest = `curl -F file=@people.csv \
  -F 'pipeline=[{"name":"filter_rows","params":{"column":"status","value":"active"}},
                {"name":"uppercase_column","params":{"column":"name"}}]' \
  http://localhost:8000/transform/`

// ErrorAlert renders an error message as an HTML fragment.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="alert" role="alert"><strong>`)
		b.WriteString(templ.EscapeString(message))
		b.WriteString(`</strong>`)
		if action != "" {
			b.WriteString(`<p>`)
			b.WriteString(templ.EscapeString(action))
			b.WriteString(`</p>`)
		}
		if code != "" {
			b.WriteString(`<p class="muted">Code: `)
			b.WriteString(templ.EscapeString(code))
			b.WriteString(`</p>`)
		}
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// ErrorPage renders ErrorAlert inside a full page.
func ErrorPage(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		writeHead(&b, "Error")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if err := ErrorAlert(message, action, code).Render(ctx, w); err != nil {
			return err
		}
		b.Reset()
		writeFoot(&b)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeHead(b *strings.Builder, title string) {
	b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
	b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	b.WriteString(`<title>`)
	b.WriteString(templ.EscapeString(title))
	b.WriteString(` · tabula</title><style>`)
	b.WriteString(pageStyle)
	b.WriteString(`</style></head><body>`)
}

func writeFoot(b *strings.Builder) {
	b.WriteString(`</body></html>`)
}
