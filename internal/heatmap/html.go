package heatmap

import (
	"html/template"
	"io"
)

var pageTmpl = template.Must(template.New("heatmap").Funcs(template.FuncMap{
	// Gradients are built from our own hex colors and numbers only.
	"gradient": func(c Cell) template.CSS { return template.CSS(c.Gradient()) },
}).Parse(pageHTML))

const pageHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{if .Header.Title}}{{.Header.Title}} · {{end}}Glucoscape</title>
<style>
body { font-family: sans-serif; margin: 1em; background: #fafafa; color: #333; }
header { display: flex; gap: 0.5em; align-items: baseline; margin-bottom: 1em; }
header .target { color: #888; }
.row { display: flex; gap: 2px; margin-bottom: 2px; }
.row h2 { width: 6em; margin: 0; font-size: 0.8em; font-weight: normal; text-align: right; padding-right: 0.5em; line-height: 2.2em; }
.summary { width: 3.5em; height: 2.2em; line-height: 2.2em; text-align: center; font-size: 0.8em; color: #fff; }
.summary.total { font-weight: bold; }
.aggregate { width: 2.2em; height: 2.2em; position: relative; }
.aggregate h3 { margin: 0; font-size: 0.6em; font-weight: normal; color: rgba(255,255,255,0.8); position: absolute; left: 2px; top: 1px; }
footer { margin-top: 1em; font-size: 0.8em; color: #888; }
</style>
</head>
<body>
<header>
{{if .Header.URL}}<a target="_blank" href="{{.Header.URL}}">{{or .Header.Title .Header.URL}}</a>{{else}}<span>{{.Header.Title}}</span>{{end}}
<span>Glucoscape</span>
<span class="target">target {{.Header.Target}}</span>
{{if .Header.Latest}}<span class="latest">latest {{.Header.Latest}}</span>{{end}}
</header>
<div class="row">
<h2></h2>
<div class="summary total" style="background: {{gradient .Total}}" title="{{.Total.Tooltip}}">{{.Total.OnTargetLabel}}</div>
{{range .Intervals}}<div class="summary interval" style="background: {{gradient .}}" title="{{.Tooltip}}">{{.OnTargetLabel}}</div>
{{end}}</div>
{{range .Rows}}<div class="row">
<h2>{{.Label}}</h2>
<div class="summary day" style="background: {{gradient .Summary}}" title="{{.Summary.Tooltip}}">{{.Summary.OnTargetLabel}}</div>
{{range .Cells}}<div class="aggregate" style="background: {{gradient .}}" title="{{.Tooltip}}"><h3>{{.Label}}</h3></div>
{{end}}</div>
{{end}}{{if .Rejected}}<footer>{{.Rejected}} malformed readings skipped</footer>
{{end}}</body>
</html>
`

// RenderHTML writes the heatmap as a standalone HTML page.
func RenderHTML(w io.Writer, hm Heatmap) error {
	return pageTmpl.Execute(w, hm)
}
