package web

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"courseforge/internal/model"
	"courseforge/internal/publish"
)

var previewTmpl = template.Must(template.New("preview").Funcs(template.FuncMap{
	"md":    renderMarkdownHTML,
	"inc":   func(i int) int { return i + 1 },
	"deref": deref,
}).Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Course.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; }
.muted { color: #666; font-size: .9em; }
.warn { color: #a15c00; }
.error { color: #b00020; }
section.lesson { border-left: 3px solid #ddd; padding-left: 1rem; margin: 1rem 0; }
</style>
</head>
<body>
<h1>{{.Course.Title}} <span class="muted">[{{.Course.Status}}]</span></h1>
{{if .Warnings}}<ul>{{range .Warnings}}<li class="{{if eq .Severity "error"}}error{{else}}warn{{end}}">{{.Message}}</li>{{end}}</ul>{{end}}
{{range $i, $m := .Modules}}
<h2>{{inc $i}}. {{$m.Title}}</h2>
{{md (deref $m.Description) 2}}
{{range $m.Lessons}}
<section class="lesson" id="{{.ID}}">
<h3>{{.Title}} <span class="muted">{{.ContentType}}{{if .IsPreview}} · preview{{end}}</span></h3>
{{md .Text 3}}
</section>
{{end}}
{{end}}
</body>
</html>
`))

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

type previewPage struct {
	Course   model.Course
	Modules  []model.Module
	Warnings []model.Warning
}

// handlePreview renders the course read-only, as learners would page through it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	st, err := s.gw.FetchStructure(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page := previewPage{
		Course:   st.Course,
		Modules:  st.Modules,
		Warnings: publish.ValidatePublishReadiness(st.Modules),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := previewTmpl.Execute(w, page); err != nil {
		s.log.Warn("preview render failed", "error", err)
	}
}
