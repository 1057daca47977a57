package web

import (
	"html/template"
	"net/http"
)

type pageData struct {
	Pages    int
	Document string
	Title    string
	Name     string
	Error    string
}

// PageNumbers lists 1..Pages for the gallery.
func (p pageData) PageNumbers() []int {
	nums := make([]int, p.Pages)
	for i := range nums {
		nums[i] = i + 1
	}
	return nums
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>StepGuide PDF Branding</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 0; display: flex; }
form { width: 320px; padding: 16px; border-right: 1px solid #ddd; }
label { display: block; margin-top: 12px; font-size: 14px; }
.gallery { flex: 1; padding: 16px; overflow-y: auto; height: 100vh; box-sizing: border-box; }
.gallery img { display: block; margin: 0 auto 16px; box-shadow: 0 1px 4px #999; }
.error { color: #b00020; }
</style>
</head>
<body>
<form method="post" enctype="multipart/form-data">
  <label>Document (PDF)<input type="file" name="document" accept="application/pdf" multiple></label>
  {{if .Document}}<p>Current: {{.Document}}</p>{{end}}
  <label>Logo<input type="file" name="logo" accept="image/*"></label>
  <label>Border<input type="file" name="border" accept="image/*"></label>
  <label>Background<input type="file" name="background" accept="image/*"></label>
  <label>Title<input type="text" name="title" value="{{.Title}}"></label>
  <label>Output name<input type="text" name="name" value="{{.Name}}"></label>
  <p>
    <button type="submit" formaction="/upload">Upload</button>
    <button type="submit" formaction="/preview">Refresh preview</button>
    <button type="submit" formaction="/download">Download</button>
  </p>
  {{if .Error}}<p class="error">{{.Error}}</p>{{end}}
</form>
<div class="gallery">
{{range .PageNumbers}}  <img src="/pages/{{.}}" alt="page {{.}}">
{{end}}</div>
</body>
</html>
`))

func (s *Server) renderIndex(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Warn("rendering index", "error", err)
	}
}
