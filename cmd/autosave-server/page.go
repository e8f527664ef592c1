package main

import (
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/zenibako/autosave-form/autosave"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/fomantic-ui@2.9.3/dist/semantic.min.css">
<script src="https://cdn.jsdelivr.net/npm/jquery@3.7.1/dist/jquery.min.js"></script>
<script src="https://cdn.jsdelivr.net/npm/fomantic-ui@2.9.3/dist/semantic.min.js"></script>
</head>
<body>
<div class="ui container" style="padding-top: 2em">
<form class="ui form" id="{{.FormID}}" action="{{.Action}}" method="post">
{{range .Controls}}
  <div class="field{{if .Disabled}} disabled{{end}}">
    <label for="{{.HTMLID}}_input">{{.Label}}</label>
    {{if eq (print .Kind) "textarea"}}
    <div id="{{.HTMLID}}"><textarea name="{{.Field}}"{{if .ReadOnly}} readonly{{end}}>{{.Baseline}}</textarea></div>
    {{else if eq (print .Kind) "checkbox"}}
    <div class="ui checkbox" id="{{.HTMLID}}"><input type="checkbox" id="{{.HTMLID}}_input" name="{{.Field}}" value="1"{{if eq .Baseline "1"}} checked{{end}}><label></label></div>
    {{else if eq (print .Kind) "radio"}}
    <div class="grouped fields" id="{{.HTMLID}}">
      {{$c := .}}{{range .Options}}
      <div class="field"><div class="ui radio checkbox"><input type="radio" name="{{$c.Field}}" value="{{.Value}}"{{if eq $c.Baseline .Value}} checked{{end}}><label>{{.Label}}</label></div></div>
      {{end}}
    </div>
    {{else if or (eq (print .Kind) "dropdown") (eq (print .Kind) "lookup")}}
    <div id="{{.HTMLID}}"><div class="ui selection dropdown"><input type="hidden" name="{{.Field}}" value="{{.Baseline}}"><i class="dropdown icon"></i><div class="default text">{{.Label}}</div>
      <div class="menu">{{range .Options}}<div class="item" data-value="{{.Value}}">{{.Label}}</div>{{end}}</div></div></div>
    {{else if eq (print .Kind) "calendar"}}
    <div class="ui calendar" id="{{.HTMLID}}"><div class="ui input"><input type="text" id="{{.HTMLID}}_input" name="{{.Field}}" value="{{.Baseline}}"{{if .ReadOnly}} readonly{{end}}></div></div>
    {{else}}
    <div class="ui input" id="{{.HTMLID}}"><input type="text" id="{{.HTMLID}}_input" name="{{.Field}}" value="{{.Baseline}}"{{if .ReadOnly}} readonly{{end}}></div>
    {{end}}
  </div>
{{end}}
  <button class="ui primary button" id="{{.FormID}}_save" type="submit">Save</button>
</form>
</div>
<script>
$('.ui.dropdown').dropdown();
$('.ui.checkbox').checkbox();
$('.ui.calendar').calendar();
{{.Script}}
</script>
</body>
</html>
`))

type pageData struct {
	Title    string
	FormID   string
	Action   string
	Controls []*autosave.Control
	Script   template.JS
}

// renderForm serves the html page of one record with the runtime attached
func (s *server) renderForm(w http.ResponseWriter, r *http.Request) {
	form, err := s.provideForm(r)
	if err != nil {
		log.Error("Failed to render form", "path", r.URL.Path, "error", err)
		http.Error(w, "form not available", http.StatusNotFound)
		return
	}

	script, err := form.BindScript()
	if err != nil {
		log.Error("Failed to bind form script", "form", form.ID(), "error", err)
		http.Error(w, "failed to render form", http.StatusInternalServerError)
		return
	}

	data := pageData{
		Title:    s.tmpl.Name,
		FormID:   form.ID(),
		Action:   r.URL.Path + "/submit",
		Controls: form.Controls(),
		Script:   template.JS(script),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		log.Warnf("Failed to write form page: %v", err)
	}
}

// serveRuntime serves the client runtime on its own for pages rendered elsewhere
func serveRuntime(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = w.Write([]byte(autosave.RuntimeScript()))
}
