package shell

import (
	"html/template"
	"strings"
)

type navItem struct {
	Path   string
	Title  string
	Active bool
}

type legendItem struct {
	Pod   string
	Color string
}

type languageItem struct {
	Code   string
	Label  string
	Active bool
}

type layoutData struct {
	Title     string
	Language  string
	Nav       []navItem
	Languages []languageItem
	Legend    []legendItem
	Toasts    []Toast
	Position  string
	Content   template.HTML
}

var flags = map[string]string{
	"en": "\U0001F1FA\U0001F1F8",
	"ro": "\U0001F1F7\U0001F1F4",
}

func languageLabel(code string) string {
	if flag, ok := flags[code]; ok {
		return flag
	}
	return strings.ToUpper(code)
}

var layoutTemplate = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html lang="{{.Language}}">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body class="container h-screen bg-rose-100" data-language="{{.Language}}" data-events="/events">
<header class="w-full flex justify-center items-center pt-4 mb-4">
<nav class="w-1/2 flex gap-4 bg-rose-400 text-white rounded-lg p-2 justify-center">
{{- range .Nav}}
<a href="{{.Path}}"{{if .Active}} aria-current="page"{{end}}>{{.Title}}</a>
{{- end}}
<div class="flex bg-white rounded-full gap-4 px-2">
{{- range .Languages}}
<form method="post" action="/language/{{.Code}}"><button type="submit" title="{{.Code}}"{{if .Active}} aria-pressed="true"{{end}}>{{.Label}}</button></form>
{{- end}}
</div>
</nav>
</header>
<main>
{{.Content}}
</main>
<aside class="legend p-2 flex flex-col gap-1 fixed left-2 bottom-2 rounded-lg border bg-white shadow-md">
{{- range .Legend}}
<div class="p-1 px-2 rounded-xl {{.Color}}"><h3 class="text-xs font-bold text-gray-800">{{.Pod}}</h3></div>
{{- end}}
</aside>
<div class="toasts {{.Position}}" role="status">
{{- range .Toasts}}
<div class="toast toast-{{.Type}}" data-id="{{.ID}}">{{.Content}}</div>
{{- end}}
</div>
</body>
</html>
`))
