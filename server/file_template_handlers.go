package server

import (
	"embed"
	"html/template"
	"io/fs"
	"strings"

	"github.com/jrsteele09/go-finance-web/internal/utils"
)

//go:embed templates/*
var templateFiles embed.FS

// layoutTemplate wraps every page; pages define "title" and "content".
const layoutTemplate = "layout.html"

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

var templateFuncs = template.FuncMap{
	"join": strings.Join,
	"deref": utils.Value[string],
}

// ParseTemplate parses a page together with the shared layout from the
// embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	return template.New(layoutTemplate).Funcs(templateFuncs).ParseFS(TemplateFilesFS(), layoutTemplate, name)
}
