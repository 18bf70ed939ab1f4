package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
)

//go:embed templates/*
var templateFiles embed.FS

const layoutTemplate = "layout.html"

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a page from the embedded filesystem together with the
// shared layout. Executing the result renders the layout around the page's
// "content" block.
func ParseTemplate(name string) (*template.Template, error) {
	tmpl, err := template.New(layoutTemplate).ParseFS(TemplateFilesFS(), layoutTemplate, name)
	if err != nil {
		return nil, fmt.Errorf("[ParseTemplate] %s: %w", name, err)
	}
	return tmpl, nil
}
