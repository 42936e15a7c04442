// Package web holds the embedded UI: page and fragment templates plus the
// stylesheet and the small htmx glue script.
package web

import "embed"

//go:embed templates/*.html
var TemplatesFS embed.FS

//go:embed static/*
var StaticFS embed.FS
