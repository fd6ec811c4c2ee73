// Package web holds the server-rendered assets.
package web

import "embed"

//go:embed templates/*.html
var Templates embed.FS
