package web

import "embed"

// FS contains the embedded map UI.
//
//go:embed *.html *.css *.js
var FS embed.FS
