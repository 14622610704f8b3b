// Package templates embeds the report's HTML template and stylesheet.
package templates

import "embed"

// FS holds report.html and style.css.
//
//go:embed report.html style.css
var FS embed.FS
