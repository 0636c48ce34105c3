// Package web carries the dashboard's templates and browser assets inside
// the binary.
package web

import "embed"

var (
	// TemplatesFS holds login.html, index.html and the partials they share.
	//go:embed templates/*.html
	TemplatesFS embed.FS

	// StaticFS holds app.js and style.css, served under /static/.
	//go:embed static/*.js static/*.css
	StaticFS embed.FS
)
