// Package web embeds the page templates and static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static templates
var content embed.FS

// StaticFS returns the static assets rooted at static/.
func StaticFS() fs.FS {
	return sub("static")
}

// TemplatesFS returns the page templates rooted at templates/.
func TemplatesFS() fs.FS {
	return sub("templates")
}

// sub cannot fail for a directory named in the embed pattern.
func sub(dir string) fs.FS {
	f, err := fs.Sub(content, dir)
	if err != nil {
		panic("web: " + err.Error())
	}
	return f
}
