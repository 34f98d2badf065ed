package server

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed web
var webFS embed.FS

// mountUI serves the embedded single-page client at the root.
func mountUI(r chi.Router) {
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		// The embed directive guarantees the directory exists.
		panic(err)
	}
	fileServer := http.FileServer(http.FS(sub))
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		fileServer.ServeHTTP(w, req)
	})
	r.Get("/app.js", fileServer.ServeHTTP)
	r.Get("/style.css", fileServer.ServeHTTP)
}
