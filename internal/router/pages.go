package router

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// SPAHandler serves the prebuilt UI from dir. Paths that do not name a file
// fall back to index.html so client-side routes resolve.
func SPAHandler(dir string) http.Handler {
	root := os.DirFS(dir)
	files := http.FileServerFS(root)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name != "" {
			info, err := fs.Stat(root, name)
			switch {
			case err == nil && !info.IsDir():
				files.ServeHTTP(w, r)
				return
			case err != nil && !errors.Is(err, fs.ErrNotExist):
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			// Missing assets are real 404s; everything else is a client route.
			if strings.Contains(path.Base(name), ".") {
				http.NotFound(w, r)
				return
			}
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFileFS(w, r, root, "index.html")
	})
}
