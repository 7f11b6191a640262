package app

import (
	"net/http"
	"os"

	"github.com/ignite-go/ignite/security"
)

// dirFileResponder is the bundled FileResponder: it serves files out of one
// or more directories, first match wins, mirroring the teacher's
// mount_static.go multiFS. It is the framework's reference implementation
// of the static-file collaborator seam spec.md §1 places out of scope — a
// minimal default, not a CORS-grade static file server.
type dirFileResponder struct {
	dirs []http.Dir
}

// NewDirFileResponder returns a FileResponder resolving paths against dirs
// in order, first existing file wins.
func NewDirFileResponder(dirs ...string) FileResponder {
	fr := &dirFileResponder{}
	for _, d := range dirs {
		if d != "" {
			fr.dirs = append(fr.dirs, http.Dir(d))
		}
	}
	return fr
}

func (fr *dirFileResponder) ServeFile(w http.ResponseWriter, r *http.Request, path string) error {
	path = security.SanitizePath(path)
	if path == "" {
		http.NotFound(w, r)
		return nil
	}
	for _, d := range fr.dirs {
		f, err := d.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		_ = f.Close()
		r2 := r.Clone(r.Context())
		r2.URL.Path = path
		r2.URL.RawPath = ""
		http.FileServer(d).ServeHTTP(w, r2)
		return nil
	}
	http.NotFound(w, r)
	return nil
}

// Static mounts dir as the file responder serving ctx.File(...) results
// (spec.md §4.7). Calling Static more than once replaces the responder.
func (a *App) Static(dirs ...string) {
	a.fileResp = NewDirFileResponder(dirs...)
}
