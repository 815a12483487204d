package handler

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"slices"
	"strings"
)

// GatedPages はログインが必要なHTMLページ名。Staticからは配信しない。
var GatedPages = []string{"dashboard", "register-vehicle", "search-vehicles", "search-people", "add-fine"}

// PageHandler は公開ディレクトリのHTMLページと静的ファイルを配信する。
type PageHandler struct {
	files fs.FS
}

// NewPageHandler はPageHandlerを生成する。dirが空の場合は全ページが404になる。
func NewPageHandler(dir string) *PageHandler {
	if dir == "" {
		return &PageHandler{}
	}
	return &PageHandler{files: os.DirFS(dir)}
}

// Page は指定名のHTMLページ（name.html）を返すハンドラーを返す。
func (h *PageHandler) Page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.serveFile(w, r, name+".html")
	}
}

// Static はパスに対応する静的ファイルを返す。存在しない場合やゲート対象のページは404ページを返す。
func (h *PageHandler) Static(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name == "" {
		name = "index.html"
	}
	if isGatedPage(name) {
		h.notFound(w, r)
		return
	}
	h.serveFile(w, r, name)
}

// isGatedPage はnameがゲート対象ページのファイルかを返す。大文字小文字は区別しない。
func isGatedPage(name string) bool {
	base := strings.TrimSuffix(strings.ToLower(name), ".html")
	return slices.Contains(GatedPages, base)
}

func (h *PageHandler) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	if h.files == nil || !fs.ValidPath(name) {
		h.notFound(w, r)
		return
	}
	info, err := fs.Stat(h.files, name)
	if err != nil || info.IsDir() {
		h.notFound(w, r)
		return
	}
	http.ServeFileFS(w, r, h.files, name)
}

func (h *PageHandler) notFound(w http.ResponseWriter, r *http.Request) {
	if h.files != nil {
		if data, err := fs.ReadFile(h.files, "404.html"); err == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusNotFound)
			w.Write(data)
			return
		} else if !errors.Is(err, fs.ErrNotExist) {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}
	http.NotFound(w, r)
}
