//go:build integration_test || all_tests

package test

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

type fakeFile struct {
	content []byte
	sha     string
}

// fakeGitHub serves the contents API of a single repository from memory.
type fakeGitHub struct {
	mutex sync.Mutex
	files map[string]fakeFile
	seq   int
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{files: make(map[string]fakeFile)}
}

func (g *fakeGitHub) seed(path string, content []byte) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.seq++
	g.files[path] = fakeFile{content: content, sha: fmt.Sprintf("sha-%d", g.seq)}
}

func (g *fakeGitHub) content(path string) ([]byte, bool) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	f, ok := g.files[path]
	return f.content, ok
}

func (g *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// /repos/{owner}/{repo}/contents/{path}
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 5)
	if len(parts) != 5 || parts[0] != "repos" || parts[3] != "contents" {
		http.NotFound(w, r)
		return
	}
	if r.Header.Get("Authorization") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	path := parts[4]

	g.mutex.Lock()
	defer g.mutex.Unlock()

	switch r.Method {
	case http.MethodGet:
		f, ok := g.files[path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"sha":      f.sha,
			"content":  base64.StdEncoding.EncodeToString(f.content),
			"encoding": "base64",
		})
	case http.MethodPut:
		var req struct {
			Content string `json:"content"`
			Sha     string `json:"sha"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		current, exists := g.files[path]
		switch {
		case exists && req.Sha == "":
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		case exists && req.Sha != current.sha, !exists && req.Sha != "":
			w.WriteHeader(http.StatusConflict)
			return
		}
		content, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		g.seq++
		f := fakeFile{content: content, sha: fmt.Sprintf("sha-%d", g.seq)}
		g.files[path] = f
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": map[string]string{"sha": f.sha},
		})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
