package remote

import (
	"context"
	"fmt"
	"sync"
)

var _ BlobHost = (*MemoryHost)(nil)

type memoryFile struct {
	content []byte
	version string
}

// MemoryHost is an in-process BlobHost with the same conditional write rules as the real
// host. It counts operations and can be told to fail, which makes it the sync engine's
// test double.
type MemoryHost struct {
	mutex   sync.Mutex
	files   map[string]memoryFile
	nextVer int
	fetches map[string]int
	puts    map[string]int
	err     error
	putHook func(path string)
}

func NewMemoryHost() *MemoryHost {
	return &MemoryHost{
		files:   make(map[string]memoryFile),
		fetches: make(map[string]int),
		puts:    make(map[string]int),
	}
}

func (h *MemoryHost) newVersion() string {
	h.nextVer++
	return fmt.Sprintf("v%d", h.nextVer)
}

func (h *MemoryHost) Fetch(_ context.Context, path string) (Blob, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.fetches[path]++
	if h.err != nil {
		return Blob{}, h.err
	}
	f, ok := h.files[path]
	if !ok {
		return Blob{}, ErrNotFound
	}
	return Blob{Content: append([]byte(nil), f.content...), Version: f.version}, nil
}

func (h *MemoryHost) Put(_ context.Context, path string, content []byte, version string) (string, error) {
	h.mutex.Lock()
	hook := h.putHook
	h.mutex.Unlock()
	if hook != nil {
		hook(path)
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.err != nil {
		return "", h.err
	}
	current, exists := h.files[path]
	if exists && current.version != version || !exists && version != "" {
		return "", fmt.Errorf("%w: %s at %q, put at %q", ErrConflict, path, current.version, version)
	}

	h.puts[path]++
	v := h.newVersion()
	h.files[path] = memoryFile{content: append([]byte(nil), content...), version: v}
	return v, nil
}

// Seed writes a resource directly, bypassing counters and conditions.
func (h *MemoryHost) Seed(path string, content []byte) string {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	v := h.newVersion()
	h.files[path] = memoryFile{content: append([]byte(nil), content...), version: v}
	return v
}

func (h *MemoryHost) Content(path string) ([]byte, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	f, ok := h.files[path]
	return f.content, ok
}

func (h *MemoryHost) Puts(path string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.puts[path]
}

func (h *MemoryHost) Fetches(path string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.fetches[path]
}

// SetError makes every following operation fail with err, until reset with nil.
func (h *MemoryHost) SetError(err error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.err = err
}

// OnPut registers a hook run at the start of every Put, outside the host lock.
func (h *MemoryHost) OnPut(hook func(path string)) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.putHook = hook
}
