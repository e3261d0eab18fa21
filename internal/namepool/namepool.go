// Package namepool serves randomized display names for order addresses
// from a JSON word list, reloading the list when the file changes.
package namepool

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Pool hands out random names from a names.json file. Safe for concurrent
// use; Watch keeps the pool in sync with edits to the file.
type Pool struct {
	path string

	mu    sync.RWMutex
	names []string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Load reads the name list from path. The file holds either a bare JSON
// array of strings or an object with a "names" array.
func Load(path string) (*Pool, error) {
	p := &Pool{path: path, done: make(chan struct{})}
	if err := p.reload(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pool) reload() error {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("reading name list: %w", err)
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		var wrapped struct {
			Names []string `json:"names"`
		}
		if err2 := json.Unmarshal(raw, &wrapped); err2 != nil {
			return fmt.Errorf("parsing name list: %w", err)
		}
		names = wrapped.Names
	}

	cleaned := names[:0]
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			cleaned = append(cleaned, n)
		}
	}
	if len(cleaned) == 0 {
		return fmt.Errorf("name list %s is empty", p.path)
	}

	p.mu.Lock()
	p.names = cleaned
	p.mu.Unlock()
	return nil
}

// Pick returns a random name with the suffix appended. The second return
// is false when the pool has no names to offer.
func (p *Pool) Pick(suffix string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.names) == 0 {
		return "", false
	}
	name := p.names[rand.Intn(len(p.names))]
	if suffix != "" {
		name = name + " " + suffix
	}
	return name, true
}

// Len returns how many names are currently loaded.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.names)
}

// Watch reloads the pool whenever the backing file is rewritten. Editors
// often replace the file, so the parent directory is watched and events
// are filtered by name.
func (p *Pool) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return err
	}
	p.watcher = watcher

	go func() {
		base := filepath.Base(p.path)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := p.reload(); err != nil {
					log.Printf("namepool: reload after %s: %v", ev.Op, err)
					continue
				}
				log.Printf("namepool: reloaded %d names from %s", p.Len(), p.path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("namepool: watcher: %v", err)
			case <-p.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the watcher, if one was started.
func (p *Pool) Close() error {
	close(p.done)
	if p.watcher != nil {
		return p.watcher.Close()
	}
	return nil
}
