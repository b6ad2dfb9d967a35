package loader

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/zjrosen/tmlight/grammar"
	"github.com/zjrosen/tmlight/internal/log"
	"github.com/zjrosen/tmlight/onig"
	"github.com/zjrosen/tmlight/textview"
)

var grammarSuffixes = []string{
	".tmLanguage.json",
	".tmLanguage.yaml",
	".tmLanguage.yml",
}

// IsGrammarFile reports whether name looks like a grammar file.
func IsGrammarFile(name string) bool {
	for _, s := range grammarSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

type dirEntry struct {
	path              string
	fileTypes         []string
	firstLineMatch    string
	injectionSelector string
}

// Dir serves grammars from a set of directories, indexed by scope name.
// Lookup rereads the file each time so edits are picked up on reload.
type Dir struct {
	paths []string

	mu      sync.RWMutex
	byScope map[string]dirEntry
}

// NewDir indexes the grammar files below paths.
func NewDir(paths ...string) (*Dir, error) {
	d := &Dir{paths: paths}
	if err := d.Rescan(); err != nil {
		return nil, err
	}
	return d, nil
}

// Rescan rebuilds the index. Unreadable grammar files are logged and
// skipped; a missing directory is an error.
func (d *Dir) Rescan() error {
	index := make(map[string]dirEntry)
	for _, root := range d.paths {
		err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() || !IsGrammarFile(entry.Name()) {
				return nil
			}
			raw, err := LoadGrammarFile(path)
			if err != nil {
				log.Warn(log.CatGrammar, "skipping grammar file", "path", path, "error", err)
				return nil
			}
			if prev, ok := index[raw.ScopeName]; ok {
				log.Warn(log.CatGrammar, "duplicate scope, keeping first", "scope", raw.ScopeName, "kept", prev.path, "skipped", path)
				return nil
			}
			index[raw.ScopeName] = dirEntry{
				path:              path,
				fileTypes:         raw.FileTypes,
				firstLineMatch:    raw.FirstLineMatch,
				injectionSelector: raw.InjectionSelector,
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("scanning %s: %w", root, err)
		}
	}

	d.mu.Lock()
	d.byScope = index
	d.mu.Unlock()
	log.Debug(log.CatGrammar, "grammar directory indexed", "paths", strings.Join(d.paths, ","), "grammars", len(index))
	return nil
}

// Lookup returns the grammar for a scope, or nil when unknown.
func (d *Dir) Lookup(scopeName string) (*grammar.RawGrammar, error) {
	d.mu.RLock()
	entry, ok := d.byScope[scopeName]
	d.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return LoadGrammarFile(entry.path)
}

// Injections lists every other indexed grammar that declares an
// injectionSelector. Whether it applies is decided by the selector at
// tokenize time.
func (d *Dir) Injections(scopeName string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []string
	for scope, entry := range d.byScope {
		if scope != scopeName && entry.injectionSelector != "" {
			out = append(out, scope)
		}
	}
	sort.Strings(out)
	return out
}

// Scopes returns the indexed scope names, sorted.
func (d *Dir) Scopes() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sortedKeys(d.byScope)
}

// PathFor returns the file a scope was read from.
func (d *Dir) PathFor(scopeName string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	entry, ok := d.byScope[scopeName]
	return entry.path, ok
}

// Entry describes one indexed grammar file.
type Entry struct {
	ScopeName         string
	Path              string
	FileTypes         []string
	FirstLineMatch    string
	InjectionSelector string
}

// Entries returns the index, sorted by scope name.
func (d *Dir) Entries() []Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Entry, 0, len(d.byScope))
	for _, scope := range sortedKeys(d.byScope) {
		e := d.byScope[scope]
		out = append(out, Entry{
			ScopeName:         scope,
			Path:              e.path,
			FileTypes:         e.fileTypes,
			FirstLineMatch:    e.firstLineMatch,
			InjectionSelector: e.injectionSelector,
		})
	}
	return out
}

// Paths returns the files of all indexed grammars.
func (d *Dir) Paths() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.byScope))
	for _, entry := range d.byScope {
		out = append(out, entry.path)
	}
	sort.Strings(out)
	return out
}

// ScopeForFile picks a grammar for filename by its fileTypes, which match
// either the extension or the whole base name. The longest match wins.
func (d *Dir) ScopeForFile(filename string) (string, bool) {
	base := filepath.Base(filename)
	d.mu.RLock()
	defer d.mu.RUnlock()

	best, bestLen := "", 0
	for _, scope := range sortedKeys(d.byScope) {
		for _, ft := range d.byScope[scope].fileTypes {
			if ft == "" {
				continue
			}
			if (base == ft || strings.HasSuffix(base, "."+ft)) && len(ft) > bestLen {
				best, bestLen = scope, len(ft)
			}
		}
	}
	return best, best != ""
}

// ScopeForFirstLine returns the first grammar, in scope order, whose
// firstLineMatch accepts line.
func (d *Dir) ScopeForFirstLine(engine *onig.Engine, line string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	v := textview.New(line)
	for _, scope := range sortedKeys(d.byScope) {
		pattern := d.byScope[scope].firstLineMatch
		if pattern == "" {
			continue
		}
		re, err := engine.Compile(pattern)
		if err != nil {
			log.Debug(log.CatGrammar, "bad firstLineMatch", "scope", scope, "error", err)
			continue
		}
		if caps, err := re.FindAt(context.Background(), v, 0); err == nil && caps != nil {
			return scope, true
		}
	}
	return "", false
}

func sortedKeys(m map[string]dirEntry) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
