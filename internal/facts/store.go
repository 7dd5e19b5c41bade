package facts

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Store provides in-memory storage and querying of facts with JSONL persistence.
type Store struct {
	mu    sync.RWMutex
	facts []Fact

	// Indexes for fast lookups
	byKind map[string][]int // kind -> indices into facts
	byFile map[string][]int // file -> indices into facts
	byName map[string][]int // name -> indices into facts
}

// NewStore creates an empty fact store.
func NewStore() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.facts = nil
	s.byKind = make(map[string][]int)
	s.byFile = make(map[string][]int)
	s.byName = make(map[string][]int)
}

// Add adds facts to the store.
func (s *Store) Add(ff ...Fact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(ff...)
}

func (s *Store) add(ff ...Fact) {
	for _, f := range ff {
		idx := len(s.facts)
		s.facts = append(s.facts, f)
		s.byKind[f.Kind] = append(s.byKind[f.Kind], idx)
		if f.File != "" {
			s.byFile[f.File] = append(s.byFile[f.File], idx)
		}
		if f.Name != "" {
			s.byName[f.Name] = append(s.byName[f.Name], idx)
		}
	}
}

// ReplaceFile drops every fact recorded for file and adds ff in its place.
// The indexes are rebuilt.
func (s *Store) ReplaceFile(file string, ff ...Fact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]Fact, 0, len(s.facts))
	for _, f := range s.facts {
		if f.File != file {
			kept = append(kept, f)
		}
	}
	s.reset()
	s.add(kept...)
	s.add(ff...)
}

// All returns all facts in the store.
func (s *Store) All() []Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Fact, len(s.facts))
	copy(result, s.facts)
	return result
}

// Count returns the number of facts in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.facts)
}

// ByKind returns all facts of the given kind.
func (s *Store) ByKind(kind string) []Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectByIndex(s.byKind[kind])
}

// ByFile returns all facts for the given file.
func (s *Store) ByFile(file string) []Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectByIndex(s.byFile[file])
}

// ByName returns all facts with the given exact name.
func (s *Store) ByName(name string) []Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectByIndex(s.byName[name])
}

// Files returns the distinct files that have facts, in insertion order.
func (s *Store) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var files []string
	seen := make(map[string]bool, len(s.byFile))
	for _, f := range s.facts {
		if f.File != "" && !seen[f.File] {
			seen[f.File] = true
			files = append(files, f.File)
		}
	}
	return files
}

// QueryOpts holds the query filters for Query.
// Multi-value filters within a dimension are OR-combined; filters across
// different dimensions are AND-combined.
type QueryOpts struct {
	Kind       string   // single kind filter (exact match)
	Kinds      []string // multi-kind filter (OR with Kind)
	File       string   // exact file filter
	FilePrefix string   // file path prefix filter (e.g. "Sources/App")
	Name       string   // substring name filter
	Names      []string // exact name batch filter (OR)
	RelKind    string   // relation kind filter
	Prop       string   // property name filter
	PropValue  string   // property value filter (requires Prop)
	Offset     int      // number of results to skip
	Limit      int      // max results to return (0 = default 100, max 500)
}

// Query returns facts matching opts along with the total count of matches
// before offset and limit are applied.
func (s *Store) Query(opts QueryOpts) ([]Fact, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kindSet := mergeIntoSet(opts.Kind, opts.Kinds)
	nameSet := mergeIntoSet("", opts.Names)

	var matched []Fact
	for _, f := range s.facts {
		if len(kindSet) > 0 {
			if _, ok := kindSet[f.Kind]; !ok {
				continue
			}
		}

		if opts.File != "" && f.File != opts.File {
			continue
		}
		if opts.FilePrefix != "" && !strings.HasPrefix(f.File, opts.FilePrefix) {
			continue
		}

		// Name filter: substring (Name) OR exact batch (Names)
		if opts.Name != "" || len(nameSet) > 0 {
			nameMatch := opts.Name != "" && strings.Contains(f.Name, opts.Name)
			if !nameMatch && len(nameSet) > 0 {
				_, nameMatch = nameSet[f.Name]
			}
			if !nameMatch {
				continue
			}
		}

		if opts.RelKind != "" && !hasRelation(f, opts.RelKind) {
			continue
		}

		if opts.Prop != "" {
			v, ok := f.Props[opts.Prop]
			if !ok {
				continue
			}
			if opts.PropValue != "" && fmt.Sprintf("%v", v) != opts.PropValue {
				continue
			}
		}

		matched = append(matched, f)
	}

	total := len(matched)

	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			return nil, total
		}
		matched = matched[opts.Offset:]
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, total
}

// ReverseLookup returns all facts that have a relation targeting the given name.
// If relKind is non-empty, only relations of that kind are considered.
func (s *Store) ReverseLookup(targetName, relKind string) []Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []Fact
	for _, f := range s.facts {
		for _, r := range f.Relations {
			if r.Target == targetName && (relKind == "" || r.Kind == relKind) {
				result = append(result, f)
				break
			}
		}
	}
	return result
}

func hasRelation(f Fact, kind string) bool {
	for _, r := range f.Relations {
		if r.Kind == kind {
			return true
		}
	}
	return false
}

// mergeIntoSet combines a single value and a slice into a set.
// Empty strings are ignored.
func mergeIntoSet(single string, multi []string) map[string]struct{} {
	set := make(map[string]struct{}, len(multi)+1)
	if single != "" {
		set[single] = struct{}{}
	}
	for _, v := range multi {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// Clear removes all facts from the store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// WriteJSONL writes all facts as JSONL to the given writer.
func (s *Store) WriteJSONL(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enc := json.NewEncoder(w)
	for _, f := range s.facts {
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("encoding fact %q: %w", f.Name, err)
		}
	}
	return nil
}

// WriteJSONLFile writes all facts as JSONL to the given file path.
func (s *Store) WriteJSONLFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	if err := s.WriteJSONL(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadJSONL reads facts from a JSONL reader and adds them to the store.
func (s *Store) ReadJSONL(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	// Allow large lines
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var f Fact
		if err := json.Unmarshal(line, &f); err != nil {
			return fmt.Errorf("decoding fact: %w", err)
		}
		s.Add(f)
	}
	return scanner.Err()
}

// ReadJSONLFile reads facts from a JSONL file and adds them to the store.
func (s *Store) ReadJSONLFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return s.ReadJSONL(f)
}

func (s *Store) collectByIndex(indices []int) []Fact {
	result := make([]Fact, 0, len(indices))
	for _, idx := range indices {
		if idx < len(s.facts) {
			result = append(result, s.facts[idx])
		}
	}
	return result
}
