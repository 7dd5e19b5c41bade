package facts

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// --- helpers ---

func makeProperty(name, file, shape string) Fact {
	return Fact{
		Kind: KindProperty,
		Name: name,
		File: file,
		Line: 3,
		Props: map[string]any{
			PropShape:  shape,
			PropPolicy: ".retain(.nonatomic)",
		},
		Relations: []Relation{{Kind: RelUsesKey, Target: name + "#key"}},
	}
}

func makeKey(name, file string) Fact {
	return Fact{Kind: KindKey, Name: name, File: file}
}

func makeFlag(name, file, property string) Fact {
	return Fact{
		Kind:      KindFlag,
		Name:      name,
		File:      file,
		Relations: []Relation{{Kind: RelTracks, Target: property}},
	}
}

func seeded() *Store {
	s := NewStore()
	s.Add(
		makeProperty("UIView.label", "Sources/UI/UIView+Label.swift", "A"),
		makeKey("UIView.label#key", "Sources/UI/UIView+Label.swift"),
		makeFlag("UIView.__associated_labelIsSet", "Sources/UI/UIView+Label.swift", "UIView.label"),
		makeProperty("Cell.count", "Sources/Cells/Cell.swift", "B"),
		makeKey("Cell.count#key", "Sources/Cells/Cell.swift"),
		Fact{Kind: KindDiagnostic, Name: "requires_initial_value", File: "Sources/Cells/Cell.swift", Line: 9},
	)
	return s
}

// --- tests ---

func TestAdd_IndexesAllMaps(t *testing.T) {
	s := NewStore()
	s.Add(makeProperty("A.x", "A.swift", "C"))

	if got := s.ByKind(KindProperty); len(got) != 1 || got[0].Name != "A.x" {
		t.Errorf("ByKind(property) = %v, want [A.x]", got)
	}
	if got := s.ByFile("A.swift"); len(got) != 1 {
		t.Errorf("ByFile(A.swift) = %v, want 1 fact", got)
	}
	if got := s.ByName("A.x"); len(got) != 1 {
		t.Errorf("ByName(A.x) = %v, want 1 fact", got)
	}
}

func TestAdd_EmptyFileAndNameNotIndexed(t *testing.T) {
	s := NewStore()
	s.Add(Fact{Kind: KindDiagnostic})

	if got := s.ByKind(KindDiagnostic); len(got) != 1 {
		t.Fatalf("ByKind(diagnostic) = %d facts, want 1", len(got))
	}
	if got := s.ByFile(""); len(got) != 0 {
		t.Errorf("ByFile('') = %d facts, want 0", len(got))
	}
	if got := s.ByName(""); len(got) != 0 {
		t.Errorf("ByName('') = %d facts, want 0", len(got))
	}
}

func TestQuery(t *testing.T) {
	s := seeded()

	tests := []struct {
		name string
		opts QueryOpts
		want int
	}{
		{"all empty returns everything", QueryOpts{}, 6},
		{"kind property", QueryOpts{Kind: KindProperty}, 2},
		{"kinds key or flag", QueryOpts{Kinds: []string{KindKey, KindFlag}}, 3},
		{"file exact", QueryOpts{File: "Sources/Cells/Cell.swift"}, 3},
		{"file prefix", QueryOpts{FilePrefix: "Sources/UI/"}, 3},
		{"name substring", QueryOpts{Name: "label"}, 3},
		{"name substring is case-sensitive", QueryOpts{Name: "Label"}, 0},
		{"names exact batch", QueryOpts{Names: []string{"Cell.count", "UIView.label"}}, 2},
		{"relation tracks", QueryOpts{RelKind: RelTracks}, 1},
		{"prop present", QueryOpts{Prop: PropShape}, 2},
		{"prop value", QueryOpts{Prop: PropShape, PropValue: "A"}, 1},
		{"combined kind and prefix", QueryOpts{Kind: KindKey, FilePrefix: "Sources/Cells"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total := s.Query(tt.opts)
			if len(got) != tt.want || total != tt.want {
				t.Errorf("Query(%+v) = %d facts (total %d), want %d", tt.opts, len(got), total, tt.want)
			}
		})
	}
}

func TestQuery_Pagination(t *testing.T) {
	s := NewStore()
	for i := 0; i < 620; i++ {
		s.Add(makeKey(fmt.Sprintf("K.k%d#key", i), "K.swift"))
	}

	got, total := s.Query(QueryOpts{})
	if len(got) != 100 || total != 620 {
		t.Errorf("default limit: got %d (total %d), want 100 (620)", len(got), total)
	}

	got, _ = s.Query(QueryOpts{Limit: 1000})
	if len(got) != 500 {
		t.Errorf("limit cap: got %d, want 500", len(got))
	}

	got, _ = s.Query(QueryOpts{Offset: 610, Limit: 50})
	if len(got) != 10 || got[0].Name != "K.k610#key" {
		t.Errorf("offset: got %d starting at %v", len(got), got)
	}

	got, total = s.Query(QueryOpts{Offset: 700})
	if got != nil || total != 620 {
		t.Errorf("offset past end: got %v (total %d)", got, total)
	}
}

func TestReverseLookup(t *testing.T) {
	s := seeded()

	got := s.ReverseLookup("UIView.label", RelTracks)
	if len(got) != 1 || got[0].Kind != KindFlag {
		t.Errorf("ReverseLookup(tracks) = %v, want the flag", got)
	}
	got = s.ReverseLookup("Cell.count#key", "")
	if len(got) != 1 || got[0].Name != "Cell.count" {
		t.Errorf("ReverseLookup(any) = %v, want Cell.count", got)
	}
	if got := s.ReverseLookup("nothing", ""); len(got) != 0 {
		t.Errorf("ReverseLookup(nothing) = %v, want none", got)
	}
}

func TestReplaceFile(t *testing.T) {
	s := seeded()
	s.ReplaceFile("Sources/Cells/Cell.swift", makeProperty("Cell.total", "Sources/Cells/Cell.swift", "B"))

	if got := s.Count(); got != 4 {
		t.Fatalf("Count = %d, want 4", got)
	}
	if got := s.ByName("Cell.count"); len(got) != 0 {
		t.Errorf("old fact still indexed: %v", got)
	}
	if got := s.ByFile("Sources/Cells/Cell.swift"); len(got) != 1 || got[0].Name != "Cell.total" {
		t.Errorf("ByFile after replace = %v", got)
	}
	if got := s.ByKind(KindFlag); len(got) != 1 {
		t.Errorf("other files' facts lost: %v", got)
	}
}

func TestFiles(t *testing.T) {
	s := seeded()
	got := s.Files()
	want := []string{"Sources/UI/UIView+Label.swift", "Sources/Cells/Cell.swift"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Files = %v, want %v", got, want)
	}
}

func TestClear(t *testing.T) {
	s := seeded()
	s.Clear()
	if s.Count() != 0 || len(s.ByKind(KindProperty)) != 0 || len(s.Files()) != 0 {
		t.Error("Clear left facts behind")
	}
}

func TestJSONL_RoundTrip(t *testing.T) {
	s := seeded()

	var buf bytes.Buffer
	if err := s.WriteJSONL(&buf); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 6 {
		t.Errorf("wrote %d lines, want 6", lines)
	}

	loaded := NewStore()
	if err := loaded.ReadJSONL(&buf); err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if loaded.Count() != 6 {
		t.Fatalf("loaded %d facts, want 6", loaded.Count())
	}
	p := loaded.ByName("UIView.label")[0]
	if p.Props[PropShape] != "A" || p.Line != 3 {
		t.Errorf("property round-trip lost data: %+v", p)
	}
	if len(loaded.ReverseLookup("UIView.label", RelTracks)) != 1 {
		t.Error("relations lost in round-trip")
	}
}

func TestJSONL_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	if err := seeded().WriteJSONLFile(path); err != nil {
		t.Fatalf("WriteJSONLFile: %v", err)
	}
	s := NewStore()
	if err := s.ReadJSONLFile(path); err != nil {
		t.Fatalf("ReadJSONLFile: %v", err)
	}
	if s.Count() != 6 {
		t.Errorf("Count = %d, want 6", s.Count())
	}
	if err := s.ReadJSONLFile(filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadJSONL_Malformed(t *testing.T) {
	s := NewStore()
	err := s.ReadJSONL(strings.NewReader("{\"kind\":\"key\"}\n\nnot json\n"))
	if err == nil {
		t.Fatal("expected decode error")
	}
	if s.Count() != 1 {
		t.Errorf("facts before the bad line should be kept, got %d", s.Count())
	}
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Add(makeKey(fmt.Sprintf("K%d.k%d#key", i, j), fmt.Sprintf("K%d.swift", i)))
				s.Query(QueryOpts{Kind: KindKey})
			}
		}(i)
	}
	wg.Wait()
	if s.Count() != 400 {
		t.Errorf("Count = %d, want 400", s.Count())
	}
}
