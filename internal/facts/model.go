package facts

import "github.com/dejo1307/assocgen/internal/diag"

// Fact is one record produced by an expansion run.
type Fact struct {
	Kind      string         `json:"kind"`                // property, key, flag or diagnostic
	Name      string         `json:"name"`                // Owner-qualified name, e.g. "UIView.label"
	File      string         `json:"file,omitempty"`      // Source file relative to the repo root
	Line      int            `json:"line,omitempty"`      // Line of the annotated declaration
	Props     map[string]any `json:"props,omitempty"`     // Kind-specific properties
	Relations []Relation     `json:"relations,omitempty"` // Edges to other facts
}

// Relation represents a directed edge between two facts.
type Relation struct {
	Kind   string `json:"kind"`   // uses_key or tracks
	Target string `json:"target"` // Target fact name
}

// Fact kind constants.
const (
	KindProperty   = "property"
	KindKey        = "key"
	KindFlag       = "flag"
	KindDiagnostic = "diagnostic"
)

// Relation kind constants.
const (
	RelUsesKey = "uses_key"
	RelTracks  = "tracks"
)

// Property names used in Props.
const (
	PropOwner    = "owner"
	PropType     = "type"
	PropInferred = "inferred"
	PropShape    = "shape"
	PropKey      = "key"
	PropPolicy   = "policy"
	PropCustom   = "custom_key"
	PropMessage  = "message"
	PropColumn   = "column"
	PropOutput   = "output"
)

// Artifact represents a generated output file.
type Artifact struct {
	Name    string `json:"name"` // e.g. "report.md"
	Content []byte `json:"-"`    // Raw content
	Type    string `json:"type"` // MIME type hint
}

// Output is an expanded source file written by a run.
type Output struct {
	Source     string `json:"source"`
	Path       string `json:"path"`
	Expansions int    `json:"expansions"`
}

// Run holds the complete result of an expansion run.
type Run struct {
	Meta        RunMeta           `json:"meta"`
	Facts       []Fact            `json:"facts"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
	Outputs     []Output          `json:"outputs"`
	Artifacts   []Artifact        `json:"artifacts"`
}

// RunMeta contains metadata about a run.
type RunMeta struct {
	RepoPath        string     `json:"repo_path"`
	GeneratedAt     string     `json:"generated_at"`
	Duration        string     `json:"duration"`
	Attribute       string     `json:"attribute"`
	Renderers       []string   `json:"renderers"`
	FileHashes      []FileHash `json:"file_hashes,omitempty"`
	FileCount       int        `json:"file_count"`
	ChangedCount    int        `json:"changed_count"`
	ExpansionCount  int        `json:"expansion_count"`
	DiagnosticCount int        `json:"diagnostic_count"`
}

// FileHash tracks a file's content hash for incremental updates.
type FileHash struct {
	Path    string `json:"path"`
	Hash    string `json:"hash"`
	ModTime string `json:"mod_time"`
}
