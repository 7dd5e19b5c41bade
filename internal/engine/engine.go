package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dejo1307/assocgen/internal/config"
	"github.com/dejo1307/assocgen/internal/diag"
	"github.com/dejo1307/assocgen/internal/facts"
	"github.com/dejo1307/assocgen/internal/macro"
	"github.com/dejo1307/assocgen/internal/renderers"
	"github.com/dejo1307/assocgen/internal/rewrite"
)

// Files written to the output directory next to the renderer artifacts.
const (
	RecordsFile     = "records.jsonl"
	DiagnosticsFile = "diagnostics.json"
	MetaFile        = "run.meta.json"
)

// Engine orchestrates the expansion pipeline.
type Engine struct {
	mu         sync.Mutex // serializes Expand calls
	cfg        *config.Config
	rw         *rewrite.Rewriter
	renderers  *renderers.Registry
	store      *facts.Store
	run        *facts.Run
	prevHashes map[string]string // file -> sha256 hash from previous run
}

// New creates a new Engine with the given config.
// Renderers must be registered after creation.
func New(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("engine: nil config")
	}
	return &Engine{
		cfg:       cfg,
		rw:        rewrite.New(cfg.MacroOptions()),
		renderers: renderers.NewRegistry(),
		store:     facts.NewStore(),
	}, nil
}

// RegisterRenderer adds a renderer to the engine.
func (e *Engine) RegisterRenderer(rnd renderers.Renderer) {
	e.renderers.Register(rnd)
}

// Store returns the record store.
func (e *Engine) Store() *facts.Store {
	return e.store
}

// Run returns the last run, or nil.
func (e *Engine) Run() *facts.Run {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run
}

// SetRun installs a run loaded from disk.
func (e *Engine) SetRun(run *facts.Run) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.run = run
}

// Config returns the engine config.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// ExpandSnippet rewrites a standalone Swift source with the given options.
// Nothing is recorded.
func ExpandSnippet(src string, opts macro.Options) (*rewrite.Result, error) {
	return rewrite.New(opts).Rewrite("snippet.swift", src)
}

// Expand runs the full pipeline: walk -> hash -> rewrite -> record -> render.
// Files whose hash matches the previous run keep their recorded facts.
func (e *Engine) Expand(ctx context.Context, repoPath string) (*facts.Run, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	if repoPath == "" {
		repoPath = e.cfg.Repo
	}
	absRepo, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("resolving repo path: %w", err)
	}
	if info, err := os.Stat(absRepo); err != nil {
		return nil, fmt.Errorf("reading repo: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("repo %s is not a directory", absRepo)
	}
	if !isSwiftProject(absRepo) {
		log.Printf("[engine] %s has no Package.swift or Xcode project, scanning anyway", absRepo)
	}

	// 1. Walk repository and collect Swift files
	files, err := e.walkRepo(absRepo)
	if err != nil {
		return nil, fmt.Errorf("walking repo: %w", err)
	}
	log.Printf("[engine] found %d Swift files in %s", len(files), absRepo)

	// 2. Incremental state
	e.loadPreviousHashes(absRepo)
	currentHashes, changed := e.filterChangedFiles(absRepo, files)
	if len(e.prevHashes) > 0 && e.reloadRecords(absRepo) {
		for prev := range e.prevHashes {
			if _, ok := currentHashes[prev]; !ok {
				e.store.ReplaceFile(prev)
				e.removeOutput(absRepo, prev)
			}
		}
		log.Printf("[engine] %d of %d files changed since last run", len(changed), len(files))
	} else {
		e.store.Clear()
		changed = files
	}

	// 3. Rewrite changed files
	for _, rel := range changed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hash, err := e.expandFile(absRepo, rel)
		if err != nil {
			log.Printf("[engine] %s: %v", rel, err)
			delete(currentHashes, rel)
			continue
		}
		if hash != "" {
			currentHashes[rel] = hash
		}
	}

	// 4. Build file hashes for the run meta
	fileHashes := make([]facts.FileHash, 0, len(currentHashes))
	for path, hash := range currentHashes {
		fileHashes = append(fileHashes, facts.FileHash{
			Path:    path,
			Hash:    hash,
			ModTime: fileModTime(filepath.Join(absRepo, path)),
		})
	}
	sort.Slice(fileHashes, func(i, j int) bool { return fileHashes[i].Path < fileHashes[j].Path })

	// 5. Build run
	all := e.store.All()
	run := &facts.Run{
		Meta: facts.RunMeta{
			RepoPath:     absRepo,
			GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
			Attribute:    e.rw.Attribute(),
			Renderers:    []string{},
			FileHashes:   fileHashes,
			FileCount:    len(files),
			ChangedCount: len(changed),
		},
		Facts:       all,
		Diagnostics: diagnosticsOf(all),
		Outputs:     outputsOf(all),
	}
	run.Meta.ExpansionCount = countKind(all, facts.KindProperty)
	run.Meta.DiagnosticCount = len(run.Diagnostics)
	run.Meta.Duration = time.Since(start).String()

	// 6. Run renderers
	usedRenderers, err := e.runRenderers(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("rendering: %w", err)
	}
	run.Meta.Renderers = usedRenderers
	log.Printf("[engine] produced %d artifacts using %d renderers", len(run.Artifacts), len(usedRenderers))

	e.run = run
	log.Printf("[engine] expanded %d properties with %d diagnostics in %s",
		run.Meta.ExpansionCount, run.Meta.DiagnosticCount, run.Meta.Duration)
	return run, nil
}

// expandFile rewrites one file, writes its output and replaces its records.
// It returns the hash to remember for the file when it differs from the
// source hash (in-place rewrites).
func (e *Engine) expandFile(repoPath, rel string) (string, error) {
	absFile := filepath.Join(repoPath, rel)
	data, err := os.ReadFile(absFile)
	if err != nil {
		return "", fmt.Errorf("reading: %w", err)
	}
	src := string(data)
	if !mentionsAttribute(src, e.rw.Attribute()) {
		e.store.ReplaceFile(rel)
		e.removeOutput(repoPath, rel)
		return "", nil
	}

	res, err := e.rw.Rewrite(rel, src)
	if err != nil {
		e.store.ReplaceFile(rel)
		return "", err
	}

	output := ""
	hash := ""
	if res.Changed {
		output, err = e.writeOutput(repoPath, rel, res.Source)
		if err != nil {
			return "", err
		}
		if e.cfg.Output.InPlace {
			hash = hashBytes([]byte(res.Source))
		}
	} else {
		e.removeOutput(repoPath, rel)
	}

	e.store.ReplaceFile(rel, recordFacts(res, output)...)
	log.Printf("[engine] %s: %d expansions, %d diagnostics", rel, len(res.Expansions), len(res.Diagnostics))
	return hash, nil
}

// outputPath is the relative path an expanded file is written to.
func (e *Engine) outputPath(rel string) string {
	if e.cfg.Output.InPlace {
		return rel
	}
	return filepath.Join(e.cfg.Output.Dir, strings.TrimSuffix(rel, filepath.Ext(rel))+e.cfg.Output.Suffix)
}

func (e *Engine) writeOutput(repoPath, rel, content string) (string, error) {
	out := e.outputPath(rel)
	abs := filepath.Join(repoPath, out)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", out, err)
	}
	return filepath.ToSlash(out), nil
}

// removeOutput drops a stale expanded file left by an earlier run.
func (e *Engine) removeOutput(repoPath, rel string) {
	if e.cfg.Output.InPlace {
		return
	}
	abs := filepath.Join(repoPath, e.outputPath(rel))
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[engine] removing stale output %s: %v", abs, err)
	}
}

// walkRepo collects the Swift files in the repo, applying ignore patterns.
func (e *Engine) walkRepo(repoPath string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(repoPath, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		if e.isIgnored(relPath, d.IsDir()) || (d.IsDir() && filepath.ToSlash(relPath) == filepath.ToSlash(e.cfg.Output.Dir)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() && isSwiftFile(relPath) {
			files = append(files, filepath.ToSlash(relPath))
		}
		return nil
	})
	return files, err
}

// isIgnored checks whether a path matches any ignore pattern.
func (e *Engine) isIgnored(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)

	for _, pattern := range e.cfg.Ignore {
		// Directory patterns
		if strings.HasSuffix(pattern, "/**") {
			dirPrefix := strings.TrimSuffix(pattern, "/**")
			if relPath == dirPrefix || strings.HasPrefix(relPath, dirPrefix+"/") {
				return true
			}
		}

		matched, err := filepath.Match(pattern, relPath)
		if err == nil && matched {
			return true
		}

		// Patterns like **/*+Expanded.swift match the file name anywhere
		if strings.HasPrefix(pattern, "**/") {
			subPattern := strings.TrimPrefix(pattern, "**/")
			matched, err = filepath.Match(subPattern, filepath.Base(relPath))
			if err == nil && matched {
				return true
			}
			matched, err = filepath.Match(subPattern, relPath)
			if err == nil && matched {
				return true
			}
		}
	}
	return false
}

// runRenderers runs all enabled renderers.
func (e *Engine) runRenderers(ctx context.Context, run *facts.Run) ([]string, error) {
	usedNames := []string{}

	for _, rnd := range e.renderers.All() {
		if !e.cfg.IsRendererEnabled(rnd.Name()) {
			continue
		}

		log.Printf("[engine] running renderer: %s", rnd.Name())
		artifacts, err := rnd.Render(ctx, run)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			log.Printf("[engine] renderer %s error: %v", rnd.Name(), err)
			continue
		}

		run.Artifacts = append(run.Artifacts, artifacts...)
		usedNames = append(usedNames, rnd.Name())
	}

	return usedNames, nil
}

// WriteArtifacts writes all run artifacts to the output directory,
// including records.jsonl, diagnostics.json, and run.meta.json.
func (e *Engine) WriteArtifacts(repoPath string) error {
	run := e.Run()
	if run == nil {
		return fmt.Errorf("no run available")
	}
	if repoPath == "" {
		repoPath = run.Meta.RepoPath
	}

	outDir := filepath.Join(repoPath, e.cfg.Output.Dir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	for _, a := range run.Artifacts {
		path := filepath.Join(outDir, a.Name)
		if err := os.WriteFile(path, a.Content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", a.Name, err)
		}
		log.Printf("[engine] wrote %s (%d bytes)", path, len(a.Content))
	}

	recordsPath := filepath.Join(outDir, RecordsFile)
	if err := e.store.WriteJSONLFile(recordsPath); err != nil {
		return fmt.Errorf("writing %s: %w", RecordsFile, err)
	}
	log.Printf("[engine] wrote %s", recordsPath)

	for name, v := range map[string]any{DiagnosticsFile: run.Diagnostics, MetaFile: run.Meta} {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", name, err)
		}
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		log.Printf("[engine] wrote %s (%d bytes)", path, len(data))
	}

	return nil
}

// GetArtifact returns the content of a named artifact, or the generated JSONL/JSON files.
func (e *Engine) GetArtifact(name string) ([]byte, error) {
	run := e.Run()
	if run == nil {
		return nil, fmt.Errorf("no run available")
	}

	switch name {
	case RecordsFile:
		var buf bytes.Buffer
		if err := e.store.WriteJSONL(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case DiagnosticsFile:
		return json.MarshalIndent(run.Diagnostics, "", "  ")
	case MetaFile:
		return json.MarshalIndent(run.Meta, "", "  ")
	default:
		for _, a := range run.Artifacts {
			if a.Name == name {
				return a.Content, nil
			}
		}
		return nil, fmt.Errorf("artifact %q not found", name)
	}
}

// LoadRun restores the records and meta of a previous run from the output
// directory. Renderer artifacts are not restored.
func (e *Engine) LoadRun(repoPath string) error {
	absRepo, err := filepath.Abs(repoPath)
	if err != nil {
		return fmt.Errorf("resolving repo path: %w", err)
	}
	outDir := filepath.Join(absRepo, e.cfg.Output.Dir)

	data, err := os.ReadFile(filepath.Join(outDir, MetaFile))
	if err != nil {
		return fmt.Errorf("reading %s: %w", MetaFile, err)
	}
	var meta facts.RunMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("decoding %s: %w", MetaFile, err)
	}

	e.store.Clear()
	if err := e.store.ReadJSONLFile(filepath.Join(outDir, RecordsFile)); err != nil {
		e.store.Clear()
		return err
	}

	all := e.store.All()
	e.SetRun(&facts.Run{
		Meta:        meta,
		Facts:       all,
		Diagnostics: diagnosticsOf(all),
		Outputs:     outputsOf(all),
	})
	log.Printf("[engine] loaded %d records from %s", len(all), outDir)
	return nil
}

// reloadRecords replaces the store with the previous run's records.
func (e *Engine) reloadRecords(repoPath string) bool {
	e.store.Clear()
	path := filepath.Join(repoPath, e.cfg.Output.Dir, RecordsFile)
	if err := e.store.ReadJSONLFile(path); err != nil {
		log.Printf("[engine] previous records unavailable, expanding everything: %v", err)
		e.store.Clear()
		return false
	}
	log.Printf("[engine] reloaded %d records from cache", e.store.Count())
	return true
}

// loadPreviousHashes reads file hashes from the previous run.meta.json.
func (e *Engine) loadPreviousHashes(repoPath string) {
	metaPath := filepath.Join(repoPath, e.cfg.Output.Dir, MetaFile)
	data, err := os.ReadFile(metaPath)
	if err != nil {
		e.prevHashes = nil
		return
	}

	var meta facts.RunMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		e.prevHashes = nil
		return
	}
	// A different attribute invalidates every recorded expansion.
	if meta.Attribute != e.rw.Attribute() {
		e.prevHashes = nil
		return
	}

	e.prevHashes = make(map[string]string, len(meta.FileHashes))
	for _, fh := range meta.FileHashes {
		e.prevHashes[fh.Path] = fh.Hash
	}
	log.Printf("[engine] loaded %d file hashes from previous run", len(e.prevHashes))
}

// filterChangedFiles computes SHA-256 hashes for all files and returns
// the current hash map and the list of files that have changed since the previous run.
func (e *Engine) filterChangedFiles(repoPath string, files []string) (map[string]string, []string) {
	currentHashes := make(map[string]string, len(files))
	var changed []string

	for _, relFile := range files {
		data, err := os.ReadFile(filepath.Join(repoPath, relFile))
		if err != nil {
			changed = append(changed, relFile)
			continue
		}

		hash := hashBytes(data)
		currentHashes[relFile] = hash

		if prevHash, ok := e.prevHashes[relFile]; !ok || prevHash != hash {
			changed = append(changed, relFile)
		}
	}

	return currentHashes, changed
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// fileModTime returns the modification time of a file as an RFC3339 string.
func fileModTime(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return info.ModTime().UTC().Format(time.RFC3339)
}

func countKind(ff []facts.Fact, kind string) int {
	n := 0
	for _, f := range ff {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// diagnosticsOf rebuilds the diagnostics recorded in ff, ordered by file and position.
func diagnosticsOf(ff []facts.Fact) []diag.Diagnostic {
	out := []diag.Diagnostic{}
	for _, f := range ff {
		if f.Kind == facts.KindDiagnostic {
			out = append(out, diagnosticFromFact(f))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Pos.Line != out[j].Pos.Line {
			return out[i].Pos.Line < out[j].Pos.Line
		}
		return out[i].Pos.Column < out[j].Pos.Column
	})
	return out
}

// outputsOf lists the expanded files recorded in ff.
func outputsOf(ff []facts.Fact) []facts.Output {
	byFile := make(map[string]*facts.Output)
	var order []string
	for _, f := range ff {
		if f.Kind != facts.KindProperty {
			continue
		}
		path, _ := f.Props[facts.PropOutput].(string)
		if path == "" {
			continue
		}
		o, ok := byFile[f.File]
		if !ok {
			o = &facts.Output{Source: f.File, Path: path}
			byFile[f.File] = o
			order = append(order, f.File)
		}
		o.Expansions++
	}
	sort.Strings(order)
	out := make([]facts.Output, 0, len(order))
	for _, file := range order {
		out = append(out, *byFile[file])
	}
	return out
}
