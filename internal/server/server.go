package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dejo1307/assocgen/internal/config"
	"github.com/dejo1307/assocgen/internal/diag"
	"github.com/dejo1307/assocgen/internal/engine"
	"github.com/dejo1307/assocgen/internal/facts"
)

// Server wraps the MCP server and connects it to the expansion engine.
type Server struct {
	mcp *mcp.Server
	eng *engine.Engine
	cfg *config.Config
}

// New creates a new MCP server wired to the given engine.
func New(eng *engine.Engine, cfg *config.Config) (*Server, error) {
	if eng == nil || cfg == nil {
		return nil, fmt.Errorf("server: engine and config are required")
	}
	s := &Server{
		eng: eng,
		cfg: cfg,
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "assocgen",
		Version: "0.1.0",
	}, nil)

	s.registerResources()
	s.registerTools()

	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	log.Println("[server] starting MCP server on stdio transport")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// runResource describes one artifact exposed as an MCP resource.
type runResource struct {
	uri         string
	name        string
	description string
	artifact    string
	mimeType    string
}

var runResources = []runResource{
	{"assoc://run/report", "Expansion Report", "Markdown summary of the last expansion run", "report.md", "text/markdown"},
	{"assoc://run/records", "Expansion Records", "Property, key, flag and diagnostic records in JSONL format", engine.RecordsFile, "application/jsonl"},
	{"assoc://run/diagnostics", "Expansion Diagnostics", "Diagnostics of the last run with file positions", engine.DiagnosticsFile, "application/json"},
	{"assoc://run/meta", "Run Metadata", "Metadata about the last expansion run", engine.MetaFile, "application/json"},
}

// registerResources adds MCP resources for run artifacts.
func (s *Server) registerResources() {
	for _, r := range runResources {
		s.mcp.AddResource(&mcp.Resource{
			URI:         r.uri,
			Name:        r.name,
			Description: r.description,
			MIMEType:    r.mimeType,
		}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return s.readResource(r, req.Params.URI)
		})
	}
}

func (s *Server) readResource(r runResource, uri string) (*mcp.ReadResourceResult, error) {
	content, err := s.eng.GetArtifact(r.artifact)
	if err != nil {
		return nil, fmt.Errorf("no run available: %w (run expand_repo first)", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, Text: string(content), MIMEType: r.mimeType},
		},
	}, nil
}

// expandDeclarationArgs are the arguments for the expand_declaration tool.
type expandDeclarationArgs struct {
	Source     string `json:"source" jsonschema:"Swift source containing one or more annotated declarations"`
	Policy     string `json:"policy,omitempty" jsonschema:"Policy forwarded when the attribute has none, e.g. .copy(.nonatomic)"`
	Attribute  string `json:"attribute,omitempty" jsonschema:"Macro attribute name without @ (default AssociatedObject)"`
	FlagPolicy string `json:"flag_policy,omitempty" jsonschema:"Policy of the synthesized is-set flag"`
}

// expandRepoArgs are the arguments for the expand_repo tool.
type expandRepoArgs struct {
	RepoPath string `json:"repo_path" jsonschema:"Path to the repository to expand. Defaults to the configured repo path."`
}

// queryExpansionsArgs are the arguments for the query_expansions tool.
type queryExpansionsArgs struct {
	Kind       string   `json:"kind,omitempty" jsonschema:"Filter by record kind: property, key, flag, or diagnostic"`
	Kinds      []string `json:"kinds,omitempty" jsonschema:"Filter by several record kinds (OR)"`
	File       string   `json:"file,omitempty" jsonschema:"Filter by exact file path"`
	FilePrefix string   `json:"file_prefix,omitempty" jsonschema:"Filter by file path prefix, e.g. Sources/UI"`
	Name       string   `json:"name,omitempty" jsonschema:"Filter by name using substring match"`
	Names      []string `json:"names,omitempty" jsonschema:"Filter by exact names (OR)"`
	Relation   string   `json:"relation,omitempty" jsonschema:"Filter by relation kind: uses_key or tracks"`
	Prop       string   `json:"prop,omitempty" jsonschema:"Filter by property name (e.g. shape, policy, owner)"`
	PropValue  string   `json:"prop_value,omitempty" jsonschema:"Filter by property value (requires prop to be set)"`
	Offset     int      `json:"offset,omitempty" jsonschema:"Number of results to skip"`
	Limit      int      `json:"limit,omitempty" jsonschema:"Maximum results (default 100, max 500)"`
}

// showExpansionArgs are the arguments for the show_expansion tool.
type showExpansionArgs struct {
	Name         string `json:"name" jsonschema:"Property name, owner-qualified or substring (e.g. UIView.label)"`
	ContextLines int    `json:"context_lines,omitempty" jsonschema:"Number of expanded source lines to show (default 40)"`
}

// registerTools adds MCP tools for expansion and record querying.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "expand_declaration",
		Description: "Expand a Swift snippet containing @AssociatedObject declarations. Returns the rewritten source and any diagnostics. Nothing is written to disk.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args expandDeclarationArgs) (*mcp.CallToolResult, any, error) {
		return s.expandDeclaration(args), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "expand_repo",
		Description: "Expand every annotated property in a Swift repository. Writes expanded files and run artifacts, skipping files unchanged since the last run.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args expandRepoArgs) (*mcp.CallToolResult, any, error) {
		return s.expandRepo(ctx, args), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query_expansions",
		Description: "Query the records of the last run by kind, file, name, relation or property. Returns matching records as JSON.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args queryExpansionsArgs) (*mcp.CallToolResult, any, error) {
		return s.queryExpansions(args), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "show_expansion",
		Description: "Show an expanded property: its key, flag and policy, plus the generated accessors from the expanded file.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args showExpansionArgs) (*mcp.CallToolResult, any, error) {
		return s.showExpansion(args), nil, nil
	})
}

func (s *Server) expandDeclaration(args expandDeclarationArgs) *mcp.CallToolResult {
	if strings.TrimSpace(args.Source) == "" {
		return errorResult("source is required")
	}

	cfg, err := s.cfg.Clone()
	if err != nil {
		return errorResult(err.Error())
	}
	if args.Policy != "" {
		cfg.Macro.DefaultPolicy = args.Policy
	}
	if args.Attribute != "" {
		cfg.Macro.Attribute = strings.TrimPrefix(args.Attribute, "@")
	}
	if args.FlagPolicy != "" {
		cfg.Macro.FlagPolicy = args.FlagPolicy
	}

	res, err := engine.ExpandSnippet(args.Source, cfg.MacroOptions())
	if err != nil {
		return errorResult(fmt.Sprintf("expansion failed: %v", err))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Expanded %d declaration(s).\n\n", len(res.Expansions)))
	sb.WriteString("```swift\n")
	sb.WriteString(strings.TrimRight(res.Source, "\n"))
	sb.WriteString("\n```\n")
	if len(res.Diagnostics) > 0 {
		sb.WriteString("\nDiagnostics:\n")
		for _, d := range res.Diagnostics {
			sb.WriteString(fmt.Sprintf("- %s: %s (%s)\n", d.Pos, d.Message, d.Kind))
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: sb.String()},
		},
		IsError: len(res.Expansions) == 0 && len(res.Diagnostics) > 0,
	}
}

func (s *Server) expandRepo(ctx context.Context, args expandRepoArgs) *mcp.CallToolResult {
	repoPath := args.RepoPath
	if repoPath == "" {
		repoPath = s.cfg.Repo
	}

	absRepo, err := filepath.Abs(repoPath)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid repo path: %v", err))
	}

	run, err := s.eng.Expand(ctx, absRepo)
	if err != nil {
		return errorResult(fmt.Sprintf("expansion failed: %v", err))
	}

	if err := s.eng.WriteArtifacts(absRepo); err != nil {
		log.Printf("[server] warning: failed to write artifacts: %v", err)
	}

	summary := fmt.Sprintf(
		"Expansion finished.\n\n"+
			"- Repository: %s\n"+
			"- Swift files: %d (%d changed)\n"+
			"- Properties expanded: %d\n"+
			"- Diagnostics: %d\n"+
			"- Expanded files: %d\n"+
			"- Duration: %s\n\n"+
			"Use the assoc://run/report resource to read the report.",
		run.Meta.RepoPath,
		run.Meta.FileCount,
		run.Meta.ChangedCount,
		run.Meta.ExpansionCount,
		run.Meta.DiagnosticCount,
		len(run.Outputs),
		run.Meta.Duration,
	)
	if len(run.Diagnostics) > 0 {
		summary += "\n\n" + strings.TrimRight(diag.Format(firstN(run.Diagnostics, 20)), "\n")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: summary},
		},
	}
}

func (s *Server) queryExpansions(args queryExpansionsArgs) *mcp.CallToolResult {
	store := s.eng.Store()
	if store.Count() == 0 {
		return errorResult("No records available. Run expand_repo first.")
	}

	results, total := store.Query(facts.QueryOpts{
		Kind:       args.Kind,
		Kinds:      args.Kinds,
		File:       args.File,
		FilePrefix: args.FilePrefix,
		Name:       args.Name,
		Names:      args.Names,
		RelKind:    args.Relation,
		Prop:       args.Prop,
		PropValue:  args.PropValue,
		Offset:     args.Offset,
		Limit:      args.Limit,
	})
	if results == nil {
		results = []facts.Fact{}
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("failed to marshal results: %v", err))
	}

	text := string(data)
	if shown := args.Offset + len(results); shown < total {
		text += fmt.Sprintf("\n\n... (showing %d-%d of %d results, use offset to page)", args.Offset+1, shown, total)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func (s *Server) showExpansion(args showExpansionArgs) *mcp.CallToolResult {
	if args.Name == "" {
		return errorResult("name is required")
	}
	run := s.eng.Run()
	if run == nil {
		return errorResult("No run available. Run expand_repo first.")
	}

	store := s.eng.Store()
	matches := store.ByName(args.Name)
	if len(matches) == 0 || matches[0].Kind != facts.KindProperty {
		matches, _ = store.Query(facts.QueryOpts{Kind: facts.KindProperty, Name: args.Name, Limit: 5})
	}
	if len(matches) == 0 {
		return errorResult(fmt.Sprintf("No expanded properties matching %q", args.Name))
	}

	contextLines := args.ContextLines
	if contextLines <= 0 {
		contextLines = 40
	}

	var sb strings.Builder
	for i, p := range matches {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}
		s.describeProperty(store, p, &sb)

		output, _ := p.Props[facts.PropOutput].(string)
		if output == "" {
			sb.WriteString("_No expanded file was written for this property._\n")
			continue
		}
		absFile := filepath.Join(run.Meta.RepoPath, output)
		line, err := findDeclarationLine(absFile, lastComponent(p.Name))
		if err != nil {
			sb.WriteString(fmt.Sprintf("_Could not read expanded source: %v_\n", err))
			continue
		}
		source, err := readSourceWindow(absFile, line+contextLines/2, contextLines)
		if err != nil {
			sb.WriteString(fmt.Sprintf("_Could not read expanded source: %v_\n", err))
			continue
		}
		sb.WriteString(fmt.Sprintf("\n```swift\n%s```\n", source))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: sb.String()},
		},
	}
}

// describeProperty writes the header of one property record with its key and flag.
func (s *Server) describeProperty(store *facts.Store, p facts.Fact, sb *strings.Builder) {
	sb.WriteString(fmt.Sprintf("### %s\n", p.Name))
	sb.WriteString(fmt.Sprintf("File: %s  Line: %d\n", p.File, p.Line))

	keys := make([]string, 0, len(p.Props))
	for k := range p.Props {
		if k != facts.PropOutput {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("- %s: %v\n", k, p.Props[k]))
	}

	for _, r := range p.Relations {
		if r.Kind == facts.RelUsesKey {
			sb.WriteString(fmt.Sprintf("- key declaration: %s\n", r.Target))
		}
	}
	for _, flag := range store.ReverseLookup(p.Name, facts.RelTracks) {
		sb.WriteString(fmt.Sprintf("- is-set flag: %s\n", flag.Name))
	}
}

// findDeclarationLine returns the 1-based line of the computed property
// declaration of name in an expanded file.
func findDeclarationLine(absFile, name string) (int, error) {
	data, err := os.ReadFile(absFile)
	if err != nil {
		return 0, err
	}
	plain, quoted := "var "+name+":", "var `"+name+"`:"
	for i, line := range strings.Split(string(data), "\n") {
		if strings.Contains(line, plain) || strings.Contains(line, quoted) {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("declaration of %s not found in %s", name, filepath.Base(absFile))
}

// readSourceWindow reads lines from a file centered around the given line number.
func readSourceWindow(absFile string, centerLine, contextLines int) (string, error) {
	data, err := os.ReadFile(absFile)
	if err != nil {
		return "", err
	}

	lines := strings.Split(string(data), "\n")
	startLine := centerLine - contextLines/2
	if startLine < 1 {
		startLine = 1
	}
	endLine := centerLine + contextLines/2
	if endLine > len(lines) {
		endLine = len(lines)
	}

	var sb strings.Builder
	for i := startLine; i <= endLine; i++ {
		sb.WriteString(fmt.Sprintf("%4d│ %s\n", i, lines[i-1]))
	}
	return sb.String(), nil
}

func lastComponent(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func firstN(diags []diag.Diagnostic, n int) []diag.Diagnostic {
	if len(diags) > n {
		return diags[:n]
	}
	return diags
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
