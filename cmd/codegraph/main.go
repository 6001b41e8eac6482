package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codegraph-mcp/codegraph/internal/cliexit"
	"github.com/codegraph-mcp/codegraph/internal/config"
	"github.com/codegraph-mcp/codegraph/internal/graph"
	"github.com/codegraph-mcp/codegraph/internal/indexer"
	"github.com/codegraph-mcp/codegraph/internal/mcptools"
	"github.com/codegraph-mcp/codegraph/internal/persist"
)

// version is set by the linker at build time.
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return cliexit.UsageError
	}

	switch args[0] {
	case "index":
		return runIndex(args[1:])
	case "mcp", "serve":
		return runServe(args[1:])
	case "-h", "--help", "help":
		printUsage(os.Stdout)
		return cliexit.Success
	case "-version", "--version", "version":
		fmt.Println(version)
		return cliexit.Success
	default:
		fmt.Fprintf(os.Stderr, "codegraph: unknown command %q\n", args[0])
		printUsage(os.Stderr)
		return cliexit.UsageError
	}
}

func printUsage(w *os.File) {
	fmt.Fprintf(w, "codegraph v%s — cross-file symbol graph indexer\n\n", version)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  codegraph index <path> [--force] [--verbose]   Build the index")
	fmt.Fprintln(w, "  codegraph mcp [--index <path>]                 Serve tools on stdio")
	fmt.Fprintln(w, "  codegraph serve [--index <path>]               Alias for mcp")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  CODEGRAPH_PROJECT   project root when not given on the command line")
}

// resolveProjectRoot resolves root, falling back to CODEGRAPH_PROJECT and
// then the current directory (spec §6).
func resolveProjectRoot(root string) (string, error) {
	if root == "" {
		root = os.Getenv("CODEGRAPH_PROJECT")
	}
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving project root: %w", err)
	}
	return abs, nil
}

func runIndex(args []string) int {
	fs := flag.NewFlagSet("codegraph index", flag.ContinueOnError)
	var force, verbose bool
	fs.BoolVar(&force, "force", false, "ignore and rebuild an existing index")
	fs.BoolVar(&verbose, "verbose", false, "print per-file diagnostics")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cliexit.Success
		}
		return cliexit.UsageError
	}

	path := ""
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	projectRoot, err := resolveProjectRoot(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return cliexit.IOError
	}

	indexPath := indexer.DefaultIndexPath(projectRoot)
	if !force && !indexer.IsStale(indexPath, projectRoot) {
		fmt.Fprintf(os.Stderr, "codegraph: index is up to date at %s\n", indexPath)
		return cliexit.Success
	}

	projCfg, err := config.Load(projectRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load codegraph.yml: %v\n", err)
		projCfg = &config.ProjectConfig{}
	}

	parser := graph.NewTreeSitterParser(graph.ExtractOptions{})
	ix := indexer.New(parser)
	ix.SetExcludeDirs(projCfg.ExcludeDirs)
	ix.SetFuzzyFloor(projCfg.FuzzyFloor)

	result, err := ix.Index(context.Background(), projectRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return cliexit.IOError
	}

	if err := indexer.Persist(result.Graph, indexPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return cliexit.IOError
	}

	fmt.Fprintf(os.Stderr, "codegraph: indexed %d files, %d symbols, %d relations -> %s\n",
		result.FilesParsed, result.Graph.SymbolCount(), result.Graph.RelationCount(), indexPath)

	if verbose {
		for _, d := range result.Diagnostics {
			fmt.Fprintf(os.Stderr, "  %s: %s: %s\n", d.Path, d.Kind, d.Err)
		}
	}
	return cliexit.Success
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("codegraph mcp", flag.ContinueOnError)
	var indexPath string
	fs.StringVar(&indexPath, "index", "", "path to the index file (default: <project>/.codegraph/index.bin)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cliexit.Success
		}
		return cliexit.UsageError
	}

	projectRoot, err := resolveProjectRoot("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return cliexit.IOError
	}

	parser := graph.NewTreeSitterParser(graph.ExtractOptions{})
	svc := mcptools.NewCodeIntelService(projectRoot, parser)
	if indexPath != "" {
		svc.SetIndexPath(indexPath)
	}

	server := mcptools.NewCodeGraphMCPServer(svc)

	fmt.Fprintf(os.Stderr, "codegraph MCP server v%s starting on stdio (project: %s)\n", version, projectRoot)
	err = mcptools.RunCodeGraphMCPServerStdio(context.Background(), server)
	fmt.Fprintln(os.Stderr, "codegraph MCP server stopped")

	if err == nil {
		return cliexit.Success
	}
	if errors.Is(err, persist.ErrCorrupt) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return cliexit.CorruptIndex
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return cliexit.Failure
}
