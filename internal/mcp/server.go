// Package mcp implements a Model Context Protocol (MCP) server for repotree
// using the mcp-go library.
//
// The server exposes the live repository tree to AI assistants: tools for
// listing the .github metadata tree, searching nodes, enumerating
// configured MCP servers, discovering issue templates, and reading the
// origin remote. Communication is stdin/stdout JSON-RPC 2.0 as specified
// by the MCP standard.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"repotree/internal/config"
	"repotree/internal/gitinfo"
	"repotree/internal/logging"
	"repotree/internal/mcpconfig"
	"repotree/internal/search"
	"repotree/internal/templates"
	"repotree/internal/tree"
)

const serverVersion = "1.0.0"

// Server represents an MCP server instance over one repository.
type Server struct {
	repoRoot string
	config   *config.Config
	logger   *logging.AppLogger

	ctrl      *tree.Controller
	git       *gitinfo.Service
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance for the repository rooted at
// repoRoot.
func NewServer(repoRoot string, cfg *config.Config, logger *logging.AppLogger) *Server {
	return &Server{
		repoRoot: repoRoot,
		config:   cfg,
		logger:   logger,
	}
}

// Start initializes the tree controller, registers the tools, and serves
// over stdio until the client disconnects.
func (s *Server) Start() error {
	s.logger.Info("Initializing MCP server", "root", s.repoRoot)

	if err := s.initComponents(); err != nil {
		return err
	}
	defer s.Stop()

	s.logger.Info("MCP server created, starting stdio communication")
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the tree behind the server.
func (s *Server) Stop() {
	if s.ctrl != nil {
		s.ctrl.Close()
		s.ctrl = nil
	}
}

// initComponents builds the controller and the MCP server with all tools
// registered. Split from Start so tests can drive handlers directly.
func (s *Server) initComponents() error {
	ctrl, err := tree.NewController(s.repoRoot, s.config, &tree.Coordinator{})
	if err != nil {
		return fmt.Errorf("failed to build repository tree: %w", err)
	}
	s.ctrl = ctrl
	s.git = gitinfo.NewService(s.repoRoot, 0)

	s.mcpServer = server.NewMCPServer(
		"repotree",
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	s.registerTools()
	return nil
}

func (s *Server) registerTools() {
	listTree := mcp.NewTool(
		"list_tree",
		mcp.WithDescription("List the repository metadata tree (.github directory and MCP server configs) as an indented outline"),
		mcp.WithString("root", mcp.Description("Which tree to list: \"github\", \"servers\", or \"all\" (default)")),
		mcp.WithNumber("depth", mcp.Description("Maximum depth to descend (default 4)")),
	)
	s.mcpServer.AddTool(listTree, s.handleListTree)

	searchNodes := mcp.NewTool(
		"search_nodes",
		mcp.WithDescription("Search tree nodes whose name contains a substring, case-insensitive; shallower matches come first"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Substring to match against node names")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 200)")),
	)
	s.mcpServer.AddTool(searchNodes, s.handleSearchNodes)

	listServers := mcp.NewTool(
		"list_servers",
		mcp.WithDescription("List MCP server entries found in the repository's and user's config files, with transport classification"),
	)
	s.mcpServer.AddTool(listServers, s.handleListServers)

	listTemplates := mcp.NewTool(
		"list_templates",
		mcp.WithDescription("List the repository's issue templates with their names and descriptions"),
	)
	s.mcpServer.AddTool(listTemplates, s.handleListTemplates)

	gitRemote := mcp.NewTool(
		"git_remote",
		mcp.WithDescription("Report the repository's origin remote as host, owner, and repository name"),
	)
	s.mcpServer.AddTool(gitRemote, s.handleGitRemote)
}

func (s *Server) handleListTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	which := req.GetString("root", "all")
	depth := req.GetInt("depth", 4)
	if depth < 1 {
		depth = 1
	}

	var roots []*tree.Node
	switch which {
	case "github":
		roots = []*tree.Node{s.ctrl.GitHubRoot()}
	case "servers":
		roots = []*tree.Node{s.ctrl.ServersRoot()}
	case "all":
		roots = s.ctrl.Roots()
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown root %q: expected github, servers, or all", which)), nil
	}

	var b strings.Builder
	for _, r := range roots {
		s.renderNode(&b, r, 0, depth)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// renderNode writes one node and its subtree as an indented outline. The
// walk goes through search.Expand so unexpanded live subtrees are listed
// off disk rather than materialized.
func (s *Server) renderNode(b *strings.Builder, n *tree.Node, level, maxDepth int) {
	b.WriteString(strings.Repeat("  ", level))
	b.WriteString(n.Text())
	if n.Kind() == tree.KindEntry {
		fmt.Fprintf(b, " [%s]", n.Transport())
	}
	if n.Missing() {
		b.WriteString(" (missing)")
	}
	b.WriteString("\n")

	if level+1 >= maxDepth {
		return
	}
	for _, child := range search.Expand(n, s.config.SkipPatterns) {
		s.renderNode(b, child, level+1, maxDepth)
	}
}

func (s *Server) handleSearchNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing or invalid query parameter"), nil
	}
	limit := req.GetInt("limit", s.config.SearchLimit)

	results, err := search.Find(ctx, s.ctrl.Roots(), query, search.Options{
		Limit:    limit,
		Workers:  s.config.SearchWorkers,
		SkipDirs: s.config.SkipPatterns,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	var b strings.Builder
	for _, r := range results {
		b.WriteString(strings.Join(r.Trace, " / "))
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleListServers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	locations := mcpconfig.EnumerateLocations(s.repoRoot)

	var b strings.Builder
	found := 0
	for _, loc := range locations {
		if !loc.Exists {
			continue
		}
		fmt.Fprintf(&b, "%s (%s):\n", loc.Label, loc.Path)
		for _, e := range loc.Entries {
			fmt.Fprintf(&b, "  %s [%s]\n", e.Name, e.Transport)
			found++
		}
	}
	if b.Len() == 0 {
		return mcp.NewToolResultText("no MCP config files found"), nil
	}
	s.logger.Debug("Listed MCP server entries", "count", found)
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleListTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tpls, err := templates.Discover(s.repoRoot)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(tpls) == 0 {
		return mcp.NewToolResultText("no issue templates found"), nil
	}

	var b strings.Builder
	for _, tpl := range tpls {
		fmt.Fprintf(&b, "%s (%s)", tpl.Name, tpl.FileName)
		if tpl.About != "" {
			fmt.Fprintf(&b, ": %s", tpl.About)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleGitRemote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.git.Remote()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("no usable origin remote: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s/%s on %s (%s)", info.Owner, info.Repo, info.Host, info.URL)), nil
}
