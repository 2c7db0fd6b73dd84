// Package mcpserver implements an MCP (Model Context Protocol) server that
// exposes the rain and runoff statistics as typed tools over stdio JSON-RPC.
package mcpserver

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/stormwater-tools/stormstats/internal/config"
	"github.com/stormwater-tools/stormstats/internal/hydro"
)

// Server holds the MCP server state and configuration.
type Server struct {
	analyzer *hydro.Analyzer
	log      *zap.SugaredLogger
}

// NewServer creates an MCP server that analyzes with analyzer.
func NewServer(analyzer *hydro.Analyzer, log *zap.SugaredLogger) *Server {
	return &Server{analyzer: analyzer, log: log}
}

// MCPServer builds the mcp-go server with the statistics tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"stormstats",
		config.Version,
		server.WithToolCapabilities(true),
	)
	mcpServer.AddTools(
		server.ServerTool{Tool: rainStatisticsTool(), Handler: s.handleAnalysis(hydro.KindRain)},
		server.ServerTool{Tool: flowStatisticsTool(), Handler: s.handleAnalysis(hydro.KindFlow)},
		server.ServerTool{Tool: rainFlowStatisticsTool(), Handler: s.handleAnalysis(hydro.KindRainFlow)},
	)
	return mcpServer
}

// Serve runs the stdio server on in and out. It blocks until ctx is
// cancelled or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.MCPServer())
	stdio.SetErrorLogger(zap.NewStdLog(s.log.Desugar().Named("mcp")))
	s.log.Infow("mcp server listening on stdio")
	return stdio.Listen(ctx, in, out)
}
