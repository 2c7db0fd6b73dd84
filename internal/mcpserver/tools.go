package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stormwater-tools/stormstats/internal/hydro"
	"github.com/stormwater-tools/stormstats/internal/metrics"
)

// --- Tool Definitions ---

const rainSchema = `{
	"type": "object",
	"description": "Rain gauge readings",
	"properties": {
		"datetime": {"type": "array", "items": {"type": "string"}},
		"rain": {"type": "array", "items": {"type": ["number", "null"]}}
	},
	"required": ["datetime", "rain"]
}`

const flowSchema = `{
	"type": "object",
	"description": "Flow meter readings",
	"properties": {
		"datetime": {"type": "array", "items": {"type": "string"}},
		"flow": {"type": "array", "items": {"type": ["number", "null"]}},
		"time_unit": {"type": "string", "enum": ["s", "sec", "m", "min"], "description": "Unit of the flow rate denominator"}
	},
	"required": ["datetime", "flow", "time_unit"]
}`

func flowProperties() string {
	return `"inflow1": ` + flowSchema + `,
		"inflow2": ` + flowSchema + `,
		"outflow": ` + flowSchema + `,
		"bypass": ` + flowSchema
}

func rainStatisticsTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"rain_statistics",
		"Split rainfall into events and report totals, average and peak intensities, and antecedent dry periods.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"rain": `+rainSchema+`
			},
			"required": ["rain"]
		}`),
	)
}

func flowStatisticsTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"flow_statistics",
		"Report runoff volume, duration and peak flow rate per flow series, with percent change from inflow to outflow.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				`+flowProperties()+`
			}
		}`),
	)
}

func rainFlowStatisticsTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"rainflow_statistics",
		"Report rain events and, for each event, the runoff of every flow series over the event plus the drain interval.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"rain": `+rainSchema+`,
				`+flowProperties()+`
			},
			"required": ["rain"]
		}`),
	)
}

// --- Handlers ---

func (s *Server) handleAnalysis(kind string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tool := kind + "_statistics"
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]json.RawMessage
		if err := req.BindArguments(&args); err != nil {
			metrics.MCPToolCalls.WithLabelValues(tool, metrics.OutcomeInvalid).Inc()
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		body, err := json.Marshal(args)
		if err != nil {
			metrics.MCPToolCalls.WithLabelValues(tool, metrics.OutcomeError).Inc()
			return mcp.NewToolResultError(fmt.Sprintf("encode arguments: %v", err)), nil
		}

		p, err := hydro.DecodePayload(body)
		var stats hydro.Statistics
		if err == nil {
			stats, err = s.analyzer.Analyze(kind, p)
		}
		if err != nil {
			outcome := metrics.OutcomeError
			if errors.Is(err, hydro.ErrInvalidData) {
				outcome = metrics.OutcomeInvalid
			}
			metrics.MCPToolCalls.WithLabelValues(tool, outcome).Inc()
			s.log.Debugw("tool call rejected", "tool", tool, "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		metrics.MCPToolCalls.WithLabelValues(tool, metrics.OutcomeOK).Inc()
		return resultJSON(map[string]any{"statistics": stats})
	}
}

// resultJSON marshals v to JSON and returns it as a tool result.
func resultJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
