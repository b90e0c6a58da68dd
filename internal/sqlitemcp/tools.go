package sqlitemcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "sqlite-mcp"
	serverVersion = "0.1.0"
)

type ReadQueryInput struct {
	Query string `json:"query" jsonschema:"required" jsonschema_description:"SELECT SQL query to execute."`
}

type WriteQueryInput struct {
	Query string `json:"query" jsonschema:"required" jsonschema_description:"INSERT, UPDATE, or DELETE SQL statement to execute."`
}

type CreateTableInput struct {
	Query string `json:"query" jsonschema:"required" jsonschema_description:"CREATE TABLE SQL statement."`
}

type ListTablesInput struct{}

type DescribeTableInput struct {
	TableName string `json:"table_name" jsonschema:"required" jsonschema_description:"Name of the table to describe."`
}

type AppendInsightInput struct {
	Insight string `json:"insight" jsonschema:"required" jsonschema_description:"Business insight discovered from data analysis."`
}

// New assembles the MCP server exposing the database tool catalog over the
// given store.
func New(store *Store) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))

	s.AddTool(
		mcp.NewToolWithRawSchema("read_query",
			"Execute a SELECT query on the SQLite database",
			rawSchema[ReadQueryInput]()),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var in ReadQueryInput
			if err := req.BindArguments(&in); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return result(store.ReadQuery(ctx, in.Query))
		},
	)

	s.AddTool(
		mcp.NewToolWithRawSchema("write_query",
			"Execute an INSERT, UPDATE, or DELETE query on the SQLite database",
			rawSchema[WriteQueryInput]()),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var in WriteQueryInput
			if err := req.BindArguments(&in); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return result(store.WriteQuery(ctx, in.Query))
		},
	)

	s.AddTool(
		mcp.NewToolWithRawSchema("create_table",
			"Create a new table in the SQLite database",
			rawSchema[CreateTableInput]()),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var in CreateTableInput
			if err := req.BindArguments(&in); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return result(store.CreateTable(ctx, in.Query))
		},
	)

	s.AddTool(
		mcp.NewToolWithRawSchema("list_tables",
			"List all user tables in the SQLite database",
			rawSchema[ListTablesInput]()),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return result(store.ListTables(ctx))
		},
	)

	s.AddTool(
		mcp.NewToolWithRawSchema("describe_table",
			"Get the schema information for a specific table",
			rawSchema[DescribeTableInput]()),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var in DescribeTableInput
			if err := req.BindArguments(&in); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return result(store.DescribeTable(ctx, in.TableName))
		},
	)

	s.AddTool(
		mcp.NewToolWithRawSchema("append_insight",
			"Add a business insight to the memo",
			rawSchema[AppendInsightInput]()),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var in AppendInsightInput
			if err := req.BindArguments(&in); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return result(store.AppendInsight(ctx, in.Insight))
		},
	)

	return s
}

// result wraps a store outcome as a tool result, mapping errors to error
// results so the model sees them instead of the transport failing.
func result(payload string, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(payload), nil
}
