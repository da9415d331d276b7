package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"AgentKit-EVM/internal/toolkit"
	"AgentKit-EVM/pkg/logger"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// serveMCP 把调度器的工具集暴露为 MCP stdio 服务，直到 ctx 取消。
func serveMCP(ctx context.Context, client *toolkit.Client) error {
	mcpServer := server.NewMCPServer(
		"agentkitd",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	for _, tool := range client.Tools() {
		mcpServer.AddTool(toMCPTool(tool), toolHandler(client, tool.Name))
	}

	stdioServer := server.NewStdioServer(mcpServer)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// toMCPTool 把内部工具描述转成 MCP 工具定义，参数 schema 原样透传。
func toMCPTool(tool toolkit.Tool) mcp.Tool {
	out := mcp.NewTool(tool.Name, mcp.WithDescription(tool.Description))
	if tool.Schema != nil {
		if raw, err := json.Marshal(tool.Schema); err == nil {
			out.InputSchema = mcp.ToolInputSchema{}
			out.RawInputSchema = raw
		}
	} else {
		out.InputSchema = mcp.ToolInputSchema{}
		out.RawInputSchema = []byte(`{"type":"object","properties":{}}`)
	}
	return out
}

func toolHandler(client *toolkit.Client, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := client.Execute(ctx, name, req.GetArguments())
		if err != nil {
			logger.L().Warn("工具调用失败", "tool", name, "err", err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		encoded, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("编码工具结果失败: %v", err)), nil
		}
		return mcp.NewToolResultText(string(encoded)), nil
	}
}
