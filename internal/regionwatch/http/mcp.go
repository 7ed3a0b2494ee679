package http

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/sjzar/regionwatch/internal/errors"
	"github.com/sjzar/regionwatch/pkg/version"
)

const mcpServerName = "regionwatch"

func (s *Service) initMCPServer() {
	s.mcpServer = server.NewMCPServer(mcpServerName, version.Version)
	s.mcpServer.AddTool(ProcessStateTool, s.handleMCPProcessState)
	s.mcpServer.AddTool(CheckUpdateTool, s.handleMCPCheckUpdate)
	s.mcpSSEServer = server.NewSSEServer(s.mcpServer)
	s.mcpStreamableServer = server.NewStreamableHTTPServer(s.mcpServer)
}

var ProcessStateTool = mcp.NewTool(
	"get_process_state",
	mcp.WithDescription(`获取被监视进程的当前状态。返回 JSON，包含最近一次 process-check 心跳（状态为 unknown、not_running、running、not_listening、listening、stopped 之一，listening 时带有区域）、最近一次更新检查结果以及正在处理的区域。`),
)

var CheckUpdateTool = mcp.NewTool(
	"check_update",
	mcp.WithDescription(`立即触发一次更新检查。检查结果通过 updater 事件发布，可随后调用 get_process_state 查看。已有检查在进行时返回错误 "update check already running"。`),
)

func (s *Service) handleMCPProcessState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(s.backend.State())
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal state")
		return errors.ErrMCPTool(err), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(b),
			},
		},
	}, nil
}

func (s *Service) handleMCPCheckUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.backend.CheckUpdate(); err != nil {
		log.Debug().Err(err).Msg("manual update check rejected")
		return errors.ErrMCPTool(err), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: "update check scheduled",
			},
		},
	}, nil
}
