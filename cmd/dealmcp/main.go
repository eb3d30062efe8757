package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"dealflow/internal/apiclient"
	"dealflow/internal/config"
	"dealflow/internal/logger"
)

const version = "0.1.0"

func main() {
	stdio := flag.Bool("stdio", false, "use stdio transport (for desktop MCP clients)")
	addr := flag.String("addr", envOr("DEALFLOW_MCP_ADDR", ":4243"), "streamable HTTP listen address")
	apiBase := flag.String("api-base", envOr("DEALFLOW_API_BASE", "http://localhost:8080"), "dealflow API base URL")
	timeout := flag.Duration("timeout", 5*time.Minute, "per-call API timeout")
	logLevel := flag.String("log-level", envOr("DEALFLOW_LOG_LEVEL", "info"), "log level")
	flag.Parse()

	// stdout carries the protocol in stdio mode.
	log, err := logger.New(config.LogConfig{Level: *logLevel, Encoding: "json", Output: "stderr"}, "dealflow-mcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	client := apiclient.New(*apiBase, *timeout)
	client.Token = os.Getenv("DEALFLOW_API_TOKEN")
	tools := &Tools{API: client, Logger: log}

	mcpServer := server.NewMCPServer(
		"dealflow-mcp",
		version,
		server.WithToolCapabilities(true),
	)
	registerTools(mcpServer, tools)

	if *stdio {
		log.Info("serving MCP over stdio", zap.String("api_base", *apiBase))
		if err := server.ServeStdio(mcpServer); err != nil {
			log.Error("stdio server error", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	httpServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithStateLess(true),
	)
	log.Info("serving MCP over streamable HTTP", zap.String("addr", *addr), zap.String("api_base", *apiBase))
	if err := httpServer.Start(*addr); err != nil {
		log.Error("http server error", zap.Error(err))
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
