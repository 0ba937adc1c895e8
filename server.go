package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"genai-gateway/common"
	"genai-gateway/internal/handler"
	"genai-gateway/internal/studio"
	"genai-gateway/internal/tools"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

var configFile string

var rootCmd = &cobra.Command{
	Use:           "genai-gateway",
	Short:         "HTTP and MCP gateway for text, vision, document, audio and SVG image generation",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServeCmd,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	RunE:  runServeCmd,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the same operations as MCP tools over stdio",
	RunE:  runMCPCmd,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (yaml/json/toml), overridden by environment variables")
	rootCmd.AddCommand(serveCmd, mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup() (*common.Config, *studio.Service, error) {
	config, err := common.LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	svc, err := studio.NewServiceFromConfig(config)
	if err != nil {
		return nil, nil, err
	}
	return config, svc, nil
}

func logStartup(config *common.Config) {
	common.WithFields(map[string]interface{}{
		"provider":     config.GenAIProvider,
		"base_url":     config.GenAIBaseURL,
		"model":        config.GenAIModelName,
		"api_key":      maskAPIKey(config.GenAIAPIKey),
		"image_format": config.GenAIImageFormat,
	}).Info("Server starting...")
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	config, svc, err := setup()
	if err != nil {
		return err
	}
	logStartup(config)

	if !common.IsDebugEnabled() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(handler.NewHandler(svc), int64(config.MaxUploadMB)<<20)

	srv := &http.Server{
		Addr:              config.GetServerAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		common.Infof("Server ready on http://%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	common.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func runMCPCmd(cmd *cobra.Command, args []string) error {
	config, svc, err := setup()
	if err != nil {
		return err
	}

	// stdout 是 MCP 协议通道，日志不能写到这里
	if config.LogOutput == "" || config.LogOutput == "stdout" {
		config.LogOutput = "stderr"
		if err := common.InitLogger(config.LogConfig()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}
	logStartup(config)

	s := server.NewMCPServer(
		"GenAI Gateway",
		version,
		server.WithToolCapabilities(true),
	)

	if err := tools.RegisterStudioTools(s, svc); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// maskAPIKey 隐藏 API Key 的敏感部分
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
