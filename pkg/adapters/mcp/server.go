// Package mcp exposes the flow builder to AI assistants over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/pkg/config"
	"github.com/aretw0/switchboard/pkg/flowbuilder"
	"github.com/aretw0/switchboard/pkg/render"
	"github.com/aretw0/switchboard/pkg/retell"
	"github.com/aretw0/switchboard/pkg/validator"
)

// TemplatesURI is the resource listing the built-in templates.
const TemplatesURI = "switchboard://templates"

// TemplateInfo describes one built-in template.
type TemplateInfo struct {
	Name        string   `json:"name" jsonschema_description:"Template name, used by the other tools"`
	Description string   `json:"description"`
	Direction   string   `json:"direction" jsonschema_description:"inbound or outbound"`
	Requires    []string `json:"requires" jsonschema_description:"Configuration keys the template cannot build without"`
}

// TemplateList is the result of list_templates.
type TemplateList struct {
	Templates []TemplateInfo `json:"templates"`
}

// IssueView is a validation finding.
type IssueView struct {
	Number   int    `json:"number" jsonschema_description:"1-based rule number"`
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	NodeID   string `json:"node_id,omitempty"`
	EdgeID   string `json:"edge_id,omitempty"`
	Message  string `json:"message"`
}

// BuildResponse is the result of build_flow.
type BuildResponse struct {
	Template  string         `json:"template"`
	AgentName string         `json:"agent_name"`
	Flow      map[string]any `json:"flow" jsonschema_description:"The conversation flow document sent to create-conversation-flow"`
	Warnings  []string       `json:"warnings,omitempty"`
}

// ValidateResponse is the result of validate_flow.
type ValidateResponse struct {
	Valid    bool        `json:"valid"`
	Errors   []IssueView `json:"errors"`
	Warnings []IssueView `json:"warnings"`
}

// RenderNodeResponse is the result of render_node.
type RenderNodeResponse struct {
	NodeID string `json:"node_id"`
	Kind   string `json:"kind"`
	Mode   string `json:"mode" jsonschema_description:"prompt or static_text"`
	Text   string `json:"text"`
}

// Server exposes the template tools as an MCP server.
type Server struct {
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mcpServer: server.NewMCPServer("switchboard-mcp", strings.TrimSpace(switchboard.Version)),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx ends.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List the built-in conversation flow templates."),
		mcp.WithOutputSchema[TemplateList](),
	), mcp.NewStructuredToolHandler(s.handleListTemplates))

	s.mcpServer.AddTool(mcp.NewTool("build_flow",
		mcp.WithDescription("Build a conversation flow from a template and a business configuration, without deploying it."),
		mcp.WithString("template", mcp.Required(), mcp.Description("Template name (see list_templates)")),
		mcp.WithString("config", mcp.Description("Business configuration as a YAML or JSON document")),
		mcp.WithOutputSchema[BuildResponse](),
	), mcp.NewStructuredToolHandler(s.handleBuildFlow))

	s.mcpServer.AddTool(mcp.NewTool("validate_flow",
		mcp.WithDescription("Validate a conversation flow. Pass either a template with its configuration, or a flow document."),
		mcp.WithString("template", mcp.Description("Template name")),
		mcp.WithString("config", mcp.Description("Business configuration as a YAML or JSON document")),
		mcp.WithString("flow", mcp.Description("Conversation flow document, as returned by build_flow or get-conversation-flow")),
		mcp.WithOutputSchema[ValidateResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidateFlow))

	s.mcpServer.AddTool(mcp.NewTool("render_node",
		mcp.WithDescription("Render the instruction text of one node with sample variable values."),
		mcp.WithString("template", mcp.Required(), mcp.Description("Template name")),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node to render")),
		mcp.WithString("config", mcp.Description("Business configuration as a YAML or JSON document")),
		mcp.WithString("vars", mcp.Description("JSON object of variable values, e.g. {\"caller_name\":\"Dana\"}")),
		mcp.WithOutputSchema[RenderNodeResponse](),
	), mcp.NewStructuredToolHandler(s.handleRenderNode))
}

func (s *Server) handleListTemplates(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TemplateList, error) {
	list, err := templateList()
	if err != nil {
		return TemplateList{}, err
	}
	return list, nil
}

func templateList() (TemplateList, error) {
	templates, err := flowbuilder.List()
	if err != nil {
		return TemplateList{}, fmt.Errorf("failed to load templates: %w", err)
	}
	out := TemplateList{Templates: make([]TemplateInfo, len(templates))}
	for i, t := range templates {
		out.Templates[i] = TemplateInfo{
			Name:        t.Name(),
			Description: t.Description(),
			Direction:   t.Direction(),
			Requires:    t.Requires(),
		}
	}
	return out, nil
}

func (s *Server) handleBuildFlow(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (BuildResponse, error) {
	b, err := buildFromArgs(ctx, args)
	if err != nil {
		return BuildResponse{}, err
	}
	data, err := retell.Encode(b.Flow)
	if err != nil {
		return BuildResponse{}, fmt.Errorf("encode failed: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return BuildResponse{}, fmt.Errorf("encode failed: %w", err)
	}

	resp := BuildResponse{Template: b.Template, AgentName: b.AgentName, Flow: doc}
	for _, w := range b.Warnings {
		resp.Warnings = append(resp.Warnings, w.String())
	}
	s.logger.Debug("MCP build_flow", "template", b.Template, "nodes", len(b.Flow.Nodes))
	return resp, nil
}

func (s *Server) handleValidateFlow(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidateResponse, error) {
	var report *validator.Report
	if raw, _ := args["flow"].(string); raw != "" {
		flow, err := retell.Decode([]byte(raw))
		if err != nil {
			return ValidateResponse{}, fmt.Errorf("invalid flow document: %w", err)
		}
		report = validator.Validate(flow)
	} else {
		b, err := buildFromArgs(ctx, args)
		if err != nil {
			return ValidateResponse{}, err
		}
		report = b.Report
	}

	return ValidateResponse{
		Valid:    report.Valid(),
		Errors:   issueViews(report.Errors()),
		Warnings: issueViews(report.Warnings()),
	}, nil
}

func (s *Server) handleRenderNode(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RenderNodeResponse, error) {
	nodeID, _ := args["node_id"].(string)
	if nodeID == "" {
		return RenderNodeResponse{}, errors.New("node_id is required")
	}
	b, err := buildFromArgs(ctx, args)
	if err != nil {
		return RenderNodeResponse{}, err
	}
	node, ok := b.Flow.Node(nodeID)
	if !ok {
		return RenderNodeResponse{}, fmt.Errorf("template %q has no node %q", b.Template, nodeID)
	}

	bindings := b.Flow.DefaultVariables
	if raw, _ := args["vars"].(string); raw != "" {
		var vars map[string]string
		if err := json.Unmarshal([]byte(raw), &vars); err != nil {
			return RenderNodeResponse{}, fmt.Errorf("vars must be a JSON object of strings: %w", err)
		}
		bindings = merge(bindings, vars)
	}

	resp := RenderNodeResponse{NodeID: node.ID, Kind: node.Kind().String()}
	inst, ok := node.Instruction()
	if !ok {
		return resp, nil
	}
	text, err := render.Render(inst.Text, bindings)
	if err != nil {
		return RenderNodeResponse{}, fmt.Errorf("node %q: %w", nodeID, err)
	}
	resp.Mode = string(inst.Mode)
	resp.Text = text
	return resp, nil
}

func buildFromArgs(ctx context.Context, args map[string]interface{}) (*switchboard.Build, error) {
	name, _ := args["template"].(string)
	if name == "" {
		return nil, errors.New("template is required")
	}
	var cfg config.BusinessConfig
	if raw, _ := args["config"].(string); raw != "" {
		parsed, err := config.Parse([]byte(raw))
		if err != nil {
			return nil, err
		}
		cfg = parsed
	}
	return switchboard.BuildFlow(ctx, name, cfg)
}

func issueViews(issues []validator.Issue) []IssueView {
	out := make([]IssueView, len(issues))
	for i, is := range issues {
		out[i] = IssueView{
			Number:   is.Rule.Number(),
			Rule:     string(is.Rule),
			Severity: string(is.Severity),
			NodeID:   is.NodeID,
			EdgeID:   is.EdgeID,
			Message:  is.Message,
		}
	}
	return out
}

func merge(base, over map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(TemplatesURI, "Built-in Templates",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		list, err := templateList()
		if err != nil {
			return nil, err
		}
		jsonBytes, _ := json.Marshal(list)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      TemplatesURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
