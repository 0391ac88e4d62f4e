package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/formweld/formweld/internal/config"
	"github.com/formweld/formweld/internal/descriptions"
	"github.com/formweld/formweld/internal/field"
	"github.com/formweld/formweld/internal/pipeline"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *pipeline.Service
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, service *pipeline.Service) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		service:   service,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	templateAnalyzeTool := mcp.NewTool(
		"template_analyze",
		mcp.WithDescription(descriptions.TemplateAnalyzeDescription),
		mcp.WithString("template",
			mcp.Required(),
			mcp.Description("Template filename in the workspace templates directory, or an absolute path"),
		),
	)
	s.mcpServer.AddTool(templateAnalyzeTool, s.handleTemplateAnalyze)

	templateFillTool := mcp.NewTool(
		"template_fill",
		mcp.WithDescription(descriptions.TemplateFillDescription),
		mcp.WithString("template",
			mcp.Required(),
			mcp.Description("Template filename in the workspace templates directory, or an absolute path"),
		),
		mcp.WithString("data",
			mcp.Description("JSON object of field values keyed by canonical field name"),
		),
		mcp.WithString("data_file",
			mcp.Description("Path to a CSV or JSON payload file; each record produces one output"),
		),
	)
	s.mcpServer.AddTool(templateFillTool, s.handleTemplateFill)

	mappingUpdateTool := mcp.NewTool(
		"mapping_update",
		mcp.WithDescription(descriptions.MappingUpdateDescription),
		mcp.WithString("template",
			mcp.Required(),
			mcp.Description("Template id (the template filename)"),
		),
		mcp.WithString("field_id",
			mcp.Required(),
			mcp.Description("Original field name inside the template"),
		),
		mcp.WithString("canonical_field_id",
			mcp.Required(),
			mcp.Description("Canonical field id the template field should map to"),
		),
		mcp.WithString("status",
			mcp.Description("New mapping status: approved or manual_override (default manual_override)"),
		),
		mcp.WithString("reviewed_by",
			mcp.Description("Reviewer identity recorded with the decision"),
		),
	)
	s.mcpServer.AddTool(mappingUpdateTool, s.handleMappingUpdate)

	schemaFieldsTool := mcp.NewTool(
		"schema_fields",
		mcp.WithDescription(descriptions.SchemaFieldsDescription),
	)
	s.mcpServer.AddTool(schemaFieldsTool, s.handleSchemaFields)

	schemaMatchTool := mcp.NewTool(
		"schema_match",
		mcp.WithDescription(descriptions.SchemaMatchDescription),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text field description, e.g. a label with its context"),
		),
	)
	s.mcpServer.AddTool(schemaMatchTool, s.handleSchemaMatch)

	serverInfoTool := mcp.NewTool(
		"server_info",
		mcp.WithDescription(descriptions.ServerInfoDescription),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleServerInfo)
}

// Handler functions
func (s *Server) handleTemplateAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	template, err := request.RequireString("template")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	records, err := s.service.AnalyzeTemplate(template)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatAnalyzeResult(template, records)), nil
}

func (s *Server) handleTemplateFill(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	template, err := request.RequireString("template")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	dataJSON, _ := args["data"].(string)
	dataFile, _ := args["data_file"].(string)

	switch {
	case dataJSON != "":
		var payload map[string]string
		if err := json.Unmarshal([]byte(dataJSON), &payload); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid data JSON: %v", err)), nil
		}
		outcome, err := s.service.Fill(template, payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(s.formatFillOutcome(outcome)), nil

	case dataFile != "":
		outcomes, err := s.service.FillBatch(template, dataFile)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text := fmt.Sprintf("Filled %d record(s) from %s\n\n", len(outcomes), dataFile)
		for i, outcome := range outcomes {
			text += fmt.Sprintf("Record %d:\n%s\n", i+1, s.formatFillOutcome(outcome))
		}
		return mcp.NewToolResultText(text), nil

	default:
		return mcp.NewToolResultError("either data or data_file must be provided"), nil
	}
}

func (s *Server) handleMappingUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	template, err := request.RequireString("template")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fieldID, err := request.RequireString("field_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	canonicalID, err := request.RequireString("canonical_field_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	status, _ := args["status"].(string)
	reviewedBy, _ := args["reviewed_by"].(string)

	if status != "" && status != string(field.StatusApproved) && status != string(field.StatusManualOverride) {
		return mcp.NewToolResultError("status must be approved or manual_override"), nil
	}

	if err := s.service.UpdateMapping(template, fieldID, canonicalID, field.Status(status), reviewedBy); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Mapping updated: %s/%s -> %s", template, fieldID, canonicalID)), nil
}

func (s *Server) handleSchemaFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fields := s.service.Schema().GetAllFields()

	text := fmt.Sprintf("Canonical schema: %d field(s)\n\n", len(fields))
	for i, f := range fields {
		text += fmt.Sprintf("%d. %s (%s)\n", i+1, f.FieldID, f.DataType)
		if f.Description != "" {
			text += fmt.Sprintf("   Description: %s\n", f.Description)
		}
		if len(f.Synonyms) > 0 {
			text += fmt.Sprintf("   Synonyms: %v\n", f.Synonyms)
		}
		text += fmt.Sprintf("   Section: %s\n", f.Section)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleSchemaMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	candidates := s.service.MatchQuery(query, 5)
	if len(candidates) == 0 {
		return mcp.NewToolResultText("No candidates found."), nil
	}

	text := fmt.Sprintf("Candidates for %q:\n", query)
	for i, c := range candidates {
		text += fmt.Sprintf("%d. %s (distance %.3f)\n", i+1, c.FieldID, c.Distance)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := fmt.Sprintf("%s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("Workspace: %s\n", s.config.Workspace)
	text += fmt.Sprintf("Templates: %s\n", s.config.TemplatesDir())
	text += fmt.Sprintf("Mappings: %s\n", s.config.MappingsDir())
	text += fmt.Sprintf("Output: %s\n", s.config.FilledDir())
	text += fmt.Sprintf("Canonical fields: %d\n", s.service.Schema().Count())
	text += fmt.Sprintf("Max file size: %d MB\n\n", s.config.MaxFileSize/(1024*1024))

	text += "Available tools:\n"
	text += "  template_analyze  Discover and map the fields of a template\n"
	text += "  template_fill     Fill a template with a data record\n"
	text += "  mapping_update    Apply a human review decision to a mapping\n"
	text += "  schema_fields     List the canonical field schema\n"
	text += "  schema_match      Query the schema for ranked candidates\n"
	text += "  server_info       This overview\n\n"

	text += "Typical flow: template_analyze, review pending_review and suggest_new\n"
	text += "fields with mapping_update, then template_fill with a data record.\n"
	return mcp.NewToolResultText(text), nil
}

// Formatting methods
func (s *Server) formatAnalyzeResult(template string, records []field.MappingRecord) string {
	text := fmt.Sprintf("Analyzed template: %s\n", template)
	text += fmt.Sprintf("Fields discovered: %d\n", len(records))

	counts := map[field.Status]int{}
	for _, r := range records {
		counts[r.MappingStatus]++
	}
	text += fmt.Sprintf("Auto-mapped: %d, pending review: %d, suggest new: %d\n\n",
		counts[field.StatusAuto], counts[field.StatusPendingReview], counts[field.StatusSuggestNew])

	for i, r := range records {
		text += fmt.Sprintf("%d. %s -> %s\n", i+1, r.OriginalName, r.Name)
		text += fmt.Sprintf("   Label: %s | Section: %s | Page: %d | Type: %s\n",
			r.Label, r.Section, r.Page, r.Type)
		text += fmt.Sprintf("   Status: %s | Confidence: %s | Source: %s\n",
			r.MappingStatus, r.Confidence, r.MappingSource)
		if r.Proposal != nil && r.Proposal.Explanation != "" {
			text += fmt.Sprintf("   %s\n", r.Proposal.Explanation)
		}
	}
	return text
}

func (s *Server) formatFillOutcome(outcome *pipeline.FillOutcome) string {
	text := fmt.Sprintf("Run: %s\n", outcome.RunID)
	text += fmt.Sprintf("Output: %s\n", outcome.OutputPath)
	text += fmt.Sprintf("Filled: %d native, %d overlaid, %d skipped\n",
		outcome.Native, outcome.Overlaid, outcome.Skipped)
	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting formweld MCP server in stdio mode")
		log.Printf("Workspace: %s", s.config.Workspace)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode runs the server in HTTP server mode
func (s *Server) runServerMode(ctx context.Context) error {
	// The mark3labs library handles transports differently; stdio is the
	// only wired transport for now.
	log.Printf("Server mode not yet implemented with mark3labs/mcp-go")
	log.Printf("Falling back to stdio mode")
	return s.runStdioMode(ctx)
}
