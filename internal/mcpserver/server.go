// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes Haven's contacts, keywords, directory and SOS alert as tools over
// stdio.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/haven/internal/models"
	"github.com/starford/haven/internal/safety"
)

// DirectoryURI is the resource holding the safe-place directory.
const DirectoryURI = "haven://directory"

// Server wraps the MCP server with Haven tools.
type Server struct {
	mcp *server.MCPServer
	svc *safety.Service
}

// New creates an MCP server with every Haven tool registered.
func New(svc *safety.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Haven",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_contacts",
		mcp.WithDescription("List the emergency contacts notified by an SOS alert."),
	), s.listContacts)

	s.mcp.AddTool(mcp.NewTool("add_contact",
		mcp.WithDescription("Add an emergency contact. All fields are required and must not be blank."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Contact name")),
		mcp.WithString("phone", mcp.Required(), mcp.Description("Phone number, free form")),
		mcp.WithString("relation", mcp.Required(), mcp.Description("Relationship, e.g. Family or Friend")),
	), s.addContact)

	s.mcp.AddTool(mcp.NewTool("remove_contact",
		mcp.WithDescription("Remove an emergency contact by id. Removing an unknown id is not an error."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Contact id")),
	), s.removeContact)

	s.mcp.AddTool(mcp.NewTool("list_keywords",
		mcp.WithDescription("List the safety keyword rules (code phrase and triggered response)."),
	), s.listKeywords)

	s.mcp.AddTool(mcp.NewTool("add_keyword",
		mcp.WithDescription("Add a safety keyword rule."),
		mcp.WithString("phrase", mcp.Required(), mcp.Description("Code phrase to watch for")),
		mcp.WithString("response", mcp.Required(), mcp.Description("Action triggered by the phrase")),
	), s.addKeyword)

	s.mcp.AddTool(mcp.NewTool("remove_keyword",
		mcp.WithDescription("Remove a safety keyword rule by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Rule id")),
	), s.removeKeyword)

	s.mcp.AddTool(mcp.NewTool("match_keywords",
		mcp.WithDescription("Return the keyword rules whose phrase occurs in a message, ignoring case."),
		mcp.WithString("message", mcp.Required(), mcp.Description("Message text to scan")),
	), s.matchKeywords)

	s.mcp.AddTool(mcp.NewTool("search_places",
		mcp.WithDescription("Search nearby safe places by name or address and optional category."),
		mcp.WithString("query", mcp.Description("Case-insensitive substring of name or address")),
		mcp.WithString("type", mcp.Description("Category filter"),
			mcp.Enum("police", "hospital", "shelter", "public")),
	), s.searchPlaces)

	s.mcp.AddTool(mcp.NewTool("trigger_alert",
		mcp.WithDescription("Send an SOS alert to every emergency contact."),
		mcp.WithString("location", mcp.Description("Optional last known location")),
	), s.triggerAlert)

	s.mcp.AddResource(
		mcp.NewResource(DirectoryURI, "Safe Place Directory",
			mcp.WithResourceDescription("Every nearby safe place with address, phone and opening hours."),
			mcp.WithMIMEType("application/json"),
		),
		s.readDirectoryResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// optionalString returns the named string argument, or "" when absent.
func optionalString(req mcp.CallToolRequest, key string) string {
	v, err := req.RequireString(key)
	if err != nil {
		return ""
	}
	return v
}

func (s *Server) listContacts(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Contacts())
}

func (s *Server) addContact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d := models.ContactDraft{
		Name:     optionalString(req, "name"),
		Phone:    optionalString(req, "phone"),
		Relation: optionalString(req, "relation"),
	}
	c, err := s.svc.AddContact(ctx, d)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(c)
}

func (s *Server) removeContact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.svc.RemoveContact(ctx, id) {
		return mcp.NewToolResultText("no contact with id " + id), nil
	}
	return mcp.NewToolResultText("removed: " + id), nil
}

func (s *Server) listKeywords(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Keywords())
}

func (s *Server) addKeyword(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d := models.KeywordDraft{
		Phrase:   optionalString(req, "phrase"),
		Response: optionalString(req, "response"),
	}
	k, err := s.svc.AddKeyword(ctx, d)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(k)
}

func (s *Server) removeKeyword(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.svc.RemoveKeyword(ctx, id) {
		return mcp.NewToolResultText("no keyword rule with id " + id), nil
	}
	return mcp.NewToolResultText("removed: " + id), nil
}

func (s *Server) matchKeywords(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	matches := s.svc.MatchKeywords(msg)
	if len(matches) == 0 {
		return mcp.NewToolResultText("no keywords matched"), nil
	}
	return jsonResult(matches)
}

func (s *Server) searchPlaces(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	places, err := s.svc.Places(optionalString(req, "query"), optionalString(req, "type"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(places)
}

func (s *Server) triggerAlert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := s.svc.TriggerAlert(ctx, optionalString(req, "location"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(a)
}

func (s *Server) readDirectoryResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.MarshalIndent(s.svc.Directory(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DirectoryURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
