package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/haven/internal/models"
	"github.com/starford/haven/internal/safety"
	"github.com/starford/haven/internal/testutil"
)

func testServer(t *testing.T) (*Server, *safety.Service) {
	t.Helper()
	svc, _ := testutil.TestService(t, safety.Options{})
	return New(svc, "test"), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper; dispatch to the handlers directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_contacts":  srv.listContacts,
		"add_contact":    srv.addContact,
		"remove_contact": srv.removeContact,
		"list_keywords":  srv.listKeywords,
		"add_keyword":    srv.addKeyword,
		"remove_keyword": srv.removeKeyword,
		"match_keywords": srv.matchKeywords,
		"search_places":  srv.searchPlaces,
		"trigger_alert":  srv.triggerAlert,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestToolsRegistered(t *testing.T) {
	srv, _ := testServer(t)
	resp := srv.MCPServer().HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	for _, name := range []string{
		"list_contacts", "add_contact", "remove_contact",
		"list_keywords", "add_keyword", "remove_keyword",
		"match_keywords", "search_places", "trigger_alert",
	} {
		if !strings.Contains(string(out), `"name":"`+name+`"`) {
			t.Errorf("tool %s not listed in %s", name, out)
		}
	}
}

func TestAddListRemoveContact(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "add_contact", map[string]interface{}{
		"name": "Sam", "phone": "123", "relation": "Neighbor",
	})
	if r.IsError {
		t.Fatalf("add_contact error: %s", resultText(r))
	}
	var c models.Contact
	if err := json.Unmarshal([]byte(resultText(r)), &c); err != nil {
		t.Fatalf("decode contact: %v", err)
	}
	if c.ID != "100" || c.Name != "Sam" {
		t.Errorf("contact = %+v", c)
	}

	r = callTool(t, srv, "list_contacts", map[string]interface{}{})
	var list []models.Contact
	if err := json.Unmarshal([]byte(resultText(r)), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 4 {
		t.Errorf("list = %+v", list)
	}

	r = callTool(t, srv, "remove_contact", map[string]interface{}{"id": "100"})
	if text := resultText(r); text != "removed: 100" {
		t.Errorf("remove result = %q", text)
	}
	r = callTool(t, srv, "remove_contact", map[string]interface{}{"id": "100"})
	if r.IsError || !strings.HasPrefix(resultText(r), "no contact") {
		t.Errorf("repeat remove = %q", resultText(r))
	}
	if len(svc.Contacts()) != 3 {
		t.Errorf("contacts = %+v", svc.Contacts())
	}
}

func TestAddContactBlankField(t *testing.T) {
	srv, svc := testServer(t)
	r := callTool(t, srv, "add_contact", map[string]interface{}{
		"name": "Sam", "phone": "123", "relation": "   ",
	})
	if !r.IsError {
		t.Error("expected error for blank relation")
	}
	if len(svc.Contacts()) != 3 {
		t.Error("blank draft was added")
	}
}

func TestKeywordTools(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "add_keyword", map[string]interface{}{"phrase": "Blue Moon", "response": "Call me"})
	if r.IsError {
		t.Fatalf("add_keyword error: %s", resultText(r))
	}

	r = callTool(t, srv, "match_keywords", map[string]interface{}{"message": "once in a BLUE MOON"})
	if !strings.Contains(resultText(r), "Blue Moon") {
		t.Errorf("match = %q", resultText(r))
	}
	r = callTool(t, srv, "match_keywords", map[string]interface{}{"message": "hello"})
	if resultText(r) != "no keywords matched" {
		t.Errorf("no match = %q", resultText(r))
	}
	r = callTool(t, srv, "match_keywords", map[string]interface{}{})
	if !r.IsError {
		t.Error("missing message should be an error")
	}

	r = callTool(t, srv, "remove_keyword", map[string]interface{}{"id": "1"})
	if resultText(r) != "removed: 1" {
		t.Errorf("remove = %q", resultText(r))
	}
	r = callTool(t, srv, "list_keywords", map[string]interface{}{})
	if strings.Contains(resultText(r), "Code Red") {
		t.Error("removed rule still listed")
	}
}

func TestSearchPlaces(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "search_places", map[string]interface{}{"query": "library"})
	var places []models.SafePlace
	if err := json.Unmarshal([]byte(resultText(r)), &places); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(places) != 1 || places[0].Name != "City Library" {
		t.Errorf("places = %+v", places)
	}

	r = callTool(t, srv, "search_places", map[string]interface{}{"type": "castle"})
	if !r.IsError {
		t.Error("unknown type should be an error")
	}
}

func TestTriggerAlertTool(t *testing.T) {
	srv, svc := testServer(t)
	r := callTool(t, srv, "trigger_alert", map[string]interface{}{"location": "Station"})
	if r.IsError || !strings.Contains(resultText(r), "Station") {
		t.Errorf("trigger_alert = %q", resultText(r))
	}

	for _, c := range svc.Contacts() {
		svc.RemoveContact(context.Background(), c.ID)
	}
	r = callTool(t, srv, "trigger_alert", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error with no contacts")
	}
}

func TestDirectoryResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readDirectoryResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("read resource: %v", err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != DirectoryURI {
		t.Fatalf("contents = %+v", contents)
	}
	if !strings.Contains(tc.Text, "Women's Support Center") {
		t.Errorf("resource text = %q", tc.Text)
	}
}
