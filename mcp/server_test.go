package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/stepguide/brandpdf/compose"
	"github.com/stepguide/brandpdf/inspect"
	"github.com/stepguide/brandpdf/internal/config"
	"github.com/stepguide/brandpdf/preview"
)

type fakeRasterizer struct{}

func (fakeRasterizer) Rasterize(_ context.Context, _ string, n int, _ float64) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 10*n, 10)), nil
}

func newToolbox(t *testing.T) *Toolbox {
	t.Helper()
	profile := config.DefaultConfig()
	profile.Output.Dir = t.TempDir()
	return &Toolbox{
		Composer: compose.New(),
		Renderer: preview.NewRenderer(fakeRasterizer{}),
		Profile:  profile,
	}
}

func newTestServer(t *testing.T) (*Server, *Toolbox) {
	t.Helper()
	tb := newToolbox(t)
	s := NewServerWithIO(nil, nil, nil)
	RegisterDefaultTools(s, tb)
	RegisterDefaultResources(s, tb.Profile)
	return s, tb
}

func writeTestPDF(t *testing.T, dir string, numPages int) string {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 14)
	for i := 1; i <= numPages; i++ {
		pdf.AddPage()
		pdf.Text(20, 30, fmt.Sprintf("Page %d", i))
	}
	path := filepath.Join(dir, "source.pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("creating test PDF: %v", err)
	}
	return path
}

func writeTestPNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{G: 128, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func sendRequest(t *testing.T, s *Server, method string, id int, params interface{}) jsonrpcResponse {
	t.Helper()

	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		req["params"] = params
	}

	reqBytes, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	reqBytes = append(reqBytes, '\n')

	var output bytes.Buffer
	s.input = bytes.NewReader(reqBytes)
	s.output = &output

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(output.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling response %q: %v", output.String(), err)
	}
	return resp
}

// callTool invokes a tool and returns its text blocks joined, failing the
// test on protocol errors.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) (ToolResult, string) {
	t.Helper()
	resp := sendRequest(t, s, "tools/call", 1, map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	raw, _ := json.Marshal(resp.Result)
	var result ToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decoding tool result: %v", err)
	}
	var text []string
	for _, c := range result.Content {
		if c.Type == "text" {
			text = append(text, c.Text)
		}
	}
	return result, strings.Join(text, "\n")
}

func TestServerInitialize(t *testing.T) {
	s, _ := newTestServer(t)

	resp := sendRequest(t, s, "initialize", 1, map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"capabilities":    map[string]interface{}{},
		"clientInfo":      map[string]interface{}{"name": "test", "version": "1.0"},
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("result is not a map")
	}
	if result["protocolVersion"] != ProtocolVersion {
		t.Fatalf("unexpected protocol version: %v", result["protocolVersion"])
	}

	serverInfo, ok := result["serverInfo"].(map[string]interface{})
	if !ok {
		t.Fatal("missing serverInfo")
	}
	if serverInfo["name"] != "brandpdf-mcp" {
		t.Fatalf("unexpected server name: %v", serverInfo["name"])
	}
}

func TestServerToolsList(t *testing.T) {
	s, _ := newTestServer(t)

	resp := sendRequest(t, s, "tools/list", 2, nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	result := resp.Result.(map[string]interface{})
	tools, ok := result["tools"].([]interface{})
	if !ok {
		t.Fatal("tools is not an array")
	}

	var names []string
	for _, tool := range tools {
		if tm, ok := tool.(map[string]interface{}); ok {
			names = append(names, tm["name"].(string))
		}
	}
	want := []string{"brand_pdf", "output_filename", "pdf_info", "preview_pdf"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("tools = %v, want %v (sorted)", names, want)
	}
}

func TestServerResourcesList(t *testing.T) {
	s, _ := newTestServer(t)

	resp := sendRequest(t, s, "resources/list", 3, nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	resources := resp.Result.(map[string]interface{})["resources"].([]interface{})
	if len(resources) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(resources))
	}
}

func TestServerPing(t *testing.T) {
	s := NewServerWithIO(nil, nil, nil)

	resp := sendRequest(t, s, "ping", 4, nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
}

func TestServerUnknownMethod(t *testing.T) {
	s := NewServerWithIO(nil, nil, nil)

	resp := sendRequest(t, s, "nonexistent/method", 5, nil)
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected error code %d, got %d", codeMethodNotFound, resp.Error.Code)
	}
}

func TestServerUnknownTool(t *testing.T) {
	s, _ := newTestServer(t)

	resp := sendRequest(t, s, "tools/call", 6, map[string]interface{}{
		"name":      "nonexistent_tool",
		"arguments": map[string]interface{}{},
	})
	if resp.Error == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestServerParseError(t *testing.T) {
	var output bytes.Buffer
	s := NewServerWithIO(strings.NewReader("{not json\n"), &output, nil)
	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(output.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != codeParseError {
		t.Fatalf("expected parse error, got %+v", resp.Error)
	}
}

func TestBrandPDFTool(t *testing.T) {
	s, tb := newTestServer(t)
	dir := t.TempDir()

	_, text := callTool(t, s, "brand_pdf", map[string]interface{}{
		"documents":  []interface{}{writeTestPDF(t, dir, 2)},
		"logo":       writeTestPNG(t, dir, "logo.png"),
		"border":     writeTestPNG(t, dir, "border.png"),
		"background": writeTestPNG(t, dir, "bg.png"),
		"title":      "Q1 Plan",
		"name":       "My Report",
	})

	var out struct {
		Path  string `json:"path"`
		Pages int    `json:"pages"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("decoding %q: %v", text, err)
	}
	want := filepath.Join(tb.Profile.Output.Dir, "StepGuide_My_Report_Q1_Plan.pdf")
	if out.Path != want {
		t.Errorf("path = %q, want %q", out.Path, want)
	}
	if out.Pages != 3 {
		t.Errorf("pages = %d, want 3", out.Pages)
	}

	data, err := os.ReadFile(out.Path)
	if err != nil {
		t.Fatal(err)
	}
	info, err := inspect.Open(data)
	if err != nil {
		t.Fatalf("output is not a valid PDF: %v", err)
	}
	if info.PageCount != 3 {
		t.Errorf("output has %d pages, want 3", info.PageCount)
	}
}

func TestBrandPDFToolTitleWithSeparators(t *testing.T) {
	s, tb := newTestServer(t)
	dir := t.TempDir()

	result, text := callTool(t, s, "brand_pdf", map[string]interface{}{
		"documents":  writeTestPDF(t, dir, 1),
		"logo":       writeTestPNG(t, dir, "logo.png"),
		"border":     writeTestPNG(t, dir, "border.png"),
		"background": writeTestPNG(t, dir, "bg.png"),
		"title":      "../../escape",
	})
	if result.IsError {
		t.Fatalf("tool error: %s", text)
	}

	var out struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("decoding %q: %v", text, err)
	}
	if got := filepath.Dir(out.Path); got != tb.Profile.Output.Dir {
		t.Errorf("output written to %q, want inside %q", out.Path, tb.Profile.Output.Dir)
	}
	if _, err := os.Stat(out.Path); err != nil {
		t.Errorf("output file: %v", err)
	}
}

func TestBrandPDFToolMissingAsset(t *testing.T) {
	s, _ := newTestServer(t)
	dir := t.TempDir()

	result, text := callTool(t, s, "brand_pdf", map[string]interface{}{
		"documents": writeTestPDF(t, dir, 1),
		"logo":      writeTestPNG(t, dir, "logo.png"),
	})
	if !result.IsError {
		t.Fatal("expected a tool error")
	}
	if !strings.Contains(text, "border") || !strings.Contains(text, "background") {
		t.Errorf("error does not name the missing assets: %s", text)
	}
}

func TestPreviewPDFTool(t *testing.T) {
	s, _ := newTestServer(t)
	dir := t.TempDir()
	outDir := filepath.Join(dir, "pages")

	result, text := callTool(t, s, "preview_pdf", map[string]interface{}{
		"path":      writeTestPDF(t, dir, 2),
		"outputDir": outDir,
		"inline":    true,
	})
	if result.IsError {
		t.Fatalf("tool error: %s", text)
	}
	if !strings.Contains(text, "page-002.png") {
		t.Errorf("result does not list page 2: %s", text)
	}

	images := 0
	for _, c := range result.Content {
		if c.Type == "image" && c.MIMEType == "image/png" && c.Data != "" {
			images++
		}
	}
	if images != 2 {
		t.Errorf("got %d inline images, want 2", images)
	}
}

func TestPDFInfoTool(t *testing.T) {
	s, _ := newTestServer(t)
	path := writeTestPDF(t, t.TempDir(), 2)

	_, text := callTool(t, s, "pdf_info", map[string]interface{}{"path": path, "text": true})

	var out struct {
		PageCount int                `json:"pageCount"`
		Pages     []inspect.PageSize `json:"pages"`
		Text      [][]string         `json:"text"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("decoding %q: %v", text, err)
	}
	if out.PageCount != 2 || len(out.Pages) != 2 {
		t.Fatalf("pageCount = %d, pages = %d", out.PageCount, len(out.Pages))
	}
	if len(out.Text) != 2 || len(out.Text[1]) == 0 || out.Text[1][0] != "Page 2" {
		t.Errorf("text = %v", out.Text)
	}
}

func TestOutputFilenameTool(t *testing.T) {
	s, _ := newTestServer(t)

	_, text := callTool(t, s, "output_filename", map[string]interface{}{})
	if text != "StepGuide_Branded_PDF.pdf" {
		t.Errorf("output_filename() = %q", text)
	}
}

func TestProfileResource(t *testing.T) {
	s, tb := newTestServer(t)
	tb.Profile.Cover.Subtitle = "Field Manual"

	resp := sendRequest(t, s, "resources/read", 9, map[string]interface{}{"uri": "brand://profile"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	raw, _ := json.Marshal(resp.Result)
	if !strings.Contains(string(raw), "Field Manual") {
		t.Errorf("profile resource does not reflect the active profile: %s", raw)
	}
}

func TestInfoResource(t *testing.T) {
	s, _ := newTestServer(t)
	path := writeTestPDF(t, t.TempDir(), 3)

	resp := sendRequest(t, s, "resources/read", 10, map[string]interface{}{"uri": "pdf://info?path=" + path})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	raw, _ := json.Marshal(resp.Result)
	if !strings.Contains(string(raw), `\"pageCount\": 3`) {
		t.Errorf("unexpected info: %s", raw)
	}
}

func TestInfoResourceEscapedPath(t *testing.T) {
	s, _ := newTestServer(t)
	dir := filepath.Join(t.TempDir(), "brand guides")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := writeTestPDF(t, dir, 2)

	uri := "pdf://info?path=" + url.QueryEscape(path)
	if !strings.Contains(uri, "%20") && !strings.Contains(uri, "+") {
		t.Fatalf("path was not escaped: %s", uri)
	}
	resp := sendRequest(t, s, "resources/read", 11, map[string]interface{}{"uri": uri})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	raw, _ := json.Marshal(resp.Result)
	if !strings.Contains(string(raw), `\"pageCount\": 2`) {
		t.Errorf("unexpected info: %s", raw)
	}

	resp = sendRequest(t, s, "resources/read", 12, map[string]interface{}{"uri": "pdf://info"})
	if resp.Error == nil {
		t.Error("expected error for missing path parameter")
	}
}

func TestServerMultipleRequests(t *testing.T) {
	requests := []string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":4,"method":"ping"}`,
	}

	input := strings.Join(requests, "\n") + "\n"
	var output bytes.Buffer

	tb := newToolbox(t)
	s := NewServerWithIO(strings.NewReader(input), &output, nil)
	RegisterDefaultTools(s, tb)
	RegisterDefaultResources(s, tb.Profile)

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 responses, got %d: %s", len(lines), output.String())
	}
	for i, line := range lines {
		var resp jsonrpcResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("response %d: unmarshal error: %v\nline: %s", i, err, line)
		}
		if resp.Error != nil {
			t.Errorf("response %d: unexpected error: %s", i, resp.Error.Message)
		}
	}
}

func TestServerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var output bytes.Buffer
	s := NewServerWithIO(strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &output, nil)
	if err := s.Run(ctx); err != context.Canceled {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	if output.Len() != 0 {
		t.Errorf("canceled server answered: %s", output.String())
	}
}

func TestToolAddTool(t *testing.T) {
	s := NewServerWithIO(nil, nil, nil)

	s.AddTool(Tool{
		Name:        "custom_tool",
		Description: "A custom test tool",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
		Handler: func(_ context.Context, args map[string]interface{}) (ToolResult, error) {
			return ToolResult{
				Content: []ContentBlock{{Type: "text", Text: "custom result"}},
			}, nil
		},
	})

	_, text := callTool(t, s, "custom_tool", map[string]interface{}{})
	if text != "custom result" {
		t.Fatalf("unexpected result: %s", text)
	}
}
