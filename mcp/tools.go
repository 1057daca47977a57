package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stepguide/brandpdf"
	"github.com/stepguide/brandpdf/compose"
	"github.com/stepguide/brandpdf/inspect"
	"github.com/stepguide/brandpdf/internal/config"
	"github.com/stepguide/brandpdf/preview"
)

// Toolbox holds what the built-in tools run on.
type Toolbox struct {
	Composer *compose.Composer
	Renderer *preview.Renderer
	Profile  *config.Config
}

// RegisterDefaultTools adds all built-in tools to the server.
func RegisterDefaultTools(s *Server, tb *Toolbox) {
	s.AddTool(brandPDFTool(tb))
	s.AddTool(previewPDFTool(tb))
	s.AddTool(pdfInfoTool())
	s.AddTool(outputFilenameTool())
}

func brandPDFTool(tb *Toolbox) Tool {
	return Tool{
		Name:        "brand_pdf",
		Description: "Brand one or more PDF documents: prepend a cover page with the logo, border strip and wrapped title, and lay every page over the background image with title, copyright and page-number footers. Writes the result to disk and returns its path.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"documents": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Paths of the source PDFs, concatenated in order",
				},
				"logo":       map[string]interface{}{"type": "string", "description": "Path of the logo image"},
				"border":     map[string]interface{}{"type": "string", "description": "Path of the cover border strip image"},
				"background": map[string]interface{}{"type": "string", "description": "Path of the page background image"},
				"title":      map[string]interface{}{"type": "string", "description": "Document title; defaults to \"Branded Title\""},
				"name":       map[string]interface{}{"type": "string", "description": "Output base name used in StepGuide_<name>_<title>.pdf"},
				"outputPath": map[string]interface{}{
					"type":        "string",
					"description": "Exact output file. If omitted the file is named from name and title and written to the profile's output directory.",
				},
			},
			"required": []string{"documents", "logo", "border", "background"},
		},
		Handler: tb.handleBrandPDF,
	}
}

func (tb *Toolbox) handleBrandPDF(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	docs, err := stringsArg(args, "documents")
	if err != nil {
		return ToolResult{}, err
	}
	title := stringArg(args, "title")

	src, err := brandpdf.LoadAssets(brandpdf.AssetPaths{
		Documents:  docs,
		Logo:       stringArg(args, "logo"),
		Border:     stringArg(args, "border"),
		Background: stringArg(args, "background"),
	}, title)
	if err != nil {
		return ToolResult{}, err
	}

	res, err := tb.Composer.Compose(ctx, src)
	if err != nil {
		return ToolResult{}, err
	}

	outputPath := stringArg(args, "outputPath")
	if outputPath == "" {
		outputPath = filepath.Join(tb.Profile.Output.Dir, brandpdf.OutputFilename(stringArg(args, "name"), title))
	}
	if err := os.WriteFile(outputPath, res.Data, 0o644); err != nil { // #nosec G306 -- output documents are meant to be shared
		return ToolResult{}, fmt.Errorf("writing file: %w", err)
	}

	return jsonResult(map[string]interface{}{
		"path":       outputPath,
		"pages":      res.Pages,
		"bytes":      len(res.Data),
		"titleLines": res.TitleLines,
	})
}

func previewPDFTool(tb *Toolbox) Tool {
	return Tool{
		Name:        "preview_pdf",
		Description: "Render every page of a PDF to PNG files (page-001.png, ...) in a directory, replacing earlier renders there. Optionally returns the images inline.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path":      map[string]interface{}{"type": "string", "description": "Path to the PDF file"},
				"outputDir": map[string]interface{}{"type": "string", "description": "Directory for the page images"},
				"inline": map[string]interface{}{
					"type":        "boolean",
					"description": "Also return each page as an image content block",
				},
			},
			"required": []string{"path", "outputDir"},
		},
		Handler: tb.handlePreviewPDF,
	}
}

func (tb *Toolbox) handlePreviewPDF(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	path := stringArg(args, "path")
	if path == "" {
		return ToolResult{}, fmt.Errorf("missing 'path' argument")
	}
	dir := stringArg(args, "outputDir")
	if dir == "" {
		return ToolResult{}, fmt.Errorf("missing 'outputDir' argument")
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path chosen by the MCP client
	if err != nil {
		return ToolResult{}, fmt.Errorf("reading PDF: %w", err)
	}

	display := &preview.DirDisplay{Dir: dir}
	n, err := tb.Renderer.Render(ctx, data, display)
	if err != nil {
		return ToolResult{}, err
	}

	files := make([]string, n)
	for i := range files {
		files[i] = display.PagePath(i + 1)
	}
	result, err := jsonResult(map[string]interface{}{"pages": n, "files": files})
	if err != nil {
		return ToolResult{}, err
	}

	if inline, _ := args["inline"].(bool); inline {
		for _, f := range files {
			img, err := os.ReadFile(f) // #nosec G304 -- file written above
			if err != nil {
				return ToolResult{}, fmt.Errorf("reading page image: %w", err)
			}
			result.Content = append(result.Content, ContentBlock{
				Type:     "image",
				MIMEType: "image/png",
				Data:     base64.StdEncoding.EncodeToString(img),
			})
		}
	}
	return result, nil
}

func pdfInfoTool() Tool {
	return Tool{
		Name:        "pdf_info",
		Description: "Get information about a PDF: version, page count and page sizes in points. With text=true, also lists the strings drawn on each page.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{"type": "string", "description": "Path to the PDF file"},
				"text": map[string]interface{}{"type": "boolean", "description": "Include the strings shown on each page"},
			},
			"required": []string{"path"},
		},
		Handler: handlePDFInfo,
	}
}

func handlePDFInfo(_ context.Context, args map[string]interface{}) (ToolResult, error) {
	path := stringArg(args, "path")
	if path == "" {
		return ToolResult{}, fmt.Errorf("missing 'path' argument")
	}
	info, err := readInfo(path)
	if err != nil {
		return ToolResult{}, err
	}

	out := map[string]interface{}{
		"version":   info.Version,
		"pageCount": info.PageCount,
		"pages":     info.Pages,
	}

	if withText, _ := args["text"].(bool); withText {
		data, err := os.ReadFile(path) // #nosec G304 -- path chosen by the MCP client
		if err != nil {
			return ToolResult{}, fmt.Errorf("reading PDF: %w", err)
		}
		text := make([][]string, info.PageCount)
		for i := range text {
			if text[i], err = inspect.PageStrings(data, i+1); err != nil {
				return ToolResult{}, err
			}
		}
		out["text"] = text
	}
	return jsonResult(out)
}

func outputFilenameTool() Tool {
	return Tool{
		Name:        "output_filename",
		Description: "Compute the download file name for a branded document from an output name and title, e.g. StepGuide_My_Report_Q1_Plan.pdf.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name":  map[string]interface{}{"type": "string", "description": "Output base name"},
				"title": map[string]interface{}{"type": "string", "description": "Document title"},
			},
		},
		Handler: func(_ context.Context, args map[string]interface{}) (ToolResult, error) {
			name := brandpdf.OutputFilename(stringArg(args, "name"), stringArg(args, "title"))
			return ToolResult{Content: []ContentBlock{{Type: "text", Text: name}}}, nil
		},
	}
}

func readInfo(path string) (*inspect.Info, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path chosen by the MCP client
	if err != nil {
		return nil, fmt.Errorf("reading PDF: %w", err)
	}
	return inspect.Open(data)
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

// stringsArg accepts a JSON array of strings, or a single string.
func stringsArg(args map[string]interface{}, key string) ([]string, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, fmt.Errorf("missing '%s' argument", key)
	case string:
		return []string{v}, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("'%s' must contain only strings", key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("'%s' must be an array of strings", key)
	}
}

func jsonResult(v interface{}) (ToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ToolResult{}, fmt.Errorf("encoding result: %w", err)
	}
	return ToolResult{
		Content: []ContentBlock{{Type: "text", Text: string(jsonBytes)}},
	}, nil
}
