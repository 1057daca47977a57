package mcp

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/stepguide/brandpdf/internal/config"
)

// RegisterDefaultResources adds the built-in resources to the server.
func RegisterDefaultResources(s *Server, profile *config.Config) {
	s.AddResource(Resource{
		URI:         "brand://profile",
		Name:        "Brand Profile",
		Description: "The active brand profile (cover size, subtitle, copyright, background opacity, preview and server settings) as YAML.",
		MIMEType:    "application/yaml",
		Handler: func(uri string) ([]ResourceContent, error) {
			data, err := profile.Marshal()
			if err != nil {
				return nil, err
			}
			return []ResourceContent{{URI: uri, MIMEType: "application/yaml", Text: string(data)}}, nil
		},
	})

	s.AddResource(Resource{
		URI:         "pdf://info",
		Name:        "PDF Page Info",
		Description: "Get version, page count and page sizes of a PDF. Pass the file path as a query parameter: pdf://info?path=/path/to/file.pdf",
		MIMEType:    "application/json",
		Handler:     handleInfoResource,
	})
}

// queryPath returns the decoded path query parameter of uri.
func queryPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parsing resource URI: %w", err)
	}
	path := u.Query().Get("path")
	if path == "" {
		return "", fmt.Errorf("missing 'path' parameter in URI")
	}
	return path, nil
}

func handleInfoResource(uri string) ([]ResourceContent, error) {
	path, err := queryPath(uri)
	if err != nil {
		return nil, err
	}

	info, err := readInfo(path)
	if err != nil {
		return nil, err
	}

	jsonBytes, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding info: %w", err)
	}
	return []ResourceContent{{
		URI:      uri,
		MIMEType: "application/json",
		Text:     string(jsonBytes),
	}}, nil
}
