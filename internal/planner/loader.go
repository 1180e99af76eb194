package planner

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseRequest decodes a request from YAML or JSON bytes. The result is not
// normalized; that needs the catalog's department table.
func ParseRequest(data []byte) (Request, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Request{}, fmt.Errorf("planner: request payload is empty")
	}
	var req Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("planner: decode request: %w", err)
	}
	return req, nil
}

// LoadRequestReader reads a request from r.
func LoadRequestReader(r io.Reader) (Request, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return Request{}, fmt.Errorf("planner: read request: %w", err)
	}
	return ParseRequest(content)
}

// LoadRequestFile reads a request from path.
func LoadRequestFile(path string) (Request, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Request{}, fmt.Errorf("planner: read %s: %w", path, err)
	}
	req, parseErr := ParseRequest(content)
	if parseErr != nil {
		return Request{}, fmt.Errorf("planner: %s: %w", path, parseErr)
	}
	return req, nil
}
