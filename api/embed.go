// Package api holds the OpenAPI document of the service.
package api

import (
	"context"
	_ "embed"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPISpec is the OpenAPI document served at /api/openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPISpec []byte

// Operation is a documented operation, in the terms the docs page uses to
// deep link to it.
type Operation struct {
	Method      string
	Path        string
	Tag         string
	OperationID string
	Summary     string
}

// Document is the parsed OpenAPI document.
type Document struct {
	doc *openapi3.T
}

// Load parses and validates the embedded document.
func Load(ctx context.Context) (*Document, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	doc, err := loader.LoadFromData(OpenAPISpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return &Document{doc: doc}, nil
}

// Title is the API title.
func (d *Document) Title() string {
	if d.doc.Info == nil {
		return ""
	}
	return d.doc.Info.Title
}

// Version is the API version.
func (d *Document) Version() string {
	if d.doc.Info == nil {
		return ""
	}
	return d.doc.Info.Version
}

// JSON renders the document as JSON.
func (d *Document) JSON() ([]byte, error) {
	return d.doc.MarshalJSON()
}

// Operations lists the documented operations sorted by path and method.
func (d *Document) Operations() []Operation {
	var ops []Operation
	for path, item := range d.doc.Paths.Map() {
		for method, op := range item.Operations() {
			o := Operation{
				Method:      method,
				Path:        path,
				OperationID: op.OperationID,
				Summary:     op.Summary,
			}
			if len(op.Tags) > 0 {
				o.Tag = op.Tags[0]
			}
			ops = append(ops, o)
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Path != ops[j].Path {
			return ops[i].Path < ops[j].Path
		}
		return ops[i].Method < ops[j].Method
	})
	return ops
}
