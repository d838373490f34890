package http

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed api/webhook.yaml
var rawSpec []byte

// Schema names in api/webhook.yaml.
const (
	schemaCallEvent   = "CallEvent"
	schemaBooking     = "BookingArgs"
	schemaLeadStatus  = "LeadStatusArgs"
	schemaAvailability = "AvailabilityArgs"
)

// Spec returns the embedded OpenAPI document.
func Spec() []byte {
	return append([]byte(nil), rawSpec...)
}

type schemas struct {
	doc *openapi3.T
}

func loadSchemas(ctx context.Context) (*schemas, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load webhook schema: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid webhook schema: %w", err)
	}
	return &schemas{doc: doc}, nil
}

// validate checks a decoded JSON value against a named component schema.
// Unknown names pass.
func (s *schemas) validate(name string, value any) error {
	ref, ok := s.doc.Components.Schemas[name]
	if !ok || ref.Value == nil {
		return nil
	}
	return ref.Value.VisitJSON(value, openapi3.MultiErrors())
}

// toolSchemas maps tool names to the schema of their arguments.
var toolSchemas = map[string]string{
	ToolCheckAvailability: schemaAvailability,
	ToolCreateBooking:     schemaBooking,
	ToolUpdateLeadStatus:  schemaLeadStatus,
}
