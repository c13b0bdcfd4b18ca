package chunk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrManifestInvalid is returned when a manifest fails schema validation.
var ErrManifestInvalid = errors.New("manifest does not match schema")

// manifestSchema is the JSON schema every YAML manifest must satisfy before
// it is decoded into a Request.
const manifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["total", "latency", "bandwidth", "chunks"],
  "properties": {
    "total": {"type": "integer", "minimum": 0},
    "latency": {"type": "number", "minimum": 0},
    "bandwidth": {"type": "number", "exclusiveMinimum": 0},
    "chunks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["start", "end"],
        "properties": {
          "start": {"type": "integer", "minimum": 0},
          "end": {"type": "integer", "minimum": 1}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

type manifestSpan struct {
	Start uint32 `yaml:"start"`
	End   uint32 `yaml:"end"`
}

type manifest struct {
	Total     uint32         `yaml:"total"`
	Latency   float64        `yaml:"latency"`
	Bandwidth float64        `yaml:"bandwidth"`
	Chunks    []manifestSpan `yaml:"chunks"`
}

// ParseManifest reads a YAML chunk manifest, validates it against the
// manifest schema, and produces the raw Request.
func ParseManifest(data []byte) (*Request, error) {
	var document any

	err := yaml.Unmarshal(data, &document)
	if err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	err = validateManifest(document)
	if err != nil {
		return nil, err
	}

	var parsed manifest

	err = yaml.Unmarshal(data, &parsed)
	if err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	request := &Request{
		Total:     parsed.Total,
		Latency:   parsed.Latency,
		Bandwidth: parsed.Bandwidth,
		Chunks:    make([]Chunk, 0, len(parsed.Chunks)),
	}

	for _, span := range parsed.Chunks {
		request.Chunks = append(request.Chunks, Chunk{Start: span.Start, End: span.End})
	}

	return request, nil
}

func validateManifest(document any) error {
	schemaLoader := gojsonschema.NewStringLoader(manifestSchema)
	documentLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validate manifest: %w", err)
	}

	if result.Valid() {
		return nil
	}

	reasons := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		reasons = append(reasons, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrManifestInvalid, strings.Join(reasons, "; "))
}
