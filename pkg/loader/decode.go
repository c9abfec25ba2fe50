package loader

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// decodeResource unmarshals a JSON or YAML FHIR document into out after
// checking its resourceType. YAML documents are round-tripped through JSON
// so both formats share the struct tags.
func decodeResource(data []byte, wantType string, out any) error {
	jsonData, err := toJSON(data)
	if err != nil {
		return err
	}

	var probe struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return fmt.Errorf("decode resource: %w", err)
	}
	if probe.ResourceType != wantType {
		return fmt.Errorf("resourceType is %q, want %q", probe.ResourceType, wantType)
	}

	if err := json.Unmarshal(jsonData, out); err != nil {
		return fmt.Errorf("decode %s: %w", wantType, err)
	}
	return nil
}

func toJSON(data []byte) ([]byte, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return data, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return json.Marshal(raw)
}
