package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// record is the decoded content of one version file.
type record struct {
	CreatedAt time.Time
	Payload   json.RawMessage
}

// Serializer reads and writes the envelope of a version file:
//
//	{"createdAt": "2024-03-01T12:00:00Z", "payload": {...}}
//
// The payload is always handed to the engine as JSON, whatever the file format.
type Serializer interface {
	Parse(data []byte) (record, error)
	Serialize(rec record) ([]byte, error)
}

// DefaultSerializers returns the serializers keyed by file extension.
// Writes always use the first entry of WriteExtension.
func DefaultSerializers() map[string]Serializer {
	return map[string]Serializer{
		".json": JSONSerializer{},
		".yaml": YAMLSerializer{},
		".yml":  YAMLSerializer{},
	}
}

// WriteExtension is the format new version files are written in.
const WriteExtension = ".json"

// extensionOrder decides which file wins when one version exists in several formats.
var extensionOrder = []string{".json", ".yaml", ".yml"}

// --- JSON Serializer ---

// JSONSerializer handles JSON version files.
type JSONSerializer struct{}

type jsonEnvelope struct {
	CreatedAt time.Time       `json:"createdAt"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (JSONSerializer) Parse(data []byte) (record, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return record{}, fmt.Errorf("invalid json: %w", err)
	}
	if env.CreatedAt.IsZero() {
		return record{}, fmt.Errorf("missing createdAt")
	}
	return record{CreatedAt: env.CreatedAt, Payload: env.Payload}, nil
}

func (JSONSerializer) Serialize(rec record) ([]byte, error) {
	env := jsonEnvelope{CreatedAt: rec.CreatedAt.UTC(), Payload: rec.Payload}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// --- YAML Serializer ---

// YAMLSerializer handles YAML version files. The payload node is converted
// to JSON on read.
type YAMLSerializer struct{}

type yamlEnvelope struct {
	CreatedAt time.Time `yaml:"createdAt"`
	Payload   any       `yaml:"payload"`
}

func (YAMLSerializer) Parse(data []byte) (record, error) {
	var env yamlEnvelope
	if err := yaml.Unmarshal(data, &env); err != nil {
		return record{}, fmt.Errorf("invalid yaml: %w", err)
	}
	if env.CreatedAt.IsZero() {
		return record{}, fmt.Errorf("missing createdAt")
	}

	rec := record{CreatedAt: env.CreatedAt}
	if env.Payload != nil {
		payload, err := json.Marshal(env.Payload)
		if err != nil {
			return record{}, fmt.Errorf("payload is not representable as json: %w", err)
		}
		rec.Payload = payload
	}
	return rec, nil
}

func (YAMLSerializer) Serialize(rec record) ([]byte, error) {
	env := yamlEnvelope{CreatedAt: rec.CreatedAt.UTC()}
	if len(rec.Payload) > 0 {
		if err := json.Unmarshal(rec.Payload, &env.Payload); err != nil {
			return nil, fmt.Errorf("invalid payload: %w", err)
		}
	}
	return yaml.Marshal(env)
}
