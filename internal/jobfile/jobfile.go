// Package jobfile loads submit job requests from YAML or JSON files.
package jobfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AllenNeuralDynamics/aind-data-transfer-models/transfer"
)

// Read loads and validates a submit job request from the given file. JSON
// files go to the request parser untouched. YAML files are decoded with
// their key case intact, so unrecognized extra fields survive under their
// original names, then re-encoded for the parser.
func Read(path string) (*transfer.SubmitJobRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	if filepath.Ext(path) == ".json" {
		return transfer.ParseSubmitJobRequest(data)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse job file: %w", err)
	}
	encoded, err := json.Marshal(sanitize(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to encode job file contents: %w", err)
	}
	return transfer.ParseSubmitJobRequest(encoded)
}

// sanitize rewrites values the YAML decoder eagerly typed back into the wire
// forms the request parser expects. Unquoted datetimes come out of YAML as
// time.Time, which would otherwise re-encode with a timezone suffix the
// acq_datetime contract rejects.
func sanitize(value any) any {
	switch val := value.(type) {
	case time.Time:
		return val.Format("2006-01-02T15:04:05")
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = sanitize(v)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = sanitize(v)
		}
		return out
	default:
		return value
	}
}
