// Package metadatamapper models the settings object handed to the
// metadata-gathering subsystem. That subsystem owns its real schema; this
// package keeps only the fields the upload models derive or overwrite, and
// carries everything else through an open side-map so unknown settings
// survive a round trip untouched.
package metadatamapper

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/AllenNeuralDynamics/aind-data-transfer-models/schema"
)

var validate = validator.New()

// SubjectSettings configures the subject metadata fetch.
type SubjectSettings struct {
	SubjectID string `json:"subject_id" validate:"required"`
}

// ProceduresSettings configures the procedures metadata fetch.
type ProceduresSettings struct {
	SubjectID string `json:"subject_id" validate:"required"`
}

// RawDataDescriptionSettings configures the raw data description record.
type RawDataDescriptionSettings struct {
	Name        string            `json:"name" validate:"required"`
	ProjectName string            `json:"project_name" validate:"required"`
	Modality    []schema.Modality `json:"modality" validate:"required,min=1"`
}

// SessionJobSettingsNames are the session-settings variants the gatherer
// recognizes. Only the discriminator is known here; the variant schemas
// themselves live downstream.
var SessionJobSettingsNames = []string{
	"Bergamo",
	"Bruker",
	"FIP",
	"Mesoscope",
	"OpenEphys",
	"SmartSPIM",
}

func isKnownSessionVariant(name string) bool {
	for _, n := range SessionJobSettingsNames {
		if n == name {
			return true
		}
	}
	return false
}

// SessionSettings wraps the per-rig session job settings. The inner mapping
// is kept raw since its schema is variant-specific and validated downstream.
type SessionSettings struct {
	JobSettings map[string]any `json:"job_settings"`
}

// NewSessionSettings validates the parts of the session settings this system
// can check: the mapping must exist and a present job_settings_name must name
// a recognized variant.
func NewSessionSettings(jobSettings map[string]any) (*SessionSettings, error) {
	if jobSettings == nil {
		return nil, fmt.Errorf("session_settings: job_settings is required")
	}
	if name, ok := jobSettings["job_settings_name"]; ok {
		s, isStr := name.(string)
		if !isStr {
			return nil, fmt.Errorf("session_settings: job_settings_name must be a string")
		}
		if !isKnownSessionVariant(s) {
			return nil, fmt.Errorf("session_settings: unrecognized job_settings_name %q", s)
		}
	}
	return &SessionSettings{JobSettings: jobSettings}, nil
}

// RelaxedSessionSettings accepts a partially-specified session settings
// mapping without full validation, provided its job_settings holds exactly
// {user_settings_config_file, job_settings_name} with a recognized variant
// name. The real validation happens downstream in the gatherer. The second
// return value reports whether the relaxed form applied.
func RelaxedSessionSettings(raw map[string]any) (*SessionSettings, bool) {
	js, ok := raw["job_settings"].(map[string]any)
	if !ok || len(js) != 2 {
		return nil, false
	}
	file, hasFile := js["user_settings_config_file"].(string)
	name, hasName := js["job_settings_name"].(string)
	if !hasFile || !hasName || !isKnownSessionVariant(name) {
		return nil, false
	}
	return &SessionSettings{JobSettings: map[string]any{
		"user_settings_config_file": file,
		"job_settings_name":         name,
	}}, true
}

// JobSettings is the top-level settings bundle for the gather-metadata job.
// Known fields are typed; everything else rides in Extra.
type JobSettings struct {
	JobSettingsName            string                      `json:"job_settings_name,omitempty" validate:"omitempty,oneof=GatherMetadata"`
	DirectoryToWriteTo         string                      `json:"directory_to_write_to,omitempty"`
	MetadataDir                string                      `json:"metadata_dir,omitempty"`
	MetadataDirForce           bool                        `json:"metadata_dir_force,omitempty"`
	SubjectSettings            *SubjectSettings            `json:"subject_settings,omitempty"`
	ProceduresSettings         *ProceduresSettings         `json:"procedures_settings,omitempty"`
	RawDataDescriptionSettings *RawDataDescriptionSettings `json:"raw_data_description_settings,omitempty"`
	SessionSettings            *SessionSettings            `json:"session_settings,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var jobSettingsKeys = map[string]bool{
	"job_settings_name": true, "directory_to_write_to": true,
	"metadata_dir": true, "metadata_dir_force": true,
	"subject_settings": true, "procedures_settings": true,
	"raw_data_description_settings": true, "session_settings": true,
}

// FromMap validates a raw settings mapping into a JobSettings. Type
// mismatches on the known fields fail; unknown keys are preserved.
func FromMap(m map[string]any) (*JobSettings, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("metadata settings must be json serializable: %w", err)
	}
	var js JobSettings
	if err := json.Unmarshal(data, &js); err != nil {
		return nil, err
	}
	return &js, nil
}

// AsMap renders the settings as a plain mapping, known fields and Extra
// merged, suitable for the default-merge step.
func (j *JobSettings) AsMap() (map[string]any, error) {
	data, err := j.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (j *JobSettings) Validate() error {
	// the nested settings are excluded here so each failure carries its
	// own field path
	if err := validate.StructExcept(j,
		"SubjectSettings", "ProceduresSettings", "RawDataDescriptionSettings"); err != nil {
		return fmt.Errorf("job_settings_name: must be GatherMetadata when set")
	}
	if j.SubjectSettings != nil {
		if err := validate.Struct(j.SubjectSettings); err != nil {
			return fmt.Errorf("subject_settings: %w", err)
		}
	}
	if j.ProceduresSettings != nil {
		if err := validate.Struct(j.ProceduresSettings); err != nil {
			return fmt.Errorf("procedures_settings: %w", err)
		}
	}
	if j.RawDataDescriptionSettings != nil {
		if err := validate.Struct(j.RawDataDescriptionSettings); err != nil {
			return fmt.Errorf("raw_data_description_settings: %w", err)
		}
	}
	return nil
}

func (j *JobSettings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	type alias JobSettings
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*j = JobSettings(a)
	for k, v := range raw {
		if !jobSettingsKeys[k] {
			if j.Extra == nil {
				j.Extra = map[string]json.RawMessage{}
			}
			j.Extra[k] = v
		}
	}
	return nil
}

func (j JobSettings) MarshalJSON() ([]byte, error) {
	type alias JobSettings
	base, err := json.Marshal(alias(j))
	if err != nil {
		return nil, err
	}
	if len(j.Extra) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range j.Extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}
