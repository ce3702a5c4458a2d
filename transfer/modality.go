package transfer

import (
	"encoding/json"
	"fmt"

	"github.com/AllenNeuralDynamics/aind-data-transfer-models/schema"
	"github.com/AllenNeuralDynamics/aind-data-transfer-models/slurm"
)

// ModalityConfig holds the per-modality settings of an upload job: where the
// raw data lives and how it should be handled. Construct through
// NewModalityConfig; a config obtained there is valid and fully defaulted.
type ModalityConfig struct {
	Modality         schema.Modality      `json:"modality"`
	Source           string               `json:"source" validate:"required"`
	CompressRawData  *bool                `json:"compress_raw_data"`
	ExtraConfigs     string               `json:"extra_configs,omitempty"`
	ExtraConfigsData map[string]any       `json:"extra_configs_dict,omitempty"`
	SlurmSettings    *slurm.JobProperties `json:"slurm_settings,omitempty"`

	// Extra carries unrecognized fields through a round trip.
	Extra map[string]json.RawMessage `json:"-"`
}

var modalityConfigKeys = map[string]bool{
	"modality": true, "source": true, "compress_raw_data": true,
	"extra_configs": true, "extra_configs_dict": true,
	"slurm_settings": true, "output_folder_name": true,
}

// OutputFolderName is the canonical folder name for this modality's data,
// always the modality's abbreviation.
func (m *ModalityConfig) OutputFolderName() string {
	return m.Modality.Abbreviation
}

// NewModalityConfig validates and normalizes a modality config. The modality
// may be given loosely (any case, '-' or '_'); the compression flag defaults
// to true for ecephys data and false otherwise.
func NewModalityConfig(cfg ModalityConfig) (*ModalityConfig, error) {
	c := cfg
	modality, err := schema.ModalityFromString(c.Modality.Abbreviation)
	if err != nil {
		return nil, err
	}
	c.Modality = modality

	if err := validate.StructExcept(&c, "SlurmSettings"); err != nil {
		return nil, fmt.Errorf("source: location of raw data is required")
	}
	if c.ExtraConfigs != "" && c.ExtraConfigsData != nil {
		return nil, fmt.Errorf("extra_configs: only extra_configs_dict or extra_configs should be set")
	}
	if c.ExtraConfigsData != nil {
		if _, err := json.Marshal(c.ExtraConfigsData); err != nil {
			return nil, fmt.Errorf("extra_configs_dict: must be json serializable: %w", err)
		}
	}
	if c.SlurmSettings != nil {
		settings := *c.SlurmSettings
		if err := settings.Validate(); err != nil {
			return nil, fmt.Errorf("slurm_settings: %w", err)
		}
		c.SlurmSettings = &settings
	}

	if c.CompressRawData == nil {
		compress := c.Modality.Abbreviation == "ecephys"
		c.CompressRawData = &compress
	} else {
		compress := *c.CompressRawData
		c.CompressRawData = &compress
	}
	return &c, nil
}

func (m *ModalityConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	type alias ModalityConfig
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	cfg := ModalityConfig(a)
	for k, v := range raw {
		if !modalityConfigKeys[k] {
			if cfg.Extra == nil {
				cfg.Extra = map[string]json.RawMessage{}
			}
			cfg.Extra[k] = v
		}
	}
	validated, err := NewModalityConfig(cfg)
	if err != nil {
		return err
	}
	// a serialized folder name must agree with the recomputed one
	if rawName, ok := raw["output_folder_name"]; ok {
		var name string
		if err := json.Unmarshal(rawName, &name); err != nil {
			return err
		}
		if name != validated.OutputFolderName() {
			return fmt.Errorf("output_folder_name %s doesn't match %s", name, validated.OutputFolderName())
		}
	}
	*m = *validated
	return nil
}

func (m ModalityConfig) MarshalJSON() ([]byte, error) {
	type alias ModalityConfig
	base, err := json.Marshal(alias(m))
	if err != nil {
		return nil, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	name, err := json.Marshal(m.OutputFolderName())
	if err != nil {
		return nil, err
	}
	merged["output_folder_name"] = name
	for k, v := range m.Extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}
