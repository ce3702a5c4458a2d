// Package trigger models the config handed to the downstream pipeline
// trigger: which job type to invoke and where the uploaded asset lives, or
// which existing data assets to attach instead.
package trigger

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AllenNeuralDynamics/aind-data-transfer-models/schema"
)

var validate = validator.New()

// JobType selects the downstream pipeline.
type JobType string

const (
	JobTypeEcephys            JobType = "ecephys"
	JobTypeEcephysOpto        JobType = "ecephys_opto"
	JobTypeSingleplaneOphys   JobType = "singleplane_ophys"
	JobTypeMultiplaneOphys    JobType = "multiplane_ophys"
	JobTypeSmartSPIM          JobType = "smartspim"
	JobTypeRunGenericPipeline JobType = "run_generic_pipeline"
	JobTypeRegisterData       JobType = "register_data"
	JobTypeTest               JobType = "test"
)

// StringOrList is a field that may arrive as a single string or an ordered
// list of strings. Normalize collapses a semicolon-delimited single string
// into the list form before any length rule is checked.
type StringOrList struct {
	Single string
	Items  []string
	IsList bool
}

func (s *StringOrList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringOrList{Single: single}
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("expected a string or a list of strings")
	}
	*s = StringOrList{Items: items, IsList: true}
	return nil
}

func (s StringOrList) MarshalJSON() ([]byte, error) {
	if s.IsList {
		return json.Marshal(s.Items)
	}
	return json.Marshal(s.Single)
}

// Normalize splits the single form on ';' into the list form. Already-list
// values are left as they were supplied.
func (s *StringOrList) Normalize() {
	if s.IsList {
		return
	}
	s.Items = strings.Split(s.Single, ";")
	s.Single = ""
	s.IsList = true
}

func (s *StringOrList) copy() *StringOrList {
	if s == nil {
		return nil
	}
	out := StringOrList{Single: s.Single, IsList: s.IsList}
	if s.Items != nil {
		out.Items = append([]string{}, s.Items...)
	}
	return &out
}

// Config describes one downstream pipeline invocation. Construct through New
// so the legacy aliases, list normalization, and cross-field rules have run;
// a Config obtained from New is valid.
type Config struct {
	JobType   JobType `json:"job_type" validate:"required,oneof=ecephys ecephys_opto singleplane_ophys multiplane_ophys smartspim run_generic_pipeline register_data test"`
	Bucket    string  `json:"bucket,omitempty"`
	Prefix    string  `json:"prefix,omitempty"`
	AssetName string  `json:"asset_name,omitempty"`
	Mount     string  `json:"mount,omitempty"`

	InputDataAssetID   *StringOrList `json:"input_data_asset_id,omitempty"`
	InputDataMount     *StringOrList `json:"input_data_mount,omitempty"`
	InputDataAssetName string        `json:"input_data_asset_name,omitempty"`

	ProcessCapsuleID string `json:"process_capsule_id,omitempty"`
	CapsuleVersion   string `json:"capsule_version,omitempty"`
	ResultsSuffix    string `json:"results_suffix,omitempty"`

	AindDataTransferVersion string `json:"aind_data_transfer_version,omitempty"`

	// Deprecated fields kept for requests produced by older clients.
	Modalities     []schema.Modality `json:"modalities,omitempty"`
	CapsuleID      string            `json:"capsule_id,omitempty"`       // use ProcessCapsuleID
	InputDataPoint string            `json:"input_data_point,omitempty"` // use InputDataMount
}

// New validates and normalizes a trigger config. The input is not mutated.
func New(cfg Config) (*Config, error) {
	c := cfg.Copy()
	if c.ResultsSuffix == "" {
		c.ResultsSuffix = "processed"
	}
	if err := validate.Struct(c); err != nil {
		return nil, fmt.Errorf("job_type: must be one of the recognized trigger job types")
	}

	// registration mode: bucket+prefix point at the uploaded data and
	// exclude attaching existing input assets
	if c.Bucket != "" && c.Prefix != "" {
		if c.InputDataAssetID != nil {
			return nil, fmt.Errorf("input_data_asset_id: should not be provided when bucket and prefix are set")
		}
		if c.AssetName == "" {
			c.AssetName = c.Prefix
		}
		if c.Mount == "" {
			c.Mount = c.Prefix
		}
	}

	// legacy aliases fill their modern counterpart only when it is unset
	if c.InputDataPoint != "" && c.InputDataMount == nil {
		c.InputDataMount = &StringOrList{Single: c.InputDataPoint}
	}
	if c.CapsuleID != "" && c.ProcessCapsuleID == "" {
		c.ProcessCapsuleID = c.CapsuleID
	}

	if c.InputDataAssetID != nil {
		if !c.InputDataAssetID.IsList {
			c.InputDataAssetID.Normalize()
		}
		if c.InputDataMount != nil && !c.InputDataMount.IsList {
			c.InputDataMount.Normalize()
		}
		if c.InputDataMount == nil {
			return nil, fmt.Errorf("input_data_mount: should be a list when input_data_asset_id is a list")
		}
		if len(c.InputDataAssetID.Items) != len(c.InputDataMount.Items) {
			return nil, fmt.Errorf("input_data_mount: input_data_asset_id and input_data_mount should have the same length when multiple input data assets are attached")
		}
		if c.InputDataAssetName == "" {
			return nil, fmt.Errorf("input_data_asset_name: required when multiple input data assets are attached")
		}
	}

	if c.JobType == JobTypeRunGenericPipeline && c.ProcessCapsuleID == "" {
		return nil, fmt.Errorf("process_capsule_id: required for job type run_generic_pipeline")
	}
	return c, nil
}

// Copy returns a deep copy, so derivation steps can overwrite fields without
// sharing state with the caller's value.
func (c *Config) Copy() *Config {
	out := *c
	out.InputDataAssetID = c.InputDataAssetID.copy()
	out.InputDataMount = c.InputDataMount.copy()
	if c.Modalities != nil {
		out.Modalities = append([]schema.Modality{}, c.Modalities...)
	}
	return &out
}

func (c *Config) UnmarshalJSON(data []byte) error {
	type alias Config
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	validated, err := New(Config(a))
	if err != nil {
		return err
	}
	*c = *validated
	return nil
}
