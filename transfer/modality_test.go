package transfer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-test/deep"

	"github.com/AllenNeuralDynamics/aind-data-transfer-models/schema"
	"github.com/AllenNeuralDynamics/aind-data-transfer-models/slurm"
)

func ecephysModality(t *testing.T) schema.Modality {
	t.Helper()
	m, err := schema.ModalityFromString("ecephys")
	if err != nil {
		t.Fatalf("catalog lookup failed: %s", err.Error())
	}
	return m
}

func TestOutputFolderName(t *testing.T) {
	config, err := NewModalityConfig(ModalityConfig{
		Modality: ecephysModality(t),
		Source:   "some_dir",
	})
	if err != nil {
		t.Errorf("NewModalityConfig() error: %s", err.Error())
		return
	}
	if config.OutputFolderName() != "ecephys" {
		t.Errorf("output folder name = %q, want ecephys", config.OutputFolderName())
	}
}

func TestModalityStringResolution(t *testing.T) {
	config, err := NewModalityConfig(ModalityConfig{
		Modality: schema.Modality{Abbreviation: "ECEPHYS"},
		Source:   "some_dir",
	})
	if err != nil {
		t.Errorf("NewModalityConfig() error: %s", err.Error())
		return
	}
	if config.Modality.Name != "Extracellular electrophysiology" {
		t.Errorf("modality was not canonicalized: %+v", config.Modality)
	}

	_, err = NewModalityConfig(ModalityConfig{
		Modality: schema.Modality{Abbreviation: "abcdef"},
		Source:   "some_dir",
	})
	if err == nil || err.Error() != "Unknown Modality: abcdef" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCompressRawDataDefault(t *testing.T) {
	boolPtr := func(b bool) *bool { return &b }
	tests := []struct {
		name     string
		modality string
		explicit *bool
		want     bool
	}{
		{name: "ecephys defaults to true", modality: "ecephys", want: true},
		{name: "other modality defaults to false", modality: "fib", want: false},
		{name: "explicit value wins", modality: "fib", explicit: boolPtr(true), want: true},
		{name: "explicit false wins for ecephys", modality: "ecephys", explicit: boolPtr(false), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := NewModalityConfig(ModalityConfig{
				Modality:        schema.Modality{Abbreviation: tt.modality},
				Source:          "some_dir",
				CompressRawData: tt.explicit,
			})
			if err != nil {
				t.Errorf("NewModalityConfig() error: %s", err.Error())
				return
			}
			if config.CompressRawData == nil || *config.CompressRawData != tt.want {
				t.Errorf("compress_raw_data = %v, want %v", config.CompressRawData, tt.want)
			}
		})
	}
}

func TestModalitySlurmSettings(t *testing.T) {
	config, err := NewModalityConfig(ModalityConfig{
		Modality: ecephysModality(t),
		Source:   "some_dir",
		SlurmSettings: &slurm.JobProperties{
			// environment is required but filled by a downstream process
			Environment:        map[string]string{},
			MemoryPerCPU:       8000,
			Tasks:              1,
			TimeLimit:          720,
			Nodes:              []int32{1, 1},
			MinimumCPUsPerNode: 16,
		},
	})
	if err != nil {
		t.Errorf("NewModalityConfig() error: %s", err.Error())
		return
	}
	if config.SlurmSettings.MemoryPerCPU != 8000 || config.SlurmSettings.TimeLimit != 720 {
		t.Errorf("slurm settings not preserved: %+v", config.SlurmSettings)
	}

	_, err = NewModalityConfig(ModalityConfig{
		Modality:      ecephysModality(t),
		Source:        "some_dir",
		SlurmSettings: &slurm.JobProperties{},
	})
	if err == nil {
		t.Errorf("expected error for slurm settings without an environment map")
	}
}

func TestExtraConfigsMutualExclusion(t *testing.T) {
	_, err := NewModalityConfig(ModalityConfig{
		Modality:         ecephysModality(t),
		Source:           "some_dir",
		ExtraConfigs:     "some_dir",
		ExtraConfigsData: map[string]any{"param1": 3, "param2": "abc"},
	})
	if err == nil || !strings.Contains(err.Error(), "only extra_configs_dict or extra_configs should be set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestModalityConfigRoundTrip(t *testing.T) {
	config, err := NewModalityConfig(ModalityConfig{
		Modality: ecephysModality(t),
		Source:   "dir1",
	})
	if err != nil {
		t.Errorf("NewModalityConfig() error: %s", err.Error())
		return
	}
	data, err := json.Marshal(config)
	if err != nil {
		t.Errorf("marshal error: %s", err.Error())
		return
	}
	var decoded ModalityConfig
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Errorf("unmarshal error: %s", err.Error())
		return
	}
	if diff := deep.Equal(*config, decoded); diff != nil {
		t.Errorf("round trip mismatch: %v", diff)
	}
}

func TestModalityConfigDeserializationFails(t *testing.T) {
	corrupt := `{
		"modality": {"name": "Extracellular electrophysiology", "abbreviation": "ecephys"},
		"source": "dir1",
		"compress_raw_data": true,
		"output_folder_name": "incorrect"
	}`
	var decoded ModalityConfig
	err := json.Unmarshal([]byte(corrupt), &decoded)
	if err == nil || !strings.Contains(err.Error(), "output_folder_name incorrect doesn't match ecephys") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestModalityConfigExtraFields(t *testing.T) {
	input := `{
		"modality": "ecephys",
		"source": "some_dir",
		"extra_field_1": "an extra field"
	}`
	var config ModalityConfig
	if err := json.Unmarshal([]byte(input), &config); err != nil {
		t.Errorf("unmarshal error: %s", err.Error())
		return
	}
	if string(config.Extra["extra_field_1"]) != `"an extra field"` {
		t.Errorf("extra field not preserved: %v", config.Extra)
	}

	data, err := json.Marshal(config)
	if err != nil {
		t.Errorf("marshal error: %s", err.Error())
		return
	}
	var decoded ModalityConfig
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Errorf("unmarshal error: %s", err.Error())
		return
	}
	if diff := deep.Equal(config, decoded); diff != nil {
		t.Errorf("round trip mismatch: %v", diff)
	}
}
