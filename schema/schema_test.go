package schema

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestModalityFromString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     string
		wantErr  bool
		errorMsg string
	}{
		{name: "canonical abbreviation", input: "ecephys", want: "ecephys"},
		{name: "upper case", input: "ECEPHYS", want: "ecephys"},
		{name: "dash form", input: "behavior-videos", want: "behavior-videos"},
		{name: "underscore form", input: "BEHAVIOR_VIDEOS", want: "behavior-videos"},
		{name: "mixed case abbreviation", input: "fmost", want: "fMOST"},
		{name: "unknown", input: "abcdef", wantErr: true, errorMsg: "Unknown Modality: abcdef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ModalityFromString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ModalityFromString() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				if err.Error() != tt.errorMsg {
					t.Errorf("error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				var unknownErr *UnknownValueError
				if !errors.As(err, &unknownErr) {
					t.Errorf("error is not an UnknownValueError")
				}
				return
			}
			if got.Abbreviation != tt.want {
				t.Errorf("ModalityFromString() = %q, want %q", got.Abbreviation, tt.want)
			}
		})
	}
}

func TestPlatformFromString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "canonical abbreviation", input: "behavior", want: "behavior"},
		{name: "upper case", input: "SMARTSPIM", want: "SmartSPIM"},
		{name: "underscore form", input: "single_plane_ophys", want: "single-plane-ophys"},
		{name: "dash form", input: "multiplane-ophys", want: "multiplane-ophys"},
		{name: "unknown", input: "MISSING", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlatformFromString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("PlatformFromString() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				if err.Error() != "Unknown Platform: MISSING" {
					t.Errorf("error message = %q", err.Error())
				}
				return
			}
			if got.Abbreviation != tt.want {
				t.Errorf("PlatformFromString() = %q, want %q", got.Abbreviation, tt.want)
			}
		})
	}
}

func TestModalityUnmarshalJSON(t *testing.T) {
	var fromString Modality
	if err := json.Unmarshal([]byte(`"ecephys"`), &fromString); err != nil {
		t.Errorf("unmarshal from string: %s", err.Error())
		return
	}
	if fromString.Name != "Extracellular electrophysiology" {
		t.Errorf("unexpected name: %q", fromString.Name)
	}

	var fromObject Modality
	objJSON := `{"name": "Extracellular electrophysiology", "abbreviation": "ecephys"}`
	if err := json.Unmarshal([]byte(objJSON), &fromObject); err != nil {
		t.Errorf("unmarshal from object: %s", err.Error())
		return
	}
	if fromObject != fromString {
		t.Errorf("object form = %v, string form = %v", fromObject, fromString)
	}

	var unknown Modality
	if err := json.Unmarshal([]byte(`"abcdef"`), &unknown); err == nil {
		t.Errorf("expected error for unknown modality")
	}
}

func TestPlatformUnmarshalJSON(t *testing.T) {
	var p Platform
	if err := json.Unmarshal([]byte(`{"name": "Behavior platform", "abbreviation": "behavior"}`), &p); err != nil {
		t.Errorf("unmarshal from object: %s", err.Error())
		return
	}
	if p.Abbreviation != "behavior" {
		t.Errorf("abbreviation = %q, want behavior", p.Abbreviation)
	}

	var bad Platform
	if err := json.Unmarshal([]byte(`{"abbreviation": "nope"}`), &bad); err == nil {
		t.Errorf("expected error for unknown platform abbreviation")
	}
}
