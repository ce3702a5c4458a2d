// Package schema carries the closed modality and platform catalogs used to
// validate upload job configs. The catalogs are owned by an external data
// schema project; this package only mirrors the entries and provides the
// normalized lookups the upload models need.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UnknownValueError is returned when a free-form string cannot be resolved
// against one of the closed catalogs. It is a distinct type so callers can
// tell a bad vocabulary entry apart from a generic validation failure.
type UnknownValueError struct {
	Kind  string
	Input string
}

func (e *UnknownValueError) Error() string {
	return fmt.Sprintf("Unknown %s: %s", e.Kind, e.Input)
}

// Modality is a category of raw data acquired for a subject.
type Modality struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

// Platform is the instrument or rig class under which data was acquired.
type Platform struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

var Modalities = []Modality{
	{Name: "Behavior", Abbreviation: "behavior"},
	{Name: "Behavior videos", Abbreviation: "behavior-videos"},
	{Name: "Confocal microscopy", Abbreviation: "confocal"},
	{Name: "Electromyography", Abbreviation: "EMG"},
	{Name: "Extracellular electrophysiology", Abbreviation: "ecephys"},
	{Name: "Fiber photometry", Abbreviation: "fib"},
	{Name: "Fluorescence micro-optical sectioning tomography", Abbreviation: "fMOST"},
	{Name: "Intracellular electrophysiology", Abbreviation: "icephys"},
	{Name: "Intrinsic signal imaging", Abbreviation: "ISI"},
	{Name: "Magnetic resonance imaging", Abbreviation: "MRI"},
	{Name: "Multiplexed error-robust fluorescence in situ hybridization", Abbreviation: "merfish"},
	{Name: "Planar optical physiology", Abbreviation: "pophys"},
	{Name: "Scanned line projection imaging", Abbreviation: "slap"},
	{Name: "Selective plane illumination microscopy", Abbreviation: "SPIM"},
}

var Platforms = []Platform{
	{Name: "Behavior platform", Abbreviation: "behavior"},
	{Name: "Confocal microscopy platform", Abbreviation: "confocal"},
	{Name: "Electrocorticography platform", Abbreviation: "ECoG"},
	{Name: "ExaSPIM platform", Abbreviation: "exaSPIM"},
	{Name: "Extracellular electrophysiology platform", Abbreviation: "ecephys"},
	{Name: "Frame-projected independent-fiber photometry platform", Abbreviation: "FIP"},
	{Name: "Hybridization chain reaction platform", Abbreviation: "HCR"},
	{Name: "Hyperspectral fiber photometry platform", Abbreviation: "HSFP"},
	{Name: "Intrinsic signal imaging platform", Abbreviation: "ISI"},
	{Name: "MERFISH platform", Abbreviation: "MERFISH"},
	{Name: "Magnetic resonance imaging platform", Abbreviation: "MRI"},
	{Name: "MesoSPIM platform", Abbreviation: "mesoSPIM"},
	{Name: "Motor observatory platform", Abbreviation: "motor-observatory"},
	{Name: "Multiplane optical physiology platform", Abbreviation: "multiplane-ophys"},
	{Name: "SLAP2 platform", Abbreviation: "SLAP2"},
	{Name: "Single-plane optical physiology platform", Abbreviation: "single-plane-ophys"},
	{Name: "SmartSPIM platform", Abbreviation: "SmartSPIM"},
}

var (
	modalityByKey  = map[string]Modality{}
	modalityByAbbr = map[string]Modality{}
	platformByKey  = map[string]Platform{}
	platformByAbbr = map[string]Platform{}
)

func init() {
	for _, m := range Modalities {
		modalityByKey[normalizeKey(m.Abbreviation)] = m
		modalityByAbbr[m.Abbreviation] = m
	}
	for _, p := range Platforms {
		platformByKey[normalizeKey(p.Abbreviation)] = p
		platformByAbbr[p.Abbreviation] = p
	}
}

// normalizeKey makes lookups case-insensitive and treats '-' and '_' as
// interchangeable separators.
func normalizeKey(s string) string {
	return strings.ReplaceAll(strings.ToUpper(s), "-", "_")
}

// ModalityFromString resolves a free-form modality string to its catalog
// entry. Returns an UnknownValueError when there is no match.
func ModalityFromString(s string) (Modality, error) {
	if m, ok := modalityByKey[normalizeKey(s)]; ok {
		return m, nil
	}
	return Modality{}, &UnknownValueError{Kind: "Modality", Input: s}
}

// ModalityFromAbbreviation looks up a modality by its exact canonical
// abbreviation.
func ModalityFromAbbreviation(abbr string) (Modality, bool) {
	m, ok := modalityByAbbr[abbr]
	return m, ok
}

// PlatformFromString resolves a free-form platform string to its catalog
// entry. Returns an UnknownValueError when there is no match.
func PlatformFromString(s string) (Platform, error) {
	if p, ok := platformByKey[normalizeKey(s)]; ok {
		return p, nil
	}
	return Platform{}, &UnknownValueError{Kind: "Platform", Input: s}
}

// PlatformFromAbbreviation looks up a platform by its exact canonical
// abbreviation.
func PlatformFromAbbreviation(abbr string) (Platform, bool) {
	p, ok := platformByAbbr[abbr]
	return p, ok
}

// UnmarshalJSON accepts either a bare string (resolved through the catalog)
// or a {name, abbreviation} object whose abbreviation must be known.
func (m *Modality) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		resolved, err := ModalityFromString(s)
		if err != nil {
			return err
		}
		*m = resolved
		return nil
	}
	type alias Modality
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	resolved, ok := ModalityFromAbbreviation(obj.Abbreviation)
	if !ok {
		return &UnknownValueError{Kind: "Modality", Input: obj.Abbreviation}
	}
	*m = resolved
	return nil
}

// UnmarshalJSON accepts either a bare string (resolved through the catalog)
// or a {name, abbreviation} object whose abbreviation must be known.
func (p *Platform) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		resolved, err := PlatformFromString(s)
		if err != nil {
			return err
		}
		*p = resolved
		return nil
	}
	type alias Platform
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	resolved, ok := PlatformFromAbbreviation(obj.Abbreviation)
	if !ok {
		return &UnknownValueError{Kind: "Platform", Input: obj.Abbreviation}
	}
	*p = resolved
	return nil
}
