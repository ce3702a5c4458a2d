// Package slurm models the scheduler job properties that ride along with an
// upload job. The compute backend owns the real schema; everything here is
// passed through opaquely apart from one shape rule: the environment map must
// be present, even if empty, because a downstream process fills it in.
package slurm

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// JobProperties mirrors the scheduler's job submission parameters. Fields not
// listed here are kept verbatim in Extra and serialized back out unchanged.
type JobProperties struct {
	Environment        map[string]string `json:"environment" validate:"required"`
	MemoryPerCPU       int64             `json:"memory_per_cpu,omitempty"`
	Tasks              int32             `json:"tasks,omitempty"`
	TimeLimit          int64             `json:"time_limit,omitempty"`
	Nodes              []int32           `json:"nodes,omitempty"`
	MinimumCPUsPerNode int32             `json:"minimum_cpus_per_node,omitempty"`
	Partition          string            `json:"partition,omitempty"`
	Qos                string            `json:"qos,omitempty"`
	StandardOut        string            `json:"standard_out,omitempty"`
	StandardError      string            `json:"standard_error,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var knownKeys = map[string]bool{
	"environment": true, "memory_per_cpu": true, "tasks": true,
	"time_limit": true, "nodes": true, "minimum_cpus_per_node": true,
	"partition": true, "qos": true, "standard_out": true, "standard_error": true,
}

// Validate checks the single shape contract this system owns.
func (p *JobProperties) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.New("slurm settings: environment is required, set it to an empty map if unsure")
	}
	return nil
}

func (p *JobProperties) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	type alias JobProperties
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = JobProperties(a)
	for k, v := range raw {
		if !knownKeys[k] {
			if p.Extra == nil {
				p.Extra = map[string]json.RawMessage{}
			}
			p.Extra[k] = v
		}
	}
	return p.Validate()
}

func (p JobProperties) MarshalJSON() ([]byte, error) {
	type alias JobProperties
	base, err := json.Marshal(alias(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}
