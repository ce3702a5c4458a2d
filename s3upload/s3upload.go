// Package s3upload defines the configs for syncing a plain local directory to
// the scratch or archive buckets. Unlike the full upload pipeline these jobs
// carry no platform or modality taxonomy; data lands under a prefix derived
// from the user's email name.
package s3upload

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AllenNeuralDynamics/aind-data-transfer-models/transfer"
)

var validate = validator.New()

// BucketType is the subset of storage destinations a directory upload may
// target, plus the archive bucket which only this flavor of job can reach.
type BucketType string

const (
	BucketScratch BucketType = "scratch"
	BucketArchive BucketType = "archive"
)

// JobConfig describes one directory-to-bucket sync job.
type JobConfig struct {
	UserEmail              string                           `json:"user_email" validate:"required,email"`
	EmailNotificationTypes []transfer.EmailNotificationType `json:"email_notification_types,omitempty"`
	S3Bucket               BucketType                       `json:"s3_bucket" validate:"required,oneof=scratch archive"`
	InputSource            string                           `json:"input_source" validate:"required"`
	ForceCloudSync         bool                             `json:"force_cloud_sync,omitempty"`
}

// S3Prefix is the storage path fragment for this job: the user's email name
// followed by the base name of the source directory.
func (c *JobConfig) S3Prefix() string {
	userName, _, _ := strings.Cut(c.UserEmail, "@")
	return strings.Trim(userName+"/"+path.Base(c.InputSource), "/")
}

// NewJobConfig validates a directory upload job.
func NewJobConfig(cfg JobConfig) (*JobConfig, error) {
	c := cfg
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid s3 upload job: %w", err)
	}
	return &c, nil
}

func (c *JobConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	type alias JobConfig
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	validated, err := NewJobConfig(JobConfig(a))
	if err != nil {
		return err
	}
	if rawPrefix, ok := raw["s3_prefix"]; ok {
		var prefix string
		if err := json.Unmarshal(rawPrefix, &prefix); err != nil {
			return err
		}
		if prefix != validated.S3Prefix() {
			return fmt.Errorf("s3_prefix %s doesn't match computed %s", prefix, validated.S3Prefix())
		}
	}
	*c = *validated
	return nil
}

func (c JobConfig) MarshalJSON() ([]byte, error) {
	type alias JobConfig
	base, err := json.Marshal(alias(c))
	if err != nil {
		return nil, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	prefix, err := json.Marshal(c.S3Prefix())
	if err != nil {
		return nil, err
	}
	merged["s3_prefix"] = prefix
	return json.Marshal(merged)
}

// SubmitJobRequest bundles directory upload jobs, max 100 at a time, with the
// same batch-to-job email propagation the main request uses.
type SubmitJobRequest struct {
	UserEmail              string                           `json:"user_email,omitempty" validate:"omitempty,email"`
	EmailNotificationTypes []transfer.EmailNotificationType `json:"email_notification_types"`
	UploadJobs             []JobConfig                      `json:"upload_jobs" validate:"required,min=1,max=100"`
}

// NewSubmitJobRequest validates the batch and propagates email settings down
// to jobs without their own.
func NewSubmitJobRequest(req SubmitJobRequest) (*SubmitJobRequest, error) {
	r := req
	if r.EmailNotificationTypes == nil {
		r.EmailNotificationTypes = []transfer.EmailNotificationType{transfer.NotifyFail}
	}
	if err := validate.Struct(&r); err != nil {
		return nil, fmt.Errorf("invalid s3 upload request: %w", err)
	}
	r.UploadJobs = append([]JobConfig{}, req.UploadJobs...)
	for i := range r.UploadJobs {
		job := &r.UploadJobs[i]
		if job.EmailNotificationTypes == nil {
			job.EmailNotificationTypes = append([]transfer.EmailNotificationType{}, r.EmailNotificationTypes...)
		}
	}
	return &r, nil
}

func (r *SubmitJobRequest) UnmarshalJSON(data []byte) error {
	type alias SubmitJobRequest
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	validated, err := NewSubmitJobRequest(SubmitJobRequest(a))
	if err != nil {
		return err
	}
	*r = *validated
	return nil
}
