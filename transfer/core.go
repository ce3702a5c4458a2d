// Package transfer defines and validates the configuration tree for
// scientific-data upload jobs: per-modality settings, the per-job aggregate
// with its derived trigger and metadata configs, and the batch submit
// request. Validation runs bottom-up at construction time; an object that
// exists is guaranteed valid.
package transfer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AllenNeuralDynamics/aind-data-transfer-models/metadatamapper"
	"github.com/AllenNeuralDynamics/aind-data-transfer-models/schema"
	"github.com/AllenNeuralDynamics/aind-data-transfer-models/trigger"
)

var validate = validator.New()

// BasicUploadJobConfig is the fully-resolved configuration for one upload
// job. Construct through NewBasicUploadJobConfig; the trigger and metadata
// configs are derived during construction and never mutated afterwards.
type BasicUploadJobConfig struct {
	UserEmail              string                  `json:"user_email,omitempty" validate:"omitempty,email"`
	EmailNotificationTypes []EmailNotificationType `json:"email_notification_types,omitempty"`

	ProjectName string          `json:"project_name" validate:"required"`
	S3Bucket    BucketType      `json:"s3_bucket"`
	Platform    schema.Platform `json:"platform"`

	Modalities []ModalityConfig `json:"modalities" validate:"required,min=1"`

	SubjectID   string    `json:"subject_id" validate:"required"`
	AcqDatetime time.Time `json:"-"`

	MetadataDir      string `json:"metadata_dir,omitempty"`
	MetadataDirForce bool   `json:"metadata_dir_force,omitempty"`
	ForceCloudSync   bool   `json:"force_cloud_sync,omitempty"`

	// Deprecated job-level fields, kept for older clients; set
	// trigger_capsule_configs instead.
	InputDataMount   string `json:"input_data_mount,omitempty"`
	ProcessCapsuleID string `json:"process_capsule_id,omitempty"`

	MetadataConfigs       *metadatamapper.JobSettings `json:"metadata_configs,omitempty"`
	TriggerCapsuleConfigs *trigger.Config             `json:"trigger_capsule_configs,omitempty"`

	// Extra carries unrecognized fields through a round trip.
	Extra map[string]json.RawMessage `json:"-"`
}

var jobConfigKeys = map[string]bool{
	"user_email": true, "email_notification_types": true,
	"project_name": true, "s3_bucket": true, "platform": true,
	"modalities": true, "subject_id": true, "acq_datetime": true,
	"metadata_dir": true, "metadata_dir_force": true,
	"force_cloud_sync": true, "input_data_mount": true,
	"process_capsule_id": true, "metadata_configs": true,
	"trigger_capsule_configs": true, "s3_prefix": true,
}

// BasicUploadJobParams is the loosely-typed input a client submits for one
// job. Platform and bucket are free-form strings; the acquisition time may
// be a native timestamp (AcqTime) or one of the two accepted string forms
// (AcqDatetime).
type BasicUploadJobParams struct {
	UserEmail              string
	EmailNotificationTypes []EmailNotificationType

	ProjectName string
	S3Bucket    string
	Platform    string

	Modalities []ModalityConfig

	SubjectID   string
	AcqDatetime string
	AcqTime     time.Time

	MetadataDir      string
	MetadataDirForce bool
	ForceCloudSync   bool

	InputDataMount   string
	ProcessCapsuleID string

	MetadataConfigs       *metadatamapper.JobSettings
	TriggerCapsuleConfigs *trigger.Config

	Extra map[string]json.RawMessage
}

// S3Prefix is the canonical storage path fragment for this job, derived from
// platform, subject and acquisition time.
func (c *BasicUploadJobConfig) S3Prefix() string {
	return fmt.Sprintf("%s_%s_%s",
		c.Platform.Abbreviation, c.SubjectID,
		c.AcqDatetime.Format("2006-01-02_15-04-05"))
}

// NewBasicUploadJobConfig validates a job's own fields, then derives the
// trigger capsule configs and the gather-metadata configs. Construction is
// all or nothing: on error no object is returned.
func NewBasicUploadJobConfig(p BasicUploadJobParams) (*BasicUploadJobConfig, error) {
	cfg, err := resolveJobFields(p)
	if err != nil {
		return nil, err
	}
	cfg.deriveTriggerConfigs(p.ProcessCapsuleID)
	if err := cfg.fillMetadataConfigs(p.MetadataConfigs); err != nil {
		return nil, fmt.Errorf("metadata_configs: %w", err)
	}
	return cfg, nil
}

// resolveJobFields is phase one of construction: every field except the
// merged metadata configs is parsed, mapped and validated here.
func resolveJobFields(p BasicUploadJobParams) (*BasicUploadJobConfig, error) {
	platform, err := schema.PlatformFromString(p.Platform)
	if err != nil {
		return nil, err
	}

	acqDatetime := p.AcqTime
	if acqDatetime.IsZero() {
		if p.AcqDatetime == "" {
			return nil, fmt.Errorf("acq_datetime: datetime data was acquired is required")
		}
		acqDatetime, err = ParseAcqDatetime(p.AcqDatetime)
		if err != nil {
			return nil, fmt.Errorf("acq_datetime: %w", err)
		}
	}

	notificationTypes, err := normalizeNotificationTypes(p.EmailNotificationTypes)
	if err != nil {
		return nil, err
	}

	modalities := make([]ModalityConfig, 0, len(p.Modalities))
	for i, m := range p.Modalities {
		validated, err := NewModalityConfig(m)
		if err != nil {
			return nil, fmt.Errorf("modalities[%d]: %w", i, err)
		}
		modalities = append(modalities, *validated)
	}

	var triggerConfigs *trigger.Config
	if p.TriggerCapsuleConfigs != nil {
		triggerConfigs, err = trigger.New(*p.TriggerCapsuleConfigs)
		if err != nil {
			return nil, fmt.Errorf("trigger_capsule_configs: %w", err)
		}
	}

	cfg := &BasicUploadJobConfig{
		UserEmail:              p.UserEmail,
		EmailNotificationTypes: notificationTypes,
		ProjectName:            p.ProjectName,
		S3Bucket:               MapBucket(p.S3Bucket),
		Platform:               platform,
		Modalities:             modalities,
		SubjectID:              p.SubjectID,
		AcqDatetime:            acqDatetime,
		MetadataDir:            p.MetadataDir,
		MetadataDirForce:       p.MetadataDirForce,
		ForceCloudSync:         p.ForceCloudSync,
		InputDataMount:         p.InputDataMount,
		ProcessCapsuleID:       p.ProcessCapsuleID,
		TriggerCapsuleConfigs:  triggerConfigs,
		Extra:                  p.Extra,
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, flattenValidationError(err)
	}
	return cfg, nil
}

// inferJobType maps a platform onto the downstream job type. A legacy
// job-level process capsule id forces the generic pipeline regardless of
// platform.
func inferJobType(platform schema.Platform, processCapsuleID string) trigger.JobType {
	if processCapsuleID != "" {
		return trigger.JobTypeRunGenericPipeline
	}
	switch platform.Abbreviation {
	case "ecephys":
		return trigger.JobTypeEcephys
	case "SmartSPIM":
		return trigger.JobTypeSmartSPIM
	case "single-plane-ophys":
		return trigger.JobTypeSingleplaneOphys
	case "multiplane-ophys":
		return trigger.JobTypeMultiplaneOphys
	default:
		return trigger.JobTypeRegisterData
	}
}

// deriveTriggerConfigs runs after the job's own fields validate. The job's
// bucket, prefix and modality list are the single source of truth, so they
// overwrite whatever the user put on the nested trigger config; the user's
// object is copied, never mutated.
func (c *BasicUploadJobConfig) deriveTriggerConfigs(legacyCapsuleID string) {
	if c.TriggerCapsuleConfigs != nil && legacyCapsuleID != "" &&
		c.TriggerCapsuleConfigs.ProcessCapsuleID != legacyCapsuleID {
		slog.Warn("only one of trigger_capsule_configs or legacy process_capsule_id should be set")
	}

	var derived *trigger.Config
	if c.TriggerCapsuleConfigs == nil {
		derived = &trigger.Config{
			JobType:          inferJobType(c.Platform, legacyCapsuleID),
			ProcessCapsuleID: legacyCapsuleID,
			ResultsSuffix:    "processed",
		}
		if c.InputDataMount != "" {
			derived.InputDataMount = &trigger.StringOrList{Single: c.InputDataMount}
		}
	} else {
		derived = c.TriggerCapsuleConfigs.Copy()
	}

	derived.Bucket = string(c.S3Bucket)
	derived.Prefix = c.S3Prefix()
	derived.AssetName = c.S3Prefix()
	if derived.Mount == "" {
		derived.Mount = c.S3Prefix()
	}
	derived.Modalities = make([]schema.Modality, 0, len(c.Modalities))
	for _, m := range c.Modalities {
		derived.Modalities = append(derived.Modalities, m.Modality)
	}
	c.TriggerCapsuleConfigs = derived
}

// fillMetadataConfigs is phase two of construction: given the fully-resolved
// sibling fields, merge the user-supplied gather-metadata settings with the
// computed defaults. The defaults win for the derived fields so the metadata
// job can never drift from the upload job itself.
func (c *BasicUploadJobConfig) fillMetadataConfigs(user *metadatamapper.JobSettings) error {
	userSettings := map[string]any{}
	if user != nil {
		m, err := user.AsMap()
		if err != nil {
			return err
		}
		userSettings = m
	}
	userSessionSettings, _ := userSettings["session_settings"].(map[string]any)
	delete(userSettings, "session_settings")

	modalities := make([]schema.Modality, 0, len(c.Modalities))
	for _, m := range c.Modalities {
		modalities = append(modalities, m.Modality)
	}
	defaults := map[string]any{
		"directory_to_write_to": "stage",
		"subject_settings": &metadatamapper.SubjectSettings{
			SubjectID: c.SubjectID,
		},
		"procedures_settings": &metadatamapper.ProceduresSettings{
			SubjectID: c.SubjectID,
		},
		"raw_data_description_settings": &metadatamapper.RawDataDescriptionSettings{
			Name:        c.S3Prefix(),
			ProjectName: c.ProjectName,
			Modality:    modalities,
		},
		"metadata_dir_force": c.MetadataDirForce,
	}
	for k, v := range defaults {
		userSettings[k] = v
	}

	merged, err := metadatamapper.FromMap(userSettings)
	if err != nil {
		return err
	}
	if err := merged.Validate(); err != nil {
		return err
	}

	if userSessionSettings != nil {
		if relaxed, ok := metadatamapper.RelaxedSessionSettings(userSessionSettings); ok {
			merged.SessionSettings = relaxed
		} else {
			jobSettings, _ := userSessionSettings["job_settings"].(map[string]any)
			sessionSettings, err := metadatamapper.NewSessionSettings(jobSettings)
			if err != nil {
				return err
			}
			merged.SessionSettings = sessionSettings
		}
	}

	merged.MetadataDir = c.MetadataDir
	c.MetadataConfigs = merged
	return nil
}

// flattenValidationError rewrites a validator error bundle into the
// field-path form the rest of construction uses.
func flattenValidationError(err error) error {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		e := errs[0]
		switch e.Tag() {
		case "email":
			return fmt.Errorf("user_email: value is not a valid email address")
		case "min":
			return fmt.Errorf("%s: list should have at least %s item(s)", jsonFieldName(e.Field()), e.Param())
		case "max":
			return fmt.Errorf("%s: list should have at most %s item(s)", jsonFieldName(e.Field()), e.Param())
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", jsonFieldName(e.Field()), e.Param())
		default:
			return fmt.Errorf("%s: is required", jsonFieldName(e.Field()))
		}
	}
	return err
}

func jsonFieldName(structField string) string {
	switch structField {
	case "ProjectName":
		return "project_name"
	case "SubjectID":
		return "subject_id"
	case "Modalities":
		return "modalities"
	case "UploadJobs":
		return "upload_jobs"
	case "UserEmail":
		return "user_email"
	case "InputSource":
		return "input_source"
	case "S3Bucket":
		return "s3_bucket"
	case "JobType":
		return "job_type"
	default:
		return structField
	}
}

func (c *BasicUploadJobConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	type shadow struct {
		UserEmail              string                      `json:"user_email"`
		EmailNotificationTypes []EmailNotificationType     `json:"email_notification_types"`
		ProjectName            string                      `json:"project_name"`
		S3Bucket               string                      `json:"s3_bucket"`
		Platform               *schema.Platform            `json:"platform"`
		Modalities             []ModalityConfig            `json:"modalities"`
		SubjectID              string                      `json:"subject_id"`
		AcqDatetime            string                      `json:"acq_datetime"`
		MetadataDir            string                      `json:"metadata_dir"`
		MetadataDirForce       bool                        `json:"metadata_dir_force"`
		ForceCloudSync         bool                        `json:"force_cloud_sync"`
		InputDataMount         string                      `json:"input_data_mount"`
		ProcessCapsuleID       string                      `json:"process_capsule_id"`
		MetadataConfigs        *metadatamapper.JobSettings `json:"metadata_configs"`
		TriggerCapsuleConfigs  *trigger.Config             `json:"trigger_capsule_configs"`
		S3Prefix               string                      `json:"s3_prefix"`
	}
	var s shadow
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s.Platform == nil {
		return fmt.Errorf("platform: is required")
	}

	p := BasicUploadJobParams{
		UserEmail:              s.UserEmail,
		EmailNotificationTypes: s.EmailNotificationTypes,
		ProjectName:            s.ProjectName,
		S3Bucket:               s.S3Bucket,
		Platform:               s.Platform.Abbreviation,
		Modalities:             s.Modalities,
		SubjectID:              s.SubjectID,
		AcqDatetime:            s.AcqDatetime,
		MetadataDir:            s.MetadataDir,
		MetadataDirForce:       s.MetadataDirForce,
		ForceCloudSync:         s.ForceCloudSync,
		InputDataMount:         s.InputDataMount,
		ProcessCapsuleID:       s.ProcessCapsuleID,
		MetadataConfigs:        s.MetadataConfigs,
		TriggerCapsuleConfigs:  s.TriggerCapsuleConfigs,
	}
	for k, v := range raw {
		if !jobConfigKeys[k] {
			if p.Extra == nil {
				p.Extra = map[string]json.RawMessage{}
			}
			p.Extra[k] = v
		}
	}

	validated, err := NewBasicUploadJobConfig(p)
	if err != nil {
		return err
	}
	// a serialized prefix must agree with the recomputed one
	if s.S3Prefix != "" && s.S3Prefix != validated.S3Prefix() {
		return fmt.Errorf("s3_prefix %s doesn't match computed %s", s.S3Prefix, validated.S3Prefix())
	}
	*c = *validated
	return nil
}

func (c BasicUploadJobConfig) MarshalJSON() ([]byte, error) {
	type alias BasicUploadJobConfig
	base, err := json.Marshal(alias(c))
	if err != nil {
		return nil, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	acq, err := json.Marshal(c.AcqDatetime.Format(acqDatetimeLayout))
	if err != nil {
		return nil, err
	}
	merged["acq_datetime"] = acq
	prefix, err := json.Marshal(c.S3Prefix())
	if err != nil {
		return nil, err
	}
	merged["s3_prefix"] = prefix
	for k, v := range c.Extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}
