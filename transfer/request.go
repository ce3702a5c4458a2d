package transfer

import (
	"encoding/json"
	"fmt"
)

// SubmitJobRequestType is the constant discriminator the backend uses to
// route a batch of upload jobs.
const SubmitJobRequestType = "transform_and_upload"

// SubmitJobRequest bundles upload jobs into one request and lets a user set
// batch-level email notification defaults. Construct through
// NewSubmitJobRequest; afterwards every job carries a notification set.
type SubmitJobRequest struct {
	JobType                string                  `json:"job_type" validate:"omitempty,oneof=transform_and_upload"`
	UserEmail              string                  `json:"user_email,omitempty" validate:"omitempty,email"`
	EmailNotificationTypes []EmailNotificationType `json:"email_notification_types"`
	UploadJobs             []BasicUploadJobConfig  `json:"upload_jobs" validate:"required,min=1,max=1000"`
}

// NewSubmitJobRequest validates the batch and propagates the batch email
// settings down to jobs that lack their own. The input's job slice is copied,
// not aliased.
func NewSubmitJobRequest(req SubmitJobRequest) (*SubmitJobRequest, error) {
	r := req
	if r.JobType == "" {
		r.JobType = SubmitJobRequestType
	}
	notificationTypes, err := normalizeNotificationTypes(r.EmailNotificationTypes)
	if err != nil {
		return nil, err
	}
	if notificationTypes == nil {
		notificationTypes = []EmailNotificationType{NotifyFail}
	}
	r.EmailNotificationTypes = notificationTypes

	if err := validate.Struct(&r); err != nil {
		return nil, flattenValidationError(err)
	}

	r.UploadJobs = append([]BasicUploadJobConfig{}, req.UploadJobs...)
	for i := range r.UploadJobs {
		job := &r.UploadJobs[i]
		if job.UserEmail == "" {
			job.UserEmail = r.UserEmail
		}
		if job.EmailNotificationTypes == nil {
			job.EmailNotificationTypes = append([]EmailNotificationType{}, r.EmailNotificationTypes...)
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

// ParseSubmitJobRequest constructs a validated request from its serialized
// form. Each job is re-validated on load, including the derived-field
// self-checks.
func ParseSubmitJobRequest(data []byte) (*SubmitJobRequest, error) {
	var r SubmitJobRequest
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("invalid submit job request: %w", err)
	}
	return &r, nil
}
