package transfer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-test/deep"
)

func exampleJob(t *testing.T) BasicUploadJobConfig {
	t.Helper()
	config, err := NewBasicUploadJobConfig(exampleJobParams())
	if err != nil {
		t.Fatalf("NewBasicUploadJobConfig() error: %s", err.Error())
	}
	return *config
}

func TestNewSubmitJobRequestDefaults(t *testing.T) {
	req, err := NewSubmitJobRequest(SubmitJobRequest{
		UploadJobs: []BasicUploadJobConfig{exampleJob(t)},
	})
	if err != nil {
		t.Errorf("NewSubmitJobRequest() error: %s", err.Error())
		return
	}
	if req.JobType != "transform_and_upload" {
		t.Errorf("job_type = %q, want transform_and_upload", req.JobType)
	}
	if len(req.EmailNotificationTypes) != 1 || req.EmailNotificationTypes[0] != NotifyFail {
		t.Errorf("email_notification_types = %v, want [fail]", req.EmailNotificationTypes)
	}
	if len(req.UploadJobs[0].EmailNotificationTypes) != 1 || req.UploadJobs[0].EmailNotificationTypes[0] != NotifyFail {
		t.Errorf("batch notification types were not propagated: %v", req.UploadJobs[0].EmailNotificationTypes)
	}
}

func TestSubmitJobRequestEmailPropagation(t *testing.T) {
	jobWithEmail := exampleJob(t)
	jobWithEmail.UserEmail = "job_owner@example.com"
	jobWithEmail.EmailNotificationTypes = []EmailNotificationType{NotifyAll}
	jobWithout := exampleJob(t)

	req, err := NewSubmitJobRequest(SubmitJobRequest{
		UserEmail:              "batch_owner@example.com",
		EmailNotificationTypes: []EmailNotificationType{NotifyBegin, NotifyEnd},
		UploadJobs:             []BasicUploadJobConfig{jobWithEmail, jobWithout},
	})
	if err != nil {
		t.Errorf("NewSubmitJobRequest() error: %s", err.Error())
		return
	}
	if req.UploadJobs[0].UserEmail != "job_owner@example.com" {
		t.Errorf("a job's own email was overwritten: %q", req.UploadJobs[0].UserEmail)
	}
	if diff := deep.Equal(req.UploadJobs[0].EmailNotificationTypes, []EmailNotificationType{NotifyAll}); diff != nil {
		t.Errorf("a job's own notification types were overwritten: %v", diff)
	}
	if req.UploadJobs[1].UserEmail != "batch_owner@example.com" {
		t.Errorf("batch email was not propagated: %q", req.UploadJobs[1].UserEmail)
	}
	if diff := deep.Equal(req.UploadJobs[1].EmailNotificationTypes, []EmailNotificationType{NotifyBegin, NotifyEnd}); diff != nil {
		t.Errorf("batch notification types were not propagated: %v", diff)
	}
}

func TestSubmitJobRequestLimits(t *testing.T) {
	job := exampleJob(t)

	_, err := NewSubmitJobRequest(SubmitJobRequest{UploadJobs: []BasicUploadJobConfig{}})
	if err == nil || !strings.Contains(err.Error(), "upload_jobs: list should have at least 1 item(s)") {
		t.Errorf("unexpected error for an empty batch: %v", err)
	}

	jobs := make([]BasicUploadJobConfig, 1001)
	for i := range jobs {
		jobs[i] = job
	}
	_, err = NewSubmitJobRequest(SubmitJobRequest{UploadJobs: jobs})
	if err == nil || !strings.Contains(err.Error(), "upload_jobs: list should have at most 1000 item(s)") {
		t.Errorf("unexpected error for an oversized batch: %v", err)
	}

	if _, err := NewSubmitJobRequest(SubmitJobRequest{UploadJobs: jobs[:1000]}); err != nil {
		t.Errorf("a batch of 1000 jobs should be accepted: %s", err.Error())
	}
}

func TestSubmitJobRequestBadFields(t *testing.T) {
	job := exampleJob(t)

	_, err := NewSubmitJobRequest(SubmitJobRequest{
		UserEmail:  "not-an-email",
		UploadJobs: []BasicUploadJobConfig{job},
	})
	if err == nil || !strings.Contains(err.Error(), "user_email: value is not a valid email address") {
		t.Errorf("unexpected error: %v", err)
	}

	_, err = NewSubmitJobRequest(SubmitJobRequest{
		JobType:    "do_something_else",
		UploadJobs: []BasicUploadJobConfig{job},
	})
	if err == nil || !strings.Contains(err.Error(), "job_type: must be one of [transform_and_upload]") {
		t.Errorf("unexpected error: %v", err)
	}

	_, err = NewSubmitJobRequest(SubmitJobRequest{
		EmailNotificationTypes: []EmailNotificationType{"sometimes"},
		UploadJobs:             []BasicUploadJobConfig{job},
	})
	if err == nil || !strings.Contains(err.Error(), "unrecognized notification type") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseSubmitJobRequest(t *testing.T) {
	req, err := NewSubmitJobRequest(SubmitJobRequest{
		UserEmail:  "someone@example.com",
		UploadJobs: []BasicUploadJobConfig{exampleJob(t)},
	})
	if err != nil {
		t.Errorf("NewSubmitJobRequest() error: %s", err.Error())
		return
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Errorf("marshal error: %s", err.Error())
		return
	}
	parsed, err := ParseSubmitJobRequest(data)
	if err != nil {
		t.Errorf("ParseSubmitJobRequest() error: %s", err.Error())
		return
	}
	if diff := deep.Equal(*req, *parsed); diff != nil {
		t.Errorf("round trip mismatch: %v", diff)
	}

	if _, err := ParseSubmitJobRequest([]byte(`{"upload_jobs": []}`)); err == nil {
		t.Errorf("expected error for an empty batch")
	}
	if _, err := ParseSubmitJobRequest([]byte(`not json`)); err == nil {
		t.Errorf("expected error for malformed input")
	}
}
