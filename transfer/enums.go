package transfer

import (
	"fmt"
	"sort"
	"strings"
)

// BucketType is the storage destination class for uploaded data.
type BucketType string

const (
	BucketPrivate BucketType = "private"
	BucketOpen    BucketType = "open"
	BucketScratch BucketType = "scratch"
)

// MapBucket maps a free-form bucket designator onto the closed bucket set.
// Data uploaded through the service can only land in a handful of buckets, so
// anything unrecognized falls back to the private one.
//
// Note the substring rules: any designator containing "open" anywhere maps to
// the open bucket ("not_open_for_business" included), then the same for
// "scratch". Flagged for review, preserved for compatibility.
func MapBucket(bucket string) BucketType {
	if strings.Contains(bucket, string(BucketOpen)) {
		return BucketOpen
	}
	if strings.Contains(bucket, string(BucketScratch)) {
		return BucketScratch
	}
	switch BucketType(bucket) {
	case BucketPrivate, BucketOpen, BucketScratch:
		return BucketType(bucket)
	}
	return BucketPrivate
}

// EmailNotificationType is a job status a user can be notified about.
type EmailNotificationType string

const (
	NotifyBegin EmailNotificationType = "begin"
	NotifyEnd   EmailNotificationType = "end"
	NotifyFail  EmailNotificationType = "fail"
	NotifyRetry EmailNotificationType = "retry"
	NotifyAll   EmailNotificationType = "all"
)

func (e EmailNotificationType) valid() bool {
	switch e {
	case NotifyBegin, NotifyEnd, NotifyFail, NotifyRetry, NotifyAll:
		return true
	}
	return false
}

// normalizeNotificationTypes deduplicates and sorts a notification set so the
// serialized form is deterministic. A nil input stays nil (meaning unset).
func normalizeNotificationTypes(types []EmailNotificationType) ([]EmailNotificationType, error) {
	if types == nil {
		return nil, nil
	}
	seen := map[EmailNotificationType]bool{}
	out := make([]EmailNotificationType, 0, len(types))
	for _, t := range types {
		if !t.valid() {
			return nil, fmt.Errorf("email_notification_types: unrecognized notification type %q", string(t))
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
