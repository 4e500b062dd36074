// Package alerts implements the alert escalation engine: deduplicated,
// escalating notifications for repeated anomaly conditions.
//
// A logical alert is identified by (content hash, advertiser, alert type). Its
// first occurrence creates a record at escalation level 1; each subsequent
// qualifying occurrence advances the record to a higher level according to a
// configured policy of elapsed-hours thresholds. A deactivated record
// suppresses the alert permanently until a producer reactivates it out of
// band.
package alerts

import (
	"time"
)

const (
	// NoEscalation is the level sentinel meaning "no alert required". It is
	// also the stored level of a suppressed record.
	NoEscalation = -1

	// TimestampFormat is the canonical wire format for generation timestamps.
	TimestampFormat = "2006-01-02T15:04:05.000000Z"
)

// Alert is the persisted unit of alert state. The backing store is
// append-only, so advancing an alert replaces its physical row rather than
// updating it in place; all rows for one logical alert share the same ID.
type Alert struct {
	// ID is the opaque unique identifier of the logical alert.
	ID string

	// Hash is the content fingerprint of the triggering condition. Together
	// with AdvertiserID and Type it identifies the logical alert.
	Hash string

	// AdvertiserID identifies the advertiser the alert concerns.
	AdvertiserID int64

	// Advertiser is the advertiser's display name.
	Advertiser string

	// Type is the alert category, e.g. "IO_Daily_Budget_Alert".
	Type string

	// AffectedEntity classifies what triggered the alert, e.g. "Advertiser".
	AffectedEntity string

	// EntityID identifies the triggering entity when it is narrower than the
	// advertiser.
	EntityID int64

	// EscalationLevel is the current severity tier, >= 1, or NoEscalation for
	// a suppressed record. It never decreases for an active logical alert.
	EscalationLevel int

	// GenerationTimestamp is the instant the logical alert was first created.
	// Escalation measures elapsed time from this instant; it is never reset
	// when the alert advances.
	GenerationTimestamp time.Time

	// Active is false once the alert has been permanently suppressed.
	Active bool

	// Delivered records whether the notification transport confirmed
	// delivery, and when.
	Delivered          bool
	DeliveredTimestamp *time.Time

	// Message is the rendered human-readable alert text.
	Message string

	// DataLink is a URI pointing at the supporting evidence, e.g. a gs:// CSV.
	DataLink string

	// EmailDetails is the rendered notification payload as a JSON document.
	EmailDetails string
}

// Copy returns a deep copy of the Alert.
func (a *Alert) Copy() *Alert {
	rv := *a
	if a.DeliveredTimestamp != nil {
		ts := *a.DeliveredTimestamp
		rv.DeliveredTimestamp = &ts
	}
	return &rv
}
