// Package store provides implementations of alerts.Store: a BigQuery-backed
// production store and an in-memory store for tests.
package store

import (
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"go.yoptima.org/infra/go/alerts"
	"go.yoptima.org/infra/go/bq"
	"go.yoptima.org/infra/go/skerr"
)

// Schema is the fixed schema of the alert metadata table.
var Schema = bigquery.Schema{
	{Name: "alert_id", Type: bigquery.StringFieldType, Required: true},
	{Name: "alert_hash", Type: bigquery.StringFieldType, Required: true},
	{Name: "advertiser_id", Type: bigquery.IntegerFieldType, Required: true},
	{Name: "advertiser", Type: bigquery.StringFieldType},
	{Name: "alert_type", Type: bigquery.StringFieldType, Required: true},
	{Name: "affected_entity", Type: bigquery.StringFieldType},
	{Name: "entity_id", Type: bigquery.IntegerFieldType},
	{Name: "escalation_level", Type: bigquery.IntegerFieldType, Required: true},
	{Name: "generation_timestamp", Type: bigquery.TimestampFieldType, Required: true},
	{Name: "alert_status", Type: bigquery.BooleanFieldType, Required: true},
	{Name: "delivery_status", Type: bigquery.BooleanFieldType},
	{Name: "delivery_timestamp", Type: bigquery.TimestampFieldType},
	{Name: "alert_message", Type: bigquery.StringFieldType},
	{Name: "alert_data_link", Type: bigquery.StringFieldType},
	{Name: "email_details", Type: bigquery.StringFieldType},
}

// alertRow adapts an alerts.Alert to the BigQuery streaming insert API.
type alertRow struct {
	alert *alerts.Alert
}

// Save implements bigquery.ValueSaver. The generation timestamp is emitted in
// the canonical wire format; the insert ID combines alert ID and level so a
// retried insert of the same escalation is deduplicated server-side.
func (r alertRow) Save() (map[string]bigquery.Value, string, error) {
	a := r.alert
	row := map[string]bigquery.Value{
		"alert_id":             a.ID,
		"alert_hash":           a.Hash,
		"advertiser_id":        a.AdvertiserID,
		"advertiser":           a.Advertiser,
		"alert_type":           a.Type,
		"affected_entity":      a.AffectedEntity,
		"entity_id":            a.EntityID,
		"escalation_level":     a.EscalationLevel,
		"generation_timestamp": a.GenerationTimestamp.UTC().Format(alerts.TimestampFormat),
		"alert_status":         a.Active,
		"delivery_status":      a.Delivered,
		"alert_message":        a.Message,
		"alert_data_link":      a.DataLink,
		"email_details":        a.EmailDetails,
	}
	if a.DeliveredTimestamp != nil {
		row["delivery_timestamp"] = a.DeliveredTimestamp.UTC().Format(alerts.TimestampFormat)
	}
	insertID := fmt.Sprintf("%s-%d", a.ID, a.EscalationLevel)
	return row, insertID, nil
}

// fromRow converts one query result row into an Alert.
func fromRow(row bq.Row) (*alerts.Alert, error) {
	a := &alerts.Alert{}
	var err error
	if a.ID, err = stringField(row, "alert_id"); err != nil {
		return nil, skerr.Wrap(err)
	}
	if a.Hash, err = stringField(row, "alert_hash"); err != nil {
		return nil, skerr.Wrap(err)
	}
	if a.AdvertiserID, err = intField(row, "advertiser_id"); err != nil {
		return nil, skerr.Wrap(err)
	}
	a.Advertiser, _ = stringField(row, "advertiser")
	if a.Type, err = stringField(row, "alert_type"); err != nil {
		return nil, skerr.Wrap(err)
	}
	a.AffectedEntity, _ = stringField(row, "affected_entity")
	a.EntityID, _ = intField(row, "entity_id")
	level, err := intField(row, "escalation_level")
	if err != nil {
		return nil, skerr.Wrap(err)
	}
	a.EscalationLevel = int(level)
	if a.GenerationTimestamp, err = timeField(row, "generation_timestamp"); err != nil {
		return nil, skerr.Wrap(err)
	}
	if a.Active, err = boolField(row, "alert_status"); err != nil {
		return nil, skerr.Wrap(err)
	}
	a.Delivered, _ = boolField(row, "delivery_status")
	if ts, err := timeField(row, "delivery_timestamp"); err == nil {
		a.DeliveredTimestamp = &ts
	}
	a.Message, _ = stringField(row, "alert_message")
	a.DataLink, _ = stringField(row, "alert_data_link")
	a.EmailDetails, _ = stringField(row, "email_details")
	return a, nil
}

func stringField(row bq.Row, name string) (string, error) {
	v, ok := row[name]
	if !ok || v == nil {
		return "", skerr.Fmt("row has no value for %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", skerr.Fmt("field %q is %T, not a string", name, v)
	}
	return s, nil
}

func intField(row bq.Row, name string) (int64, error) {
	v, ok := row[name]
	if !ok || v == nil {
		return 0, skerr.Fmt("row has no value for %q", name)
	}
	i, ok := v.(int64)
	if !ok {
		return 0, skerr.Fmt("field %q is %T, not an int64", name, v)
	}
	return i, nil
}

func boolField(row bq.Row, name string) (bool, error) {
	v, ok := row[name]
	if !ok || v == nil {
		return false, skerr.Fmt("row has no value for %q", name)
	}
	b, ok := v.(bool)
	if !ok {
		return false, skerr.Fmt("field %q is %T, not a bool", name, v)
	}
	return b, nil
}

func timeField(row bq.Row, name string) (time.Time, error) {
	v, ok := row[name]
	if !ok || v == nil {
		return time.Time{}, skerr.Fmt("row has no value for %q", name)
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		ts, err := time.Parse(alerts.TimestampFormat, t)
		if err != nil {
			return time.Time{}, skerr.Wrapf(err, "parsing field %q", name)
		}
		return ts, nil
	default:
		return time.Time{}, skerr.Fmt("field %q is %T, not a timestamp", name, v)
	}
}
