// Package advertisers resolves advertiser IDs against the advertiser
// masterlist table.
package advertisers

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"

	"go.yoptima.org/infra/go/bq"
	"go.yoptima.org/infra/go/skerr"
)

// ErrAdvertiserNotFound is returned when an advertiser ID has no masterlist
// entry. Callers must treat this as a hard failure; no placeholder advertiser
// is synthesized.
var ErrAdvertiserNotFound = errors.New("advertiser not found")

// Advertiser is one masterlist entry.
type Advertiser struct {
	ID     int64
	Name   string
	Status string
}

// Directory resolves advertiser IDs.
type Directory interface {
	// Lookup returns the masterlist entry for the given advertiser.
	Lookup(ctx context.Context, advertiserID int64) (Advertiser, error)

	// LookupName returns just the display name. It satisfies the alert
	// engine's directory dependency.
	LookupName(ctx context.Context, advertiserID int64) (string, error)
}

// BigQueryDirectory implements Directory against the masterlist table.
type BigQueryDirectory struct {
	client *bigquery.Client
	// table is the fully qualified masterlist table name.
	table string
}

// NewBigQueryDirectory returns a Directory reading the given fully qualified
// masterlist table, e.g. "nyo-yoptima.metadata.advertiser_masterlist".
func NewBigQueryDirectory(client *bigquery.Client, table string) *BigQueryDirectory {
	return &BigQueryDirectory{
		client: client,
		table:  table,
	}
}

// Lookup implements Directory.
func (d *BigQueryDirectory) Lookup(ctx context.Context, advertiserID int64) (Advertiser, error) {
	query := fmt.Sprintf("SELECT advertiser_id, advertiser, status FROM `%s` WHERE advertiser_id = @advertiser_id", d.table)
	rows, err := bq.RunQuery(ctx, d.client, query, []bigquery.QueryParameter{
		{Name: "advertiser_id", Value: advertiserID},
	})
	if err != nil {
		return Advertiser{}, skerr.Wrapf(err, "querying masterlist for advertiser %d", advertiserID)
	}
	if len(rows) == 0 {
		return Advertiser{}, skerr.Wrapf(ErrAdvertiserNotFound, "advertiser %d", advertiserID)
	}
	row := rows[0]
	adv := Advertiser{ID: advertiserID}
	if name, ok := row["advertiser"].(string); ok {
		adv.Name = name
	}
	if status, ok := row["status"].(string); ok {
		adv.Status = status
	}
	return adv, nil
}

// LookupName implements Directory.
func (d *BigQueryDirectory) LookupName(ctx context.Context, advertiserID int64) (string, error) {
	adv, err := d.Lookup(ctx, advertiserID)
	if err != nil {
		return "", skerr.Wrap(err)
	}
	return adv.Name, nil
}
