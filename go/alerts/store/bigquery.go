package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"go.yoptima.org/infra/go/alerts"
	"go.yoptima.org/infra/go/bq"
	"go.yoptima.org/infra/go/skerr"
)

// BigQueryStore implements alerts.Store on top of a BigQuery table with the
// Schema above. The table only supports append and delete, not update; the
// Manager layers pseudo-update on top of that.
type BigQueryStore struct {
	client  *bigquery.Client
	project string
	dataset string
	table   string
}

// NewBigQueryStore returns a BigQueryStore for the given table, creating the
// table if it does not exist.
func NewBigQueryStore(ctx context.Context, client *bigquery.Client, project, dataset, table string) (*BigQueryStore, error) {
	if err := bq.EnsureTable(ctx, client, dataset, table, Schema); err != nil {
		return nil, skerr.Wrap(err)
	}
	return &BigQueryStore{
		client:  client,
		project: project,
		dataset: dataset,
		table:   table,
	}, nil
}

func (s *BigQueryStore) fqn() string {
	return fmt.Sprintf("`%s.%s.%s`", s.project, s.dataset, s.table)
}

// Get implements alerts.Store.
func (s *BigQueryStore) Get(ctx context.Context, hash string, advertiserID int64, alertType string) ([]*alerts.Alert, error) {
	query := fmt.Sprintf(`
		SELECT *
		FROM %s
		WHERE
			alert_hash = @alert_hash AND
			advertiser_id = @advertiser_id AND
			alert_type = @alert_type`, s.fqn())
	rows, err := bq.RunQuery(ctx, s.client, query, []bigquery.QueryParameter{
		{Name: "alert_hash", Value: hash},
		{Name: "advertiser_id", Value: advertiserID},
		{Name: "alert_type", Value: alertType},
	})
	if err != nil {
		return nil, skerr.Wrap(err)
	}
	rv := make([]*alerts.Alert, 0, len(rows))
	for _, row := range rows {
		a, err := fromRow(row)
		if err != nil {
			return nil, skerr.Wrap(err)
		}
		rv = append(rv, a)
	}
	return rv, nil
}

// Delete implements alerts.Store.
func (s *BigQueryStore) Delete(ctx context.Context, alertID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE alert_id = @alert_id`, s.fqn())
	_, err := bq.RunQuery(ctx, s.client, query, []bigquery.QueryParameter{
		{Name: "alert_id", Value: alertID},
	})
	return skerr.Wrap(err)
}

// Append implements alerts.Store.
func (s *BigQueryStore) Append(ctx context.Context, a *alerts.Alert) error {
	ins := s.client.Dataset(s.dataset).Table(s.table).Inserter()
	if err := ins.Put(ctx, alertRow{alert: a}); err != nil {
		return skerr.Wrapf(err, "inserting alert %s into %s", a.ID, s.fqn())
	}
	return nil
}

// Assert that BigQueryStore implements alerts.Store.
var _ alerts.Store = (*BigQueryStore)(nil)
