// Package bq contains helpers for working with BigQuery: client construction,
// running queries into generic rows, and ensuring tables exist with a given
// schema.
package bq

import (
	"context"
	"net/http"

	"cloud.google.com/go/bigquery"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"go.yoptima.org/infra/go/skerr"
	"go.yoptima.org/infra/go/sklog"
)

// Row is one result row of a query, keyed by column name.
type Row map[string]bigquery.Value

// NewClient returns a BigQuery client for the given billing project.
func NewClient(ctx context.Context, project string, ts oauth2.TokenSource) (*bigquery.Client, error) {
	client, err := bigquery.NewClient(ctx, project, option.WithTokenSource(ts))
	if err != nil {
		return nil, skerr.Wrapf(err, "creating BigQuery client for project %s", project)
	}
	return client, nil
}

// RunQuery executes the given query with the given parameters and returns all
// result rows. For DML statements the returned slice is empty.
func RunQuery(ctx context.Context, client *bigquery.Client, query string, params []bigquery.QueryParameter) ([]Row, error) {
	sklog.Debugf("Running query: %s", query)
	q := client.Query(query)
	q.Parameters = params
	it, err := q.Read(ctx)
	if err != nil {
		return nil, skerr.Wrapf(err, "running query")
	}
	rows := []Row{}
	for {
		var row Row
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, skerr.Wrapf(err, "reading query results")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// TableExists returns true if the given table exists in the dataset.
func TableExists(ctx context.Context, client *bigquery.Client, dataset, table string) (bool, error) {
	_, err := client.Dataset(dataset).Table(table).Metadata(ctx)
	if err == nil {
		return true, nil
	}
	if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == http.StatusNotFound {
		return false, nil
	}
	return false, skerr.Wrapf(err, "fetching metadata for %s.%s", dataset, table)
}

// EnsureTable creates the given table with the given schema if it does not
// already exist.
func EnsureTable(ctx context.Context, client *bigquery.Client, dataset, table string, schema bigquery.Schema) error {
	exists, err := TableExists(ctx, client, dataset, table)
	if err != nil {
		return skerr.Wrap(err)
	}
	if exists {
		return nil
	}
	if err := client.Dataset(dataset).Table(table).Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
		return skerr.Wrapf(err, "creating table %s.%s", dataset, table)
	}
	sklog.Infof("Created table %s.%s", dataset, table)
	return nil
}
