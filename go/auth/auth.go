// Package auth creates OAuth 2.0 token sources for talking to Google Cloud
// APIs. Production processes run with a service account attached, so the
// Application Default Credentials flow covers both local development (via
// gcloud) and deployed instances.
package auth

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"go.yoptima.org/infra/go/skerr"
)

const (
	// OAuth scopes for the services this repo talks to.
	ScopeBigQuery = "https://www.googleapis.com/auth/bigquery"
	ScopeStorage  = "https://www.googleapis.com/auth/devstorage.read_write"
	ScopePubSub   = "https://www.googleapis.com/auth/pubsub"
	ScopeUserinfo = "https://www.googleapis.com/auth/userinfo.email"
	ScopeAllCloud = "https://www.googleapis.com/auth/cloud-platform"
)

// NewDefaultTokenSource returns a TokenSource using Application Default
// Credentials, restricted to the given scopes.
func NewDefaultTokenSource(ctx context.Context, scopes ...string) (oauth2.TokenSource, error) {
	ts, err := google.DefaultTokenSource(ctx, scopes...)
	if err != nil {
		return nil, skerr.Wrapf(err, "getting application default credentials")
	}
	return ts, nil
}
