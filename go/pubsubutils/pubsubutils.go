// Package pubsubutils contains utilities for working with Cloud PubSub:
// client construction, topic/subscription bootstrapping, and a blocking
// publish helper.
package pubsubutils

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/pubsub"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"go.yoptima.org/infra/go/skerr"
	"go.yoptima.org/infra/go/sklog"
)

const (
	// batchSize is the number of outstanding messages to process per
	// goroutine on a subscription.
	batchSize = 5

	// subscriptionSuffix is appended to a topic name to build the production
	// subscription name, so every instance load-balances off the same
	// subscription.
	subscriptionSuffix = "-prod"
)

// NewClient returns a PubSub client for the given project.
func NewClient(ctx context.Context, project string, ts oauth2.TokenSource) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, project, option.WithTokenSource(ts))
	if err != nil {
		return nil, skerr.Wrapf(err, "creating PubSub client for project %s", project)
	}
	return client, nil
}

// EnsureTopic returns the named topic, creating it if it doesn't exist.
func EnsureTopic(ctx context.Context, client *pubsub.Client, name string) (*pubsub.Topic, error) {
	topic := client.Topic(name)
	ok, err := topic.Exists(ctx)
	if err != nil {
		return nil, skerr.Wrapf(err, "checking existence of topic %s", name)
	}
	if !ok {
		if topic, err = client.CreateTopic(ctx, name); err != nil {
			return nil, skerr.Wrapf(err, "creating topic %s", name)
		}
		sklog.Infof("Created topic %s", name)
	}
	return topic, nil
}

// Publish sends a message with the given attributes on the topic and blocks
// until the server acks it, returning the server-assigned message ID.
func Publish(ctx context.Context, topic *pubsub.Topic, msg string, attrs map[string]string) (string, error) {
	res := topic.Publish(ctx, &pubsub.Message{
		Data:       []byte(msg),
		Attributes: attrs,
	})
	id, err := res.Get(ctx)
	if err != nil {
		return "", skerr.Wrapf(err, "publishing to topic %s", topic.ID())
	}
	return id, nil
}

// NewSubscription returns a subscription on the given topic, creating both if
// needed. In production all instances share one subscription name so they
// round-robin messages; when local is true a per-host name is used to avoid
// stealing traffic from production.
func NewSubscription(ctx context.Context, client *pubsub.Client, topicName string, local bool) (*pubsub.Subscription, error) {
	topic, err := EnsureTopic(ctx, client, topicName)
	if err != nil {
		return nil, skerr.Wrap(err)
	}
	subName := topicName + subscriptionSuffix
	if local {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, skerr.Wrapf(err, "getting hostname")
		}
		subName = fmt.Sprintf("%s-%s", topicName, hostname)
	}
	sub := client.Subscription(subName)
	ok, err := sub.Exists(ctx)
	if err != nil {
		return nil, skerr.Wrapf(err, "checking existence of subscription %s", subName)
	}
	if !ok {
		sub, err = client.CreateSubscription(ctx, subName, pubsub.SubscriptionConfig{
			Topic: topic,
		})
		if err != nil {
			return nil, skerr.Wrapf(err, "creating subscription %s", subName)
		}
		sklog.Infof("Created subscription %s", subName)
	}
	sub.ReceiveSettings.MaxOutstandingMessages = batchSize
	sub.ReceiveSettings.NumGoroutines = 1
	return sub, nil
}
