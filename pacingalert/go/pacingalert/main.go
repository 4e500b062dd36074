// pacingalert watches for updated advertiser data and raises escalating
// budget-pacing alerts.
//
// Each message on the trigger topic names an advertiser whose data was
// refreshed. The pipeline runs the pacing anomaly query for that advertiser,
// uploads the offending rows as CSV evidence to Cloud Storage, asks the alert
// escalation engine whether a notification is due, and if so publishes the
// alert ID on the notification topic for the delivery service to act on.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"go.yoptima.org/infra/go/alerts"
	alertstore "go.yoptima.org/infra/go/alerts/store"
	"go.yoptima.org/infra/go/auth"
	"go.yoptima.org/infra/go/bq"
	"go.yoptima.org/infra/go/common"
	"go.yoptima.org/infra/go/gcs"
	"go.yoptima.org/infra/go/pubsubutils"
	"go.yoptima.org/infra/go/skerr"
	"go.yoptima.org/infra/go/sklog"
	"go.yoptima.org/infra/go/uniqueid"
	"go.yoptima.org/infra/go/util"
	"go.yoptima.org/infra/pacingalert/go/advertisers"
	"go.yoptima.org/infra/pacingalert/go/check"
	"go.yoptima.org/infra/pacingalert/go/config"
)

// flags
var (
	configFile = flag.String("config", "config.yaml", "Path to the pipeline configuration file.")
	local      = flag.Bool("local", false, "Running locally if true. As opposed to in production.")
	oneshot    = flag.Bool("oneshot", false, "Process a single advertiser and exit instead of subscribing to the trigger topic.")
	advertiser = flag.Int64("advertiser", 0, "Advertiser ID to process in --oneshot mode.")
)

// triggerEvent is the payload of a message on the trigger topic. TableName
// carries the advertiser ID whose data was refreshed.
type triggerEvent struct {
	TableName string `json:"table_name"`
}

// pipeline ties together the collaborators for one deployment.
type pipeline struct {
	cfg        *config.Config
	tables     check.Tables
	bqClient   *bigquery.Client
	gcsClient  gcs.GCSClient
	manager    *alerts.Manager
	alertTopic *pubsub.Topic
}

// build constructs the pipeline and its trigger subscription from the
// configuration.
func build(ctx context.Context, cfg *config.Config) (*pipeline, *pubsub.Subscription, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, skerr.Wrap(err)
	}
	policy, err := alerts.NewPolicy(cfg.EscalationLevels, loc)
	if err != nil {
		return nil, nil, skerr.Wrap(err)
	}
	template := alerts.EmailTemplate{
		To:      cfg.DefaultReceiver,
		Subject: cfg.AlertSubject,
		Message: cfg.AlertMessage,
		Subtext: cfg.AlertSubtext,
		Header:  cfg.AlertHeader,
		Footer:  cfg.AlertFooter,
	}

	ts, err := auth.NewDefaultTokenSource(ctx, auth.ScopeBigQuery, auth.ScopeStorage, auth.ScopePubSub)
	if err != nil {
		return nil, nil, skerr.Wrap(err)
	}
	bqClient, err := bq.NewClient(ctx, cfg.Project, ts)
	if err != nil {
		return nil, nil, skerr.Wrap(err)
	}
	storageClient, err := storage.NewClient(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, nil, skerr.Wrapf(err, "creating storage client")
	}
	psClient, err := pubsubutils.NewClient(ctx, cfg.Project, ts)
	if err != nil {
		return nil, nil, skerr.Wrap(err)
	}
	alertTopic, err := pubsubutils.EnsureTopic(ctx, psClient, cfg.AlertTopic)
	if err != nil {
		return nil, nil, skerr.Wrap(err)
	}
	triggerSub, err := pubsubutils.NewSubscription(ctx, psClient, cfg.TriggerTopic, *local)
	if err != nil {
		return nil, nil, skerr.Wrap(err)
	}

	store, err := alertstore.NewBigQueryStore(ctx, bqClient, cfg.Project, cfg.Dataset, cfg.AlertTable)
	if err != nil {
		return nil, nil, skerr.Wrap(err)
	}
	dir := advertisers.NewBigQueryDirectory(bqClient, cfg.AdvertiserMasterlist)
	manager := alerts.NewManager(store, policy, template, uniqueid.New(uniqueid.DefaultBits), dir, cfg.AlertType, cfg.AlertEntity)

	return &pipeline{
		cfg: cfg,
		tables: check.Tables{
			Spends:         cfg.SpendsTable,
			BudgetSegments: cfg.BudgetSegmentsTable,
			IOMasterlist:   cfg.IOMasterlistTable,
			Advertisers:    cfg.AdvertiserMasterlist,
		},
		bqClient:   bqClient,
		gcsClient:  gcs.NewGCSClient(storageClient, cfg.UploadBucket),
		manager:    manager,
		alertTopic: alertTopic,
	}, triggerSub, nil
}

// process runs the pacing check for one advertiser and raises an alert for any
// anomaly found.
func (p *pipeline) process(ctx context.Context, advertiserID int64) error {
	rows, err := check.Run(ctx, p.bqClient, p.tables, advertiserID)
	if err != nil {
		return skerr.Wrap(err)
	}
	if len(rows) == 0 {
		sklog.Infof("Advertiser %d is pacing correctly", advertiserID)
		return nil
	}
	hash := check.Hash(rows)
	sklog.Infof("Advertiser %d has %d mis-paced insertion orders, hash %s", advertiserID, len(rows), hash)

	fileName := check.FileName(advertiserID, hash)
	localPath := filepath.Join(p.cfg.DataDirectory, fileName)
	err = util.WithWriteFile(localPath, func(w io.Writer) error {
		return check.WriteCSV(w, rows)
	})
	if err != nil {
		return skerr.Wrapf(err, "writing %s", localPath)
	}
	objectPath := path.Join(p.cfg.UploadPath, fileName)
	if err := p.gcsClient.UploadFile(ctx, localPath, objectPath, gcs.FileWriteOptsCSV); err != nil {
		return skerr.Wrap(err)
	}

	alertID, err := p.manager.Raise(ctx, alerts.RaiseRequest{
		AdvertiserID: advertiserID,
		Hash:         hash,
		EntityID:     advertiserID,
		DataLink:     p.gcsClient.URL(objectPath),
	})
	if err != nil {
		return skerr.Wrap(err)
	}
	if alertID == "" {
		return nil
	}

	msgID, err := pubsubutils.Publish(ctx, p.alertTopic, fmt.Sprintf("%s raised for %d", p.cfg.AlertType, advertiserID), map[string]string{
		"alert_id":      alertID,
		"advertiser_id": strconv.FormatInt(advertiserID, 10),
	})
	if err != nil {
		return skerr.Wrapf(err, "publishing notification for alert %s", alertID)
	}
	sklog.Infof("Published notification %s for alert %s", msgID, alertID)
	return nil
}

func main() {
	common.Init("pacingalert")
	ctx := context.Background()

	cfg, err := config.Load(*configFile)
	if err != nil {
		sklog.Fatal(err)
	}
	p, triggerSub, err := build(ctx, cfg)
	if err != nil {
		sklog.Fatal(err)
	}

	if *oneshot {
		if *advertiser == 0 {
			sklog.Fatal("--oneshot requires --advertiser")
		}
		if err := p.process(ctx, *advertiser); err != nil {
			sklog.Fatal(err)
		}
		return
	}

	sklog.Infof("Listening for trigger events on %s", cfg.TriggerTopic)
	err = triggerSub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		var event triggerEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			sklog.Errorf("Dropping malformed trigger event %q: %s", string(msg.Data), err)
			msg.Ack()
			return
		}
		advertiserID, err := strconv.ParseInt(event.TableName, 10, 64)
		if err != nil {
			sklog.Errorf("Dropping trigger event with non-numeric table_name %q: %s", event.TableName, err)
			msg.Ack()
			return
		}
		if err := p.process(ctx, advertiserID); err != nil {
			// Nack so the at-least-once redelivery retries the event.
			sklog.Errorf("Failed to process advertiser %d: %s", advertiserID, err)
			msg.Nack()
			return
		}
		msg.Ack()
	})
	if err != nil {
		sklog.Fatal(err)
	}
}
