// Package config loads the pacing alert pipeline configuration from a YAML
// file. Configuration is read once at startup and treated as immutable for the
// life of the process; anything malformed fails fast here rather than
// per-invocation.
package config

import (
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"go.yoptima.org/infra/go/skerr"
)

// Config is the full pipeline configuration.
type Config struct {
	// Project is the Google Cloud project everything runs in.
	Project string `yaml:"project"`

	// Dataset and AlertTable locate the alert metadata table.
	Dataset    string `yaml:"dataset"`
	AlertTable string `yaml:"alert_table"`

	// Source tables for the pacing anomaly query.
	SpendsTable         string `yaml:"spends_table"`
	BudgetSegmentsTable string `yaml:"budget_segments_table"`
	IOMasterlistTable   string `yaml:"io_masterlist_table"`

	// AdvertiserMasterlist maps advertiser IDs to display names.
	AdvertiserMasterlist string `yaml:"advertiser_masterlist"`

	// UploadBucket and UploadPath locate the CSV evidence in Cloud Storage.
	UploadBucket string `yaml:"upload_bucket"`
	UploadPath   string `yaml:"upload_path"`

	// TriggerTopic carries the incoming events; AlertTopic carries the
	// outgoing notifications.
	TriggerTopic string `yaml:"trigger_topic"`
	AlertTopic   string `yaml:"alert_topic"`

	// DataDirectory is where CSV files are staged before upload.
	DataDirectory string `yaml:"data_directory"`

	// ReferenceTimezone fixes the timezone used for elapsed-time arithmetic.
	ReferenceTimezone string `yaml:"reference_timezone"`

	// AlertType and AlertEntity classify the alerts this pipeline raises.
	AlertType   string `yaml:"alert_type"`
	AlertEntity string `yaml:"alert_entity"`

	// EscalationLevels maps escalation level (as a decimal string) to the
	// elapsed-hours threshold at which it applies.
	EscalationLevels map[string]float64 `yaml:"escalation_levels"`

	// Notification templates. Subject and Message may contain the
	// <<ADVERTISER_ID>> and <<ADVERTISER>> placeholders.
	DefaultReceiver string `yaml:"default_receiver"`
	AlertMessage    string `yaml:"alert_message"`
	AlertSubject    string `yaml:"alert_subject"`
	AlertSubtext    string `yaml:"alert_subtext"`
	AlertHeader     string `yaml:"alert_header"`
	AlertFooter     string `yaml:"alert_footer"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, skerr.Wrapf(err, "reading config file %s", path)
	}
	var c Config
	if err := yaml.UnmarshalStrict(b, &c); err != nil {
		return nil, skerr.Wrapf(err, "parsing config file %s", path)
	}
	if err := c.Validate(); err != nil {
		return nil, skerr.Wrapf(err, "validating config file %s", path)
	}
	return &c, nil
}

// Validate returns an error for any configuration this pipeline cannot run
// with.
func (c *Config) Validate() error {
	required := map[string]string{
		"project":               c.Project,
		"dataset":               c.Dataset,
		"alert_table":           c.AlertTable,
		"spends_table":          c.SpendsTable,
		"budget_segments_table": c.BudgetSegmentsTable,
		"io_masterlist_table":   c.IOMasterlistTable,
		"advertiser_masterlist": c.AdvertiserMasterlist,
		"upload_bucket":         c.UploadBucket,
		"trigger_topic":         c.TriggerTopic,
		"alert_topic":           c.AlertTopic,
		"alert_type":            c.AlertType,
		"default_receiver":      c.DefaultReceiver,
	}
	for key, value := range required {
		if value == "" {
			return skerr.Fmt("%s is required", key)
		}
	}
	if len(c.EscalationLevels) < 2 {
		return skerr.Fmt("escalation_levels needs at least 2 entries, got %d", len(c.EscalationLevels))
	}
	if _, err := c.Location(); err != nil {
		return skerr.Wrap(err)
	}
	if c.DataDirectory == "" {
		c.DataDirectory = os.TempDir()
	}
	if c.AlertEntity == "" {
		c.AlertEntity = "Advertiser"
	}
	return nil
}

// Location returns the configured reference timezone, defaulting to the ad
// operations team's zone.
func (c *Config) Location() (*time.Location, error) {
	name := c.ReferenceTimezone
	if name == "" {
		name = "Asia/Calcutta"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, skerr.Wrapf(err, "loading reference_timezone %q", name)
	}
	return loc, nil
}
