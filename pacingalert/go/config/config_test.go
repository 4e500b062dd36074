package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.yoptima.org/infra/go/testutils/unittest"
)

const validConfig = `
project: nyo-yoptima
dataset: metadata
alert_table: alert_metadata
spends_table: deeplake.deepm.dv3_costs_spends
budget_segments_table: nyo-yoptima.metadata.insertion_order_budget_segment
io_masterlist_table: nyo-yoptima.metadata.insertion_order_masterlist
advertiser_masterlist: nyo-yoptima.metadata.advertiser_masterlist
upload_bucket: yoptima-alerts
upload_path: pacing
trigger_topic: sdf-updated
alert_topic: alert-raised
reference_timezone: Asia/Calcutta
alert_type: IO_Daily_Budget_Alert
alert_entity: Advertiser
escalation_levels:
  "1": 0
  "2": 24
  "3": 72
default_receiver: adops@yoptima.com
alert_message: "Pacing anomaly for <<ADVERTISER>> (<<ADVERTISER_ID>>)"
alert_subject: "Daily budget alert: <<ADVERTISER>>"
alert_subtext: Attention needed
alert_header: Pacing report
alert_footer: Automated message
`

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	unittest.SmallTest(t)
	c, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "nyo-yoptima", c.Project)
	assert.Equal(t, "alert_metadata", c.AlertTable)
	assert.Equal(t, map[string]float64{"1": 0, "2": 24, "3": 72}, c.EscalationLevels)
	assert.Equal(t, "Advertiser", c.AlertEntity)
	assert.Equal(t, os.TempDir(), c.DataDirectory, "data_directory defaults to the system temp dir")

	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Calcutta", loc.String())
}

func TestLoad_MissingRequiredField(t *testing.T) {
	unittest.SmallTest(t)
	_, err := Load(writeConfig(t, `
project: nyo-yoptima
dataset: metadata
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is required")
}

func TestLoad_TooFewEscalationLevels(t *testing.T) {
	unittest.SmallTest(t)
	broken := validConfig + "\n"
	c, err := Load(writeConfig(t, broken))
	require.NoError(t, err)
	c.EscalationLevels = map[string]float64{"1": 0}
	err = c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2 entries")
}

func TestLoad_BadTimezone(t *testing.T) {
	unittest.SmallTest(t)
	c, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	c.ReferenceTimezone = "Mars/Olympus_Mons"
	require.Error(t, c.Validate())
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	unittest.SmallTest(t)
	_, err := Load(writeConfig(t, validConfig+"\nsurprise_knob: 1\n"))
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	unittest.SmallTest(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
