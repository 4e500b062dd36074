package alerts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.yoptima.org/infra/go/testutils/unittest"
)

func TestRenderMessage_SubstitutesPlaceholders(t *testing.T) {
	unittest.SmallTest(t)
	tmpl := EmailTemplate{
		Message: "Budget pacing anomaly for <<ADVERTISER>> (id <<ADVERTISER_ID>>)",
	}
	got := tmpl.RenderMessage(42, "Acme Corp")
	assert.Equal(t, "Budget pacing anomaly for Acme Corp (id 42)", got)
}

func TestRenderMessage_UnknownPlaceholderLeftVerbatim(t *testing.T) {
	unittest.SmallTest(t)
	tmpl := EmailTemplate{
		Message: "<<ADVERTISER_ID>> triggered <<SOMETHING_ELSE>>",
	}
	assert.Equal(t, "42 triggered <<SOMETHING_ELSE>>", tmpl.RenderMessage(42, "Acme"))
}

func TestRenderDetails_ProducesExpectedJSON(t *testing.T) {
	unittest.SmallTest(t)
	tmpl := EmailTemplate{
		To:      "adops@yoptima.com",
		Subject: "Daily budget alert: <<ADVERTISER>>",
		Message: "unused here",
		Subtext: "Attention needed",
		Header:  "Pacing report",
		Footer:  "Automated message",
	}
	raw, err := tmpl.RenderDetails(42, "Acme Corp")
	require.NoError(t, err)

	var details EmailDetails
	require.NoError(t, json.Unmarshal([]byte(raw), &details))
	assert.Equal(t, EmailDetails{
		To:      "adops@yoptima.com",
		Subject: "Daily budget alert: Acme Corp",
		Subtext: "Attention needed",
		Header:  "Pacing report",
		Footer:  "Automated message",
	}, details)
}
