package check

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.yoptima.org/infra/go/testutils/unittest"
)

func testRows() []Row {
	return []Row{
		{IOID: 101, IOName: "Spring Sale", DailyBudget: "10,000", RequiredDailyBudget: "3,200", Status: "OverBudgeted"},
		{IOID: 102, IOName: "Brand Video", DailyBudget: "500", RequiredDailyBudget: "4,100", Status: "UnderBudgeted"},
	}
}

func TestHash_Deterministic(t *testing.T) {
	unittest.SmallTest(t)
	assert.Equal(t, Hash(testRows()), Hash(testRows()))
}

func TestHash_OrderIndependent(t *testing.T) {
	unittest.SmallTest(t)
	rows := testRows()
	reversed := []Row{rows[1], rows[0]}
	assert.Equal(t, Hash(rows), Hash(reversed))
}

func TestHash_SensitiveToContent(t *testing.T) {
	unittest.SmallTest(t)
	rows := testRows()
	changed := testRows()
	changed[0].Status = "UnderBudgeted"
	assert.NotEqual(t, Hash(rows), Hash(changed))

	shorter := rows[:1]
	assert.NotEqual(t, Hash(rows), Hash(shorter))
}

func TestHash_EmptyResult(t *testing.T) {
	unittest.SmallTest(t)
	assert.Equal(t, "0", Hash(nil))
}

func TestWriteCSV(t *testing.T) {
	unittest.SmallTest(t)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testRows()))
	expected := "IO_id,IO_Name,Daily_IO_Budget,Required_Daily_Budget,Daily_Budget_Status\n" +
		"101,Spring Sale,\"10,000\",\"3,200\",OverBudgeted\n" +
		"102,Brand Video,500,\"4,100\",UnderBudgeted\n"
	assert.Equal(t, expected, buf.String())
}

func TestFileName(t *testing.T) {
	unittest.SmallTest(t)
	assert.Equal(t, "42_8836411832721501291.csv", FileName(42, "8836411832721501291"))
}
