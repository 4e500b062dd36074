// Package check runs the insertion-order daily-budget pacing check: for one
// advertiser it finds insertion orders whose configured daily budget is badly
// out of line with the spend still required to exhaust the active budget
// segment, and fingerprints the result so repeated findings deduplicate.
package check

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cloud.google.com/go/bigquery"

	"go.yoptima.org/infra/go/bq"
	"go.yoptima.org/infra/go/skerr"
)

// Row is one mis-paced insertion order.
type Row struct {
	IOID                int64
	IOName              string
	DailyBudget         string
	RequiredDailyBudget string
	Status              string
}

// csvHeader matches the column aliases of the pacing query.
var csvHeader = []string{"IO_id", "IO_Name", "Daily_IO_Budget", "Required_Daily_Budget", "Daily_Budget_Status"}

// pacingQuery flags insertion orders whose configured daily budget is more
// than double, or less than half, the spend per remaining day needed to
// exhaust the current budget segment. Table names are injected from
// configuration; the advertiser is a query parameter.
const pacingQuery = `
select
  io_masterlist.insertion_order_id as IO_id,
  io_masterlist.insertion_order as IO_Name,
  CONCAT(FORMAT("%%'d", CAST(io_masterlist.daily_max_micros / pow(10, 6) as INT64))) as Daily_IO_Budget,
  CONCAT(FORMAT("%%'d", cast((segment_spends.total_budget - segment_spends.budget_spent) / (date_diff(date(segment_spends.end_date), current_date(), DAY) + 1) as INT64))) as Required_Daily_Budget,
  case
    when io_masterlist.daily_max_micros / pow(10, 6) > 2 * (segment_spends.total_budget - segment_spends.budget_spent) / (date_diff(date(segment_spends.end_date), current_date(), DAY) + 1) then 'OverBudgeted'
    else 'UnderBudgeted'
  end as Daily_Budget_Status
from (
  select
    spends.Insertion_Order_ID,
    sum(spends.Spends) as budget_spent,
    avg(budget_segments.Total_Budget) as total_budget,
    min(budget_segments.start_date) as start_date,
    max(budget_segments.end_date) as end_date
  from ` + "`%s`" + ` as spends
  left join (
    select
      advertiser_id,
      insertion_order_id,
      start_date,
      end_date,
      budget_amount_macros / pow(10, 6) as Total_Budget
    from ` + "`%s`" + `
    where
      current_date() - 1 >= date(start_date) and
      current_date() - 1 <= date(end_date) and
      advertiser_id in (select distinct advertiser_id from ` + "`%s`" + ` where status = "ENTITY_STATUS_ACTIVE")
  ) as budget_segments
  on spends.Insertion_Order_ID = budget_segments.insertion_order_id
  where
    spends.Date >= date(budget_segments.start_date) and
    spends.Date <= date(budget_segments.end_date)
  group by spends.Insertion_Order_ID
) as segment_spends
left join ` + "`%s`" + ` as io_masterlist
on segment_spends.insertion_order_id = io_masterlist.insertion_order_id
where
  (
    io_masterlist.daily_max_micros / pow(10, 6) > 2 * (segment_spends.total_budget - segment_spends.budget_spent) / (date_diff(date(segment_spends.end_date), current_date(), DAY) + 1) or
    io_masterlist.daily_max_micros / pow(10, 6) < 0.5 * (segment_spends.total_budget - segment_spends.budget_spent) / (date_diff(date(segment_spends.end_date), current_date(), DAY) + 1)
  )
  and status = "ENTITY_STATUS_ACTIVE"
  and io_masterlist.advertiser_id = @advertiser_id
order by Daily_Budget_Status
`

// Tables names the source tables of the pacing query, each fully qualified.
type Tables struct {
	Spends         string
	BudgetSegments string
	IOMasterlist   string
	Advertisers    string
}

// Run executes the pacing check for one advertiser. An empty result means the
// advertiser is pacing correctly and no alert is needed.
func Run(ctx context.Context, client *bigquery.Client, tables Tables, advertiserID int64) ([]Row, error) {
	query := fmt.Sprintf(pacingQuery, tables.Spends, tables.BudgetSegments, tables.Advertisers, tables.IOMasterlist)
	raw, err := bq.RunQuery(ctx, client, query, []bigquery.QueryParameter{
		{Name: "advertiser_id", Value: advertiserID},
	})
	if err != nil {
		return nil, skerr.Wrapf(err, "running pacing check for advertiser %d", advertiserID)
	}
	rows := make([]Row, 0, len(raw))
	for _, r := range raw {
		row := Row{}
		if v, ok := r["IO_id"].(int64); ok {
			row.IOID = v
		}
		if v, ok := r["IO_Name"].(string); ok {
			row.IOName = v
		}
		if v, ok := r["Daily_IO_Budget"].(string); ok {
			row.DailyBudget = v
		}
		if v, ok := r["Required_Daily_Budget"].(string); ok {
			row.RequiredDailyBudget = v
		}
		if v, ok := r["Daily_Budget_Status"].(string); ok {
			row.Status = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Hash fingerprints the check result. Per-row digests are summed, so the hash
// is insensitive to row order but changes whenever any insertion order enters,
// leaves, or changes within the result.
func Hash(rows []Row) string {
	var sum uint64
	for _, r := range rows {
		d := sha256.Sum256([]byte(strings.Join(r.fields(), "\x1f")))
		sum += binary.BigEndian.Uint64(d[:8])
	}
	return strconv.FormatUint(sum, 10)
}

func (r Row) fields() []string {
	return []string{
		strconv.FormatInt(r.IOID, 10),
		r.IOName,
		r.DailyBudget,
		r.RequiredDailyBudget,
		r.Status,
	}
}

// WriteCSV renders the rows as a CSV report with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return skerr.Wrap(err)
	}
	for _, r := range rows {
		if err := cw.Write(r.fields()); err != nil {
			return skerr.Wrap(err)
		}
	}
	cw.Flush()
	return skerr.Wrap(cw.Error())
}

// FileName returns the evidence file name for one check result.
func FileName(advertiserID int64, hash string) string {
	return fmt.Sprintf("%d_%s.csv", advertiserID, hash)
}
