package journal

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perpsim/engine"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func openTestJournal(t *testing.T) *SQLite {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "perpsim.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func rec(id string, typ string, delta float64, at time.Time) LedgerRecord {
	return LedgerRecord{
		ID:        id,
		Type:      typ,
		Delta:     d(delta),
		Reference: "test " + id,
		Time:      at,
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	j := openTestJournal(t)
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, j.AppendLedger(rec("01A", "DEPOSIT", 10_000_000, at)))
	require.NoError(t, j.AppendLedger(rec("01B", "FEE", -50.25, at.Add(time.Second))))
	require.NoError(t, j.AppendLedger(rec("01C", "REALIZED_PNL", 1000, at.Add(2*time.Second))))

	recs, err := j.ListLedger(time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "01A", recs[0].ID)
	assert.Equal(t, "FEE", recs[1].Type)
	assert.True(t, d(-50.25).Equal(recs[1].Delta), "got %s", recs[1].Delta)
	assert.Equal(t, "test 01B", recs[1].Reference)

	got, err := j.GetEntry("01C")
	require.NoError(t, err)
	assert.True(t, d(1000).Equal(got.Delta))

	bal, err := j.Balance()
	require.NoError(t, err)
	assert.True(t, d(10_000_949.75).Equal(bal), "got %s", bal)
}

func TestAppendLedgerIsIdempotentPerID(t *testing.T) {
	j := openTestJournal(t)
	at := time.Now().UTC()

	r := rec("01A", "DEPOSIT", 500, at)
	require.NoError(t, j.AppendLedger(r))
	require.NoError(t, j.AppendLedger(r))

	recs, err := j.ListLedger(time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestListLedgerTimeWindow(t *testing.T) {
	j := openTestJournal(t)
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, j.AppendLedger(rec("01A", "FEE", -1, at)))
	require.NoError(t, j.AppendLedger(rec("01B", "FEE", -2, at.Add(time.Hour))))
	require.NoError(t, j.AppendLedger(rec("01C", "FEE", -3, at.Add(2*time.Hour))))

	recs, err := j.ListLedger(at.Add(time.Hour), at.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "01B", recs[0].ID)

	recs, err = j.ListLedger(at.Add(time.Hour), time.Time{})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestStateRoundTrip(t *testing.T) {
	j := openTestJournal(t)

	_, ok, err := j.LoadState()
	require.NoError(t, err)
	assert.False(t, ok)

	saved := StateRecord{
		Balance:     d(9_876_543.21),
		Leverage:    50,
		MarginMode:  "ISOLATED",
		PosSide:     "SHORT",
		PosQty:      d(1.5),
		PosEntry:    d(101_000),
		PosLeverage: 20,
		TakeProfit:  d(95_000),
		StopLoss:    d(110_000),
		Annotations: []string{"scaling out", "watch funding"},
		SavedAt:     time.Now().UTC(),
	}
	require.NoError(t, j.SaveState(saved))

	got, ok, err := j.LoadState()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, saved.Balance.Equal(got.Balance))
	assert.Equal(t, 50, got.Leverage)
	assert.Equal(t, "ISOLATED", got.MarginMode)
	assert.Equal(t, "SHORT", got.PosSide)
	assert.True(t, saved.PosQty.Equal(got.PosQty))
	assert.True(t, saved.PosEntry.Equal(got.PosEntry))
	assert.Equal(t, 20, got.PosLeverage)
	assert.Equal(t, saved.Annotations, got.Annotations)

	// Saving again overwrites the single row.
	saved.Balance = d(1)
	saved.PosSide = "FLAT"
	saved.PosQty = decimal.Zero
	require.NoError(t, j.SaveState(saved))

	got, ok, err = j.LoadState()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, d(1).Equal(got.Balance))
	assert.Equal(t, "FLAT", got.PosSide)
}

func TestResetState(t *testing.T) {
	j := openTestJournal(t)

	require.NoError(t, j.AppendLedger(rec("01A", "DEPOSIT", 100, time.Now().UTC())))
	require.NoError(t, j.SaveState(StateRecord{
		Balance: d(100), Leverage: 20, MarginMode: "CROSS", PosSide: "FLAT",
		PosQty: decimal.Zero, PosEntry: decimal.Zero,
		TakeProfit: decimal.Zero, StopLoss: decimal.Zero,
		SavedAt: time.Now().UTC(),
	}))

	require.NoError(t, j.ResetState())

	_, ok, err := j.LoadState()
	require.NoError(t, err)
	assert.False(t, ok)

	recs, err := j.ListLedger(time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStateRecordConversions(t *testing.T) {
	st := engine.State{
		WalletBalance: d(5000),
		Leverage:      10,
		MarginMode:    engine.Isolated,
		Position: engine.Position{
			Side: engine.Long, Qty: d(2), Entry: d(100_000), Leverage: 10,
		},
		Annotations: []string{"note"},
	}
	now := time.Now().UTC()

	r := StateRecordFrom(st, now)
	assert.Equal(t, "ISOLATED", r.MarginMode)
	assert.Equal(t, "LONG", r.PosSide)
	assert.Equal(t, now, r.SavedAt)

	back, err := r.ToState()
	require.NoError(t, err)
	assert.Equal(t, engine.Isolated, back.MarginMode)
	assert.Equal(t, engine.Long, back.Position.Side)
	assert.True(t, st.Position.Qty.Equal(back.Position.Qty))
	assert.Equal(t, st.Annotations, back.Annotations)

	r.MarginMode = "bogus"
	_, err = r.ToState()
	assert.Error(t, err)
}

func TestExportCSV(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	recs := []LedgerRecord{
		rec("01A", "DEPOSIT", 100, at),
		rec("01B", "FEE", -0.5, at.Add(time.Second)),
	}

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, recs))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Equal(t, "id,type,delta,reference,time", string(lines[0]))
	assert.Contains(t, string(lines[1]), "01A,DEPOSIT,100")
	assert.Contains(t, string(lines[2]), "-0.5")
}
