package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// Replay reads `time,mid` rows from a CSV file, optionally headed.
type Replay struct {
	ticks []Tick
	next  int
}

func NewReplayFromFile(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewReplay(f)
}

func NewReplay(r io.Reader) (*Replay, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2

	var ticks []Tick
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && rec[0] == "time" {
			continue
		}

		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: time: %w", line, err)
		}
		mid, err := decimal.NewFromString(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: mid: %w", line, err)
		}
		ticks = append(ticks, Tick{Mid: mid, Time: ts})
	}
	return &Replay{ticks: ticks}, nil
}

func (r *Replay) Next() (Tick, bool) {
	if r.next >= len(r.ticks) {
		return Tick{}, false
	}
	t := r.ticks[r.next]
	r.next++
	return t, true
}

// Len is the number of ticks loaded.
func (r *Replay) Len() int { return len(r.ticks) }
