package cmd

import (
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"perpsim/config"
	"perpsim/engine"
	"perpsim/journal"
)

// session wires the engine to the sqlite journal: state is loaded at
// startup and saved, together with any new ledger entries, after every
// mutating command or tick.
type session struct {
	cfg    *config.Config
	eng    *engine.Engine
	jrnl   *journal.SQLite
	synced int
}

func openSession(cfg *config.Config) (*session, error) {
	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return nil, err
	}

	eng := engine.New(cfg.EngineParams(), cfg.OpeningBalance())
	if err := eng.SetLeverage(cfg.Account.Leverage); err != nil {
		j.Close()
		return nil, err
	}

	restored := false
	if st, ok, err := j.LoadState(); err != nil {
		j.Close()
		return nil, err
	} else if ok {
		restored = true
		loaded, err := st.ToState()
		if err != nil {
			j.Close()
			return nil, err
		}
		if err := eng.Restore(loaded); err != nil {
			j.Close()
			return nil, err
		}
		log.WithFields(log.Fields{
			"balance":  loaded.WalletBalance,
			"leverage": loaded.Leverage,
			"position": loaded.Position.Side.String(),
		}).Info("restored persisted state")
	}

	s := &session{cfg: cfg, eng: eng, jrnl: j}
	if restored {
		// The restored-balance entry restates history the journal
		// already holds; persisting it again would double-count.
		s.synced = len(eng.LedgerEntries())
	}
	eng.SetListener(s)
	return s, nil
}

// save persists the state snapshot and any ledger entries appended
// since the last save.
func (s *session) save() {
	entries := s.eng.LedgerEntries()
	for _, e := range entries[min(s.synced, len(entries)):] {
		if err := s.jrnl.AppendLedger(journal.RecordFromEntry(e)); err != nil {
			log.Errorf("append ledger entry: %v", err)
			return
		}
	}
	s.synced = len(entries)

	if err := s.jrnl.SaveState(journal.StateRecordFrom(s.eng.State(), time.Now())); err != nil {
		log.Errorf("save state: %v", err)
	}
}

func (s *session) close() {
	s.save()
	if err := s.jrnl.Close(); err != nil {
		log.Errorf("close journal: %v", err)
	}
}

func (s *session) OnPositionClosed(reason string, qty, price decimal.Decimal) {
	log.WithFields(log.Fields{
		"reason": reason,
		"qty":    qty,
		"price":  price,
	}).Warn("position closed")
}

func (s *session) OnFunding(delta decimal.Decimal) {
	log.WithField("delta", delta).Info("funding settled")
}
