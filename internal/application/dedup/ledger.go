// Package dedup implements the bounded ledger of seen-message keys that
// prevents re-broadcasting an SMS across process restarts.
package dedup

import (
	"context"
	"errors"
	"log/slog"

	"github.com/otp-relay/internal/domain"
)

// DocumentStore is the whole-document persistence the ledger runs on.
type DocumentStore interface {
	Load(ctx context.Context, name string, v interface{}) error
	Save(ctx context.Context, name string, v interface{}) error
}

// Ledger records seen (phone, provider timestamp) pairs. Entries are
// append-only; only capacity eviction ever removes one.
type Ledger struct {
	docs DocumentStore
}

func NewLedger(docs DocumentStore) *Ledger {
	return &Ledger{docs: docs}
}

// CheckAndRecord returns true when the (phone, timestamp) pair was already
// recorded — the caller must skip processing. On false the key has been
// appended and the caller must process the message.
//
// A failed save is non-fatal: the key still counts as recorded for this
// process, at the accepted risk of one re-delivery after a restart.
func (l *Ledger) CheckAndRecord(ctx context.Context, phone, providerTimestamp string) bool {
	var history domain.DedupHistory
	if err := l.docs.Load(ctx, domain.TableHistory, &history); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("dedup history load failed, assuming empty", "err", err)
		}
		history = domain.DedupHistory{}
	}

	key := phone + "_" + providerTimestamp
	for _, e := range history.Entries {
		if e == key {
			return true
		}
	}

	history.Entries = append(history.Entries, key)
	if n := len(history.Entries); n > domain.DedupHistoryCap {
		history.Entries = history.Entries[n-domain.DedupHistoryCap:]
	}
	if err := l.docs.Save(ctx, domain.TableHistory, &history); err != nil {
		slog.Warn("dedup history save failed", "key", key, "err", err)
	}
	return false
}
