package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/skekre98/observers/observer"
)

// TxStatus is the state of a Transaction.
type TxStatus int

const (
	TxActive TxStatus = iota
	TxCommitted
	TxRolledBack
)

func (s TxStatus) String() string {
	switch s {
	case TxActive:
		return "active"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("TxStatus(%d)", int(s))
	}
}

type txKey struct{}

// Transaction collects notifications for transactional observers fired
// while it is active and delivers them when it completes.
type Transaction struct {
	bus *Bus

	mu         sync.Mutex
	status     TxStatus
	completing bool
	pending    []deferred
}

type deferred struct {
	om    observer.ObserverMethod[any]
	event any
	meta  observer.EventMetadata
}

// Begin starts a transaction and returns a context carrying it. Events fired
// with that context defer their transactional observers to the transaction.
func (b *Bus) Begin(ctx context.Context) (*Transaction, context.Context) {
	tx := &Transaction{bus: b}
	return tx, context.WithValue(ctx, txKey{}, tx)
}

// TransactionFrom returns the transaction carried by ctx, or nil.
func TransactionFrom(ctx context.Context) *Transaction {
	tx, _ := ctx.Value(txKey{}).(*Transaction)
	return tx
}

func (t *Transaction) Status() TxStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// enlist defers a notification. It returns false when t is nil, completing
// or completed, in which case the caller notifies immediately.
func (t *Transaction) enlist(om observer.ObserverMethod[any], event any, meta observer.EventMetadata) bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TxActive || t.completing {
		return false
	}
	t.pending = append(t.pending, deferred{om: om, event: event, meta: meta})
	return true
}

// Commit notifies before_completion observers, then completes the
// transaction. If a before_completion observer fails the transaction is
// rolled back instead and the returned error wraps ErrRolledBack and the
// observer failure. Failures of after-phase observers are returned joined
// but do not change the outcome.
func (t *Transaction) Commit() error {
	pending, err := t.take()
	if err != nil {
		return err
	}

	for _, d := range pending {
		if d.om.TransactionPhase() != observer.BeforeCompletion {
			continue
		}
		if err := t.bus.notify(d.om, d.event, d.meta); err != nil {
			afterErr := t.complete(TxRolledBack, pending)
			return errors.Join(fmt.Errorf("%w: %w", ErrRolledBack, err), afterErr)
		}
	}
	return t.complete(TxCommitted, pending)
}

// Rollback completes the transaction as failed. before_completion observers
// are not notified.
func (t *Transaction) Rollback() error {
	pending, err := t.take()
	if err != nil {
		return err
	}
	return t.complete(TxRolledBack, pending)
}

func (t *Transaction) take() ([]deferred, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TxActive || t.completing {
		return nil, ErrTxDone
	}
	t.completing = true
	pending := t.pending
	t.pending = nil
	return pending, nil
}

func (t *Transaction) complete(status TxStatus, pending []deferred) error {
	t.mu.Lock()
	t.status = status
	t.mu.Unlock()

	var errs []error
	for _, d := range pending {
		switch d.om.TransactionPhase() {
		case observer.AfterCompletion:
		case observer.AfterSuccess:
			if status != TxCommitted {
				continue
			}
		case observer.AfterFailure:
			if status != TxRolledBack {
				continue
			}
		default:
			continue
		}
		if err := t.bus.notify(d.om, d.event, d.meta); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
