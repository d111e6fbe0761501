package service

import (
	"github.com/ZebulonRouseFrantzich/pharm/internal/transaction"
)

// journal wraps a transaction.Journal bound to its directory. A journal
// without a directory records nothing on disk.
type journal struct {
	txn    *transaction.Journal
	dir    string
	logger Logger
}

func newJournal(dir string, clock Clock, logger Logger, op transaction.Operation, name, dest string, steps ...transaction.Step) *journal {
	txn := transaction.New(op, name, dest, steps...)
	txn.Timestamp = clock.Now().UTC()
	return &journal{txn: txn, dir: dir, logger: logger}
}

// begin persists the journal before the first mutation.
func (j *journal) begin() error {
	if j.dir == "" {
		return nil
	}
	return j.txn.Save(j.dir)
}

func (j *journal) complete(step transaction.Step) {
	j.txn.UpdateStep(step, transaction.StateCompleted, nil)
	j.save()
}

// fail records err against step and keeps the journal on disk.
func (j *journal) fail(step transaction.Step, err error) {
	j.txn.UpdateStep(step, transaction.StateFailed, err)
	j.save()
}

// discard removes the journal once the state is consistent again.
func (j *journal) discard() {
	if j.dir == "" {
		return
	}
	if err := j.txn.Discard(j.dir); err != nil {
		j.logger.Warn("failed to remove journal", "id", j.txn.ID, "error", err)
	}
}

func (j *journal) save() {
	if j.dir == "" {
		return
	}
	if err := j.txn.Save(j.dir); err != nil {
		j.logger.Warn("failed to save journal", "id", j.txn.ID, "error", err)
	}
}
