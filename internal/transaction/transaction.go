// Package transaction journals multi-step state changes and guards the state
// directory with an advisory lock.
//
// pharm does not roll back. An install touches the destination file, the
// registry and pharm.lua in sequence; if a later step fails, the journal left
// on disk records which steps completed so `pharm status` can report the
// inconsistency.
package transaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// State represents the current state of a journal step.
type State string

const (
	StatePending   State = "pending"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Operation is the kind of change being journaled.
type Operation string

const (
	OperationInstall Operation = "install"
	OperationRemove  Operation = "remove"
	OperationPurge   Operation = "purge"
)

// Step names used by the orchestrators.
type Step string

const (
	StepResolve     Step = "resolve"
	StepInstall     Step = "install"
	StepRegister    Step = "register"
	StepConfigure   Step = "configure"
	StepUninstall   Step = "uninstall"
	StepUnregister  Step = "unregister"
	StepUnconfigure Step = "unconfigure"
	StepDelete      Step = "delete"
)

const (
	schemaVersion = 1
	filePrefix    = "txn-"
	fileSuffix    = ".json"
)

// Journal records the progress of one operation on one phar.
type Journal struct {
	Version     int       `json:"version"` // Schema version for future evolution
	ID          string    `json:"id"`
	Operation   Operation `json:"operation"`
	Timestamp   time.Time `json:"timestamp"`
	Phar        string    `json:"phar"`
	PharVersion string    `json:"phar_version,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Steps       []StepTxn `json:"steps"`
}

// StepTxn is the state of a single step.
type StepTxn struct {
	Step      Step   `json:"step"`
	State     State  `json:"state"`
	LastError string `json:"last_error,omitempty"`
}

// New creates a journal with every step pending.
func New(op Operation, phar, destination string, steps ...Step) *Journal {
	txns := make([]StepTxn, 0, len(steps))
	for _, s := range steps {
		txns = append(txns, StepTxn{Step: s, State: StatePending})
	}

	return &Journal{
		Version:     schemaVersion,
		ID:          uuid.New().String(),
		Operation:   op,
		Timestamp:   time.Now().UTC(),
		Phar:        phar,
		Destination: destination,
		Steps:       txns,
	}
}

// FileName is the journal's file name inside its directory.
func (j *Journal) FileName() string {
	return fmt.Sprintf("%s%s-%s%s", filePrefix, j.Operation, j.ID, fileSuffix)
}

// Save writes the journal to dir atomically.
func (j *Journal) Save(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}

	finalPath := filepath.Join(dir, j.FileName())
	tmpPath := finalPath + ".tmp"

	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal journal: %w", err)
	}

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temporary journal file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename journal file: %w", err)
	}

	df, err := os.Open(dir)
	if err == nil {
		if syncErr := df.Sync(); syncErr != nil {
			df.Close()
			return fmt.Errorf("sync directory: %w", syncErr)
		}
		df.Close()
	}

	return nil
}

// Discard deletes the journal file from dir. A missing file is not an error.
func (j *Journal) Discard(dir string) error {
	err := os.Remove(filepath.Join(dir, j.FileName()))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove journal: %w", err)
	}
	return nil
}

// Load reads a journal from disk.
func Load(path string) (*Journal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read journal file: %w", err)
	}

	var j Journal
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal journal: %w", err)
	}
	if j.Version > schemaVersion {
		return nil, fmt.Errorf("journal %s: unsupported version %d", filepath.Base(path), j.Version)
	}

	return &j, nil
}

// List loads every journal in dir, oldest first. A missing directory yields
// no journals.
func List(dir string) ([]*Journal, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read journal directory: %w", err)
	}

	var out []*Journal
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		j, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}

	sort.SliceStable(out, func(i, k int) bool {
		return out[i].Timestamp.Before(out[k].Timestamp)
	})
	return out, nil
}

// UpdateStep sets the state of step and records err.
func (j *Journal) UpdateStep(step Step, state State, err error) {
	for i := range j.Steps {
		if j.Steps[i].Step == step {
			j.Steps[i].State = state
			if err != nil {
				j.Steps[i].LastError = err.Error()
			} else {
				j.Steps[i].LastError = ""
			}
			break
		}
	}
}

// FailedStep returns the first failed step.
func (j *Journal) FailedStep() (StepTxn, bool) {
	for _, s := range j.Steps {
		if s.State == StateFailed {
			return s, true
		}
	}
	return StepTxn{}, false
}

// CompletedSteps lists the steps that finished.
func (j *Journal) CompletedSteps() []Step {
	var out []Step
	for _, s := range j.Steps {
		if s.State == StateCompleted {
			out = append(out, s.Step)
		}
	}
	return out
}

// AllStepsCompleted returns true if all steps are in completed state.
func (j *Journal) AllStepsCompleted() bool {
	for _, s := range j.Steps {
		if s.State != StateCompleted {
			return false
		}
	}
	return len(j.Steps) > 0
}
