package transaction

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNew(t *testing.T) {
	j := New(OperationInstall, "phpunit", "/p/tools/phpunit", StepInstall, StepRegister, StepConfigure)

	if j.Version != 1 {
		t.Errorf("expected version 1, got %d", j.Version)
	}
	if j.ID == "" {
		t.Error("expected non-empty ID")
	}
	if j.Operation != OperationInstall {
		t.Errorf("expected operation %q, got %q", OperationInstall, j.Operation)
	}
	if len(j.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(j.Steps))
	}
	for _, s := range j.Steps {
		if s.State != StatePending {
			t.Errorf("step %s state = %s, want pending", s.Step, s.State)
		}
	}
	if time.Since(j.Timestamp) > time.Minute || j.Timestamp.Location() != time.UTC {
		t.Errorf("unexpected timestamp %v", j.Timestamp)
	}

	other := New(OperationInstall, "phpunit", "/p/tools/phpunit")
	if other.ID == j.ID {
		t.Error("IDs are not unique")
	}
}

func TestJournal_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	j := New(OperationRemove, "phpab", "/p/tools/phpab", StepUninstall, StepUnregister)
	j.PharVersion = "1.29.0"
	j.UpdateStep(StepUninstall, StateCompleted, nil)

	if err := j.Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	path := filepath.Join(dir, "txn-remove-"+j.ID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("journal file not created: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("journal is not JSON: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(j, loaded); diff != "" {
		t.Errorf("loaded journal mismatch (-want +got):\n%s", diff)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "txn-install-bad.json")
	os.WriteFile(bad, []byte("{"), 0600)
	if _, err := Load(bad); err == nil {
		t.Error("expected error for invalid JSON")
	}

	future := filepath.Join(dir, "txn-install-future.json")
	os.WriteFile(future, []byte(`{"version": 99}`), 0600)
	if _, err := Load(future); err == nil {
		t.Error("expected error for future version")
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()

	journals, err := List(filepath.Join(dir, "missing"))
	if err != nil || len(journals) != 0 {
		t.Fatalf("List(missing) = %v, %v", journals, err)
	}

	first := New(OperationInstall, "phpunit", "/a", StepInstall)
	first.Timestamp = time.Now().UTC().Add(-time.Hour)
	second := New(OperationInstall, "phpab", "/b", StepInstall)
	for _, j := range []*Journal{second, first} {
		if err := j.Save(dir); err != nil {
			t.Fatal(err)
		}
	}
	os.WriteFile(filepath.Join(dir, "unrelated.json"), []byte("{"), 0600)

	journals, err = List(dir)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(journals) != 2 || journals[0].ID != first.ID || journals[1].ID != second.ID {
		t.Errorf("List() returned wrong order or count: %+v", journals)
	}

	if err := first.Discard(dir); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if err := first.Discard(dir); err != nil {
		t.Errorf("second Discard failed: %v", err)
	}
	journals, _ = List(dir)
	if len(journals) != 1 {
		t.Errorf("got %d journals after discard, want 1", len(journals))
	}
}

func TestJournal_StepTracking(t *testing.T) {
	j := New(OperationInstall, "phpunit", "/a", StepInstall, StepRegister, StepConfigure)

	if j.AllStepsCompleted() {
		t.Error("fresh journal reported complete")
	}
	if _, ok := j.FailedStep(); ok {
		t.Error("fresh journal reported failure")
	}

	j.UpdateStep(StepInstall, StateCompleted, nil)
	j.UpdateStep(StepRegister, StateFailed, errors.New("disk full"))

	failed, ok := j.FailedStep()
	if !ok || failed.Step != StepRegister || failed.LastError != "disk full" {
		t.Errorf("FailedStep() = %+v, %v", failed, ok)
	}
	if diff := cmp.Diff([]Step{StepInstall}, j.CompletedSteps()); diff != "" {
		t.Errorf("CompletedSteps() mismatch (-want +got):\n%s", diff)
	}

	j.UpdateStep(StepRegister, StateCompleted, nil)
	j.UpdateStep(StepConfigure, StateCompleted, nil)
	if !j.AllStepsCompleted() {
		t.Error("AllStepsCompleted() = false")
	}
	if j.Steps[1].LastError != "" {
		t.Error("LastError not cleared on success")
	}

	if New(OperationPurge, "x", "").AllStepsCompleted() {
		t.Error("journal without steps reported complete")
	}
}
