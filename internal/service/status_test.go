package service

import (
	"context"
	"os"
	"testing"

	"github.com/ZebulonRouseFrantzich/pharm/internal/config"
	"github.com/ZebulonRouseFrantzich/pharm/internal/phar"
	"github.com/ZebulonRouseFrantzich/pharm/internal/version"
)

func TestListService_List(t *testing.T) {
	f := newFixture(t)
	installed(t, f)
	f.config.AddPhar(config.InstalledPhar{
		Name:       "phpab",
		Version:    version.MustParse("1.29.0"),
		Constraint: version.MustParseConstraint("^1.29"),
		Location:   "./tools/phpab",
	})

	items, err := NewListService(f.config, f.registry, f.projectDir).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	if items[0].Phar.Name != "phpab" || items[0].Status != config.StatusMissing || items[0].Hash != "" {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[1].Phar.Name != "phpunit" || items[1].Status != config.StatusInstalled {
		t.Errorf("items[1] = %+v", items[1])
	}
	if items[1].Hash != f.artifact.Hash.String() {
		t.Errorf("Hash = %q, want %q", items[1].Hash, f.artifact.Hash)
	}
}

func TestListService_Status(t *testing.T) {
	f := newFixture(t)
	installed(t, f)
	svc := NewListService(f.config, f.registry, f.projectDir, WithJournalDir(f.journalDir))

	report, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !report.Consistent() {
		t.Errorf("fresh install reported inconsistent: %+v", report)
	}

	// A failed config write leaves a journal behind.
	f.config.saveErr = errBoom
	other := f.installService(phar.NewInstaller())
	if _, err := other.Execute(context.Background(), testRelease, version.MustParseConstraint("^2.0"), f.dest(), false); err == nil {
		t.Fatal("expected config write failure")
	}

	report, err = svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if report.Consistent() || len(report.Incomplete) != 1 {
		t.Errorf("report = %+v, want one incomplete journal", report)
	}

	if err := os.Remove(f.dest()); err != nil {
		t.Fatal(err)
	}
	f.config.saveErr = nil
	if _, err := NewRemoveService(phar.NewInstaller(), f.registry, f.config, f.projectDir).Remove(context.Background(), "phpunit"); err != nil {
		t.Fatal(err)
	}
	report, err = svc.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Unused) != 1 {
		t.Errorf("Unused = %+v, want phpunit", report.Unused)
	}
}
