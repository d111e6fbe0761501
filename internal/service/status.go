package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/ZebulonRouseFrantzich/pharm/internal/config"
	"github.com/ZebulonRouseFrantzich/pharm/internal/registry"
	"github.com/ZebulonRouseFrantzich/pharm/internal/transaction"
)

// ListService joins the declared phars with what is on disk and in the
// registry.
type ListService struct {
	config     DeclaredConfig
	registry   Registry
	projectDir string
	journalDir string
}

// NewListService creates a ListService.
func NewListService(cfg DeclaredConfig, reg Registry, projectDir string, opts ...Option) *ListService {
	o := buildOptions(opts)
	return &ListService{
		config:     cfg,
		registry:   reg,
		projectDir: projectDir,
		journalDir: o.journalDir,
	}
}

// ListItem is one declared phar with its detected state.
type ListItem struct {
	config.PharWithStatus
	Hash string // empty when the registry has no record of the destination
}

// List returns the declared phars sorted by name.
func (s *ListService) List(ctx context.Context) ([]ListItem, error) {
	detected, err := config.NewStatusDetector(s.registry).DetectStatus(ctx, s.projectDir, s.config.Phars())
	if err != nil {
		return nil, fmt.Errorf("detect status: %w", err)
	}

	items := make([]ListItem, 0, len(detected))
	for _, d := range detected {
		item := ListItem{PharWithStatus: d}
		if entry, _, ok := s.registry.UsageOf(d.Destination); ok {
			item.Hash = entry.Hash
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Phar.Name < items[j].Phar.Name
	})
	return items, nil
}

// StatusReport is the output of `pharm status`.
type StatusReport struct {
	Phars      []ListItem
	Unused     []registry.Entry
	Incomplete []*transaction.Journal
}

// Consistent reports whether every declared phar is installed and no
// operation was left unfinished.
func (r *StatusReport) Consistent() bool {
	if len(r.Incomplete) > 0 {
		return false
	}
	for _, p := range r.Phars {
		if p.Status != config.StatusInstalled {
			return false
		}
	}
	return true
}

// Status lists the declared phars, the phars eligible for purge and the
// journals of operations that did not complete.
func (s *ListService) Status(ctx context.Context) (*StatusReport, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{Phars: items, Unused: s.registry.Unused()}

	if s.journalDir != "" {
		journals, err := transaction.List(s.journalDir)
		if err != nil {
			return nil, fmt.Errorf("read journals: %w", err)
		}
		report.Incomplete = journals
	}
	return report, nil
}
