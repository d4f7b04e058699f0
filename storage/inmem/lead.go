package inmem

import (
	"context"
	"strings"

	"github.com/hoangvu/educenter/core/lead"
)

type leadRepository struct {
	db *DB
}

var _ lead.Repository = (*leadRepository)(nil) // interface compliance check

func NewLeadRepository(db *DB) lead.Repository {
	return &leadRepository{db: db}
}

func (repo *leadRepository) query() []lead.Lead {
	leads := make([]lead.Lead, 0, len(repo.db.leads))
	for _, ld := range repo.db.leads {
		leads = append(leads, *ld)
	}
	return leads
}

func (repo *leadRepository) CreateLead(_ context.Context, ld lead.Lead) (lead.Lead, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.leads[ld.ID] = &ld
	return ld, nil
}

func (repo *leadRepository) GetLeadByID(_ context.Context, id string) (lead.Lead, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ld, ok := repo.db.leads[id]; ok {
		return *ld, nil
	}
	return lead.Lead{}, lead.ErrNotFound
}

func (repo *leadRepository) QueryAllLeads(_ context.Context) ([]lead.Lead, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *leadRepository) FilterLeads(_ context.Context, filter lead.QueryFilter) ([]lead.Lead, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	leads := repo.query()

	if filter.Search != "" {
		var filtered []lead.Lead
		search := strings.ToLower(filter.Search)
		for _, ld := range leads {
			if strings.Contains(strings.ToLower(ld.ParentName), search) ||
				strings.Contains(strings.ToLower(ld.StudentName), search) ||
				strings.Contains(ld.ParentPhone, filter.Search) {
				filtered = append(filtered, ld)
			}
		}
		leads = filtered
	}
	if leads != nil && filter.Status != "" {
		var filtered []lead.Lead
		for _, ld := range leads {
			if ld.Status == filter.Status {
				filtered = append(filtered, ld)
			}
		}
		leads = filtered
	}
	if leads != nil && filter.PaymentStatus != "" {
		var filtered []lead.Lead
		for _, ld := range leads {
			if ld.PaymentStatus == filter.PaymentStatus {
				filtered = append(filtered, ld)
			}
		}
		leads = filtered
	}

	return leads, nil
}

func (repo *leadRepository) UpdateLead(_ context.Context, ld lead.Lead) (lead.Lead, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.leads[ld.ID]; !ok {
		return lead.Lead{}, lead.ErrNotFound
	}
	repo.db.leads[ld.ID] = &ld
	return ld, nil
}
