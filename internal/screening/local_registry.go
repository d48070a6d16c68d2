package screening

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/integrity/sanctions-crosscheck/internal/crosscheck"
	"github.com/integrity/sanctions-crosscheck/internal/domain"
	"github.com/integrity/sanctions-crosscheck/internal/ingest"
	"github.com/integrity/sanctions-crosscheck/internal/pkg/logger"
)

// LocalRegistry answers exact identifier lookups against a sanction file loaded in memory
type LocalRegistry struct {
	log *logger.Logger

	index   *crosscheck.Index
	indexMu sync.RWMutex
}

// NewLocalRegistry creates a registry over the given records
func NewLocalRegistry(sanctions []domain.SanctionRecord, log *logger.Logger) *LocalRegistry {
	return &LocalRegistry{
		log:   log.Named("local_registry"),
		index: crosscheck.NewRegistryIndex(sanctions),
	}
}

// LoadFile replaces the index with the contents of a sanction CSV
func (r *LocalRegistry) LoadFile(path string) error {
	sanctions, err := ingest.LoadSanctions(path)
	if err != nil {
		return err
	}
	r.Replace(sanctions)
	return nil
}

// Replace swaps the index atomically
func (r *LocalRegistry) Replace(sanctions []domain.SanctionRecord) {
	idx := crosscheck.NewRegistryIndex(sanctions)

	r.indexMu.Lock()
	r.index = idx
	r.indexMu.Unlock()

	r.log.Info("local registry loaded",
		logger.IntField("records", idx.Len()),
		logger.IntField("entities", idx.Entities()),
	)
}

// Index returns the current index
func (r *LocalRegistry) Index() *crosscheck.Index {
	r.indexMu.RLock()
	defer r.indexMu.RUnlock()
	return r.index
}

func (r *LocalRegistry) Name() domain.SourceName { return domain.SourceNameLocalCEIS }

func (r *LocalRegistry) OrganizationOnly() bool { return false }

// Lookup returns every record held for the identifier, with or without a start date
func (r *LocalRegistry) Lookup(_ context.Context, id domain.Identifier) (json.RawMessage, int, error) {
	records := r.Index().Lookup(id)
	if records == nil {
		records = []domain.SanctionRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, 0, domain.NewLookupError(domain.LookupErrorInternal, r.Name(), "encode records", err)
	}
	return data, len(records), nil
}
