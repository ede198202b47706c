// Package retrieval defines the boundary to the tenant-scoped vector
// index: a filtered top-k similarity search over tenant-tagged documents.
// The index implementation itself is out of scope; this package only
// specifies the contract and a stub used where no index is configured.
package retrieval

import (
	"context"

	"github.com/clinicflow/orchestrator/pkg/models"
)

// Filter narrows a search to a tenant (and optionally a document type).
// company_id is always required; callers must never issue a Search without
// it, enforcing index-level tenant isolation even on shared infrastructure.
type Filter struct {
	CompanyID    string
	DocumentType string
}

// Index is the vector-index boundary. Search returns up to k documents
// whose embeddings are nearest the query, scoped by Filter.
type Index interface {
	Search(ctx context.Context, indexName, query string, k int, filter Filter) ([]models.Document, error)
}

// NullIndex is a no-op Index used when a tenant has no vector index
// configured; it always returns an empty result set rather than an error,
// matching the StorageUnavailable degrade policy (§7).
type NullIndex struct{}

// Search always returns no documents.
func (NullIndex) Search(ctx context.Context, indexName, query string, k int, filter Filter) ([]models.Document, error) {
	return nil, nil
}
