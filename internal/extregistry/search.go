package extregistry

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
)

// buildIndex creates an in-memory bleve index over the merged catalog: a
// standard-analyzer text field for description/name, keyword fields for
// kind/registry so `search` can be scoped, batch-indexed in one pass since
// the catalog is rebuilt wholesale at server start rather than updated
// incrementally.
func buildIndex(entries map[string]*Entry) (bleve.Index, error) {
	mapping := bleve.NewIndexMapping()

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = "standard"
	textField.Store = true
	textField.Index = true

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = "keyword"
	keywordField.Store = true
	keywordField.Index = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", textField)
	docMapping.AddFieldMappingsAt("description", textField)
	docMapping.AddFieldMappingsAt("kind", keywordField)
	docMapping.AddFieldMappingsAt("registry", keywordField)
	mapping.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("build registry index: %w", err)
	}

	batch := index.NewBatch()
	for key, e := range entries {
		if err := batch.Index(key, map[string]any{
			"name":        e.Name,
			"description": e.Description,
			"kind":        string(e.Kind),
			"registry":    e.Registry,
		}); err != nil {
			index.Close()
			return nil, fmt.Errorf("index entry %s: %w", key, err)
		}
	}
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			index.Close()
			return nil, fmt.Errorf("batch-index catalog: %w", err)
		}
	}
	return index, nil
}

// Search runs a bleve query-string search over name/description, returning
// the matching Entry values ranked by bleve's score.
func (c *Catalog) Search(queryStr string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(queryStr), limit, 0, false)
	result, err := c.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search registry catalog: %w", err)
	}
	out := make([]*Entry, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if e, ok := c.entries[hit.ID]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}
