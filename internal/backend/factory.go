package backend

import (
	"fmt"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/config"
)

const (
	DriverElasticsearch = "elasticsearch"
	DriverMeilisearch   = "meilisearch"
	DriverBleve         = "bleve"
	DriverNone          = "none"
)

// New builds the configured backend. DriverNone returns a nil Backend so
// the service runs on the fallback engine alone.
func New(cfg *config.Config) (Backend, error) {
	prefix := cfg.Search.IndexPrefix

	switch cfg.Search.Backend {
	case DriverElasticsearch:
		es, err := NewElasticsearch(ElasticsearchConfig{
			Addresses: cfg.Elasticsearch.Addresses,
			Username:  cfg.Elasticsearch.Username,
			Password:  cfg.Elasticsearch.Password,
		}, prefix)
		if err != nil {
			return nil, err
		}
		return es, nil
	case DriverMeilisearch:
		return NewMeilisearch(cfg.Meilisearch.URL, cfg.Meilisearch.APIKey, prefix), nil
	case DriverBleve:
		return NewBleve(cfg.Bleve.Path, prefix), nil
	case DriverNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported search backend: %s", cfg.Search.Backend)
	}
}
