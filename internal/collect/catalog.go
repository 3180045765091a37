package collect

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// CatalogSource is one directory endpoint companies can be searched in.
type CatalogSource struct {
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type"` // source type, e.g. official_registry, public_api
	BaseURL    string            `yaml:"base_url"`
	SearchPath string            `yaml:"search_path"`
	QueryParam string            `yaml:"query_param"`
	Params     map[string]string `yaml:"params,omitempty"`
	Headers    map[string]string `yaml:"headers,omitempty"`
}

// Catalog is the set of business directory sources available for
// cross-referencing.
type Catalog struct {
	Sources []CatalogSource `yaml:"sources"`
}

// LoadCatalog reads a source catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "collect: read catalog %s", path)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses catalog YAML and validates the entries.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "collect: parse catalog")
	}
	for i, src := range c.Sources {
		if src.Name == "" {
			return nil, eris.Errorf("collect: catalog source %d has no name", i)
		}
		if src.BaseURL == "" {
			return nil, eris.Errorf("collect: catalog source %s has no base_url", src.Name)
		}
		if src.QueryParam == "" {
			src.QueryParam = "q"
			c.Sources[i] = src
		}
	}
	return &c, nil
}

// Requests maps a search query onto one request per catalog source.
func (c *Catalog) Requests(query string) []Request {
	reqs := make([]Request, 0, len(c.Sources))
	for _, src := range c.Sources {
		params := map[string]string{src.QueryParam: query}
		for k, v := range src.Params {
			params[k] = v
		}
		reqs = append(reqs, Request{
			Source:   src.Name,
			Endpoint: src.BaseURL + src.SearchPath,
			Params:   params,
			Headers:  src.Headers,
		})
	}
	return reqs
}

// SourceType returns the declared source type for a catalog source name, or
// "" when unknown.
func (c *Catalog) SourceType(name string) string {
	if c == nil {
		return ""
	}
	for _, src := range c.Sources {
		if src.Name == name {
			return src.Type
		}
	}
	return ""
}

// SearchDirectory queries every catalog source for the given company name and
// returns the per-source results in catalog order.
func (g *Gateway) SearchDirectory(ctx context.Context, catalog *Catalog, query string) []Result {
	if catalog == nil || len(catalog.Sources) == 0 {
		return nil
	}
	return g.CollectFromMultipleSources(ctx, catalog.Requests(query))
}
