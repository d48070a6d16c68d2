package transparency

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/integrity/sanctions-crosscheck/internal/domain"
)

// PortalAPIKeyHeader carries the Portal da Transparência access key
const PortalAPIKeyHeader = "chave-api-dados"

// DefaultPortalBaseURL is the public data API root
const DefaultPortalBaseURL = "https://api.portaldatransparencia.gov.br/api-de-dados"

// PortalDataset describes one queryable registry on the Portal
type PortalDataset struct {
	Source domain.SourceName
	Path   string
	Param  string
}

var (
	DatasetCEIS      = PortalDataset{Source: domain.SourceNameCEIS, Path: "ceis", Param: "codigoSancionado"}
	DatasetCNEP      = PortalDataset{Source: domain.SourceNameCNEP, Path: "cnep", Param: "codigoSancionado"}
	DatasetCEPIM     = PortalDataset{Source: domain.SourceNameCEPIM, Path: "cepim", Param: "codigoSancionado"}
	DatasetContracts = PortalDataset{Source: domain.SourceNameContracts, Path: "contratos", Param: "cnpjContratado"}
	DatasetGrants    = PortalDataset{Source: domain.SourceNameGrants, Path: "convenios", Param: "cnpjConvenente"}
)

// PortalDatasets lists every dataset in reporting order
var PortalDatasets = []PortalDataset{DatasetCEIS, DatasetCNEP, DatasetCEPIM, DatasetContracts, DatasetGrants}

// Portal queries the Portal da Transparência API
type Portal struct {
	client  *client
	baseURL string
	apiKey  string
}

// NewPortal creates a Portal client. A nil httpClient builds one from cfg.
func NewPortal(baseURL, apiKey string, httpClient *http.Client, cfg ClientConfig) *Portal {
	if baseURL == "" {
		baseURL = DefaultPortalBaseURL
	}
	return &Portal{
		client:  newClient("portal", httpClient, cfg),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Fetch queries one dataset for an identifier and returns the raw records and their count.
// Without an API key no request is made.
func (p *Portal) Fetch(ctx context.Context, ds PortalDataset, id domain.Identifier) (json.RawMessage, int, error) {
	if p.apiKey == "" {
		return nil, 0, domain.NewLookupError(domain.LookupErrorMissingAPIKey, ds.Source, "portal API key not configured", nil)
	}

	query := url.Values{}
	query.Set(ds.Param, id.String())
	query.Set("pagina", "1")

	header := http.Header{}
	header.Set(PortalAPIKeyHeader, p.apiKey)

	resp, err := p.client.get(ctx, joinURL(p.baseURL, ds.Path), query, header)
	if err != nil {
		return nil, 0, relabel(err, ds.Source)
	}
	if resp.status < 200 || resp.status >= 300 {
		return nil, 0, domain.NewHTTPError(ds.Source, resp.status)
	}

	return countPayload(ds.Source, resp.body)
}

// Source adapts one dataset to the screening engine
func (p *Portal) Source(ds PortalDataset) *PortalSource {
	return &PortalSource{portal: p, dataset: ds}
}

// Sources adapts every dataset
func (p *Portal) Sources() []*PortalSource {
	out := make([]*PortalSource, 0, len(PortalDatasets))
	for _, ds := range PortalDatasets {
		out = append(out, p.Source(ds))
	}
	return out
}

// PortalSource is a single Portal dataset
type PortalSource struct {
	portal  *Portal
	dataset PortalDataset
}

func (s *PortalSource) Name() domain.SourceName { return s.dataset.Source }

// OrganizationOnly is false: the Portal accepts CPFs and CNPJs
func (s *PortalSource) OrganizationOnly() bool { return false }

func (s *PortalSource) Lookup(ctx context.Context, id domain.Identifier) (json.RawMessage, int, error) {
	return s.portal.Fetch(ctx, s.dataset, id)
}

// countPayload counts list payloads by length and treats any other JSON value as one record
func countPayload(source domain.SourceName, body []byte) (json.RawMessage, int, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage("[]"), 0, nil
	}
	if !json.Valid(trimmed) {
		return nil, 0, domain.NewLookupError(domain.LookupErrorBadData, source, "response is not valid JSON", nil)
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, 0, domain.NewLookupError(domain.LookupErrorBadData, source, "decode list", err)
		}
		return json.RawMessage(trimmed), len(items), nil
	}
	return json.RawMessage(trimmed), 1, nil
}

// relabel attributes a shared-client error to the dataset that issued it
func relabel(err error, source domain.SourceName) error {
	if le, ok := err.(*domain.LookupError); ok {
		cp := *le
		cp.Source = source
		return &cp
	}
	return err
}
