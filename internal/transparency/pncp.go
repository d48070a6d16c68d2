package transparency

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/integrity/sanctions-crosscheck/internal/domain"
)

// DefaultPNCPBaseURL is the national procurement portal root
const DefaultPNCPBaseURL = "https://pncp.gov.br"

// PNCP searches recent contracts on the national procurement portal
type PNCP struct {
	client   *client
	baseURL  string
	lookback int
	now      func() time.Time
}

// NewPNCP creates a PNCP client searching lookbackDays into the past
func NewPNCP(baseURL string, lookbackDays int, httpClient *http.Client, cfg ClientConfig) *PNCP {
	if baseURL == "" {
		baseURL = DefaultPNCPBaseURL
	}
	return &PNCP{
		client:   newClient(domain.SourceNamePNCP, httpClient, cfg),
		baseURL:  baseURL,
		lookback: lookbackDays,
		now:      time.Now,
	}
}

// WithClock replaces the clock used to compute the search window
func (p *PNCP) WithClock(now func() time.Time) *PNCP {
	p.now = now
	return p
}

type pncpPage struct {
	Data  json.RawMessage `json:"data"`
	Count int             `json:"count"`
}

func (p *PNCP) Name() domain.SourceName { return domain.SourceNamePNCP }

// OrganizationOnly is true: PNCP is searched by contractor CNPJ
func (p *PNCP) OrganizationOnly() bool { return true }

// Lookup lists contracts signed by the CNPJ inside the lookback window.
// A 404 means no contracts and is not an error.
func (p *PNCP) Lookup(ctx context.Context, id domain.Identifier) (json.RawMessage, int, error) {
	if id.Kind() != domain.KindOrganization {
		return nil, 0, domain.NewLookupError(domain.LookupErrorInvalidDocument, p.Name(), "CNPJ must have 14 digits", nil)
	}

	query := url.Values{}
	query.Set("cnpjContratada", id.String())
	query.Set("dataInicial", p.now().AddDate(0, 0, -p.lookback).Format("2006-01-02"))

	resp, err := p.client.get(ctx, joinURL(p.baseURL, "api/consulta/v1/contratos"), query, nil)
	if err != nil {
		return nil, 0, err
	}
	if resp.status == http.StatusNotFound {
		return json.RawMessage("[]"), 0, nil
	}
	if err := p.client.statusError(resp); err != nil {
		return nil, 0, err
	}

	var page pncpPage
	if err := json.Unmarshal(resp.body, &page); err != nil {
		return nil, 0, domain.NewLookupError(domain.LookupErrorBadData, p.Name(), "decode response", err)
	}
	if len(page.Data) == 0 || string(page.Data) == "null" {
		page.Data = json.RawMessage("[]")
	}
	return page.Data, page.Count, nil
}
