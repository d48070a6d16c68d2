package transparency

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/integrity/sanctions-crosscheck/internal/domain"
)

// DefaultReceitaBaseURL is the ReceitaWS root
const DefaultReceitaBaseURL = "https://www.receitaws.com.br"

// Receita looks up company registration data on ReceitaWS
type Receita struct {
	client  *client
	baseURL string
}

// NewReceita creates a ReceitaWS client
func NewReceita(baseURL string, httpClient *http.Client, cfg ClientConfig) *Receita {
	if baseURL == "" {
		baseURL = DefaultReceitaBaseURL
	}
	return &Receita{
		client:  newClient(domain.SourceNameReceitaFederal, httpClient, cfg),
		baseURL: baseURL,
	}
}

type receitaStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (r *Receita) Name() domain.SourceName { return domain.SourceNameReceitaFederal }

// OrganizationOnly is true: ReceitaWS only knows CNPJs
func (r *Receita) OrganizationOnly() bool { return true }

// Lookup fetches the registration record for a CNPJ
func (r *Receita) Lookup(ctx context.Context, id domain.Identifier) (json.RawMessage, int, error) {
	if id.Kind() != domain.KindOrganization {
		return nil, 0, domain.NewLookupError(domain.LookupErrorInvalidDocument, r.Name(), "CNPJ must have 14 digits", nil)
	}

	resp, err := r.client.get(ctx, joinURL(r.baseURL, "v1/cnpj/"+id.String()), nil, nil)
	if err != nil {
		return nil, 0, err
	}
	if err := r.client.statusError(resp); err != nil {
		return nil, 0, err
	}

	var status receitaStatus
	if err := json.Unmarshal(resp.body, &status); err != nil {
		return nil, 0, domain.NewLookupError(domain.LookupErrorBadData, r.Name(), "decode response", err)
	}
	if status.Status == "ERROR" {
		msg := status.Message
		if msg == "" {
			msg = "CNPJ lookup failed"
		}
		return nil, 0, domain.NewLookupError(domain.LookupErrorBadData, r.Name(), msg, nil)
	}

	return json.RawMessage(resp.body), 1, nil
}
