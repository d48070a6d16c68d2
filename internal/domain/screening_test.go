package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateRiskLevel(t *testing.T) {
	assert.Equal(t, RiskLevelLow, CalculateRiskLevel(0))
	assert.Equal(t, RiskLevelLow, CalculateRiskLevel(9))
	assert.Equal(t, RiskLevelMedium, CalculateRiskLevel(10))
	assert.Equal(t, RiskLevelHigh, CalculateRiskLevel(30))
	assert.Equal(t, RiskLevelHigh, CalculateRiskLevel(49))
	assert.Equal(t, RiskLevelCritical, CalculateRiskLevel(50))
	assert.Equal(t, RiskLevelCritical, CalculateRiskLevel(145))
}

func TestResultBundleOutcome(t *testing.T) {
	bundle := ResultBundle{
		SourceNameCEIS:  OkResult(json.RawMessage(`[{}]`), 1),
		SourceNameCNEP:  ErrResult(LookupErrorHTTP, "HTTP 500"),
		SourceNameCEPIM: OkResult(nil, 0),
	}

	ok, hits := bundle.Outcome(SourceNameCEIS)
	assert.True(t, ok)
	assert.Equal(t, 1, hits)

	ok, hits = bundle.Outcome(SourceNameCNEP)
	assert.False(t, ok)
	assert.Zero(t, hits)

	ok, hits = bundle.Outcome(SourceNamePNCP)
	assert.False(t, ok, "absent sources are not ok")
	assert.Zero(t, hits)

	assert.Equal(t, 1, bundle.SourcesWithData())
}

func TestSourceResultJSON(t *testing.T) {
	raw, err := json.Marshal(ErrResult(LookupErrorMissingAPIKey, "api key not configured"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":false,"count":0,"error":{"kind":"missing_api_key","message":"api key not configured"}}`, string(raw))

	raw, err = json.Marshal(OkResult(json.RawMessage(`[1,2]`), 2))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"count":2,"data":[1,2]}`, string(raw))
}
