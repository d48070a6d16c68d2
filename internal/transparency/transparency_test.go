package transparency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integrity/sanctions-crosscheck/internal/domain"
)

const (
	testCNPJ = domain.Identifier("12345678000190")
	testCPF  = domain.Identifier("12345678901")
)

func fastConfig() ClientConfig {
	return ClientConfig{
		Timeout:           2 * time.Second,
		MaxRetries:        2,
		BreakerFailures:   3,
		BreakerOpenPeriod: time.Minute,
		InitialBackoff:    time.Millisecond,
	}
}

func kindOf(t *testing.T, err error) domain.LookupErrorKind {
	t.Helper()
	require.Error(t, err)
	return domain.KindOf(err)
}

func TestPortal_FetchSendsKeyAndParam(t *testing.T) {
	var gotKey, gotDoc, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(PortalAPIKeyHeader)
		gotDoc = r.URL.Query().Get("codigoSancionado")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1},{"id":2}]`))
	}))
	defer srv.Close()

	p := NewPortal(srv.URL+"/api-de-dados/", "secret", srv.Client(), fastConfig())
	data, count, err := p.Fetch(context.Background(), DatasetCEIS, testCNPJ)

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.JSONEq(t, `[{"id":1},{"id":2}]`, string(data))
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, testCNPJ.String(), gotDoc)
	assert.Equal(t, "/api-de-dados/ceis", gotPath)
}

func TestPortal_DatasetParams(t *testing.T) {
	seen := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range r.URL.Query() {
			if k != "pagina" {
				seen[r.URL.Path] = k + "=" + v[0]
			}
		}
		_, _ = w.Write([]byte(`{"single":true}`))
	}))
	defer srv.Close()

	p := NewPortal(srv.URL, "k", srv.Client(), fastConfig())
	for _, src := range p.Sources() {
		_, count, err := src.Lookup(context.Background(), testCNPJ)
		require.NoError(t, err, src.Name())
		assert.Equal(t, 1, count, "object payload counts as one record")
		assert.False(t, src.OrganizationOnly())
	}

	assert.Equal(t, "codigoSancionado="+testCNPJ.String(), seen["/cnep"])
	assert.Equal(t, "cnpjContratado="+testCNPJ.String(), seen["/contratos"])
	assert.Equal(t, "cnpjConvenente="+testCNPJ.String(), seen["/convenios"])
}

func TestPortal_MissingKeyMakesNoRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	p := NewPortal(srv.URL, "", srv.Client(), fastConfig())
	_, _, err := p.Fetch(context.Background(), DatasetCNEP, testCPF)

	assert.Equal(t, domain.LookupErrorMissingAPIKey, kindOf(t, err))
	assert.Zero(t, atomic.LoadInt32(&calls))

	res := domain.ResultFromError(err)
	assert.False(t, res.OK)
	assert.Equal(t, domain.LookupErrorMissingAPIKey, res.Err.Kind)
}

func TestPortal_EmptyBodyIsEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	data, count, err := NewPortal(srv.URL, "k", srv.Client(), fastConfig()).Fetch(context.Background(), DatasetCEPIM, testCNPJ)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, "[]", string(data))
}

func TestPortal_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, _, err := NewPortal(srv.URL, "k", srv.Client(), fastConfig()).Fetch(context.Background(), DatasetCEIS, testCNPJ)
	assert.Equal(t, domain.LookupErrorBadData, kindOf(t, err))
}

func TestPortal_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, _, err := NewPortal(srv.URL, "k", srv.Client(), fastConfig()).Fetch(context.Background(), DatasetCEIS, testCNPJ)

	assert.Equal(t, domain.LookupErrorHTTP, kindOf(t, err))
	var le *domain.LookupError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, http.StatusUnauthorized, le.Status)
	assert.Equal(t, domain.SourceNameCEIS, le.Source)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}))
	defer srv.Close()

	_, count, err := NewPortal(srv.URL, "k", srv.Client(), fastConfig()).Fetch(context.Background(), DatasetCEIS, testCNPJ)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.BreakerFailures = 100
	_, _, err := NewPortal(srv.URL, "k", srv.Client(), cfg).Fetch(context.Background(), DatasetCEIS, testCNPJ)

	assert.Equal(t, domain.LookupErrorHTTP, kindOf(t, err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "one attempt plus two retries")
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.MaxRetries = 0
	r := NewReceita(srv.URL, srv.Client(), cfg)

	for i := 0; i < 3; i++ {
		_, _, err := r.Lookup(context.Background(), testCNPJ)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, r.client.State())

	_, _, err := r.Lookup(context.Background(), testCNPJ)
	assert.Equal(t, domain.LookupErrorUnavailable, kindOf(t, err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "open breaker short-circuits")
}

func TestClient_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	cfg := fastConfig()
	cfg.MaxRetries = 0
	_, _, err := NewReceita(url, nil, cfg).Lookup(context.Background(), testCNPJ)
	assert.Equal(t, domain.LookupErrorConnection, kindOf(t, err))
}

func TestClient_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := NewPNCP(srv.URL, 30, srv.Client(), fastConfig()).Lookup(ctx, testCNPJ)
	assert.Equal(t, domain.LookupErrorTimeout, kindOf(t, err))
}

func TestReceita(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/cnpj/" + testCNPJ.String():
			_, _ = w.Write([]byte(`{"status":"OK","nome":"EMPRESA A","qsa":[]}`))
		default:
			_, _ = w.Write([]byte(`{"status":"ERROR","message":"CNPJ inválido"}`))
		}
	}))
	defer srv.Close()

	r := NewReceita(srv.URL, srv.Client(), fastConfig())
	assert.True(t, r.OrganizationOnly())

	data, count, err := r.Lookup(context.Background(), testCNPJ)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Contains(t, string(data), "EMPRESA A")

	_, _, err = r.Lookup(context.Background(), domain.Identifier("98765432000100"))
	assert.Equal(t, domain.LookupErrorBadData, kindOf(t, err))
	assert.Contains(t, err.Error(), "CNPJ inválido")

	_, _, err = r.Lookup(context.Background(), testCPF)
	assert.Equal(t, domain.LookupErrorInvalidDocument, kindOf(t, err))
}

func TestPNCP(t *testing.T) {
	var gotStart string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/consulta/v1/contratos", r.URL.Path)
		gotStart = r.URL.Query().Get("dataInicial")
		if r.URL.Query().Get("cnpjContratada") == testCNPJ.String() {
			_, _ = w.Write([]byte(`{"data":[{"numeroControlePNCP":"x"}],"count":7}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	clock := func() time.Time { return time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC) }
	p := NewPNCP(srv.URL, 10, srv.Client(), fastConfig()).WithClock(clock)

	data, count, err := p.Lookup(context.Background(), testCNPJ)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.Contains(t, string(data), "numeroControlePNCP")
	assert.Equal(t, "2024-02-29", gotStart)

	data, count, err = p.Lookup(context.Background(), domain.Identifier("98765432000100"))
	require.NoError(t, err, "404 means no contracts")
	assert.Zero(t, count)
	assert.Equal(t, "[]", string(data))

	_, _, err = p.Lookup(context.Background(), testCPF)
	assert.Equal(t, domain.LookupErrorInvalidDocument, kindOf(t, err))
}
