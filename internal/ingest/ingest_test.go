package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integrity/sanctions-crosscheck/internal/domain"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want *time.Time
	}{
		{"2023-06-15", domain.DatePtr(2023, 6, 15)},
		{"15/06/2023", domain.DatePtr(2023, 6, 15)},
		{"01/02/2023", domain.DatePtr(2023, 2, 1)},
		{"20230615", domain.DatePtr(2023, 6, 15)},
		{" 2023-06-15 ", domain.DatePtr(2023, 6, 15)},
		{"2023-06-15T13:45:00", domain.DatePtr(2023, 6, 15)},
		{"", nil},
		{"not a date", nil},
		{"31/02/2023", nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseDate(tt.raw)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"500000", "500000"},
		{"1234.56", "1234.56"},
		{"1.234,56", "1234.56"},
		{"R$ 1.234.567,89", "1234567.89"},
		{"1,234.56", "1234.56"},
		{"1,234,567.8", "1234567.8"},
		{"1.234.567", "1234567"},
		{"1,234,567", "1234567"},
		{"1500,5", "1500.5"},
		{"1.234,56.7", ""},
		{"1,234.56,7", ""},
		{"0", "0"},
		{"", ""},
		{"abc", ""},
		{"-10", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseAmount(tt.raw)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "data_inicio_sancao", NormalizeHeader("  Data Inicio Sancao "))
}

func TestLoadSanctions_Aliases(t *testing.T) {
	path := writeCSV(t, "ceis.csv",
		"CPF_CNPJ,Razao Social,Data Inicio Sancao,Data Fim Sancao,Tipo Sancao,Orgao Sancionador\n"+
			"12.345.678/0001-90,Empresa A,01/01/2023,31/12/2025,Inidoneidade,CGU\n"+
			"123.456.789-01,Fulano,2022-03-01,,Suspensão,TCU\n"+
			",Sem Documento,2022-03-01,,,\n")

	records, err := LoadSanctions(path)
	require.NoError(t, err)
	require.Len(t, records, 3)

	a := records[0]
	assert.Equal(t, domain.SourceCEIS, a.Source)
	assert.Equal(t, domain.Identifier("12345678000190"), a.Identifier)
	assert.Equal(t, "Empresa A", a.SubjectName)
	assert.True(t, domain.Date(2023, 1, 1).Equal(*a.SanctionStart))
	assert.True(t, domain.Date(2025, 12, 31).Equal(*a.SanctionEnd))
	assert.Equal(t, "Inidoneidade", a.SanctionType)
	assert.Equal(t, "CGU", a.IssuingBody)

	assert.Nil(t, records[1].SanctionEnd)
	assert.True(t, records[1].IsOpenEnded())
	assert.False(t, records[2].Matchable())
}

func TestLoadSanctions_CanonicalSemicolonWithBOM(t *testing.T) {
	path := writeCSV(t, "cnep.csv",
		"\xEF\xBB\xBFsource_id;cnpj_cpf;name;sanction_start;sanction_end\n"+
			"CNEP;98765432000100;Empresa B;20220101;\n")

	records, err := LoadSanctions(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "CNEP", records[0].Source)
	assert.Equal(t, domain.Identifier("98765432000100"), records[0].Identifier)
	assert.True(t, records[0].Matchable())
}

func TestLoadSanctions_MissingColumns(t *testing.T) {
	path := writeCSV(t, "bad.csv", "documento,nome\n123,Foo\n")

	_, err := LoadSanctions(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "name")
	assert.Contains(t, err.Error(), "sanction_start")
}

func TestLoadSanctions_MissingFile(t *testing.T) {
	_, err := LoadSanctions(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadSanctions_EmptyFile(t *testing.T) {
	_, err := LoadSanctions(writeCSV(t, "empty.csv", ""))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestLoadContracts(t *testing.T) {
	path := writeCSV(t, "contratos.csv",
		"cnpj_cpf_fornecedor,fornecedor,data_contrato,valor_contrato,numero_contrato,orgao\n"+
			"12345678000190,Empresa A,15/06/2023,\"500.000,00\",CT-1,Ministério da Saúde\n"+
			"98765432000100,Empresa B,2023-06-15,abc,CT-2,\n"+
			"98765432000100,Empresa B,,100,CT-3,\n")

	records, err := LoadContracts(path)
	require.NoError(t, err)
	require.Len(t, records, 3)

	a := records[0]
	assert.Equal(t, domain.SourceContracts, a.Source)
	assert.Equal(t, domain.Identifier("12345678000190"), a.Identifier)
	assert.Equal(t, "Empresa A", a.PartyName)
	require.NotNil(t, a.Value)
	assert.Equal(t, "500000", a.Value.String())
	assert.Equal(t, "CT-1", a.ContractNumber)
	assert.Equal(t, "Ministério da Saúde", a.ContractingBody)

	assert.Nil(t, records[1].Value)
	assert.True(t, records[1].AmountOrZero().IsZero())
	assert.False(t, records[2].Matchable())
}

func TestLoadContracts_OptionalColumnsAbsent(t *testing.T) {
	path := writeCSV(t, "min.csv", "supplier_document,supplier_name,contract_date\n11111111000111,X,2023-01-01\n")

	records, err := LoadContracts(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Value)
	assert.Empty(t, records[0].ContractNumber)
	assert.Empty(t, records[0].ContractingBody)
}

func TestLoadContracts_MissingColumns(t *testing.T) {
	_, err := LoadContracts(writeCSV(t, "bad.csv", "supplier_document,contract_date\n1,2023-01-01\n"))
	assert.ErrorIs(t, err, ErrMissingColumns)
}
