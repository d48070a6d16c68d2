package ingest

import (
	"github.com/integrity/sanctions-crosscheck/internal/domain"
)

var contractAliases = map[string]string{
	"cnpj_cpf_fornecedor":  "supplier_document",
	"documento_fornecedor": "supplier_document",
	"fornecedor_documento": "supplier_document",
	"fornecedor":           "supplier_name",
	"nome_fornecedor":      "supplier_name",
	"data_contrato":        "contract_date",
	"data_assinatura":      "contract_date",
	"valor_contrato":       "contract_value",
	"valor_inicial":        "contract_value",
	"numero_contrato":      "contract_number",
	"orgao":                "organ",
	"orgao_contratante":    "organ",
}

var contractRequired = []string{"supplier_document", "supplier_name", "contract_date"}

// LoadContracts reads a public contract listing
func LoadContracts(path string) ([]domain.ContractRecord, error) {
	t, err := openTable(path, "contracts", contractAliases, contractRequired)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ContractRecord, 0, len(t.rows))
	for _, row := range t.rows {
		source := t.get(row, "source_id")
		if source == "" {
			source = domain.SourceContracts
		}
		out = append(out, domain.ContractRecord{
			Source:          source,
			Identifier:      domain.NormalizeIdentifier(t.get(row, "supplier_document")),
			PartyName:       t.get(row, "supplier_name"),
			SignedDate:      ParseDate(t.get(row, "contract_date")),
			Value:           ParseAmount(t.get(row, "contract_value")),
			ContractNumber:  t.get(row, "contract_number"),
			ContractingBody: t.get(row, "organ"),
		})
	}
	return out, nil
}
