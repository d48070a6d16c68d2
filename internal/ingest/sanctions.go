package ingest

import (
	"github.com/integrity/sanctions-crosscheck/internal/domain"
)

var sanctionAliases = map[string]string{
	"cpf_cnpj":                              "cnpj_cpf",
	"documento":                             "cnpj_cpf",
	"cpf_ou_cnpj_do_sancionado":             "cnpj_cpf",
	"razao_social":                          "name",
	"nome_sancionado":                       "name",
	"nome_informado_pelo_orgao_sancionador": "name",
	"data_inicio_sancao":                    "sanction_start",
	"data_início_sanção":                    "sanction_start",
	"data_fim_sancao":                       "sanction_end",
	"data_final_sanção":                     "sanction_end",
	"tipo_sancao":                           "sanction_type",
	"categoria_sanção":                      "sanction_type",
	"orgao_sancionador":                     "issuing_body",
	"órgão_sancionador":                     "issuing_body",
	"cadastro":                              "source_id",
}

var sanctionRequired = []string{"cnpj_cpf", "name", "sanction_start"}

// LoadSanctions reads a sanction registry export. Rows are kept even when their
// identifier or start date is unusable; the matcher skips those.
func LoadSanctions(path string) ([]domain.SanctionRecord, error) {
	t, err := openTable(path, "sanctions", sanctionAliases, sanctionRequired)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SanctionRecord, 0, len(t.rows))
	for _, row := range t.rows {
		source := t.get(row, "source_id")
		if source == "" {
			source = domain.SourceCEIS
		}
		out = append(out, domain.SanctionRecord{
			Source:        source,
			Identifier:    domain.NormalizeIdentifier(t.get(row, "cnpj_cpf")),
			SubjectName:   t.get(row, "name"),
			SanctionStart: ParseDate(t.get(row, "sanction_start")),
			SanctionEnd:   ParseDate(t.get(row, "sanction_end")),
			SanctionType:  t.get(row, "sanction_type"),
			IssuingBody:   t.get(row, "issuing_body"),
		})
	}
	return out, nil
}
