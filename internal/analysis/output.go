package analysis

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/integrity/sanctions-crosscheck/internal/domain"
)

// Output file names written by WriteOutputs
const (
	FlaggedFileName = "contracts_during_sanction.csv"
	SummaryFileName = "summary.json"
)

var flaggedHeader = []string{
	"doc_key",
	"supplier_name",
	"contract_number",
	"contract_date",
	"contract_value",
	"organ",
	"name",
	"sanction_source",
	"sanction_type",
	"sanction_start",
	"sanction_end",
	"status",
	"severity",
}

// Summary is the JSON document written next to the flagged CSV
type Summary struct {
	RunID               string           `json:"run_id"`
	SanctionsRows       int              `json:"sanctions_rows"`
	ContractsRows       int              `json:"contracts_rows"`
	FlaggedRows         int              `json:"flagged_rows"`
	TotalContractsValue decimal.Decimal  `json:"total_contracts_value"`
	FlaggedTotalValue   decimal.Decimal  `json:"flagged_total_value"`
	PercentFlagged      decimal.Decimal  `json:"percent_flagged"`
	Patterns            []domain.Pattern `json:"patterns"`
	OutputCSV           string           `json:"output_csv"`
	StartedAt           time.Time        `json:"started_at"`
	CompletedAt         time.Time        `json:"completed_at"`
}

// NewSummary builds the summary document for a run
func NewSummary(run *domain.AnalysisRun, csvPath string) Summary {
	patterns := run.Patterns
	if patterns == nil {
		patterns = []domain.Pattern{}
	}
	return Summary{
		RunID:               run.ID.String(),
		SanctionsRows:       run.Summary.SanctionsCount,
		ContractsRows:       run.Summary.ContractsCount,
		FlaggedRows:         run.Summary.FlaggedCount,
		TotalContractsValue: run.Summary.TotalContractsValue,
		FlaggedTotalValue:   run.Summary.TotalFlaggedValue,
		PercentFlagged:      run.Summary.PercentFlagged,
		Patterns:            patterns,
		OutputCSV:           csvPath,
		StartedAt:           run.StartedAt,
		CompletedAt:         run.CompletedAt,
	}
}

// WriteOutputs writes the flagged pairs CSV and the summary JSON into dir,
// creating it if needed. It returns the summary that was written.
func WriteOutputs(dir string, run *domain.AnalysisRun) (Summary, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create output dir: %w", err)
	}

	csvPath := filepath.Join(dir, FlaggedFileName)
	if err := writeFlagged(csvPath, run.Summary.Flagged); err != nil {
		return Summary{}, err
	}

	summary := NewSummary(run, csvPath)
	body, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return Summary{}, fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, SummaryFileName), append(body, '\n'), 0o644); err != nil {
		return Summary{}, fmt.Errorf("write summary: %w", err)
	}
	return summary, nil
}

func writeFlagged(path string, pairs []domain.FlaggedPair) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(flaggedHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range pairs {
		if err := w.Write(flaggedRow(p)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

func flaggedRow(p domain.FlaggedPair) []string {
	value := ""
	if p.Contract.Value != nil {
		value = p.Contract.Value.StringFixed(2)
	}
	return []string{
		string(p.Contract.Identifier),
		p.Contract.PartyName,
		p.Contract.ContractNumber,
		formatDate(p.Contract.SignedDate),
		value,
		p.Contract.ContractingBody,
		p.Sanction.SubjectName,
		p.Sanction.Source,
		p.Sanction.SanctionType,
		formatDate(p.Sanction.SanctionStart),
		formatDate(p.Sanction.SanctionEnd),
		p.Status,
		string(p.Severity),
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
