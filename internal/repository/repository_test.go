package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integrity/sanctions-crosscheck/internal/config"
	"github.com/integrity/sanctions-crosscheck/internal/domain"
)

func TestSchemaIsEmbedded(t *testing.T) {
	for _, table := range []string{"analysis_runs", "flagged_contracts", "integrity_alerts"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table)
	}
}

// testRepository connects to CROSSCHECK_TEST_DATABASE_URL or skips
func testRepository(t *testing.T) *Repository {
	t.Helper()
	dsn := os.Getenv("CROSSCHECK_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CROSSCHECK_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	poolCfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	repo, err := ConnectConfig(ctx, poolCfg)
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Migrate(ctx), "migrations are idempotent")
	return repo
}

func sampleRun() *domain.AnalysisRun {
	runID := uuid.New()
	contract := domain.ContractRecord{
		Source:          domain.SourceContracts,
		Identifier:      "12345678000190",
		PartyName:       "Empresa A",
		SignedDate:      domain.DatePtr(2023, 6, 1),
		Value:           domain.Amount(250000),
		ContractNumber:  "CT-1",
		ContractingBody: "Ministério X",
	}
	sanction := domain.SanctionRecord{
		Source:        domain.SourceCEIS,
		Identifier:    "12345678000190",
		SubjectName:   "Empresa A",
		SanctionStart: domain.DatePtr(2023, 1, 1),
		SanctionType:  "Impedimento",
	}
	pair := domain.NewFlaggedPair(contract, sanction)
	pattern := domain.Pattern{
		Kind:        domain.PatternHighValue,
		Severity:    domain.RiskLevelCritical,
		Description: "high value",
		Identifier:  "12345678000190",
		EntityName:  "Empresa A",
		Count:       1,
		Value:       pair.Value(),
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.AnalysisRun{
		ID:            runID,
		SanctionsPath: "sanctions.csv",
		ContractsPath: "contracts.csv",
		Summary: domain.AnalysisSummary{
			SanctionsCount:      1,
			ContractsCount:      1,
			FlaggedCount:        1,
			TotalContractsValue: pair.Value(),
			TotalFlaggedValue:   pair.Value(),
			PercentFlagged:      decimal.NewFromInt(100),
			Flagged:             []domain.FlaggedPair{pair},
		},
		Patterns:    []domain.Pattern{pattern},
		Alerts:      []domain.IntegrityAlert{domain.NewAlertFromPattern(runID, pattern, now)},
		StartedAt:   now.Add(-time.Second),
		CompletedAt: now,
	}
}

func TestRepository_SaveAndReview(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	run := sampleRun()
	require.NoError(t, repo.SaveAnalysis(ctx, run))
	alertID := run.Alerts[0].ID

	alerts, err := repo.ListAlerts(ctx, true)
	require.NoError(t, err)
	var found *domain.IntegrityAlert
	for i := range alerts {
		if alerts[i].ID == alertID {
			found = &alerts[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, run.ID, found.RunID)
	assert.Equal(t, domain.PatternHighValue, found.PatternKind)
	assert.True(t, found.Pattern.Value.Equal(run.Patterns[0].Value))
	assert.False(t, found.Reviewed)

	require.NoError(t, repo.MarkReviewed(ctx, alertID))
	require.NoError(t, repo.MarkReviewed(ctx, alertID))

	alerts, err = repo.ListAlerts(ctx, true)
	require.NoError(t, err)
	for _, a := range alerts {
		assert.NotEqual(t, alertID, a.ID)
	}

	alerts, err = repo.ListAlerts(ctx, false)
	require.NoError(t, err)
	for _, a := range alerts {
		if a.ID == alertID {
			assert.True(t, a.Reviewed)
			assert.NotNil(t, a.ReviewedAt)
		}
	}
}

func TestRepository_MarkReviewedUnknown(t *testing.T) {
	repo := testRepository(t)
	err := repo.MarkReviewed(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConnect_InvalidDSN(t *testing.T) {
	_, err := Connect(context.Background(), config.DatabaseConfig{Host: "localhost", Port: 5432, SSLMode: "bogus"})
	assert.Error(t, err)
}
