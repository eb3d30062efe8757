package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"dealflow/internal/models"
	"dealflow/internal/pipeline"
)

func TestWrite_YAMLUsesJSONKeys(t *testing.T) {
	var buf bytes.Buffer
	res := &pipeline.PipelineResult{DealID: "d1", Status: models.DealStatusEnriched, FailedStage: pipeline.StageUnderwrite}
	require.NoError(t, Write(&buf, FormatYAML, res))
	require.Contains(t, buf.String(), "deal_id: d1")
	require.Contains(t, buf.String(), "failed_stage: underwrite")
}

func TestWrite_TextDealTable(t *testing.T) {
	var buf bytes.Buffer
	deals := []models.Deal{{ID: "d1", Name: "Dallas DC", SourceKind: models.SourceDocument, Status: models.DealStatusDraft}}
	require.NoError(t, Write(&buf, FormatText, deals))
	require.Contains(t, buf.String(), "Dallas DC")
	require.Contains(t, buf.String(), "draft")
}

func TestPickMemo(t *testing.T) {
	memos := []models.Memo{{Version: 3}, {Version: 2}, {Version: 1}}
	m, err := pickMemo(memos, 0)
	require.NoError(t, err)
	require.Equal(t, 3, m.Version)

	m, err = pickMemo(memos, 2)
	require.NoError(t, err)
	require.Equal(t, 2, m.Version)

	_, err = pickMemo(memos, 9)
	require.Error(t, err)
	_, err = pickMemo(nil, 0)
	require.Error(t, err)
}

func TestReadStageInput_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.yaml")
	body := `document: |
  Single-tenant industrial, 250,000 SF.
purchase_price: 8000000
assumptions:
  ltv: 0.6
  hold_period_years: 7
manual_data:
  tenant_name: Acme
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	in, err := readStageInput(path)
	require.NoError(t, err)
	require.Contains(t, in.Document, "250,000 SF")
	require.NotNil(t, in.PurchasePrice)
	require.InDelta(t, 8000000, *in.PurchasePrice, 0.001)
	require.NotNil(t, in.Assumptions.LTV)
	require.InDelta(t, 0.6, *in.Assumptions.LTV, 1e-9)
	require.NotNil(t, in.Assumptions.HoldYears)
	require.Equal(t, 7, *in.Assumptions.HoldYears)
	require.NotNil(t, in.Manual)
	require.NotNil(t, in.Manual.TenantName)
	require.Equal(t, "Acme", *in.Manual.TenantName)
}
