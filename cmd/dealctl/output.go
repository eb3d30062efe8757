package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"gopkg.in/yaml.v3"

	"dealflow/internal/models"
	"dealflow/internal/pipeline"
	"dealflow/internal/portfolio"
	"dealflow/internal/repository"
	"dealflow/internal/stage"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
)

// Write renders v in the requested format. Text falls back to JSON for
// types without a dedicated renderer.
func Write(w io.Writer, format Format, v any) error {
	switch format {
	case FormatYAML:
		// Round-trip through JSON so yaml keys follow the json tags.
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(b, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	case FormatText:
		if ok, err := writeText(w, v); ok {
			return err
		}
		fallthrough
	default:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
}

func writeText(w io.Writer, v any) (bool, error) {
	switch t := v.(type) {
	case []models.Deal:
		return true, writeDealTable(w, t)
	case *models.Deal:
		return true, writeDealTable(w, []models.Deal{*t})
	case *repository.CompleteDeal:
		return true, writeCompleteDeal(w, t)
	case *pipeline.PipelineResult:
		return true, writePipelineResult(w, t)
	case *portfolio.Insights:
		return true, writeInsights(w, t)
	case *models.Memo:
		return true, RenderMemo(w, t)
	}
	return false, nil
}

func writeDealTable(w io.Writer, deals []models.Deal) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSOURCE\tSTATUS\tCREATED")
	for _, d := range deals {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.SourceKind, d.Status, d.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func writeCompleteDeal(w io.Writer, d *repository.CompleteDeal) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Deal\t%s (%s)\n", d.Deal.Name, d.Deal.ID)
	fmt.Fprintf(tw, "Status\t%s\n", d.Deal.Status)
	if d.Property != nil {
		fmt.Fprintf(tw, "Address\t%s\n", str(d.Property.Address))
		fmt.Fprintf(tw, "Type\t%s\n", str(d.Property.PropertyType))
	}
	if d.Lease != nil {
		fmt.Fprintf(tw, "Tenant\t%s\n", str(d.Lease.TenantName))
		fmt.Fprintf(tw, "Lease end\t%s\n", str(d.Lease.LeaseEnd))
	}
	if d.Enrichment != nil {
		fmt.Fprintf(tw, "Submarket\t%s\n", str(d.Enrichment.Submarket))
		fmt.Fprintf(tw, "Credit tier\t%s\n", str(d.Enrichment.CreditTier))
	}
	if d.Scores != nil {
		fmt.Fprintf(tw, "Overall score\t%.1f\n", d.Scores.Overall)
		if len(d.Scores.RiskFlags) > 0 {
			fmt.Fprintf(tw, "Risk flags\t%s\n", strings.Join(d.Scores.RiskFlags, ", "))
		}
	}
	if d.Financials != nil {
		fmt.Fprintf(tw, "Cap rate\t%s\n", pct(d.Financials.CapRate))
		fmt.Fprintf(tw, "Levered IRR\t%s\n", pct(d.Financials.LeveredIRR))
		fmt.Fprintf(tw, "Min DSCR\t%s\n", num(d.Financials.MinDSCR))
	}
	if d.LatestMemo != nil {
		fmt.Fprintf(tw, "Memo\tv%d %s\n", d.LatestMemo.Version, d.LatestMemo.Recommendation)
	}
	return tw.Flush()
}

func writePipelineResult(w io.Writer, r *pipeline.PipelineResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tOK\tELAPSED\tERROR")
	for _, s := range r.Stages {
		fmt.Fprintf(tw, "%s\t%t\t%dms\t%s\n", s.Stage, s.Succeeded, s.ElapsedMS, s.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nstatus %s, total %dms\n", r.Status, r.TotalElapsedMS)
	if r.FailedStage != "" {
		fmt.Fprintf(w, "failed at %s (%s): %s\n", r.FailedStage, r.ErrorKind, r.Error)
	}
	if r.Memo != nil {
		fmt.Fprintf(w, "recommendation %s (memo v%d)\n", r.Memo.Recommendation, r.Memo.Version)
	}
	return nil
}

func writeInsights(w io.Writer, ins *portfolio.Insights) error {
	fmt.Fprintf(w, "%s\n\n", ins.Summary)
	writeRanking(w, "Top overall", ins.TopOverall)
	writeRanking(w, "Top levered IRR", ins.TopLeveredIRR)
	writeRanking(w, "Top location", ins.TopLocation)
	if len(ins.SystemicRisks) > 0 {
		fmt.Fprintln(w, "Systemic risks")
		for _, r := range ins.SystemicRisks {
			fmt.Fprintf(w, "  - %s\n", r)
		}
		fmt.Fprintln(w)
	}
	c := ins.Concentration
	fmt.Fprintf(w, "Concentration across %d deals\n", c.TotalDeals)
	writeShares(w, "tenants", c.Tenants)
	writeShares(w, "submarkets", c.Submarkets)
	writeShares(w, "credit tiers", c.CreditTiers)
	for _, y := range c.LeaseExpirations {
		fmt.Fprintf(w, "  expiring %d: %d\n", y.Year, y.Count)
	}
	return nil
}

func writeRanking(w io.Writer, title string, rows []stage.DealSummary) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintln(w, title)
	for i, r := range rows {
		fmt.Fprintf(w, "  %d. %s (%s)\n", i+1, r.Name, r.DealID)
	}
	fmt.Fprintln(w)
}

func writeShares(w io.Writer, label string, shares []stage.Share) {
	for _, s := range shares {
		fmt.Fprintf(w, "  %s %s: %d (%s)\n", label, s.Key, s.Count, strconv.FormatFloat(s.Share*100, 'f', 1, 64)+"%")
	}
}

// RenderMemo renders the memo markdown for a terminal.
func RenderMemo(w io.Writer, m *models.Memo) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	header := fmt.Sprintf("# Memo v%d\n\n_Recommendation: %s_\n\n", m.Version, m.Recommendation)
	out, err := r.Render(header + m.Body)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func str(p *string) string {
	if p == nil {
		return "-"
	}
	return *p
}

func pct(p *float64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatFloat(*p*100, 'f', 2, 64) + "%"
}

func num(p *float64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatFloat(*p, 'f', 2, 64)
}
