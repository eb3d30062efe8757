package prompt

import (
	"strings"
	"testing"
)

func TestRender_StringPayloadAppendedVerbatim(t *testing.T) {
	doc := "Tenant: Acme\nRent: $41,667/mo"
	out, err := Render(StageParse, doc)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !strings.HasPrefix(out, "PROPERTY EXTRACTION") {
		t.Fatalf("missing header: %q", out[:40])
	}
	if !strings.HasSuffix(out, "\n\n"+doc) {
		t.Fatalf("payload not appended verbatim")
	}
}

func TestRender_StructuredPayloadIndentedJSON(t *testing.T) {
	payload := map[string]any{"address": "1 Main St", "building_sqft": 100000}
	out, err := Render(StageEnrich, payload)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !strings.Contains(out, "{\n  \"address\": \"1 Main St\",\n  \"building_sqft\": 100000\n}") {
		t.Fatalf("payload not indented json:\n%s", out)
	}
}

func TestRender_EveryStageHasDistinctTemplate(t *testing.T) {
	seen := map[string]Stage{}
	for _, st := range Stages() {
		out, err := Render(st, "")
		if err != nil {
			t.Fatalf("stage=%s err=%v", st, err)
		}
		header := strings.SplitN(out, "\n", 2)[0]
		if prev, ok := seen[header]; ok {
			t.Fatalf("stage %s shares header with %s", st, prev)
		}
		seen[header] = st
		if RoleHint(st) == "" {
			t.Fatalf("stage %s has no role hint", st)
		}
	}
	if len(seen) != 6 {
		t.Fatalf("stages=%d want 6", len(seen))
	}
}

func TestRender_UnknownStage(t *testing.T) {
	if _, err := Render(Stage("bogus"), "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRender_PortfolioStatesDimensions(t *testing.T) {
	out, err := Render(StagePortfolio, map[string]any{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	for _, dim := range []string{"tenant concentration", "geographic concentration", "lease expiration clustering", "credit quality distribution"} {
		if !strings.Contains(out, dim) {
			t.Fatalf("missing dimension %q", dim)
		}
	}
}
