package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"dealflow/internal/pipeline"
)

type stageInputFlags struct {
	inputFile     string
	documentFile  string
	purchasePrice float64
	ltv           float64
	interestRate  float64
	exitCapRate   float64
	holdYears     int
}

func (f *stageInputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.inputFile, "input", "f", "", "stage input file (yaml or json) with document, manual_data, purchase_price, assumptions")
	cmd.Flags().StringVar(&f.documentFile, "document", "", "plain-text offering memorandum or lease abstract to ingest")
	cmd.Flags().Float64Var(&f.purchasePrice, "purchase-price", 0, "purchase price override")
	cmd.Flags().Float64Var(&f.ltv, "ltv", 0, "loan-to-value, e.g. 0.6")
	cmd.Flags().Float64Var(&f.interestRate, "interest-rate", 0, "annual interest rate, e.g. 0.065")
	cmd.Flags().Float64Var(&f.exitCapRate, "exit-cap-rate", 0, "exit cap rate, e.g. 0.07")
	cmd.Flags().IntVar(&f.holdYears, "hold-years", 0, "hold period in years")
}

// build merges the input file with the individual flags; flags win.
func (f *stageInputFlags) build(cmd *cobra.Command) (pipeline.StageInput, error) {
	var in pipeline.StageInput
	if f.inputFile != "" {
		loaded, err := readStageInput(f.inputFile)
		if err != nil {
			return in, err
		}
		in = loaded
	}
	if f.documentFile != "" {
		b, err := os.ReadFile(f.documentFile)
		if err != nil {
			return in, fmt.Errorf("read document: %w", err)
		}
		in.Document = string(b)
	}
	if cmd.Flags().Changed("purchase-price") {
		v := f.purchasePrice
		in.PurchasePrice = &v
	}
	if cmd.Flags().Changed("ltv") {
		v := f.ltv
		in.Assumptions.LTV = &v
	}
	if cmd.Flags().Changed("interest-rate") {
		v := f.interestRate
		in.Assumptions.InterestRate = &v
	}
	if cmd.Flags().Changed("exit-cap-rate") {
		v := f.exitCapRate
		in.Assumptions.ExitCapRate = &v
	}
	if cmd.Flags().Changed("hold-years") {
		v := f.holdYears
		in.Assumptions.HoldYears = &v
	}
	return in, nil
}

// readStageInput accepts yaml or json; json is valid yaml so one decoder
// covers both.
func readStageInput(path string) (pipeline.StageInput, error) {
	var in pipeline.StageInput
	b, err := os.ReadFile(path)
	if err != nil {
		return in, fmt.Errorf("read input: %w", err)
	}
	var generic any
	if err := yaml.Unmarshal(b, &generic); err != nil {
		return in, fmt.Errorf("parse input %s: %w", path, err)
	}
	raw, err := json.Marshal(generic)
	if err != nil {
		return in, fmt.Errorf("parse input %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return in, fmt.Errorf("parse input %s: %w", path, err)
	}
	return in, nil
}
