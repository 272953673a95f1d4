package report

import (
	"encoding/json"
	"io"

	"github.com/upsift/upsift/internal/types"
)

type sarif struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool        `json:"tool"`
	AutomationDetails *sarifAutomation `json:"automationDetails,omitempty"`
	Results           []sarifResult    `json:"results"`
	Properties        map[string]any   `json:"properties,omitempty"`
}

type sarifAutomation struct {
	ID string `json:"id"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	Name             string       `json:"name,omitempty"`
	ShortDescription sarifMessage `json:"shortDescription"`
	HelpURI          string       `json:"helpUri,omitempty"`
}

type sarifResult struct {
	RuleID     string         `json:"ruleId"`
	RuleIndex  int            `json:"ruleIndex"`
	Level      string         `json:"level"`
	Message    sarifMessage   `json:"message"`
	Properties map[string]any `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

func sevToLevel(s types.Severity) string {
	switch s {
	case types.SevCritical, types.SevHigh:
		return "error"
	case types.SevMed:
		return "warning"
	default:
		return "note"
	}
}

// SARIFMeta describes the run a SARIF log belongs to.
type SARIFMeta struct {
	ToolVersion string
	RunID       string
	// RuleNames maps check ids to display names.
	RuleNames map[string]string
	Stats     map[string]int
}

// WriteSARIF writes findings as SARIF 2.1.0. Host findings have no source
// location, so each result carries severity and evidence as properties.
func WriteSARIF(w io.Writer, findings []types.Finding, meta SARIFMeta) error {
	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:           "upsift",
			Version:        meta.ToolVersion,
			InformationURI: "https://github.com/upsift/upsift",
			Rules:          []sarifRule{},
		}},
		Results: []sarifResult{},
	}
	if meta.RunID != "" {
		run.AutomationDetails = &sarifAutomation{ID: "upsift/" + meta.RunID}
	}
	if len(meta.Stats) > 0 {
		run.Properties = map[string]any{}
		for k, v := range meta.Stats {
			run.Properties[k] = v
		}
	}

	ruleIdx := map[string]int{}
	for _, f := range findings {
		idx, ok := ruleIdx[f.ID]
		if !ok {
			idx = len(run.Tool.Driver.Rules)
			ruleIdx[f.ID] = idx
			rule := sarifRule{ID: f.ID, Name: meta.RuleNames[f.ID], ShortDescription: sarifMessage{Text: f.Description}}
			if len(f.References) > 0 {
				rule.HelpURI = f.References[0]
			}
			run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, rule)
		}
		props := map[string]any{"severity": string(f.Severity)}
		if f.Evidence != nil {
			props["evidence"] = *f.Evidence
		}
		if f.Remediation != nil {
			props["remediation"] = *f.Remediation
		}
		run.Results = append(run.Results, sarifResult{
			RuleID:     f.ID,
			RuleIndex:  idx,
			Level:      sevToLevel(f.Severity),
			Message:    sarifMessage{Text: f.Title},
			Properties: props,
		})
	}

	doc := sarif{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs:    []sarifRun{run},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
