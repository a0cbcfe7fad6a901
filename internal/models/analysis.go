package models

import "time"

type AnalysisType string

const (
	AnalysisReasoning      AnalysisType = "reasoning"
	AnalysisObservation    AnalysisType = "observation"
	AnalysisToolAnalysis   AnalysisType = "tool_analysis"
	AnalysisResultAnalysis AnalysisType = "result_analysis"
	AnalysisInsight        AnalysisType = "insight"
	AnalysisSummary        AnalysisType = "summary"
)

// AnalysisEntry is one line of the narrated analysis feed.
type AnalysisEntry struct {
	Timestamp time.Time    `json:"timestamp"`
	Type      AnalysisType `json:"type"`
	Content   string       `json:"content"`
	ToolName  string       `json:"toolName,omitempty"`
}
