package narrator

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sideffect263/netviz-backend/internal/models"
)

// Thought buffers shorter than this are not mined for insights, unless the
// agent closed with a final answer, which lowers the bar.
const (
	insightMinLen     = 150
	finalAnswerMinLen = 40
)

var actionLineMarkers = []string{"thought:", "observation:", "analysis:"}

var (
	jsonFenceRe    = regexp.MustCompile("(?s)```json\\s*|```")
	finalAnswerRe  = regexp.MustCompile(`(?s)\{\s*"action"\s*:\s*"Final Answer"\s*,\s*"action_input"\s*:\s*"(.*?)"\s*\}`)
	finalAnswerTag = "final answer"
)

// Narrate derives the analysis feed from the full event sequence. It is a
// pure function of the sequence: recomputing over the same events yields the
// same entries, except for insight/summary timestamps which are stamped at
// derivation time.
func Narrate(events []models.Event) []models.AnalysisEntry {
	entries := make([]models.AnalysisEntry, 0, len(events))
	var thought strings.Builder

	for _, ev := range events {
		switch ev.Type {
		case models.EventLLMStart:
			thought.Reset()
			thought.WriteString(ev.Content)

		case models.EventLLMToken:
			thought.WriteString(ev.Content)

		case models.EventAgentAction:
			entries = append(entries, actionEntries(ev)...)

		case models.EventToolStart:
			entries = append(entries, models.AnalysisEntry{
				Timestamp: ev.Timestamp,
				Type:      models.AnalysisToolAnalysis,
				Content:   fmt.Sprintf("Running %s against the target to gather information.", ev.ToolName),
				ToolName:  ev.ToolName,
			})

		case models.EventToolEnd:
			output := ev.OutputText()
			if output == "" {
				continue
			}
			entries = append(entries, models.AnalysisEntry{
				Timestamp: ev.Timestamp,
				Type:      models.AnalysisResultAnalysis,
				Content:   decodeToolOutput(ev.ToolName, output).render(),
				ToolName:  ev.ToolName,
			})
		}
	}

	entries = append(entries, closingEntries(thought.String())...)
	return entries
}

// actionEntries extracts reasoning and observation lines from an agent
// action log. Lines without a recognized marker are skipped silently.
func actionEntries(ev models.Event) []models.AnalysisEntry {
	if ev.Log == "" {
		return nil
	}

	var out []models.AnalysisEntry
	for _, line := range strings.Split(ev.Log, "\n") {
		lower := strings.ToLower(line)

		marker := ""
		idx := -1
		for _, m := range actionLineMarkers {
			if i := strings.Index(lower, m); i >= 0 && (idx < 0 || i < idx) {
				marker, idx = m, i
			}
		}
		if idx < 0 {
			continue
		}

		entryType := models.AnalysisReasoning
		if strings.Contains(lower, "observation") {
			entryType = models.AnalysisObservation
		}

		content := strings.TrimSpace(line[idx+len(marker):])
		if content == "" {
			continue
		}

		out = append(out, models.AnalysisEntry{
			Timestamp: ev.Timestamp,
			Type:      entryType,
			Content:   content,
		})
	}
	return out
}

// closingEntries mines the accumulated thought buffer for keyword insights
// once the full pass is done, falling back to a cleaned-up summary when no
// keyword matched.
func closingEntries(thought string) []models.AnalysisEntry {
	trimmed := strings.TrimSpace(thought)
	if trimmed == "" {
		return nil
	}

	lower := strings.ToLower(trimmed)
	minLen := insightMinLen
	if strings.Contains(lower, finalAnswerTag) {
		minLen = finalAnswerMinLen
	}
	if len(trimmed) < minLen {
		return nil
	}

	now := time.Now()
	var out []models.AnalysisEntry
	insight := func(content string) {
		out = append(out, models.AnalysisEntry{
			Timestamp: now,
			Type:      models.AnalysisInsight,
			Content:   content,
		})
	}

	if strings.Contains(lower, "vulnerabilit") {
		insight("Potential vulnerabilities were identified during the analysis; review the findings and verify exploitability before acting on them.")
	}
	if strings.Contains(lower, "port") && strings.Contains(lower, "scan") {
		insight("Port scanning activity mapped the target's exposed surface; the open ports listed are the primary avenues for further enumeration.")
	}
	if strings.Contains(lower, "service") {
		insight("Service enumeration revealed software running on the target; version information should be checked against known advisories.")
	}
	if strings.Contains(lower, "target") || strings.Contains(lower, "host") {
		insight("Reconnaissance gathered baseline intelligence about the target host; subsequent phases can build on this footprint.")
	}

	if len(out) == 0 && (strings.Contains(lower, "summary") || strings.Contains(lower, "overall")) && len(trimmed) >= insightMinLen {
		insight("The agent produced an overall assessment of the engagement so far; see the summary for details.")
	}

	if len(out) == 0 {
		out = append(out, models.AnalysisEntry{
			Timestamp: now,
			Type:      models.AnalysisSummary,
			Content:   cleanSummary(trimmed),
		})
	}

	return out
}

// cleanSummary strips code-fence markers and unwraps the agent's final
// answer JSON envelope so the feed shows plain prose.
func cleanSummary(s string) string {
	if m := finalAnswerRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = jsonFenceRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
