package narrator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sideffect263/netviz-backend/internal/models"
)

func event(t models.EventType, at time.Time) models.Event {
	return models.Event{Type: t, SessionID: "s1", Timestamp: at}
}

func textOutput(s string) json.RawMessage {
	raw, _ := json.Marshal(s)
	return raw
}

func TestNarrate_ToolStartEmitsToolAnalysis(t *testing.T) {
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	ev := event(models.EventToolStart, at)
	ev.ToolName = "NmapScanner"

	entries := Narrate([]models.Event{ev})

	require.Len(t, entries, 1)
	assert.Equal(t, models.AnalysisToolAnalysis, entries[0].Type)
	assert.Equal(t, "NmapScanner", entries[0].ToolName)
	assert.Contains(t, entries[0].Content, "NmapScanner")
	assert.Equal(t, at, entries[0].Timestamp)
}

func TestNarrate_AgentActionLines(t *testing.T) {
	ev := event(models.EventAgentAction, time.Now())
	ev.Log = "Thought: the host looks alive\nsome unrelated line\nObservation: port 22 answered\nAnalysis: ssh is exposed"

	entries := Narrate([]models.Event{ev})

	require.Len(t, entries, 3)
	assert.Equal(t, models.AnalysisReasoning, entries[0].Type)
	assert.Equal(t, "the host looks alive", entries[0].Content)
	assert.Equal(t, models.AnalysisObservation, entries[1].Type)
	assert.Equal(t, "port 22 answered", entries[1].Content)
	assert.Equal(t, models.AnalysisReasoning, entries[2].Type)
	assert.Equal(t, "ssh is exposed", entries[2].Content)
}

func TestNarrate_PortScanResultTemplate(t *testing.T) {
	ev := event(models.EventToolEnd, time.Now())
	ev.ToolName = "NmapScanner"
	ev.Output = textOutput("PORT   STATE\n22/tcp open ssh\n80/tcp open http\n443/tcp closed https\n")

	entries := Narrate([]models.Event{ev})

	require.Len(t, entries, 1)
	assert.Equal(t, models.AnalysisResultAnalysis, entries[0].Type)
	assert.Contains(t, entries[0].Content, "2 open")
	assert.Contains(t, entries[0].Content, "1 closed")
	assert.Contains(t, entries[0].Content, "attack surface")
}

func TestNarrate_PortScanNoOpenPorts(t *testing.T) {
	ev := event(models.EventToolEnd, time.Now())
	ev.ToolName = "port_scanner"
	ev.Output = textOutput("22/tcp closed ssh\n80/tcp closed http\n")

	entries := Narrate([]models.Event{ev})

	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Content, "0 open")
	assert.Contains(t, entries[0].Content, "filtered or unreachable")
}

func TestNarrate_PermutationTemplate(t *testing.T) {
	ev := event(models.EventToolEnd, time.Now())
	ev.ToolName = "dnstwist"
	ev.Output = textOutput("homoglyph examp1e.com\nhomoglyph exarnple.com\ninsertion examnple.com\n")

	entries := Narrate([]models.Event{ev})

	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Content, "2 homoglyph")
	assert.Contains(t, entries[0].Content, "1 insertion")
}

func TestNarrate_WhoisAndGenericTemplates(t *testing.T) {
	whois := event(models.EventToolEnd, time.Now())
	whois.ToolName = "WhoisLookup"
	whois.Output = textOutput("Registrar: Example Registrar Inc.")

	generic := event(models.EventToolEnd, time.Now())
	generic.ToolName = "ShodanQuery"
	generic.Output = textOutput("{}")

	entries := Narrate([]models.Event{whois, generic})

	require.Len(t, entries, 2)
	assert.Contains(t, entries[0].Content, "WHOIS")
	assert.Equal(t, "ShodanQuery execution completed.", entries[1].Content)
}

func TestNarrate_ToolEndWithoutOutputIsSilent(t *testing.T) {
	ev := event(models.EventToolEnd, time.Now())
	ev.ToolName = "NmapScanner"

	assert.Empty(t, Narrate([]models.Event{ev}))
}

// Structured output must not break the templates: unexpected shapes degrade
// to the generic sentence instead of failing.
func TestNarrate_StructuredOutputDoesNotFail(t *testing.T) {
	ev := event(models.EventToolEnd, time.Now())
	ev.ToolName = "CustomProbe"
	ev.Output = json.RawMessage(`{"hosts": [{"ip": "10.0.0.1"}], "count": 1}`)

	entries := Narrate([]models.Event{ev})
	require.Len(t, entries, 1)
	assert.Equal(t, "CustomProbe execution completed.", entries[0].Content)
}

func tokens(parts ...string) []models.Event {
	out := make([]models.Event, 0, len(parts))
	for _, p := range parts {
		ev := event(models.EventLLMToken, time.Now())
		ev.Content = p
		out = append(out, ev)
	}
	return out
}

func TestNarrate_VulnerabilityInsight(t *testing.T) {
	events := tokens(
		"After reviewing the scan results for the target host, ",
		"several potential vulnerabilities stand out in the exposed services, ",
		"especially the outdated version strings reported on the open ports of this scan.",
	)

	entries := Narrate(events)

	require.NotEmpty(t, entries)
	types := make(map[models.AnalysisType]int)
	for _, e := range entries {
		types[e.Type]++
	}
	assert.GreaterOrEqual(t, types[models.AnalysisInsight], 1)
	assert.Zero(t, types[models.AnalysisSummary], "insights suppress the summary entry")
}

func TestNarrate_ShortThoughtBufferIsIgnored(t *testing.T) {
	entries := Narrate(tokens("too short to matter"))
	assert.Empty(t, entries)
}

func TestNarrate_SummaryFallbackStripsWrappers(t *testing.T) {
	content := "```json\n{\"action\": \"Final Answer\", \"action_input\": \"Recon finished. The findings are written up above.\"}\n```"
	events := tokens(content)

	entries := Narrate(events)

	require.Len(t, entries, 1)
	assert.Equal(t, models.AnalysisSummary, entries[0].Type)
	assert.Equal(t, "Recon finished. The findings are written up above.", entries[0].Content)
}

func TestNarrate_LLMStartResetsThoughtBuffer(t *testing.T) {
	start := event(models.EventLLMStart, time.Now())
	start.Content = "fresh thought"
	events := append(tokens("a very long buffer that would otherwise trigger insight extraction because it mentions vulnerability findings on the scanned ports of the target"), start)

	entries := Narrate(events)
	assert.Empty(t, entries, "llm_start discards the accumulated buffer")
}

func TestNarrate_DeterministicAcrossRuns(t *testing.T) {
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	toolStart := event(models.EventToolStart, at)
	toolStart.ToolName = "NmapScanner"
	toolEnd := event(models.EventToolEnd, at.Add(time.Minute))
	toolEnd.ToolName = "NmapScanner"
	toolEnd.Output = textOutput("22/tcp open ssh")
	action := event(models.EventAgentAction, at.Add(2*time.Minute))
	action.Log = "Thought: done here"

	events := []models.Event{toolStart, toolEnd, action}

	first := Narrate(events)
	second := Narrate(events)
	assert.Equal(t, first, second)
}
