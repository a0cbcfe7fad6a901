package intel

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sideffect263/netviz-backend/internal/models"
)

// serviceRiskTiers classifies well-known services. Anything not listed is
// low risk.
var serviceRiskTiers = map[string]models.RiskLevel{
	"ssh":        models.RiskHigh,
	"rdp":        models.RiskHigh,
	"telnet":     models.RiskHigh,
	"ftp":        models.RiskHigh,
	"mysql":      models.RiskHigh,
	"postgresql": models.RiskHigh,
	"smb":        models.RiskHigh,
	"http":       models.RiskMedium,
	"https":      models.RiskMedium,
	"smtp":       models.RiskMedium,
	"dns":        models.RiskMedium,
	"snmp":       models.RiskMedium,
}

var openServiceRe = regexp.MustCompile(`(\d+)/tcp\s+open\s+(\S+)`)

const highRiskScoreFloor = 70

// Engine rebuilds the target knowledge base from the transcript. Analyze is
// a pure function of the messages: it carries no state between calls, the
// cost of the full rescan being accepted at the scale of one interactive
// session.
type Engine struct {
	rec Recognizer
}

func NewEngine() *Engine {
	return &Engine{rec: NewRecognizer()}
}

// NewEngineWithRecognizer substitutes the entity recognizer, keeping the
// aggregation rules.
func NewEngineWithRecognizer(rec Recognizer) *Engine {
	return &Engine{rec: rec}
}

// Analyze runs the extraction and update rules over every message in order
// and returns the resulting snapshot, targets sorted by risk score descending.
func (e *Engine) Analyze(messages []models.Message) *models.IntelSnapshot {
	targets := make(map[string]*models.Target)
	var order []string

	snap := &models.IntelSnapshot{
		ExploitAttempts: []models.ExploitAttempt{},
		Methodology:     models.NewMethodology(),
		CurrentPhase:    models.PhaseReconnaissance,
	}

	for _, msg := range messages {
		for _, entity := range e.rec.Extract(msg.Content) {
			t, ok := targets[entity.Value]
			if !ok {
				t = &models.Target{
					Key:             entity.Value,
					Type:            entity.Type,
					Status:          models.StatusDiscovered,
					Phase:           models.PhaseReconnaissance,
					Services:        []models.Service{},
					ExploitAttempts: []models.ExploitAttempt{},
					FirstSeen:       msg.Timestamp,
				}
				targets[entity.Value] = t
				order = append(order, entity.Value)
			}

			e.applyMessage(snap, t, msg)
		}
	}

	for _, key := range order {
		snap.Targets = append(snap.Targets, targets[key])
	}
	sort.SliceStable(snap.Targets, func(i, j int) bool {
		return snap.Targets[i].RiskScore > snap.Targets[j].RiskScore
	})

	snap.CurrentPhase = currentPhase(snap.Methodology)
	snap.Stats = stats(snap)
	return snap
}

// applyMessage runs the per-mention update rules for one target against one
// message, in their fixed order.
func (e *Engine) applyMessage(snap *models.IntelSnapshot, t *models.Target, msg models.Message) {
	lower := strings.ToLower(msg.Content)
	t.LastActivity = msg.Timestamp

	if msg.Role == models.RoleUser && strings.Contains(lower, "scan") {
		t.Status = models.StatusScanning
		t.Phase = models.PhaseEnumeration
		snap.CurrentlyScanning = t.Key

		recordActivity(snap.Methodology, models.PhaseReconnaissance, fmt.Sprintf("Initiated scan of %s", t.Key))
		snap.Methodology[models.PhaseReconnaissance].Completed = true
		recordActivity(snap.Methodology, models.PhaseEnumeration, fmt.Sprintf("Port and service enumeration of %s", t.Key))
	}

	if msg.Role == models.RoleAssistant && strings.Contains(lower, "port") && strings.Contains(lower, "open") {
		t.Status = models.StatusAnalyzed

		for _, m := range openServiceRe.FindAllStringSubmatch(msg.Content, -1) {
			port, err := strconv.Atoi(m[1])
			if err != nil || hasPort(t, port) {
				continue
			}
			t.Services = append(t.Services, models.Service{
				Port:      port,
				Service:   m[2],
				RiskLevel: serviceRisk(m[2]),
				Status:    "open",
			})
		}

		snap.Methodology[models.PhaseEnumeration].Completed = true
		recordActivity(snap.Methodology, models.PhaseVulnerabilityAssessment, fmt.Sprintf("Reviewed exposed services on %s", t.Key))
	}

	if strings.Contains(lower, "exploit") || strings.Contains(lower, "metasploit") {
		t.Phase = models.PhaseExploitation
		snap.Methodology[models.PhaseVulnerabilityAssessment].Completed = true
		recordActivity(snap.Methodology, models.PhaseExploitation, fmt.Sprintf("Exploit attempt against %s", t.Key))

		attempt := models.ExploitAttempt{
			Timestamp:   msg.Timestamp,
			Type:        "exploit",
			Description: truncate(msg.Content, 100) + "...",
			Status:      "attempted",
			Tool:        exploitTool(lower),
		}
		t.ExploitAttempts = append(t.ExploitAttempts, attempt)
		snap.ExploitAttempts = append(snap.ExploitAttempts, attempt)
	}

	t.RiskScore = riskScore(t)
}

func recordActivity(m models.Methodology, phase models.Phase, activity string) {
	m[phase].Activities = append(m[phase].Activities, activity)
}

func hasPort(t *models.Target, port int) bool {
	for _, svc := range t.Services {
		if svc.Port == port {
			return true
		}
	}
	return false
}

func serviceRisk(name string) models.RiskLevel {
	if tier, ok := serviceRiskTiers[strings.ToLower(name)]; ok {
		return tier
	}
	return models.RiskLow
}

func exploitTool(lowerText string) string {
	if strings.Contains(lowerText, "metasploit") {
		return "metasploit"
	}
	return "custom"
}

// truncate cuts on a rune boundary so a multi-byte character straddling the
// limit never yields invalid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// riskScore is the bounded heuristic: 5 points per service, a tier bonus per
// service (25 high, 15 medium, 5 low) and 10 per exploit attempt, capped at
// 100.
func riskScore(t *models.Target) int {
	score := 5 * len(t.Services)
	for _, svc := range t.Services {
		switch svc.RiskLevel {
		case models.RiskHigh:
			score += 25
		case models.RiskMedium:
			score += 15
		default:
			score += 5
		}
	}
	score += 10 * len(t.ExploitAttempts)

	if score > 100 {
		return 100
	}
	return score
}

// currentPhase picks the highest-order phase with recorded activity,
// defaulting to reconnaissance.
func currentPhase(m models.Methodology) models.Phase {
	for _, phase := range []models.Phase{
		models.PhaseExploitation,
		models.PhaseVulnerabilityAssessment,
		models.PhaseEnumeration,
	} {
		if len(m[phase].Activities) > 0 {
			return phase
		}
	}
	return models.PhaseReconnaissance
}

func stats(snap *models.IntelSnapshot) models.IntelStats {
	s := models.IntelStats{
		TotalTargets:         len(snap.Targets),
		TotalExploitAttempts: len(snap.ExploitAttempts),
	}
	for _, t := range snap.Targets {
		s.TotalServices += len(t.Services)
		if t.RiskScore >= highRiskScoreFloor {
			s.HighRiskTargets++
		}
	}
	return s
}
