package models

import "time"

type TargetType string

const (
	TargetDomain TargetType = "domain"
	TargetIP     TargetType = "ip"
)

type TargetStatus string

const (
	StatusDiscovered TargetStatus = "discovered"
	StatusScanning   TargetStatus = "scanning"
	StatusAnalyzed   TargetStatus = "analyzed"
)

// Phase is one stage of the fixed pentest methodology.
type Phase string

const (
	PhaseReconnaissance          Phase = "reconnaissance"
	PhaseEnumeration             Phase = "enumeration"
	PhaseVulnerabilityAssessment Phase = "vulnerability_assessment"
	PhaseExploitation            Phase = "exploitation"
	PhasePostExploitation        Phase = "post_exploitation"
)

// PhaseOrder lists the methodology phases from first to last.
var PhaseOrder = []Phase{
	PhaseReconnaissance,
	PhaseEnumeration,
	PhaseVulnerabilityAssessment,
	PhaseExploitation,
	PhasePostExploitation,
}

type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// Service is one open port discovered on a target. Keyed by Port within the
// target: the first sighting of a port wins, later sightings are ignored.
type Service struct {
	Port      int       `json:"port"`
	Service   string    `json:"service"`
	RiskLevel RiskLevel `json:"riskLevel"`
	Status    string    `json:"status"`
}

type ExploitAttempt struct {
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Tool        string    `json:"tool"`
}

// Target is one domain or IP extracted from the transcript, keyed by the
// literal matched string. Targets are never deleted.
type Target struct {
	Key             string           `json:"key"`
	Type            TargetType       `json:"type"`
	Status          TargetStatus     `json:"status"`
	Services        []Service        `json:"services"`
	ExploitAttempts []ExploitAttempt `json:"exploitAttempts"`
	RiskScore       int              `json:"riskScore"`
	Phase           Phase            `json:"phase"`
	FirstSeen       time.Time        `json:"firstSeen"`
	LastActivity    time.Time        `json:"lastActivity"`
}

// PhaseState records progress through one methodology phase.
type PhaseState struct {
	Completed  bool     `json:"completed"`
	Activities []string `json:"activities"`
}

// Methodology is the fixed five-phase progression inferred from the transcript.
type Methodology map[Phase]*PhaseState

// NewMethodology returns an empty record with all five phases present.
func NewMethodology() Methodology {
	m := make(Methodology, len(PhaseOrder))
	for _, p := range PhaseOrder {
		m[p] = &PhaseState{Activities: []string{}}
	}
	return m
}

type IntelStats struct {
	TotalTargets         int `json:"totalTargets"`
	TotalServices        int `json:"totalServices"`
	TotalExploitAttempts int `json:"totalExploitAttempts"`
	HighRiskTargets      int `json:"highRiskTargets"`
}

// IntelSnapshot is the full output of one intelligence pass over the
// transcript. Targets are sorted by risk score, highest first.
type IntelSnapshot struct {
	Targets           []*Target        `json:"targets"`
	ExploitAttempts   []ExploitAttempt `json:"exploitAttempts"`
	CurrentPhase      Phase            `json:"currentPhase"`
	Methodology       Methodology      `json:"methodology"`
	CurrentlyScanning string           `json:"currentlyScanning,omitempty"`
	Stats             IntelStats       `json:"stats"`
}

// TargetByKey returns the target with the given literal key, if present.
func (s *IntelSnapshot) TargetByKey(key string) (*Target, bool) {
	for _, t := range s.Targets {
		if t.Key == key {
			return t, true
		}
	}
	return nil, false
}
