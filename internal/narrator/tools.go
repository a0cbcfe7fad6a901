package narrator

import (
	"fmt"
	"regexp"
	"strings"
)

// Tool output arrives as free text in whatever shape the tool produced.
// Rather than sniffing shapes inline, each known tool gets its own outcome
// variant decoded from the text, with a generic fallback for everything else.
// Decoding never fails: unrecognized output degrades to the generic variant.
type toolOutcome interface {
	render() string
}

var (
	openPortRe   = regexp.MustCompile(`(?i)\b(\d+)/(tcp|udp)\s+open\b`)
	closedPortRe = regexp.MustCompile(`(?i)\b(\d+)/(tcp|udp)\s+closed\b`)
)

type portScanOutcome struct {
	open   int
	closed int
}

func (o portScanOutcome) render() string {
	s := fmt.Sprintf("Port scan finished: %d open and %d closed ports detected.", o.open, o.closed)
	if o.open > 0 {
		return s + " The open services form an attack surface worth enumerating further."
	}
	return s + " No open ports were found; the host appears filtered or unreachable."
}

type permutationOutcome struct {
	homoglyph int
	insertion int
}

func (o permutationOutcome) render() string {
	return fmt.Sprintf("Domain permutation scan produced %d homoglyph and %d insertion variants to review for typosquatting.", o.homoglyph, o.insertion)
}

type whoisOutcome struct{}

func (whoisOutcome) render() string {
	return "WHOIS lookup completed; registration and ownership records were retrieved for the target."
}

type dnsOutcome struct{}

func (dnsOutcome) render() string {
	return "DNS reconnaissance completed; record resolution for the target finished."
}

type genericOutcome struct {
	tool string
}

func (o genericOutcome) render() string {
	return fmt.Sprintf("%s execution completed.", o.tool)
}

func decodeToolOutput(tool, output string) toolOutcome {
	name := strings.ToLower(tool)

	switch {
	case strings.Contains(name, "nmap") || strings.Contains(name, "portscan") || strings.Contains(name, "port_scan"):
		return portScanOutcome{
			open:   len(openPortRe.FindAllString(output, -1)),
			closed: len(closedPortRe.FindAllString(output, -1)),
		}

	case strings.Contains(name, "dnstwist") || strings.Contains(name, "permutation"):
		var out permutationOutcome
		for _, line := range strings.Split(output, "\n") {
			trimmed := strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(trimmed, "homoglyph"):
				out.homoglyph++
			case strings.HasPrefix(trimmed, "insertion"):
				out.insertion++
			}
		}
		return out

	case strings.Contains(name, "whois"):
		return whoisOutcome{}

	case strings.Contains(name, "dns"):
		return dnsOutcome{}

	default:
		return genericOutcome{tool: tool}
	}
}
