package cost

import (
	"strings"

	"trialmetrics/domain/trial"
)

// NormalizePhase maps a free-text registry phase to a cost tier.
//
// Matching ignores case and spaces. Combined phases such as
// "Phase 2/Phase 3" resolve to the highest phase named in any segment,
// since the later phase dominates cost. A highest digit outside 1-4, or no
// digit 1-4 at all, is NA.
func NormalizePhase(raw string) trial.Phase {
	s := strings.ToUpper(strings.ReplaceAll(raw, " ", ""))
	if s == "" {
		return trial.PhaseNA
	}

	if strings.Contains(s, "/") {
		highest := 0
		for _, segment := range strings.Split(s, "/") {
			if d := firstDigit(segment); d > highest {
				highest = d
			}
		}
		if p, ok := phaseForDigit(highest); ok {
			return p
		}
		if highest > 0 {
			return trial.PhaseNA
		}
	}

	for d := 1; d <= 4; d++ {
		if strings.ContainsRune(s, rune('0'+d)) {
			p, _ := phaseForDigit(d)
			return p
		}
	}
	return trial.PhaseNA
}

func firstDigit(s string) int {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return int(r - '0')
		}
	}
	return 0
}

func phaseForDigit(d int) (trial.Phase, bool) {
	switch d {
	case 1:
		return trial.Phase1, true
	case 2:
		return trial.Phase2, true
	case 3:
		return trial.Phase3, true
	case 4:
		return trial.Phase4, true
	}
	return trial.PhaseNA, false
}
