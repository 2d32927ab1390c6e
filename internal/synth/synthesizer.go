package synth

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"veristream/internal/model"
	"veristream/internal/verify"
)

// Synthesizer weighs the terminal verification tasks for one claim into
// a single verdict. Evidence is weighted by the variant that found it
// and by the credibility of what it cites; missing workers reduce
// confidence through coverage rather than being treated as disagreement.
type Synthesizer struct {
	minFindings int
	totalWeight float64
}

// New creates a synthesizer.
func New(cfg model.VerifyConfig) *Synthesizer {
	min := cfg.MinFindings
	if min <= 0 {
		min = 1
	}

	var total float64
	for _, v := range verify.Variants() {
		total += v.Weight
	}

	return &Synthesizer{minFindings: min, totalWeight: total}
}

// tierFactor scales evidentiary weight by source credibility.
func tierFactor(t model.CredibilityTier) float64 {
	switch t {
	case model.TierHigh:
		return 1.0
	case model.TierMedium:
		return 0.6
	default:
		return 0.3
	}
}

// Synthesize produces the verdict for one claim from its terminal tasks.
func (s *Synthesizer) Synthesize(claim model.Claim, tasks []model.VerificationTask) model.Verdict {
	var (
		supportWeight float64
		refuteWeight  float64
		usable        int
		inconclusive  int
		absent        []string
		findings      []*model.EvidenceFinding
	)

	for _, task := range tasks {
		switch task.State {
		case model.TaskSucceeded:
			if task.Finding == nil {
				continue
			}
			findings = append(findings, task.Finding)

			weight := verify.VariantWeight(task.Variant) * tierFactor(effectiveTier(task.Finding))
			switch task.Finding.Stance {
			case model.StanceSupports:
				supportWeight += weight
				usable++
			case model.StanceRefutes:
				refuteWeight += weight
				usable++
			case model.StanceMixed:
				supportWeight += weight / 2
				refuteWeight += weight / 2
				usable++
			default:
				inconclusive++
			}
		case model.TaskFailed, model.TaskTimedOut:
			absent = append(absent, task.Variant)
		}
	}

	sources := mergeSources(findings)

	if usable < s.minFindings {
		return model.Verdict{
			Label:       model.VerdictUnverifiable,
			Confidence:  0,
			Explanation: unverifiableExplanation(inconclusive, absent),
			Sources:     sources,
			Absent:      absent,
		}
	}

	directional := supportWeight + refuteWeight
	dominant := math.Max(supportWeight, refuteWeight)
	agreement := dominant / directional
	coverage := math.Sqrt(math.Min(directional/s.totalWeight, 1))
	confidence := math.Round(10*agreement*coverage*10) / 10

	var label model.VerdictLabel
	switch {
	case agreement >= 0.75 && supportWeight >= refuteWeight:
		label = model.VerdictTrue
	case agreement >= 0.75:
		label = model.VerdictFalse
	case refuteWeight > supportWeight:
		// Credible refutation alongside real support: the claim
		// misleads more than it informs.
		label = model.VerdictMisleading
	default:
		label = model.VerdictPartiallyTrue
	}

	return model.Verdict{
		Label:       label,
		Confidence:  confidence,
		Explanation: explain(label, findings, supportWeight, refuteWeight, absent),
		Sources:     sources,
		Absent:      absent,
	}
}

// effectiveTier is the finding's best citation tier after demoting
// citations whose liveness probe failed by one step.
func effectiveTier(f *model.EvidenceFinding) model.CredibilityTier {
	best := model.TierUnknown
	for _, src := range f.Sources {
		tier := src.Tier
		if src.Accessible != nil && !*src.Accessible && tier < model.TierLow {
			tier++
		}
		if tier == model.TierUnknown {
			continue
		}
		if best == model.TierUnknown || tier < best {
			best = tier
		}
	}
	if best == model.TierUnknown {
		return f.Tier
	}
	return best
}

// mergeSources deduplicates citations across findings by URL, keeping
// the best tier seen, and orders the result by credibility.
func mergeSources(findings []*model.EvidenceFinding) []model.SourceCitation {
	seen := make(map[string]int)
	var merged []model.SourceCitation

	for _, f := range findings {
		for _, src := range f.Sources {
			if idx, ok := seen[src.URL]; ok {
				if src.Tier != model.TierUnknown && (merged[idx].Tier == model.TierUnknown || src.Tier < merged[idx].Tier) {
					merged[idx].Tier = src.Tier
				}
				continue
			}
			seen[src.URL] = len(merged)
			merged = append(merged, src)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		ti, tj := merged[i].Tier, merged[j].Tier
		if ti == model.TierUnknown {
			ti = model.TierLow + 1
		}
		if tj == model.TierUnknown {
			tj = model.TierLow + 1
		}
		return ti < tj
	})
	return merged
}

func explain(label model.VerdictLabel, findings []*model.EvidenceFinding, support, refute float64, absent []string) string {
	var counts struct{ supports, refutes, mixed int }
	for _, f := range findings {
		switch f.Stance {
		case model.StanceSupports:
			counts.supports++
		case model.StanceRefutes:
			counts.refutes++
		case model.StanceMixed:
			counts.mixed++
		}
	}

	var b strings.Builder
	switch label {
	case model.VerdictTrue:
		fmt.Fprintf(&b, "%d of %d evidence searches support the claim", counts.supports, len(findings))
	case model.VerdictFalse:
		fmt.Fprintf(&b, "%d of %d evidence searches refute the claim", counts.refutes, len(findings))
	case model.VerdictMisleading:
		fmt.Fprintf(&b, "Credible evidence cuts both ways (%d supporting, %d refuting, %d mixed), with refutation carrying more weight", counts.supports, counts.refutes, counts.mixed)
	default:
		fmt.Fprintf(&b, "Evidence is split (%d supporting, %d refuting, %d mixed)", counts.supports, counts.refutes, counts.mixed)
	}

	if lead := leadAssessment(findings); lead != "" {
		b.WriteString(". ")
		b.WriteString(lead)
	}
	if len(absent) > 0 {
		fmt.Fprintf(&b, " (no result from: %s)", strings.Join(absent, ", "))
	}
	return b.String()
}

// leadAssessment picks the assessment from the most credible finding.
func leadAssessment(findings []*model.EvidenceFinding) string {
	var best *model.EvidenceFinding
	for _, f := range findings {
		if f.Assessment == "" {
			continue
		}
		if best == nil || (effectiveTier(f) != model.TierUnknown && effectiveTier(f) < effectiveTier(best)) {
			best = f
		}
	}
	if best == nil {
		return ""
	}
	return best.Assessment
}

func unverifiableExplanation(inconclusive int, absent []string) string {
	switch {
	case inconclusive > 0:
		return fmt.Sprintf("No directional evidence found; %d search(es) came back inconclusive", inconclusive)
	case len(absent) > 0:
		return fmt.Sprintf("No evidence gathered; all searches failed or timed out (%s)", strings.Join(absent, ", "))
	default:
		return "No evidence gathered"
	}
}
