// Package risk implements the deterministic cancer-risk scoring engine.
//
// ComputeRisk is a pure function over already-validated clinical inputs:
// no I/O, no shared state, safe under arbitrary concurrency. Input
// validation (enum membership, tumor size > 0, parseable biomarker values)
// is the responsibility of the calling service layer; behaviour on
// malformed input such as NaN is a precondition violation, not handled
// here.
package risk

import (
	"fmt"
	"math"
	"strings"
)

type CancerType string

const (
	CancerLiver  CancerType = "liver"
	CancerLung   CancerType = "lung"
	CancerBreast CancerType = "breast"
)

func (t CancerType) IsValid() bool {
	switch t {
	case CancerLiver, CancerLung, CancerBreast:
		return true
	}
	return false
}

type RiskLevel string

const (
	LevelLow      RiskLevel = "Low"
	LevelModerate RiskLevel = "Moderate"
	LevelHigh     RiskLevel = "High"
)

// Tier boundaries: Low [0,40), Moderate [40,70), High [70,98].
const (
	moderateThreshold = 40
	highThreshold     = 70
)

// MaxProbability caps every reported score. A probability of 100 would
// claim certainty no biomarker panel can provide.
const MaxProbability = 98

// DiagnosisInput carries the clinical measurements for one assessment.
// Biomarker1 semantics depend on CancerType: AFP ng/mL for liver,
// CEA ng/mL for lung, CA 15-3 U/mL for breast. Biomarker2 is the
// categorical secondary marker (HER2 status for breast). AdditionalFactor
// is the categorical modifier (smoking status for lung).
type DiagnosisInput struct {
	CancerType       CancerType `json:"cancer_type"`
	TumorSizeCm      float64    `json:"tumor_size_cm"`
	Biomarker1       float64    `json:"biomarker1"`
	Biomarker2       string     `json:"biomarker2,omitempty"`
	AdditionalFactor string     `json:"additional_factor,omitempty"`
}

type DiagnosisResult struct {
	Probability    int       `json:"probability"`
	RiskLevel      RiskLevel `json:"risk_level"`
	Recommendation string    `json:"recommendation"`
	CancerType     string    `json:"cancer_type"`
	TumorSizeCm    float64   `json:"tumor_size_cm"`
}

// ComputeRisk maps clinical inputs to a clamped probability, a risk tier,
// and a recommendation. Total for well-typed input; never returns an error.
func ComputeRisk(in DiagnosisInput) DiagnosisResult {
	var raw float64

	switch in.CancerType {
	case CancerLiver:
		raw = liverScore(in.Biomarker1, in.TumorSizeCm)
	case CancerLung:
		raw = lungScore(in.Biomarker1, in.TumorSizeCm, in.AdditionalFactor)
	case CancerBreast:
		raw = breastScore(in.Biomarker1, in.TumorSizeCm, in.Biomarker2)
	}

	probability := clamp(int(math.Round(raw)))
	level := tierFor(probability)

	return DiagnosisResult{
		Probability:    probability,
		RiskLevel:      level,
		Recommendation: recommendationFor(level, in.CancerType),
		CancerType:     capitalize(string(in.CancerType)),
		TumorSizeCm:    in.TumorSizeCm,
	}
}

// liverScore uses AFP (alpha-fetoprotein) bands with a capped tumor-size term.
func liverScore(afp, sizeCm float64) float64 {
	switch {
	case afp > 400:
		return 75 + math.Min(sizeCm*3, 20)
	case afp > 20:
		return 45 + math.Min(sizeCm*2, 25)
	default:
		return 15 + math.Min(sizeCm, 15)
	}
}

// lungScore uses CEA bands scaled by smoking history.
func lungScore(cea, sizeCm float64, smoking string) float64 {
	multiplier := 1.0
	switch strings.ToLower(strings.TrimSpace(smoking)) {
	case "current":
		multiplier = 1.8
	case "former":
		multiplier = 1.3
	}

	var base float64
	switch {
	case cea > 10:
		base = 60 + math.Min(sizeCm*4, 25)
	case cea > 5:
		base = 35 + math.Min(sizeCm*3, 20)
	default:
		base = 10 + math.Min(sizeCm*2, 15)
	}
	return base * multiplier
}

// breastScore uses CA 15-3 bands scaled by HER2 status.
func breastScore(ca153, sizeCm float64, her2 string) float64 {
	multiplier := 1.0
	if strings.EqualFold(strings.TrimSpace(her2), "positive") {
		multiplier = 1.4
	}

	var base float64
	switch {
	case ca153 > 100:
		base = 70 + math.Min(sizeCm*3, 20)
	case ca153 > 30:
		base = 40 + math.Min(sizeCm*2, 25)
	default:
		base = 12 + math.Min(sizeCm, 15)
	}
	return base * multiplier
}

// clamp bounds the rounded score to [0, MaxProbability]. All current base
// terms are non-negative; the lower bound guards future additive terms.
func clamp(p int) int {
	if p > MaxProbability {
		return MaxProbability
	}
	if p < 0 {
		return 0
	}
	return p
}

func tierFor(probability int) RiskLevel {
	switch {
	case probability >= highThreshold:
		return LevelHigh
	case probability >= moderateThreshold:
		return LevelModerate
	default:
		return LevelLow
	}
}

func recommendationFor(level RiskLevel, t CancerType) string {
	name := capitalize(string(t))
	switch level {
	case LevelHigh:
		return fmt.Sprintf("High risk of %s cancer: urgent diagnostic imaging and biopsy are recommended.", name)
	case LevelModerate:
		return "Moderate risk: additional imaging and specialist follow-up within 4-6 weeks are recommended."
	default:
		return "Low risk: routine surveillance and repeat biomarker panel at the next scheduled visit."
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
