package hooks

import (
	"regexp"
)

// #region analysis

var (
	loopRe        = regexp.MustCompile(`for\s*\(`)
	conditionalRe = regexp.MustCompile(`if\s*\(`)
	callRe        = regexp.MustCompile(`\w+\s*\(`)
	vectorRe      = regexp.MustCompile(`vec[23]\s*\(`)
)

// CodeAnalysis counts structural features of a source file. Calls include
// every identifier followed by a parenthesis, loops and vector ops too.
type CodeAnalysis struct {
	Loops        int `json:"loops"`
	Conditionals int `json:"conditionals"`
	Calls        int `json:"calls"`
	VectorOps    int `json:"vector_ops"`
	Complexity   int `json:"complexity"`
}

// Analyze counts loops, conditionals, calls and vector operations in src.
func Analyze(src string) CodeAnalysis {
	a := CodeAnalysis{
		Loops:        len(loopRe.FindAllStringIndex(src, -1)),
		Conditionals: len(conditionalRe.FindAllStringIndex(src, -1)),
		Calls:        len(callRe.FindAllStringIndex(src, -1)),
		VectorOps:    len(vectorRe.FindAllStringIndex(src, -1)),
	}
	a.Complexity = a.Loops*3 + a.Conditionals*2 + a.Calls + a.VectorOps*2
	return a
}

// Signature encodes which features exceed their thresholds.
func (a CodeAnalysis) Signature() []int {
	return []int{
		bit(a.Loops > 5),
		bit(a.Conditionals > 10),
		bit(a.Calls > 20),
		bit(a.VectorOps > 15),
		bit(a.Complexity > 50),
	}
}

// Metrics returns the counts as pattern metrics.
func (a CodeAnalysis) Metrics() map[string]float64 {
	return map[string]float64{
		"loops":        float64(a.Loops),
		"conditionals": float64(a.Conditionals),
		"calls":        float64(a.Calls),
		"vector_ops":   float64(a.VectorOps),
		"complexity":   float64(a.Complexity),
	}
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion
