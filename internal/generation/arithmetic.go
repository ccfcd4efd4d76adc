package generation

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/phrazzld/exercise-api/internal/domain"
)

// Question types the arithmetic generator can produce.
const (
	TypeCalculation = "calculation"
	TypeFillBlank   = "fill_blank"
	TypeTrueFalse   = "true_false"
	TypeChoice      = "choice"
)

// MathSubject is the only subject served by ArithmeticGenerator.
const MathSubject = "数学"

// gradeLevels maps catalog grades to a 1-based difficulty tier.
var gradeLevels = map[string]int{
	"一年级": 1, "二年级": 2, "三年级": 3, "四年级": 4, "五年级": 5, "六年级": 6,
	"初一": 7, "初二": 8, "初三": 9, "高一": 10, "高二": 11, "高三": 12,
}

// ArithmeticGenerator produces arithmetic exercises without any external
// service. Output is deterministic for a given GenerationID.
type ArithmeticGenerator struct{}

var _ Generator = ArithmeticGenerator{}

// NewArithmeticGenerator returns the built-in generator.
func NewArithmeticGenerator() ArithmeticGenerator {
	return ArithmeticGenerator{}
}

// Generate implements Generator.
func (ArithmeticGenerator) Generate(ctx context.Context, req Request, emit EmitFunc) error {
	if req.Subject != MathSubject {
		return fmt.Errorf("%w: subject %q", ErrUnsupportedRequest, req.Subject)
	}
	types := supportedTypes(req.QuestionTypes)
	if len(types) == 0 {
		return fmt.Errorf("%w: question types %v", ErrUnsupportedRequest, req.QuestionTypes)
	}

	seed := req.GenerationID
	rng := rand.New(rand.NewPCG(binary.BigEndian.Uint64(seed[:8]), binary.BigEndian.Uint64(seed[8:])))
	base := gradeLevels[req.Grade]
	if base == 0 {
		base = 3
	}

	for i := range req.Count {
		if err := ctx.Err(); err != nil {
			return err
		}
		level := tierFor(req.DifficultyLevel, base, i)
		draft := buildDraft(rng, types[i%len(types)], level, req.DifficultyLevel)
		if err := emit(draft); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func supportedTypes(requested []string) []string {
	var out []string
	for _, t := range requested {
		switch t {
		case TypeCalculation, TypeFillBlank, TypeTrueFalse, TypeChoice:
			out = append(out, t)
		}
	}
	return out
}

// tierFor shifts the grade tier by the requested difficulty. Mixed cycles
// through easier, same and harder.
func tierFor(d domain.DifficultyLevel, base, index int) int {
	shift := 0
	switch d {
	case domain.DifficultyEasier:
		shift = -1
	case domain.DifficultyHarder:
		shift = 1
	case domain.DifficultyMixed:
		shift = index%3 - 1
	}
	return max(1, base+shift)
}

type operation struct {
	a, b   int
	op     string
	result int
	point  string
}

func (o operation) expr() string {
	return fmt.Sprintf("%d %s %d", o.a, o.op, o.b)
}

// newOperation picks operands sized for tier. Division always divides evenly
// and subtraction never goes negative.
func newOperation(rng *rand.Rand, tier int) operation {
	limit := 10
	switch {
	case tier >= 5:
		limit = 1000
	case tier >= 3:
		limit = 100
	case tier == 2:
		limit = 20
	}

	ops := []string{"+", "-"}
	if tier >= 3 {
		ops = append(ops, "×", "÷")
	}

	switch ops[rng.IntN(len(ops))] {
	case "-":
		a := rng.IntN(limit) + 1
		b := rng.IntN(a) + 1
		return operation{a: a, b: b, op: "-", result: a - b, point: "减法"}
	case "×":
		f := min(limit/10, 12)
		a := rng.IntN(max(f, 9)) + 2
		b := rng.IntN(max(f, 9)) + 2
		return operation{a: a, b: b, op: "×", result: a * b, point: "乘法"}
	case "÷":
		f := min(limit/10, 12)
		b := rng.IntN(max(f, 9)) + 2
		q := rng.IntN(max(f, 9)) + 1
		return operation{a: b * q, b: b, op: "÷", result: q, point: "除法"}
	default:
		a := rng.IntN(limit) + 1
		b := rng.IntN(limit) + 1
		return operation{a: a, b: b, op: "+", result: a + b, point: "加法"}
	}
}

func buildDraft(rng *rand.Rand, questionType string, tier int, d domain.DifficultyLevel) domain.ExerciseDraft {
	o := newOperation(rng, tier)
	draft := domain.ExerciseDraft{
		QuestionType:    questionType,
		Difficulty:      d.Label(),
		KnowledgePoints: []string{o.point, "四则运算"},
		QualityScore:    0.8,
	}

	switch questionType {
	case TypeFillBlank:
		draft.QuestionText = fmt.Sprintf("%d %s (    ) = %d", o.a, o.op, o.result)
		draft.CorrectAnswer = strconv.Itoa(o.b)
		draft.Analysis = fmt.Sprintf("由 %d %s %d = %d 可知括号内填 %d。", o.a, o.op, o.b, o.result, o.b)
	case TypeTrueFalse:
		shown := o.result
		if rng.IntN(2) == 0 {
			shown += rng.IntN(3) + 1
		}
		draft.QuestionText = fmt.Sprintf("判断：%s = %d", o.expr(), shown)
		if shown == o.result {
			draft.CorrectAnswer = "对"
		} else {
			draft.CorrectAnswer = "错"
		}
		draft.Analysis = fmt.Sprintf("%s = %d。", o.expr(), o.result)
	case TypeChoice:
		options, answer := choiceOptions(rng, o.result)
		draft.QuestionText = fmt.Sprintf("%s = ?\n%s", o.expr(), strings.Join(options, "  "))
		draft.CorrectAnswer = answer
		draft.Analysis = fmt.Sprintf("%s = %d，选 %s。", o.expr(), o.result, answer)
	default:
		draft.QuestionType = TypeCalculation
		draft.QuestionText = fmt.Sprintf("%s = ?", o.expr())
		draft.CorrectAnswer = strconv.Itoa(o.result)
		draft.Analysis = fmt.Sprintf("按%s计算：%s = %d。", o.point, o.expr(), o.result)
	}
	return draft
}

// choiceOptions returns four labelled options containing result exactly once.
func choiceOptions(rng *rand.Rand, result int) ([]string, string) {
	values := []int{result}
	for delta := 1; len(values) < 4; delta++ {
		if result-delta >= 0 && rng.IntN(2) == 0 {
			values = append(values, result-delta)
		} else {
			values = append(values, result+delta)
		}
	}
	rng.Shuffle(len(values), func(i, j int) { values[i], values[j] = values[j], values[i] })

	labels := []string{"A", "B", "C", "D"}
	options := make([]string, len(values))
	answer := ""
	for i, v := range values {
		options[i] = fmt.Sprintf("%s. %d", labels[i], v)
		if v == result {
			answer = labels[i]
		}
	}
	return options, answer
}
