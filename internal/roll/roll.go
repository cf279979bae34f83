// Package roll turns dice-expression strings into results and decides how
// the table should represent them.
package roll

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"diceroom/internal/domain"
)

// InvalidExpression is the sentinel interpretation for input that does not
// parse. Callers must check for it; Process never fails outright.
const InvalidExpression = "invalid"

var exprPattern = regexp.MustCompile(`^(\d+)?[dD](\d+)$`)

// Limits bound how much work a single expression may demand.
type Limits struct {
	// MaxPhysicalDice is the largest count rendered as individual dice.
	MaxPhysicalDice int
	// MaxTotalDice caps the count of any single roll.
	MaxTotalDice int
	// ComplexityThreshold bounds count*sides before a roll goes virtual.
	ComplexityThreshold int
}

// DefaultLimits mirrors the config defaults.
func DefaultLimits() Limits {
	return Limits{MaxPhysicalDice: 10, MaxTotalDice: 10000, ComplexityThreshold: 100}
}

// Result is the outcome of processing one expression.
type Result struct {
	Total       int
	Rolls       []int
	Interpreted string
	// Canvas holds the table representation: one entry per die for a
	// physical roll, a single summarizing entry for a virtual one, and
	// nothing at all for invalid input.
	Canvas []domain.CanvasDice
}

// Invalid reports whether the expression was rejected.
func (r Result) Invalid() bool { return r.Interpreted == InvalidExpression }

// Processor parses and rolls dice expressions. Safe for concurrent use.
type Processor struct {
	limits Limits

	mu  sync.Mutex
	rng *rand.Rand
}

// NewProcessor returns a processor seeded from the wall clock.
func NewProcessor(limits Limits) *Processor {
	return NewProcessorWithSource(limits, rand.NewSource(time.Now().UnixNano()))
}

// NewProcessorWithSource allows a deterministic source for tests.
func NewProcessorWithSource(limits Limits, src rand.Source) *Processor {
	if limits.MaxPhysicalDice <= 0 {
		limits = DefaultLimits()
	}
	return &Processor{limits: limits, rng: rand.New(src)}
}

// Process resolves expression into rolled values and a canvas
// representation. Counts outside [1, MaxTotalDice] are corrected silently;
// the corrected form is echoed back in Interpreted so the caller can show
// what was actually rolled.
func (p *Processor) Process(expression string) Result {
	count, sides, ok := parse(expression)
	if !ok {
		log.Debug().Str("module", "roll").Str("expression", expression).Msg("rejected expression")
		return Result{Interpreted: InvalidExpression, Rolls: []int{}, Canvas: []domain.CanvasDice{}}
	}

	if count < 1 {
		count = 1
	}
	if count > p.limits.MaxTotalDice {
		count = p.limits.MaxTotalDice
	}
	if sides < 1 {
		sides = 1
	}

	rolls := make([]int, count)
	total := 0
	p.mu.Lock()
	for i := range rolls {
		v := p.rng.Intn(sides) + 1
		rolls[i] = v
		total += v
	}
	p.mu.Unlock()

	res := Result{
		Total:       total,
		Rolls:       rolls,
		Interpreted: fmt.Sprintf("%dd%d", count, sides),
	}

	if p.shouldUseVirtual(count, sides) {
		res.Canvas = []domain.CanvasDice{{
			ID:           uuid.NewString(),
			Type:         nearestDiceType(sides),
			Position:     p.spawnPosition(0, 1),
			IsVirtual:    true,
			VirtualRolls: rolls,
			Result:       total,
		}}
		return res
	}

	res.Canvas = make([]domain.CanvasDice, count)
	for i, v := range rolls {
		res.Canvas[i] = domain.CanvasDice{
			ID:       uuid.NewString(),
			Type:     domain.DiceType(sides),
			Position: p.spawnPosition(i, count),
			Result:   v,
		}
	}
	return res
}

// shouldUseVirtual bounds the number of simultaneously animated objects:
// any of too many dice, an unsupported polyhedron, or a count*sides product
// past the threshold collapses the roll into one summarizing token.
func (p *Processor) shouldUseVirtual(count, sides int) bool {
	if count > p.limits.MaxPhysicalDice {
		return true
	}
	if !domain.DiceType(sides).IsSupported() {
		return true
	}
	return count*sides > p.limits.ComplexityThreshold
}

// nearestDiceType maps an arbitrary face count onto the closest supported
// polyhedron. Ties go to the smaller type because SupportedDiceTypes is
// scanned in ascending order.
func nearestDiceType(sides int) domain.DiceType {
	best := domain.SupportedDiceTypes[0]
	bestDiff := math.Abs(float64(sides) - float64(best))
	for _, c := range domain.SupportedDiceTypes[1:] {
		diff := math.Abs(float64(sides) - float64(c))
		if diff < bestDiff {
			best = c
			bestDiff = diff
		}
	}
	return best
}

// spawnPosition arranges dice in a centered square grid with a little
// jitter so they do not stack visually. Not a correctness invariant.
func (p *Processor) spawnPosition(index, total int) domain.Vec3 {
	gridSize := int(math.Ceil(math.Sqrt(float64(total))))
	if gridSize < 1 {
		gridSize = 1
	}
	const spacing = 1.5
	row := index / gridSize
	col := index % gridSize
	offset := float64(gridSize-1) / 2

	p.mu.Lock()
	jx := (p.rng.Float64() - 0.5) * 0.5
	jz := (p.rng.Float64() - 0.5) * 0.5
	height := 3 + p.rng.Float64()*2
	p.mu.Unlock()

	return domain.Vec3{
		X: (float64(col)-offset)*spacing + jx,
		Y: height,
		Z: (float64(row)-offset)*spacing + jz,
	}
}

func parse(expression string) (count, sides int, ok bool) {
	trimmed := strings.TrimSpace(expression)
	m := exprPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return 0, 0, false
	}
	count = 1
	if m[1] != "" {
		n, ok := parseBounded(m[1])
		if !ok {
			return 0, 0, false
		}
		count = n
	}
	sides, ok = parseBounded(m[2])
	if !ok {
		return 0, 0, false
	}
	return count, sides, true
}

// parseBounded reads a digit string, saturating at MaxInt for values the
// platform int cannot hold; the caller's clamps take it from there.
func parseBounded(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err == nil {
		return n, true
	}
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt, true
	}
	return 0, false
}
