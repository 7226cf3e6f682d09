package dice

import "go.uber.org/zap"

// Roller wraps a Source with debug logging of every expression and percentile
// roll. Roller itself satisfies Source so it can be handed to code that only
// needs raw integers.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller creates a Roller. A nil logger disables roll logging.
//
// Precondition: src must be non-nil.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Intn delegates to the underlying Source without logging.
func (r *Roller) Intn(n int) int { return r.src.Intn(n) }

// Roll evaluates expr and logs the result at debug level.
func (r *Roller) Roll(expr Expression) RollResult {
	result := Roll(expr, r.src)
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result
}

// Percentile rolls an integer in [0, 100) and reports whether it is below
// chance. Chances <= 0 never succeed; chances >= 100 always succeed.
func (r *Roller) Percentile(chance int) (roll int, success bool) {
	roll = r.src.Intn(100)
	success = roll < chance
	r.logger.Debug("percentile roll",
		zap.Int("roll", roll),
		zap.Int("chance", chance),
		zap.Bool("success", success),
	)
	return roll, success
}
