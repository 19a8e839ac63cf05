package application

import (
	"context"

	"github.com/bnema/petminion/internal/domain"
)

const SimpleFeederRuleName = "SimpleFeederRule"

type simpleState struct {
	EngineState
}

// SimpleFeederRule feeds whatever the schedule owes whenever the target is in
// view and the feed cooldown allows.
type SimpleFeederRule struct {
	*Rule
	target string
	state  simpleState
}

var _ TrainingRule = (*SimpleFeederRule)(nil)

func NewSimpleFeederRule(ctx context.Context, deps Deps, cfg RuleConfig) *SimpleFeederRule {
	p := &SimpleFeederRule{target: cfg.Target}
	p.Rule = newRule(ctx, deps, cfg, p, &p.state, cfg.CooldownFor(SimpleFeederRuleName))
	return p
}

func (p *SimpleFeederRule) Name() string {
	return SimpleFeederRuleName
}

func (p *SimpleFeederRule) Evaluate(ctx context.Context, scene *Scene) (Outcome, error) {
	seen, err := scene.Count(ctx, p.target)
	if err != nil {
		p.logger.Warn("recognition failed", "error", err)
		return Outcome{Reason: "recognition failed"}, nil
	}
	if seen == 0 {
		return Outcome{Reason: p.target + " not in view"}, nil
	}

	allowed := p.NumAllowed(false)
	if allowed <= 0 {
		return Outcome{Success: true, Reason: "nothing owed"}, nil
	}

	ok, err := p.consumeCooldown(ctx)
	if err != nil {
		return Outcome{Success: true}, err
	}
	if !ok {
		return Outcome{Success: true, Reason: "cooling down"}, nil
	}

	portions := p.portionsFor(allowed)
	if err := p.DoFeeding(ctx, scene, portions, domain.FeedingPathScheduled); err != nil {
		return Outcome{Success: true}, err
	}

	return Outcome{Success: true, Portions: portions, Reason: "scheduled"}, nil
}
