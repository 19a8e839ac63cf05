package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/bnema/petminion/internal/domain"
)

type RuleFactory func(ctx context.Context, deps Deps, cfg RuleConfig) TrainingRule

// Rules maps the configuration names of training rules to their constructors.
var Rules = map[string]RuleFactory{
	SimpleFeederRuleName: func(ctx context.Context, deps Deps, cfg RuleConfig) TrainingRule {
		return NewSimpleFeederRule(ctx, deps, cfg)
	},
	TokenTrainerName: func(ctx context.Context, deps Deps, cfg RuleConfig) TrainingRule {
		return NewTokenTrainer(ctx, deps, cfg)
	},
}

func NewRule(ctx context.Context, name string, deps Deps, cfg RuleConfig) (TrainingRule, error) {
	factory, ok := Rules[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %v)", domain.ErrUnknownRule, name, RuleNames())
	}

	return factory(ctx, deps, cfg), nil
}

func RuleNames() []string {
	names := make([]string, 0, len(Rules))
	for name := range Rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
