package application

import (
	"context"
	"errors"

	"github.com/bnema/petminion/internal/domain"
)

const TokenTrainerName = "TokenTrainer"

type tokenState struct {
	EngineState
	OldTokenCount int `json:"old_token_count"`
}

// TokenTrainer rewards the pet for bringing tokens into view. A rise in the
// token count may borrow the next scheduled slot; without one the pet still
// gets whatever the schedule already owes.
type TokenTrainer struct {
	*Rule
	target string
	token  string
	state  tokenState
}

var _ TrainingRule = (*TokenTrainer)(nil)

func NewTokenTrainer(ctx context.Context, deps Deps, cfg RuleConfig) *TokenTrainer {
	p := &TokenTrainer{target: cfg.Target, token: cfg.Token}
	p.Rule = newRule(ctx, deps, cfg, p, &p.state, cfg.CooldownFor(TokenTrainerName))
	return p
}

func (p *TokenTrainer) Name() string {
	return TokenTrainerName
}

// Baseline is the token count of the last approved feeding.
func (p *TokenTrainer) Baseline() int {
	return p.state.OldTokenCount
}

func (p *TokenTrainer) Evaluate(ctx context.Context, scene *Scene) (Outcome, error) {
	tokens, err := scene.Count(ctx, p.token)
	if err != nil {
		p.logger.Warn("recognition failed", "error", err)
		return Outcome{Reason: "recognition failed"}, nil
	}

	if tokens < p.state.OldTokenCount {
		p.logger.Warn("token count dropped, possible cheating", "baseline", p.state.OldTokenCount, "tokens", tokens)
		p.state.OldTokenCount = tokens
		if p.snapshots != nil {
			p.saveSnapshot(ctx, domain.SnapshotCheating, scene)
		}
		if err := p.SaveState(ctx); err != nil {
			return Outcome{}, err
		}
		// Evidence only; a tick that lost a token never feeds.
		return Outcome{Success: true, Reason: "token removed"}, nil
	}

	pets, _ := scene.Count(ctx, p.target)
	if pets == 0 {
		return Outcome{Reason: p.target + " not in view"}, nil
	}

	path := domain.FeedingPathFree
	allowed := 0
	if tokens > p.state.OldTokenCount {
		path = domain.FeedingPathRewarded
		allowed = p.NumAllowed(true)
	} else {
		allowed = p.NumAllowed(false)
	}
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

	baseline := p.state.OldTokenCount
	p.state.OldTokenCount = tokens
	portions := p.portionsFor(allowed)
	if err := p.DoFeeding(ctx, scene, portions, path); err != nil {
		if errors.Is(err, domain.ErrFeedingFailed) {
			p.state.OldTokenCount = baseline
		}
		return Outcome{Success: true}, err
	}

	return Outcome{Success: true, Portions: portions, Reason: string(path)}, nil
}
