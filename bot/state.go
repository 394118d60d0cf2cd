/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package bot

import (
	"sync"

	"go.uber.org/atomic"
)

// StrategyMomentum is the default (and the only executed) strategy.
const StrategyMomentum = "momentum"

// Status is a point-in-time view of the bot state.
type Status struct {
	Running  bool   `json:"running"`
	Strategy string `json:"strategy"`
}

// State holds whether the bot is running and with which strategy. It's safe for concurrent use.
type State struct {
	defaultStrategy string

	mu       sync.Mutex // makes running and strategy change together
	running  atomic.Bool
	strategy atomic.String
}

// NewState creates a stopped bot State.
func NewState(defaultStrategy string) *State {
	if defaultStrategy == "" {
		defaultStrategy = StrategyMomentum
	}
	s := &State{defaultStrategy: defaultStrategy}
	s.strategy.Store(defaultStrategy)
	return s
}

// Start marks the bot as running with the strategy (the default one if empty) and returns the strategy in use.
func (s *State) Start(strategy string) string {
	if strategy == "" {
		strategy = s.defaultStrategy
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategy.Store(strategy)
	s.running.Store(true)
	return strategy
}

// Stop marks the bot as stopped. The strategy is kept.
func (s *State) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running.Store(false)
}

// Running reports whether the bot is running.
func (s *State) Running() bool {
	return s.running.Load()
}

// Strategy returns the selected strategy.
func (s *State) Strategy() string {
	return s.strategy.Load()
}

// Status returns the current state.
func (s *State) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{Running: s.running.Load(), Strategy: s.strategy.Load()}
}
