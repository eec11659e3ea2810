package domain

import "errors"

// Stock compute budget.
const (
	DefaultComputeUnitLimit   uint32 = 1_000_000
	DefaultMicroLamportsPerCU uint64 = 5_000
)

// PriorityConfig controls the compute budget instructions prepended to every
// transaction. Supplied once at startup and never mutated.
type PriorityConfig struct {
	ComputeUnitLimit   uint32 `yaml:"compute_unit_limit"`
	MicroLamportsPerCU uint64 `yaml:"microlamports_per_cu"`
}

// DefaultPriorityConfig returns the stock priority settings.
func DefaultPriorityConfig() PriorityConfig {
	return PriorityConfig{
		ComputeUnitLimit:   DefaultComputeUnitLimit,
		MicroLamportsPerCU: DefaultMicroLamportsPerCU,
	}
}

// Validate checks the config is usable.
func (p PriorityConfig) Validate() error {
	if p.ComputeUnitLimit == 0 {
		return errors.New("compute unit limit must be positive")
	}
	return nil
}

// MaxPriorityFeeLamports is the worst-case priority fee for one transaction.
func (p PriorityConfig) MaxPriorityFeeLamports() uint64 {
	return uint64(p.ComputeUnitLimit) * p.MicroLamportsPerCU / 1_000_000
}
