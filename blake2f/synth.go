package blake2f

import (
	"fmt"

	"github.com/eth2030/blake2f/circuit"
	"github.com/eth2030/blake2f/log"
	"github.com/eth2030/blake2f/metrics"
)

type config struct {
	rows     int
	logger   *log.Logger
	registry *metrics.Registry
	table    *SpreadTable
	metrics  *metrics.SynthesisMetrics
}

// Option configures Synthesize.
type Option func(*config)

// WithRows sets the trace height. Fewer than MinRows rows fails with
// circuit.ErrNotEnoughRows.
func WithRows(n int) Option { return func(c *config) { c.rows = n } }

// WithLogger routes synthesis logs to l.
func WithLogger(l *log.Logger) Option { return func(c *config) { c.logger = l } }

// WithMetrics reports into reg instead of metrics.DefaultRegistry.
func WithMetrics(reg *metrics.Registry) Option { return func(c *config) { c.registry = reg } }

// WithTable uses t as the spread table instead of the shared one.
func WithTable(t *SpreadTable) Option { return func(c *config) { c.table = t } }

func newConfig(opts []Option) *config {
	c := &config{
		rows:   DefaultRows,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.table == nil {
		c.table = SharedSpreadTable()
	}
	if c.registry == nil || c.registry == metrics.DefaultRegistry {
		c.metrics = metrics.Synthesis
	} else {
		c.metrics = metrics.NewSynthesisMetrics(c.registry)
	}
	return c
}

// Synthesis is one laid-out compression: its constraint system, trace and
// digest.
type Synthesis struct {
	CS     *circuit.ConstraintSystem
	Chip   *Chip
	Trace  *circuit.Trace
	Digest [8]circuit.Value[uint64]

	cfg *config
}

// Synthesize configures a fresh constraint system and lays out the
// compression of in.
func Synthesize(in Input, opts ...Option) (*Synthesis, error) {
	if in.Rounds > MaxRounds {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyRounds, in.Rounds, MaxRounds)
	}
	return synthesize(KnownWitness(in), newConfig(opts))
}

// SynthesizeShape lays out a compression with an unknown witness. The
// result records the fixed columns, selectors and copy constraints only.
func SynthesizeShape(opts ...Option) (*Synthesis, error) {
	return synthesize(UnknownWitness(), newConfig(opts))
}

func synthesize(w Witness, cfg *config) (*Synthesis, error) {
	m := cfg.metrics
	timer := metrics.NewTimer(m.SynthesisTime)

	s, err := layout(w, cfg)
	elapsed := timer.Stop()
	if err != nil {
		m.SynthesisErrors.Inc()
		cfg.logger.Warn("blake2f synthesis failed", "err", err)
		return nil, err
	}
	m.Syntheses.Inc()
	m.TraceRows.Set(int64(s.Trace.Rows()))
	if r, ok := w.Rounds.Get(); ok {
		m.Rounds.Observe(float64(r))
	}
	cfg.logger.Info("blake2f trace synthesized", "rows", s.Trace.Rows(),
		"witness", s.Trace.WitnessKnown(), "elapsed", elapsed)
	return s, nil
}

func layout(w Witness, cfg *config) (*Synthesis, error) {
	cs := circuit.NewConstraintSystem()
	chip := Configure(cs)
	chip.SetLogger(cfg.logger)
	trace, err := circuit.NewTrace(cs, cfg.rows)
	if err != nil {
		return nil, err
	}
	l := circuit.NewLayouter(trace, cfg.logger)
	if err := chip.Load(l, cfg.table); err != nil {
		return nil, err
	}
	digest, err := chip.Compress(l, w)
	if err != nil {
		return nil, err
	}
	return &Synthesis{CS: cs, Chip: chip, Trace: trace, Digest: digest, cfg: cfg}, nil
}

// Words returns the digest, or false when the witness was unknown.
func (s *Synthesis) Words() ([8]uint64, bool) {
	var out [8]uint64
	words, ok := knownWords(s.Digest[:])
	if !ok {
		return out, false
	}
	copy(out[:], words)
	return out, true
}

// Verify checks the trace against the constraint system.
func (s *Synthesis) Verify() error {
	m := s.cfg.metrics
	timer := metrics.NewTimer(m.VerifyTime)
	err := circuit.Verify(s.CS, s.Trace)
	timer.Stop()
	m.Verifications.Inc()
	if err != nil {
		m.VerifyFailures.Inc()
		return err
	}
	return nil
}

// Compress synthesizes in, checks the trace and returns the digest.
func Compress(in Input, opts ...Option) ([8]uint64, error) {
	s, err := Synthesize(in, opts...)
	if err != nil {
		return [8]uint64{}, err
	}
	if err := s.Verify(); err != nil {
		return [8]uint64{}, err
	}
	words, _ := s.Words()
	return words, nil
}
