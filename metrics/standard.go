package metrics

// Metric names reported by blake2f synthesis.
const (
	NameSyntheses        = "blake2f.syntheses"
	NameSynthesisErrors  = "blake2f.synthesis_errors"
	NameSynthesisTime    = "blake2f.synthesis_ms"
	NameRounds           = "blake2f.rounds"
	NameTraceRows        = "blake2f.trace_rows"
	NameVerifications    = "blake2f.verifications"
	NameVerifyFailures   = "blake2f.verify_failures"
	NameVerifyTime       = "blake2f.verify_ms"
	NameBatchInFlight    = "blake2f.batch_in_flight"
	NamePrecompileCalls  = "precompile.blake2f_calls"
	NamePrecompileErrors = "precompile.blake2f_errors"
)

// SynthesisMetrics is the set of metrics one registry holds for trace
// synthesis and verification.
type SynthesisMetrics struct {
	// Syntheses counts completed trace syntheses.
	Syntheses *Counter
	// SynthesisErrors counts syntheses that returned an error.
	SynthesisErrors *Counter
	// SynthesisTime records synthesis duration in milliseconds.
	SynthesisTime *Histogram
	// Rounds records the round count of each synthesis with a known witness.
	Rounds *Histogram
	// TraceRows is the height of the last synthesized trace.
	TraceRows *Gauge

	Verifications  *Counter
	VerifyFailures *Counter
	VerifyTime     *Histogram

	// BatchInFlight is the number of batch instances being synthesized.
	BatchInFlight *Gauge
}

// NewSynthesisMetrics creates, or looks up, the synthesis metrics in reg.
// The same registry always yields the same metrics.
func NewSynthesisMetrics(reg *Registry) *SynthesisMetrics {
	return &SynthesisMetrics{
		Syntheses:       reg.Counter(NameSyntheses),
		SynthesisErrors: reg.Counter(NameSynthesisErrors),
		SynthesisTime:   reg.Histogram(NameSynthesisTime),
		Rounds:          reg.Histogram(NameRounds),
		TraceRows:       reg.Gauge(NameTraceRows),
		Verifications:   reg.Counter(NameVerifications),
		VerifyFailures:  reg.Counter(NameVerifyFailures),
		VerifyTime:      reg.Histogram(NameVerifyTime),
		BatchInFlight:   reg.Gauge(NameBatchInFlight),
	}
}

var (
	// Synthesis holds the synthesis metrics of DefaultRegistry.
	Synthesis = NewSynthesisMetrics(DefaultRegistry)

	PrecompileCalls  = DefaultRegistry.Counter(NamePrecompileCalls)
	PrecompileErrors = DefaultRegistry.Counter(NamePrecompileErrors)
)
