package precompile

import (
	"encoding/binary"
	"maps"

	gethcommon "github.com/ethereum/go-ethereum/common"
	gethvm "github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"

	"github.com/eth2030/blake2f/blake2f"
	"github.com/eth2030/blake2f/log"
	"github.com/eth2030/blake2f/metrics"
)

// Address is the BLAKE2F precompile address.
var Address = gethcommon.BytesToAddress([]byte{9})

// ProvingBlake2F answers BLAKE2F calls from a checked trace. Calls with
// more than blake2f.MaxRounds rounds fail with blake2f.ErrTooManyRounds,
// which the plain precompile would accept.
type ProvingBlake2F struct {
	opts []blake2f.Option
	log  *log.Logger
}

var _ gethvm.PrecompiledContract = (*ProvingBlake2F)(nil)

// New returns the precompile. opts are passed to every synthesis.
func New(opts ...blake2f.Option) *ProvingBlake2F {
	return &ProvingBlake2F{opts: opts, log: log.Default().Module("precompile")}
}

// RequiredGas is one gas per round. Malformed input costs nothing and
// fails in Run.
func (c *ProvingBlake2F) RequiredGas(input []byte) uint64 {
	if len(input) != InputLength {
		return 0
	}
	return uint64(binary.BigEndian.Uint32(input[:4]))
}

func (c *ProvingBlake2F) Run(input []byte) ([]byte, error) {
	metrics.PrecompileCalls.Inc()
	out, err := c.run(input)
	if err != nil {
		metrics.PrecompileErrors.Inc()
		c.log.Debug("blake2f call rejected", "err", err)
		return nil, err
	}
	return out, nil
}

func (c *ProvingBlake2F) run(input []byte) ([]byte, error) {
	in, err := ParseInput(input)
	if err != nil {
		return nil, err
	}
	words, err := blake2f.Compress(in, c.opts...)
	if err != nil {
		return nil, err
	}
	return EncodeDigest(words), nil
}

func (c *ProvingBlake2F) Name() string { return "BLAKE2F" }

// Precompiles returns the precompiles active under rules with BLAKE2F
// replaced by p. The map is a copy.
func Precompiles(rules params.Rules, p *ProvingBlake2F) gethvm.PrecompiledContracts {
	out := maps.Clone(gethvm.ActivePrecompiledContracts(rules))
	if _, ok := out[Address]; ok {
		out[Address] = p
	}
	return out
}
