package ppets

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bets-framework/ppets/pkg/bilinear"
	"github.com/rs/zerolog"
)

// Parameters configure a session. They are sent to the device during setup.
type Parameters struct {
	// SkipVerification makes failed checks non fatal.
	SkipVerification bool
	// NumValidations is the number of times the ticket is validated.
	NumValidations int
	Group          bilinear.Params
}

// DefaultParameters verifies every check, validates twice, and uses a type A group.
func DefaultParameters() Parameters {
	return Parameters{
		SkipVerification: false,
		NumValidations:   2,
		Group:            bilinear.DefaultParams(bilinear.TypeA),
	}
}

// Validate checks the parameters.
func (p Parameters) Validate() error {
	if p.NumValidations < 1 {
		return &bilinear.UnsupportedParameterError{Name: "numValidations", Value: strconv.Itoa(p.NumValidations)}
	}
	return p.Group.Validate()
}

// Positions of the parameter list.
const (
	argSkipVerification = iota
	argNumValidations
	argPairingFamily
	argStrength1
	argStrength2
	argCount
)

// ParseParameters applies a positional parameter list to prior:
//
//	skipVerification numValidations pairingFamily strengthParam1 strengthParam2
//
// Missing trailing entries keep their prior value. Selecting a family first resets
// both strength slots to the family's defaults; for A1 the slots then mean the number
// of primes and their size, instead of the sizes of r and q.
//
// If any entry is invalid, an error is returned and prior is left as is.
func ParseParameters(args []string, prior Parameters) (Parameters, error) {
	if len(args) > argCount {
		return prior, fmt.Errorf("ppets: %d parameters given, at most %d expected", len(args), argCount)
	}
	p := prior
	for i, arg := range args {
		arg = strings.TrimSpace(arg)
		var err error
		switch i {
		case argSkipVerification:
			p.SkipVerification, err = strconv.ParseBool(arg)
		case argNumValidations:
			p.NumValidations, err = strconv.Atoi(arg)
		case argPairingFamily:
			var f bilinear.Family
			if f, err = bilinear.ParseFamily(arg); err == nil {
				p.Group = bilinear.DefaultParams(f)
			}
		case argStrength1:
			p.Group.Strength1, err = strconv.Atoi(arg)
		case argStrength2:
			p.Group.Strength2, err = strconv.Atoi(arg)
		}
		if err != nil {
			return prior, fmt.Errorf("ppets: parameter %d (%q): %w", i, arg, err)
		}
	}
	if err := p.Validate(); err != nil {
		return prior, err
	}
	return p, nil
}

// ApplyParameters parses args over prior for a caller without a context, such as a
// reader starting up. Errors are logged, and prior is returned.
func ApplyParameters(log zerolog.Logger, args []string, prior Parameters) Parameters {
	p, err := ParseParameters(args, prior)
	if err != nil {
		logParametersError(log, args, err)
	}
	return p
}

func logParametersError(log zerolog.Logger, args []string, err error) {
	log.Error().Err(err).Strs("args", args).Msg("could not set parameters")
}

// SetParameters parses args and installs the result.
//
// Errors are logged and returned, and leave the configuration unchanged.
// A group created with different parameters is discarded.
func (c *Context) SetParameters(args []string) error {
	p, err := ParseParameters(args, c.params)
	if err != nil {
		logParametersError(c.Log, args, err)
		return err
	}
	if c.group != nil && c.group.Params() != p.Group {
		c.group = nil
	}
	c.params = p
	c.logParameters()
	return nil
}

func (c *Context) logParameters() {
	c.Log.Info().Bool("skip", c.params.SkipVerification).Msg("ignore verification failures")
	c.Log.Info().Int("validations", c.params.NumValidations).Msg("number of validations")
	g := c.params.Group
	if g.Family == bilinear.TypeA1 {
		c.Log.Info().
			Str("family", string(g.Family)).
			Int("primes", g.PrimeCount()).
			Int("bits", g.PrimeBits()).
			Msg("bilinear group parameters (n, bits)")
		return
	}
	c.Log.Info().
		Str("family", string(g.Family)).
		Int("r", g.RBits()).
		Int("q", g.QBits()).
		Msg("bilinear group parameters (r, q)")
}
