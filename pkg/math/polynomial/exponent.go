package polynomial

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/taurusgroup/cmp-keygen/pkg/math/curve"
)

var (
	ErrExponentLength   = errors.New("polynomial: exponents have different number of coefficients")
	ErrExponentConstant = errors.New("polynomial: exponents differ in their constant flag")
	ErrExponentEmpty    = errors.New("polynomial: no exponents to sum")
)

// Exponent represents a polynomial F(X) whose coefficients belong to a group 𝔾.
type Exponent struct {
	group curve.Curve
	// IsConstant indicates that the constant coefficient is the identity.
	// We do not store it in the coefficients, and the evaluation is shifted by one power.
	IsConstant   bool
	coefficients []curve.Point
}

// NewPolynomialExponent generates an Exponent polynomial F(X) = [secret + a₁⋅X + … + aₜ⋅Xᵗ]⋅G,
// with coefficients in 𝔾, and degree t.
func NewPolynomialExponent(polynomial *Polynomial) *Exponent {
	p := &Exponent{
		group:        polynomial.group,
		IsConstant:   polynomial.coefficients[0].IsZero(),
		coefficients: make([]curve.Point, 0, len(polynomial.coefficients)),
	}

	for i, c := range polynomial.coefficients {
		if p.IsConstant && i == 0 {
			continue
		}
		p.coefficients = append(p.coefficients, c.ActOnBase())
	}

	return p
}

// Evaluate returns F(x) = [f(x)]⋅G.
func (p *Exponent) Evaluate(x curve.Scalar) curve.Point {
	if len(p.coefficients) == 0 {
		return p.group.NewPoint()
	}
	result := p.group.NewPoint().Set(p.coefficients[len(p.coefficients)-1])

	for i := len(p.coefficients) - 2; i >= 0; i-- {
		// B_n-1 = [x]B_n  + A_n-1
		result = x.Act(result).Add(p.coefficients[i])
	}

	if p.IsConstant {
		// result is B₁
		// we want B₀ = [x]B₁ + A₀ = [x]B₁
		result = x.Act(result)
	}

	return result
}

// Degree returns the degree t of the polynomial.
func (p *Exponent) Degree() int {
	if p.IsConstant {
		return len(p.coefficients)
	}
	return len(p.coefficients) - 1
}

// Add sets p to p + q, where both must have the same shape.
func (p *Exponent) Add(q *Exponent) error {
	if len(p.coefficients) != len(q.coefficients) {
		return ErrExponentLength
	}
	if p.IsConstant != q.IsConstant {
		return ErrExponentConstant
	}

	for i := 0; i < len(p.coefficients); i++ {
		p.coefficients[i] = p.coefficients[i].Add(q.coefficients[i])
	}

	return nil
}

// Sum creates a new Polynomial in the Exponent, by summing a slice of existing ones.
func Sum(polynomials []*Exponent) (*Exponent, error) {
	if len(polynomials) == 0 {
		return nil, ErrExponentEmpty
	}

	// Create the new polynomial by copying the first one given
	summed := polynomials[0].Copy()

	// we assume all polynomials have the same degree as the first
	for j := 1; j < len(polynomials); j++ {
		if err := summed.Add(polynomials[j]); err != nil {
			return nil, fmt.Errorf("polynomial: sum of exponent %d: %w", j, err)
		}
	}
	return summed, nil
}

// Copy returns a deep copy of p.
func (p *Exponent) Copy() *Exponent {
	q := &Exponent{
		group:        p.group,
		IsConstant:   p.IsConstant,
		coefficients: make([]curve.Point, len(p.coefficients)),
	}
	for i := 0; i < len(p.coefficients); i++ {
		q.coefficients[i] = p.group.NewPoint().Set(p.coefficients[i])
	}
	return q
}

// Equal returns true if p and other have the same shape and coefficients.
func (p *Exponent) Equal(other *Exponent) bool {
	if p.IsConstant != other.IsConstant {
		return false
	}
	if len(p.coefficients) != len(other.coefficients) {
		return false
	}
	for i := 0; i < len(p.coefficients); i++ {
		if !p.coefficients[i].Equal(other.coefficients[i]) {
			return false
		}
	}
	return true
}

// Constant returns the constant coefficient of the polynomial 'in the exponent'.
func (p *Exponent) Constant() curve.Point {
	c := p.group.NewPoint()
	if p.IsConstant {
		return c
	}
	return c.Add(p.coefficients[0])
}

// WriteTo implements io.WriterTo and should be used within the hash.Hash function.
func (p *Exponent) WriteTo(w io.Writer) (int64, error) {
	if p == nil {
		return 0, io.ErrUnexpectedEOF
	}
	nAll := int64(0)
	// write the constant flag
	var flag byte
	if p.IsConstant {
		flag = 1
	}
	n, err := w.Write([]byte{flag})
	nAll += int64(n)
	if err != nil {
		return nAll, err
	}

	// write the number of coefficients
	if err = binary.Write(w, binary.BigEndian, uint32(len(p.coefficients))); err != nil {
		return nAll, err
	}
	nAll += 4

	// write all coefficients
	for _, c := range p.coefficients {
		data, err := c.MarshalBinary()
		if err != nil {
			return nAll, err
		}
		n, err := w.Write(data)
		nAll += int64(n)
		if err != nil {
			return nAll, err
		}
	}
	return nAll, nil
}

// Domain implements hash.WriterToWithDomain, and separates this type within hash.Hash.
func (*Exponent) Domain() string {
	return "Exponent"
}

// EmptyExponent initializes an Exponent over group, ready to be unmarshalled into.
func EmptyExponent(group curve.Curve) *Exponent {
	return &Exponent{group: group}
}

type exponentMarshal struct {
	IsConstant   bool
	Coefficients [][]byte
}

func (p *Exponent) MarshalBinary() ([]byte, error) {
	coefficients := make([][]byte, len(p.coefficients))
	for i, c := range p.coefficients {
		data, err := c.MarshalBinary()
		if err != nil {
			return nil, err
		}
		coefficients[i] = data
	}
	return cbor.Marshal(exponentMarshal{
		IsConstant:   p.IsConstant,
		Coefficients: coefficients,
	})
}

// UnmarshalBinary requires the group to be set, with EmptyExponent.
func (p *Exponent) UnmarshalBinary(data []byte) error {
	if p == nil || p.group == nil {
		return errors.New("polynomial: can't unmarshal Exponent with no group")
	}
	var m exponentMarshal
	if err := cbor.Unmarshal(data, &m); err != nil {
		return err
	}
	p.IsConstant = m.IsConstant
	p.coefficients = make([]curve.Point, len(m.Coefficients))
	for i, raw := range m.Coefficients {
		c := p.group.NewPoint()
		if err := c.UnmarshalBinary(raw); err != nil {
			return fmt.Errorf("polynomial: coefficient %d: %w", i, err)
		}
		p.coefficients[i] = c
	}
	return nil
}
