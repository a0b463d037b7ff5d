package zkprm

import (
	"crypto/rand"
	"io"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/cmp-keygen/internal/params"
	"github.com/taurusgroup/cmp-keygen/pkg/hash"
	"github.com/taurusgroup/cmp-keygen/pkg/math/arith"
	"github.com/taurusgroup/cmp-keygen/pkg/math/sample"
	"github.com/taurusgroup/cmp-keygen/pkg/pool"
)

type Public struct {
	N    *saferith.Modulus
	S, T *saferith.Nat
}
type Private struct {
	Lambda, Phi, P, Q *saferith.Nat
}

type Proof struct {
	As, Zs [params.StatParam]*saferith.Nat
}

func (p *Proof) IsValid(public Public) bool {
	if p == nil {
		return false
	}
	if !arith.IsValidNatModN(public.N, p.As[:]...) {
		return false
	}
	for _, z := range p.Zs {
		if z == nil {
			return false
		}
	}
	return true
}

// NewProof generates a proof that:
// s = t^lambda (mod N).
func NewProof(private Private, hash *hash.Hash, public Public, pl *pool.Pool) *Proof {
	lambda := private.Lambda
	phi := saferith.ModulusFromNat(private.Phi)

	n := arith.ModulusFromFactors(private.P, private.Q)

	var (
		as [params.StatParam]*saferith.Nat
		As [params.StatParam]*saferith.Nat
	)
	lockedRand := pool.NewLockedReader(rand.Reader)
	pl.Parallelize(params.StatParam, func(i int) interface{} {
		// aᵢ ∈ mod ϕ(N)
		as[i] = sample.ModN(lockedRand, phi)

		// Aᵢ = tᵃ mod N
		As[i] = n.Exp(public.T, as[i])

		return nil
	})

	es, err := challenge(hash, public, As)
	if err != nil {
		return nil
	}
	// Modular addition is not expensive enough to warrant parallelizing
	var Zs [params.StatParam]*saferith.Nat
	for i := 0; i < params.StatParam; i++ {
		z := as[i]
		// The challenge is public, so branching is ok
		if es[i] {
			z.ModAdd(z, lambda, phi)
		}
		Zs[i] = z
	}

	return &Proof{
		As: As,
		Zs: Zs,
	}
}

func (p *Proof) Verify(public Public, hash *hash.Hash, pl *pool.Pool) bool {
	if public.N == nil || public.S == nil || public.T == nil {
		return false
	}
	if !p.IsValid(public) {
		return false
	}
	if !arith.IsValidNatModN(public.N, public.S, public.T) || public.S.Eq(public.T) == 1 {
		return false
	}

	n, s, t := public.N, public.S, public.T

	es, err := challenge(hash, public, p.As)
	if err != nil {
		return false
	}

	one := new(saferith.Nat).SetUint64(1)
	verifications := pl.Parallelize(params.StatParam, func(i int) interface{} {
		z := p.Zs[i]
		a := p.As[i]

		if a.Eq(one) == 1 {
			return false
		}

		lhs := new(saferith.Nat).Exp(t, z, n)
		rhs := new(saferith.Nat).Mod(a, n)
		if es[i] {
			rhs.ModMul(rhs, s, n)
		}
		return lhs.Eq(rhs) == 1
	})
	for i := 0; i < len(verifications); i++ {
		ok, _ := verifications[i].(bool)
		if !ok {
			return false
		}
	}
	return true
}

func challenge(h *hash.Hash, public Public, A [params.StatParam]*saferith.Nat) (es []bool, err error) {
	if err = h.WriteAny(hash.Modulus{Modulus: public.N}, hash.Nat{Nat: public.S}, hash.Nat{Nat: public.T}); err != nil {
		return
	}
	for _, a := range A {
		if err = h.WriteAny(hash.Nat{Nat: a}); err != nil {
			return
		}
	}

	digest, err := h.Digest()
	if err != nil {
		return
	}
	tmpBytes := make([]byte, params.StatParam)
	if _, err = io.ReadFull(digest, tmpBytes); err != nil {
		return
	}

	es = make([]bool, params.StatParam)
	for i := range es {
		es[i] = (tmpBytes[i] & 1) == 1
	}

	return
}
