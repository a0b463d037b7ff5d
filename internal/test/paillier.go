package test

import (
	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/cmp-keygen/pkg/paillier"
)

// Safe primes of params.BitsBlumPrime bits, so that tests need not spend time sampling new ones.
var (
	p0, _ = new(saferith.Nat).SetHex("E03C9BC5B0200BCCDC401AD031988745C3ED604689DF1A8AB854C5F3DE45389CD35F62142D58BD72A02C92BDC79701119AF21A0331EBDA45AE0E99F1591ED678F20C15282EE31047D5553E32466B3636805985992142B3207795BFFA52310D5B7ECC1BDB0D866C8F33C4D43CDC8C31B5C72E417BC11656E8F8857E2C547E26AF")
	q0, _ = new(saferith.Nat).SetHex("C77A443E26CE9617B3FC6926D62B74D1ADFD7DE50823CF5E67950856DE11FE02C1F998BA52CA38DB9F49023D28FC40CFE348F94B446396D43F6630115CBE062F841C0FA40137AB652A4BEDF2A00AB9B6FB576B37015BA18C584ABA3BA2CA9AC1FBFC1549416A214DE2E64B2E164204F4BBE90278BBCE59ED4ED2D33D1FEFF8C7")
	p1, _ = new(saferith.Nat).SetHex("C480FF1CA756B3C44D62CA6CDC0AD9ADAB3083B1BE2FE60DD6798291123CFDD57ED2884706C0EB5AC13D4B7BE0A6FCEB4CD631CF8D1B777326FA9448BF235D314A2B6696FCF23D4AD2E578A9FD461E541FDC5F966056BDDA2C898C4ACDE39BF79994E4864FE92470F47EBCE51ABE1C71B6B0051A192B4057434F04941BC2C6C7")
	q1, _ = new(saferith.Nat).SetHex("D0E842BA40AEEDBE0C68477C5A41DB055DF82F8389C5B593E995841A9F8EAFD2690CE46B6ADB8CA9E268FA7F7A6C6D83D41636BA0E8890B5D7A33E7813B06257CFDE34165C4AB7A2B0A022205D06F823ED0D8DEA6F9D5361DBCBC36B3A504108151BD545DF2154DEF4FC1AEAB8467051FDC689717E76D79BD34AD0CBA49C29A3")

	// NotSafePrime is a prime of the right size with p ≡ 3 (mod 4), but (p-1)/2 is composite.
	NotSafePrime, _ = new(saferith.Nat).SetHex("F37D6EF9135FEC74E6CB1479507CC5C268508C00DB4670CA5F1614B039668401A1FC2663DB5B9D7DB7B43FDB097A700DE06519E35521178FA4CAF6DBD57AC3442414BFD1F86B14E5EA82C4FD20377633E6E2A46C06D282C4D9C28DD86A8A66B07E1C2EC7A7F4EC82DBBE60CFA9945529EFDD67AE10D443264889A1FF43174B8B")
)

// SafePrimes returns two pairs of distinct safe primes.
func SafePrimes() [2][2]*saferith.Nat {
	return [2][2]*saferith.Nat{{p0, q0}, {p1, q1}}
}

// PaillierSecretKey returns the i-th Paillier secret key built by pairing the fixed safe primes.
// Only 4 distinct keys are available, and i is taken modulo 4.
func PaillierSecretKey(i int) *paillier.SecretKey {
	pairs := [4][2]*saferith.Nat{{p0, q0}, {p1, q1}, {p0, q1}, {p1, q0}}
	pair := pairs[i%4]
	return paillier.NewSecretKeyFromPrimes(pair[0], pair[1])
}

// PaillierSecretKeys returns two Paillier secret keys built from fixed safe primes.
func PaillierSecretKeys() (*paillier.SecretKey, *paillier.SecretKey) {
	return paillier.NewSecretKeyFromPrimes(p0, q0), paillier.NewSecretKeyFromPrimes(p1, q1)
}
