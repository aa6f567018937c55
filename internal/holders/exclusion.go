// Package holders discovers the wallets currently holding the tracked mint.
package holders

// ExclusionPolicy is the static set of protocol-owned and infrastructure
// addresses that must never be selected as recipients.
type ExclusionPolicy struct {
	addresses map[string]struct{}
}

// NewExclusionPolicy builds a policy from the given addresses. The operator
// address must be included by the caller; the policy itself is static.
func NewExclusionPolicy(addresses ...string) *ExclusionPolicy {
	set := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		if addr == "" {
			continue
		}
		set[addr] = struct{}{}
	}
	return &ExclusionPolicy{addresses: set}
}

// Excluded reports whether the wallet may not receive distributions.
func (p *ExclusionPolicy) Excluded(wallet string) bool {
	_, ok := p.addresses[wallet]
	return ok
}

// Size returns the number of excluded addresses.
func (p *ExclusionPolicy) Size() int {
	return len(p.addresses)
}
