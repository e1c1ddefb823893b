// internal/admin/admin.go
package admin

import (
	"errors"
	"strings"
)

// ErrNotAdmin is returned when a wallet without admin rights calls an
// admin-only operation.
var ErrNotAdmin = errors.New("admin rights required")

// Set is an immutable, case-insensitive set of admin wallets.
type Set struct {
	addrs map[string]struct{}
	list  []string
}

// Parse builds a Set from a comma-separated list of addresses.
func Parse(csv string) *Set {
	return New(strings.Split(csv, ","))
}

// New builds a Set from addresses. Blank entries are ignored.
func New(addresses []string) *Set {
	s := &Set{addrs: make(map[string]struct{}, len(addresses))}
	for _, a := range addresses {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		key := strings.ToLower(a)
		if _, dup := s.addrs[key]; dup {
			continue
		}
		s.addrs[key] = struct{}{}
		s.list = append(s.list, a)
	}
	return s
}

// IsAdmin reports whether address belongs to the set.
func (s *Set) IsAdmin(address string) bool {
	if s == nil {
		return false
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return false
	}
	_, ok := s.addrs[strings.ToLower(address)]
	return ok
}

// Require returns ErrNotAdmin unless address is an admin.
func (s *Set) Require(address string) error {
	if !s.IsAdmin(address) {
		return ErrNotAdmin
	}
	return nil
}

// Addresses lists the admins as configured.
func (s *Set) Addresses() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.list))
	copy(out, s.list)
	return out
}
