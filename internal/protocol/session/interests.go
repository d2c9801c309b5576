package session

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidInterest = errors.New("session: invalid interest")

// Interest names one interface the client wants bound. MaxVersion caps the
// advertised version when non-zero.
type Interest struct {
	Interface  string
	MaxVersion uint32
}

// Binding records one issued bind request.
type Binding struct {
	Interface string `json:"interface"`
	ID        uint32 `json:"id"`
	Version   uint32 `json:"version"`
	Name      uint32 `json:"name"`
}

type interestState struct {
	Interest
	bound   bool
	binding Binding
}

// InterestSet is the fixed set of interfaces to bind, in declaration order.
type InterestSet struct {
	order []string
	items map[string]*interestState
}

func NewInterestSet(interests []Interest) (*InterestSet, error) {
	s := &InterestSet{items: make(map[string]*interestState, len(interests))}
	for i, in := range interests {
		name := strings.TrimSpace(in.Interface)
		if name == "" {
			return nil, fmt.Errorf("%w: interests[%d] missing interface", ErrInvalidInterest, i)
		}
		if _, dup := s.items[name]; dup {
			return nil, fmt.Errorf("%w: duplicate interface %q", ErrInvalidInterest, name)
		}
		in.Interface = name
		s.items[name] = &interestState{Interest: in}
		s.order = append(s.order, name)
	}
	if len(s.order) == 0 {
		return nil, fmt.Errorf("%w: empty interest set", ErrInvalidInterest)
	}
	return s, nil
}

// InterestsFor builds interests with no version caps.
func InterestsFor(names ...string) []Interest {
	out := make([]Interest, 0, len(names))
	for _, n := range names {
		out = append(out, Interest{Interface: n})
	}
	return out
}

// Match returns the interest for iface if it is still unbound.
func (s *InterestSet) Match(iface string) (Interest, bool) {
	st, ok := s.items[iface]
	if !ok || st.bound {
		return Interest{}, false
	}
	return st.Interest, true
}

func (s *InterestSet) MarkBound(b Binding) {
	st, ok := s.items[b.Interface]
	if !ok {
		return
	}
	st.bound = true
	st.binding = b
}

func (s *InterestSet) Satisfied() bool {
	for _, st := range s.items {
		if !st.bound {
			return false
		}
	}
	return true
}

// Remaining lists unbound interfaces in declaration order.
func (s *InterestSet) Remaining() []string {
	out := make([]string, 0)
	for _, name := range s.order {
		if !s.items[name].bound {
			out = append(out, name)
		}
	}
	return out
}

func (s *InterestSet) Len() int {
	return len(s.order)
}

// NegotiatedVersion caps the advertised version by the interest's limit.
func (i Interest) NegotiatedVersion(advertised uint32) uint32 {
	if i.MaxVersion > 0 && advertised > i.MaxVersion {
		return i.MaxVersion
	}
	return advertised
}
