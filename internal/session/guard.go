package session

import "github.com/jeffersonbalde/syborg-portal/internal/model"

// Decision is the outcome of a route guard check.
type Decision int

const (
	// DecisionAllow lets the navigation through.
	DecisionAllow Decision = iota
	// DecisionLogin means nobody is signed in; send them to the login entry
	// point.
	DecisionLogin
	// DecisionForbidden means the caller is signed in but their role is not
	// allowed here.
	DecisionForbidden
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionLogin:
		return "login"
	case DecisionForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Guard checks the current session against the roles a route admits. It reads
// live state on every call; nothing is cached between navigations.
func (m *Manager) Guard(allowed ...model.Role) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateResolved || m.session.User == nil {
		return DecisionLogin
	}
	for _, role := range allowed {
		if role == m.session.Role {
			return DecisionAllow
		}
	}
	return DecisionForbidden
}
