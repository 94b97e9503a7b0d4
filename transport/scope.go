package transport

// Scope identifies the tenant a request applies to. Either identifier may be
// empty, which means "use the transport's default" for that half of the pair.
// A Scope is passed per call and never stored by endpoints.
type Scope struct {
	AgentID string
	UserID  string
}

// SystemID is the agent that installation-wide operations, such as user
// administration and plugin installation, run as.
const SystemID = "system"

// DefaultScope asks the transport to use its configured defaults.
var DefaultScope = Scope{}

// ForAgent returns a scope bound to the given agent and the default user.
func ForAgent(agentID string) Scope { return Scope{AgentID: agentID} }

// ForUser returns a scope bound to the given user and the default agent.
func ForUser(userID string) Scope { return Scope{UserID: userID} }

// WithAgent returns a copy of s bound to agentID.
func (s Scope) WithAgent(agentID string) Scope {
	s.AgentID = agentID
	return s
}

// WithUser returns a copy of s bound to userID.
func (s Scope) WithUser(userID string) Scope {
	s.UserID = userID
	return s
}

// IsDefault reports whether neither identifier is set.
func (s Scope) IsDefault() bool { return s.AgentID == "" && s.UserID == "" }

// Resolve fills the empty halves of s from defaults.
func (s Scope) Resolve(defaults Scope) Scope {
	if s.AgentID == "" {
		s.AgentID = defaults.AgentID
	}
	if s.UserID == "" {
		s.UserID = defaults.UserID
	}
	return s
}

// System returns a copy of s whose agent is SystemID when s names none. The
// user half is kept.
func (s Scope) System() Scope {
	if s.AgentID == "" {
		s.AgentID = SystemID
	}
	return s
}
