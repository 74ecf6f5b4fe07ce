package login

// Machine validates and performs login state transitions. It owns the
// credential fields gathered so far and rejects any transition whose
// prerequisite data is absent.
//
// A Machine is not safe for concurrent use; one login session is driven by
// one caller at a time.
type Machine struct {
	state       State
	creds       Credentials
	completions map[State]func()
}

// NewMachine returns a Machine in the LoggedOut state with no credentials.
func NewMachine() *Machine {
	return &Machine{
		state:       LoggedOut,
		completions: make(map[State]func()),
	}
}

// State returns the current login state.
func (m *Machine) State() State { return m.state }

// Credentials returns a copy of the gathered credential fields.
func (m *Machine) Credentials() Credentials { return m.creds }

// SetAuthorizationCode records the authorization code. Fields may be set
// ahead of the transition that needs them; requirements are only checked by
// Advance.
func (m *Machine) SetAuthorizationCode(code string) {
	m.creds.AuthorizationCode = code
}

// SetAccessToken records the access token.
func (m *Machine) SetAccessToken(tok AccessToken) {
	m.creds.AccessToken = &tok
}

// SetUserDetails records the fetched user details.
func (m *Machine) SetUserDetails(details UserDetails) {
	m.creds.UserDetails = &details
}

// Advance moves to the next state if every field that state requires is
// present. The transition is all-or-nothing: on failure the state is
// unchanged. On commit, a completion registered for the new state fires
// synchronously, exactly once.
//
// Returns ErrFinalState when the current state is terminal and a
// MissingInformationError listing the absent fields when requirements are
// not met.
func (m *Machine) Advance() error {
	next, ok := m.state.next()
	if !ok {
		return ErrFinalState
	}

	if missing := m.creds.missing(RequiredFields(next)); len(missing) > 0 {
		return MissingInformationError{Missing: missing}
	}

	m.state = next
	if fn := m.completions[next]; fn != nil {
		fn()
	}
	return nil
}

// Reset unconditionally returns to LoggedOut and clears all gathered
// credential fields. It is idempotent. Registered completions survive a
// reset so a re-login fires them again.
func (m *Machine) Reset() {
	m.state = LoggedOut
	m.creds = Credentials{}
}

// RegisterCompletion associates a callback with a state, to be invoked the
// moment Advance commits that state. At most one completion per state;
// registering a second returns ErrDuplicateCompletion.
func (m *Machine) RegisterCompletion(state State, fn func()) error {
	if _, exists := m.completions[state]; exists {
		return ErrDuplicateCompletion
	}
	m.completions[state] = fn
	return nil
}
