package login

// Authenticator assembles a user as the pieces of authentication information
// are gathered. It is the single coordination point wrapping the state
// machine: callers hand it each credential as it arrives and it enforces the
// order they may arrive in.
//
// One Authenticator tracks one in-flight login. Construct a fresh one per
// attempt, or LogOut to reuse it. Calls must be externally serialized.
type Authenticator struct {
	machine *Machine
	user    User
}

// NewAuthenticator returns an Authenticator in the LoggedOut state.
func NewAuthenticator() *Authenticator {
	return &Authenticator{machine: NewMachine()}
}

// State returns the current login state.
func (a *Authenticator) State() State { return a.machine.State() }

// AuthorizationCode returns the stored authorization code, if any.
func (a *Authenticator) AuthorizationCode() string {
	return a.machine.Credentials().AuthorizationCode
}

// AccessToken returns the stored access token, if any.
func (a *Authenticator) AccessToken() *AccessToken {
	return a.machine.Credentials().AccessToken
}

// UserDetails returns the stored user details, if any.
func (a *Authenticator) UserDetails() *UserDetails {
	return a.machine.Credentials().UserDetails
}

// RegisterCompletion registers fn to run when the given state is committed.
func (a *Authenticator) RegisterCompletion(state State, fn func()) error {
	return a.machine.RegisterCompletion(state, fn)
}

// ReceiveAuthorizationCode stores the authorization code obtained from the
// provider redirect and advances to AuthorizationCodeReceived. Valid only in
// the LoggedOut state.
func (a *Authenticator) ReceiveAuthorizationCode(code string) error {
	if s := a.machine.State(); s != LoggedOut {
		return WrongStateError{Actual: s, Expected: LoggedOut}
	}

	a.machine.SetAuthorizationCode(code)
	return a.machine.Advance()
}

// ReceiveAccessToken stores the exchanged access token and advances to
// AccessTokenReceived. Valid only in the AuthorizationCodeReceived state;
// calling it straight from LoggedOut reports the skipped milestone.
func (a *Authenticator) ReceiveAccessToken(tok AccessToken) error {
	switch s := a.machine.State(); s {
	case AuthorizationCodeReceived:
	case LoggedOut:
		return MissingDetailsError{ForState: AuthorizationCodeReceived}
	default:
		return WrongStateError{Actual: s, Expected: AuthorizationCodeReceived}
	}

	a.machine.SetAccessToken(tok)
	return a.machine.Advance()
}

// ReceiveUserDetails stores the fetched details, constructs the user via the
// supplied factory, and advances to the terminal Authenticated state. Valid
// only in the AccessTokenReceived state; calling it straight from
// AuthorizationCodeReceived reports the skipped milestone.
func (a *Authenticator) ReceiveUserDetails(details UserDetails, build UserFactory) error {
	switch s := a.machine.State(); s {
	case AccessTokenReceived:
	case AuthorizationCodeReceived:
		return MissingDetailsError{ForState: AccessTokenReceived}
	default:
		return WrongStateError{Actual: s, Expected: AccessTokenReceived}
	}

	a.machine.SetUserDetails(details)
	user := build(details, a)
	if err := a.machine.Advance(); err != nil {
		return err
	}
	a.user = user
	return nil
}

// User returns the constructed user. It fails with a WrongStateError until
// the terminal state is reached, and with ErrNoUser if the terminal state was
// somehow reached without a user being constructed.
func (a *Authenticator) User() (User, error) {
	if s := a.machine.State(); !s.Terminal() {
		return nil, WrongStateError{Actual: s, Expected: Authenticated}
	}
	if a.user == nil {
		return nil, ErrNoUser
	}
	return a.user, nil
}

// LogOut clears all stored credentials and the constructed user and returns
// to LoggedOut, regardless of the current state. It always succeeds.
func (a *Authenticator) LogOut() {
	a.user = nil
	a.machine.Reset()
}
