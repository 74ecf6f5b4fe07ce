// Package login tracks the progression of a single authentication session:
// which milestones have been reached and which credential data each milestone
// requires. It holds no transport concerns; the oauth and userinfo packages
// feed it.
package login

// State is a point in the login process. States form a strict linear order;
// Authenticated is the only terminal state.
type State int

const (
	// LoggedOut means no credential information is held.
	LoggedOut State = iota
	// AuthorizationCodeReceived means the provider redirect has yielded an
	// authorization code.
	AuthorizationCodeReceived
	// AccessTokenReceived means the code has been exchanged for an access
	// token.
	AccessTokenReceived
	// Authenticated means user details have been fetched and a user value
	// constructed.
	Authenticated
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged_out"
	case AuthorizationCodeReceived:
		return "authorization_code_received"
	case AccessTokenReceived:
		return "access_token_received"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Terminal reports whether s has no successor.
func (s State) Terminal() bool {
	return s == Authenticated
}

// next returns the successor state. ok is false for the terminal state.
func (s State) next() (next State, ok bool) {
	switch s {
	case LoggedOut:
		return AuthorizationCodeReceived, true
	case AuthorizationCodeReceived:
		return AccessTokenReceived, true
	case AccessTokenReceived:
		return Authenticated, true
	default:
		return s, false
	}
}

// Field names one piece of credential information gathered during login.
type Field string

const (
	FieldAuthorizationCode Field = "authorizationCode"
	FieldAccessToken       Field = "accessToken"
	FieldUserDetails       Field = "userDetails"
)

// RequiredFields returns the set of fields that must be present to be in the
// given state. The sets are cumulative along the state order.
func RequiredFields(s State) []Field {
	switch s {
	case AuthorizationCodeReceived:
		return []Field{FieldAuthorizationCode}
	case AccessTokenReceived:
		return []Field{FieldAuthorizationCode, FieldAccessToken}
	case Authenticated:
		return []Field{FieldAuthorizationCode, FieldAccessToken, FieldUserDetails}
	default:
		return nil
	}
}

// AccessToken is a bearer credential for the data service API, together with
// the refresh token used to obtain a successor without re-prompting the user.
type AccessToken struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token"`
}

// UserDetails are the authenticated user's attributes as returned by the user
// endpoint. The JSON keys match the data service's casing.
type UserDetails struct {
	ID       int    `json:"Id"`
	Username string `json:"Username"`
	Email    string `json:"Email"`
	Forename string `json:"Forename"`
	Surname  string `json:"Surname"`
	Name     string `json:"Name"`
}

// FullName returns Name, falling back to "Forename Surname" when the service
// did not populate it.
func (d UserDetails) FullName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Forename + " " + d.Surname
}

// Credentials holds each piece of information gathered during one login
// session. Fields only accumulate; a reset clears all of them at once.
type Credentials struct {
	AuthorizationCode string
	AccessToken       *AccessToken
	UserDetails       *UserDetails
}

func (c *Credentials) has(f Field) bool {
	switch f {
	case FieldAuthorizationCode:
		return c.AuthorizationCode != ""
	case FieldAccessToken:
		return c.AccessToken != nil
	case FieldUserDetails:
		return c.UserDetails != nil
	default:
		return false
	}
}

// missing returns the subset of fields not yet present, in the given order.
func (c *Credentials) missing(fields []Field) []Field {
	var out []Field
	for _, f := range fields {
		if !c.has(f) {
			out = append(out, f)
		}
	}
	return out
}

// User is any variant of user the application can construct once
// authentication completes: the primary user today, friend or listing
// variants later.
type User interface {
	Details() UserDetails
}

// UserFactory constructs a user variant from fetched details and the
// authenticator that logged the user in.
type UserFactory func(details UserDetails, auth *Authenticator) User

// PrimaryUser is the user operating the application.
type PrimaryUser struct {
	details UserDetails
	auth    *Authenticator
}

// NewPrimaryUser is a UserFactory for PrimaryUser.
func NewPrimaryUser(details UserDetails, auth *Authenticator) User {
	return &PrimaryUser{details: details, auth: auth}
}

// Details returns the user's attributes.
func (u *PrimaryUser) Details() UserDetails { return u.details }

// Authenticator returns the authenticator that constructed this user, for
// access to the credentials backing subsequent API calls.
func (u *PrimaryUser) Authenticator() *Authenticator { return u.auth }
