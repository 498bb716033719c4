package models

// Profile is one configured SKPort account.
// Token is empty in configuration and only filled for the lifetime of a single run.
type Profile struct {
	Cred        string `json:"cred" toml:"cred" yaml:"cred"`
	SkGameRole  string `json:"skGameRole" toml:"skGameRole" yaml:"skGameRole"`
	Platform    string `json:"platform" toml:"platform" yaml:"platform"`
	VName       string `json:"vName" toml:"vName" yaml:"vName"`
	AccountName string `json:"accountName" toml:"accountName" yaml:"accountName"`

	Token string `json:"-" toml:"-" yaml:"-"`
}

// WithToken returns a copy of the profile carrying a session token.
func (p Profile) WithToken(token string) Profile {
	p.Token = token
	return p
}
