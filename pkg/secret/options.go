package secret

// defaultKind distinguishes "no default supplied" from the two ways of
// supplying one. The zero value means no default.
type defaultKind int

const (
	noDefault defaultKind = iota
	valueDefault
	nullDefault
)

type callOptions struct {
	username     string
	fallback     defaultKind
	defaultValue string
	forcePrompt  bool
	prompt       string
	hasPrompt    bool
}

// CallOption adjusts a single Get, Set or Delete call. Set and Delete only
// honour WithUsername.
type CallOption func(*callOptions)

// WithUsername addresses the secret under username instead of the default
// identity. An empty username means the default identity.
func WithUsername(username string) CallOption {
	return func(o *callOptions) { o.username = username }
}

// WithDefault makes Get return v instead of prompting when no secret is stored.
func WithDefault(v string) CallOption {
	return func(o *callOptions) {
		o.fallback = valueDefault
		o.defaultValue = v
	}
}

// WithNullDefault makes Get return ok == false instead of prompting when no
// secret is stored.
func WithNullDefault() CallOption {
	return func(o *callOptions) {
		o.fallback = nullDefault
		o.defaultValue = ""
	}
}

// WithForcePrompt makes Get skip the store lookup. The prompted value
// overwrites whatever was stored.
func WithForcePrompt() CallOption {
	return func(o *callOptions) { o.forcePrompt = true }
}

// WithPrompt replaces the "service[username]" prompt text. An empty text is
// shown as-is.
func WithPrompt(text string) CallOption {
	return func(o *callOptions) {
		o.prompt = text
		o.hasPrompt = true
	}
}
