package engine

// Kind tags the result of one locator attempt.
type Kind int

const (
	KindNotFound Kind = iota
	KindFound
	KindNavigationError
)

func (k Kind) String() string {
	switch k {
	case KindFound:
		return "found"
	case KindNavigationError:
		return "navigation_error"
	default:
		return "not_found"
	}
}

// Outcome is Found(text), NotFound or NavigationError(cause).
type Outcome struct {
	kind Kind
	text string
	err  error
}

// Found carries non-empty, trimmed element text.
func Found(text string) Outcome { return Outcome{kind: KindFound, text: text} }

// NotFound means the locator matched nothing usable.
func NotFound() Outcome { return Outcome{kind: KindNotFound} }

// NavigationError means the provider page could not be loaded.
func NavigationError(err error) Outcome { return Outcome{kind: KindNavigationError, err: err} }

func (o Outcome) Kind() Kind   { return o.kind }
func (o Outcome) Text() string { return o.text }
func (o Outcome) Err() error   { return o.err }
