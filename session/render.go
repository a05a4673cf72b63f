package session

import (
	"fmt"
	"html"
)

// HTML is markup that renderers pass through unescaped.
type HTML string

// Renderer turns values into HTML for result messages, along with any
// resources (scripts, stylesheets) the markup depends on.
type Renderer interface {
	Render(v any) (markup string, resources []string, err error)
}

// TextRenderer renders values as escaped text. Errors are rendered with
// their type so exception results remain identifiable.
type TextRenderer struct{}

func (TextRenderer) Render(v any) (string, []string, error) {
	switch v := v.(type) {
	case HTML:
		return string(v), nil, nil
	case error:
		return fmt.Sprintf(`<span class="exception"><b>%s</b>: %s</span>`,
			html.EscapeString(errorType(v)), html.EscapeString(v.Error())), nil, nil
	case nil:
		return "", nil, nil
	default:
		return html.EscapeString(fmt.Sprint(v)), nil, nil
	}
}

func errorType(err error) string {
	type unwrapper interface{ Unwrap() error }
	for {
		u, ok := err.(unwrapper)
		if !ok || u.Unwrap() == nil {
			return fmt.Sprintf("%T", err)
		}
		err = u.Unwrap()
	}
}

func plainText(err error) string {
	return "<pre>" + html.EscapeString(err.Error()) + "</pre>"
}
