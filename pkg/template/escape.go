package template

import (
	"strings"

	"github.com/flosch/pongo2/v6"
)

// Slack only wants &, < and > escaped in message text:
// https://api.slack.com/reference/surfaces/formatting#escaping
var (
	destinationEscaper   = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	destinationUnescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")
)

// EscapeForDestination escapes &, < and > only. Quotes stay literal.
func EscapeForDestination(text string) string {
	return destinationEscaper.Replace(text)
}

// UnescapeForDestination converts &lt;, &gt; and &amp; back to their literal
// characters in a single pass. &quot; and &#39; are left untouched, and text
// without entities comes back unchanged.
func UnescapeForDestination(text string) string {
	return destinationUnescaper.Replace(text)
}

// Autoescape applies the engine's default HTML escaping to text, exactly as
// an interpolated value is escaped during rendering.
func Autoescape(text string) string {
	return pongo2.MustApplyFilter("escape", pongo2.AsValue(text), nil).String()
}
