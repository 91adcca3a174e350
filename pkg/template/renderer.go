package template

import (
	"context"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/kart-io/slackhub/pkg/errors"
)

// Field block names a message template may define.
const (
	FieldText        = "text"
	FieldToken       = "token"
	FieldChannel     = "channel"
	FieldUsername    = "username"
	FieldIconEmoji   = "icon_emoji"
	FieldIconURL     = "icon_url"
	FieldAttachments = "attachments"
	FieldBlocks      = "blocks"
	FieldAsUser      = "as_user"
	FieldThreadTS    = "thread_ts"
	FieldEndpointURL = "endpoint_url"
)

// Fields lists every block RenderFields looks for.
var Fields = []string{
	FieldText,
	FieldToken,
	FieldChannel,
	FieldUsername,
	FieldIconEmoji,
	FieldIconURL,
	FieldAttachments,
	FieldBlocks,
	FieldAsUser,
	FieldThreadTS,
	FieldEndpointURL,
}

// Raw marks a context value as already safe; it is interpolated without
// HTML escaping.
type Raw string

// Renderer renders resolved templates.
type Renderer struct {
	resolver *Resolver
}

// NewRenderer creates a Renderer over resolver.
func NewRenderer(resolver *Resolver) *Renderer {
	return &Renderer{resolver: resolver}
}

// Resolver returns the underlying resolver.
func (r *Renderer) Resolver() *Resolver {
	return r.resolver
}

// Render renders the whole template registered under name.
func (r *Renderer) Render(ctx context.Context, name string, data map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	entry, err := r.resolver.Resolve(name)
	if err != nil {
		return "", err
	}

	out, err := entry.template.Execute(toContext(data, entry.Autoescape))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrTemplateRenderFailed, "render template").WithTemplate(name)
	}
	return out, nil
}

// RenderFields renders the message field blocks of the template registered
// under name. Each value is whitespace-trimmed; blocks the template does not
// define are absent from the result. A template without any field block is
// rendered whole into the text field.
func (r *Renderer) RenderFields(ctx context.Context, name string, data map[string]any) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, err := r.resolver.Resolve(name)
	if err != nil {
		return nil, err
	}

	pctx := toContext(data, entry.Autoescape)
	blocks, err := entry.template.ExecuteBlocks(pctx, Fields)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTemplateRenderFailed, "render template blocks").WithTemplate(name)
	}

	fields := make(map[string]string, len(blocks))
	for key, value := range blocks {
		fields[key] = strings.TrimSpace(value)
	}

	if len(fields) == 0 {
		out, err := entry.template.Execute(pctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrTemplateRenderFailed, "render template").WithTemplate(name)
		}
		fields[FieldText] = strings.TrimSpace(out)
	}
	return fields, nil
}

// toContext converts caller data into a pongo2 context. Raw values become
// safe values; with autoescape off every top-level string is marked safe.
// Nested strings are always escaped; templates mark those with |safe.
func toContext(data map[string]any, autoescape bool) pongo2.Context {
	pctx := make(pongo2.Context, len(data))
	for key, value := range data {
		switch v := value.(type) {
		case Raw:
			pctx[key] = pongo2.AsSafeValue(string(v))
		case string:
			if autoescape {
				pctx[key] = v
			} else {
				pctx[key] = pongo2.AsSafeValue(v)
			}
		default:
			pctx[key] = value
		}
	}
	return pctx
}
