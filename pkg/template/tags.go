package template

import (
	"bytes"

	"github.com/flosch/pongo2/v6"
)

// {% escapeslack %}...{% endescapeslack %} renders its body without HTML
// autoescaping and then applies Slack's own escaping to the result.
type tagEscapeSlackNode struct {
	position *pongo2.Token
	wrapper  *pongo2.NodeWrapper
}

func (node *tagEscapeSlackNode) Execute(ctx *pongo2.ExecutionContext, writer pongo2.TemplateWriter) *pongo2.Error {
	var buf bytes.Buffer

	old := ctx.Autoescape
	ctx.Autoescape = false
	err := node.wrapper.Execute(ctx, &buf)
	ctx.Autoescape = old
	if err != nil {
		return err
	}

	if _, werr := writer.WriteString(EscapeForDestination(buf.String())); werr != nil {
		return ctx.OrigError(werr, node.position)
	}
	return nil
}

func tagEscapeSlackParser(doc *pongo2.Parser, start *pongo2.Token, arguments *pongo2.Parser) (pongo2.INodeTag, *pongo2.Error) {
	wrapper, _, err := doc.WrapUntilTag("endescapeslack")
	if err != nil {
		return nil, err
	}
	if arguments.Remaining() > 0 {
		return nil, arguments.Error("escapeslack takes no arguments.", nil)
	}
	return &tagEscapeSlackNode{position: start, wrapper: wrapper}, nil
}

// {{ value|escapeslack }}
func filterEscapeSlack(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsSafeValue(EscapeForDestination(in.String())), nil
}

// {{ value|unescapeslack }}
func filterUnescapeSlack(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(UnescapeForDestination(in.String())), nil
}

func init() {
	pongo2.RegisterTag("escapeslack", tagEscapeSlackParser)
	pongo2.RegisterFilter("escapeslack", filterEscapeSlack)
	pongo2.RegisterFilter("unescapeslack", filterUnescapeSlack)
}
