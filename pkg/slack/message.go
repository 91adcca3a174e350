package slack

// Typed helpers for WithAttachments and WithBlocks. Any JSON-encodable value
// works; these cover the common layouts.

// Attachment is a legacy message attachment.
type Attachment struct {
	Color      string   `json:"color,omitempty"`
	Pretext    string   `json:"pretext,omitempty"`
	Title      string   `json:"title,omitempty"`
	TitleLink  string   `json:"title_link,omitempty"`
	Text       string   `json:"text,omitempty"`
	Fallback   string   `json:"fallback,omitempty"`
	Footer     string   `json:"footer,omitempty"`
	Timestamp  int64    `json:"ts,omitempty"`
	Fields     []Field  `json:"fields,omitempty"`
	MarkdownIn []string `json:"mrkdwn_in,omitempty"`
}

// Field is one entry of an attachment's field table.
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Block is a Block Kit layout block.
type Block struct {
	Type     string  `json:"type"`
	BlockID  string  `json:"block_id,omitempty"`
	Text     *Text   `json:"text,omitempty"`
	Fields   []*Text `json:"fields,omitempty"`
	Elements []any   `json:"elements,omitempty"`
}

// Text is a Block Kit text object.
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Markdown returns a mrkdwn text object.
func Markdown(text string) *Text {
	return &Text{Type: "mrkdwn", Text: text}
}

// PlainText returns a plain_text text object.
func PlainText(text string) *Text {
	return &Text{Type: "plain_text", Text: text}
}

// SectionBlock returns a section block showing markdown text.
func SectionBlock(text string) Block {
	return Block{Type: "section", Text: Markdown(text)}
}

// HeaderBlock returns a header block.
func HeaderBlock(text string) Block {
	return Block{Type: "header", Text: PlainText(text)}
}

// DividerBlock returns a divider block.
func DividerBlock() Block {
	return Block{Type: "divider"}
}

// ContextBlock returns a context block with one markdown element per line.
func ContextBlock(lines ...string) Block {
	elements := make([]any, 0, len(lines))
	for _, line := range lines {
		elements = append(elements, Markdown(line))
	}
	return Block{Type: "context", Elements: elements}
}
