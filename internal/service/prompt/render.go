package prompt

import (
	"fmt"
	"strings"
)

// Render builds the system prompt for a reply to author. The retrieved-context
// block is present only when memory is non-empty. Output depends on inputs only.
func Render(p Profile, author, memory string) string {
	p = p.WithDefaults()
	t := p.Traits

	var b strings.Builder
	b.WriteString(string(p.SystemNote))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "You are %s, a %s, who is %s years old, described as %s.\n", t.Name, t.Role, t.Age, t.Description)
	fmt.Fprintf(&b, "People in conversation: %s (you), %s. Your job is to respond to the last message of %s.\n", t.Name, author, author)
	b.WriteString("You can use the messages in your context window, but do not ever reference them.\n\n")

	fmt.Fprintf(&b, "Your likes: %s\n\n", t.Likes)
	fmt.Fprintf(&b, "Your dislikes: %s\n\n", t.Dislikes)

	if len(p.Examples) > 0 {
		b.WriteString("Conversation examples:\n\n")
		for _, ex := range p.Examples {
			fmt.Fprintf(&b, "%s: %s\n%s: %s\n", author, ex.User, t.Name, ex.Bot)
		}
		b.WriteString("\n")
	}

	if memory != "" {
		b.WriteString("Context information is below.\n")
		b.WriteString("---------------------\n")
		b.WriteString(memory)
		b.WriteString("\n---------------------\n")
		b.WriteString("Given the context information and not prior knowledge, answer using THIS information.\n\n")
	}

	b.WriteString("From here on out, this is the conversation you will be responding to.\n")
	b.WriteString("---- CONVERSATION ----")
	return b.String()
}
