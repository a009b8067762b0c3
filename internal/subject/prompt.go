package subject

import "strings"

// basePersona is the invariant opening paragraph of every system prompt.
const basePersona = "You are a helpful study tutor. " +
	"Explain step-by-step, ask clarifying questions when needed, " +
	"and prefer hints before final answers. " +
	"If you are uncertain, say so."

// defaultEncouragement replaces the teaching-style paragraph for custom
// subjects that did not specify one.
const defaultEncouragement = "Use examples, ask occasional comprehension questions, " +
	"and be encouraging and concise."

// Compose renders a profile into the system prompt injected ahead of the
// message history. Pure and deterministic: the persona paragraph first, then
// only the non-empty fields in fixed order, joined by blank lines. Absent
// fields are omitted entirely rather than rendered as empty sections.
func Compose(p Profile) string {
	parts := []string{basePersona}

	focus := p.Name
	if focus == "" {
		focus = p.ID
	}
	if focus != "" {
		parts = append(parts, "Subject focus: "+focus+".")
	}
	if p.Description != "" {
		parts = append(parts, "Description: "+p.Description)
	}
	switch {
	case p.TeachingStyle != "":
		parts = append(parts, "Teaching style: "+p.TeachingStyle)
	case p.IsCustom:
		parts = append(parts, defaultEncouragement)
	}

	return strings.Join(parts, "\n\n")
}
