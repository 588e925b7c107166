package cover

import "strings"

const (
	fallbackClothing   = "modern, stylish outfit that reads well at thumbnail size"
	fallbackBackground = "abstract high-tech studio backdrop with soft gradients and depth"
)

// BuildPrompt assembles the generation instruction from the request
// fields. Pure function: identical inputs always produce a byte-identical
// string, so the output is golden-testable.
func BuildPrompt(title, clothing, background, modification string) string {
	clothing = strings.TrimSpace(clothing)
	if clothing == "" {
		clothing = fallbackClothing
	}

	background = strings.TrimSpace(background)
	if background == "" {
		background = fallbackBackground
	}

	var b strings.Builder

	b.WriteString("Create a bold, high-impact video cover (thumbnail) using the attached portrait photo as the subject reference.\n\n")

	b.WriteString("TITLE TEXT (render verbatim, exactly as written between the markers):\n")
	b.WriteString("<<<\n")
	b.WriteString(title)
	b.WriteString("\n>>>\n")
	b.WriteString("- Every line break in the title is intentional: render each line as its own separate line.\n")
	b.WriteString("- Large, readable, high-contrast typography that dominates the composition.\n\n")

	b.WriteString("SUBJECT:\n")
	b.WriteString("- Keep the person's face, identity and expression from the reference photo.\n")
	b.WriteString("- Clothing: " + clothing + ".\n\n")

	b.WriteString("BACKGROUND:\n")
	b.WriteString("- " + background + ".\n\n")

	b.WriteString("STYLE RULES:\n")
	b.WriteString("- Vivid colors, strong subject/background separation, clean edges.\n")
	b.WriteString("- No watermarks. No text beyond the title.\n")

	if m := strings.TrimSpace(modification); m != "" {
		b.WriteString("\nOVERRIDE (takes precedence over everything above):\n")
		b.WriteString(m + "\n")
	}

	return b.String()
}
