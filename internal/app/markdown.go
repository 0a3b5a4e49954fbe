package app

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	glamouransi "github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	xansi "github.com/charmbracelet/x/ansi"

	"notenav/internal/notecontext"
	"notenav/internal/types"
)

type rendererKey struct {
	width int
	dark  bool
}

var (
	rendererMu sync.Mutex
	renderers  = map[rendererKey]*glamour.TermRenderer{}
)

func renderMarkdown(input string, width int, dark bool) string {
	input = strings.TrimRight(input, "\n")
	if input == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r := markdownRenderer(width, dark)
	if r == nil {
		return input
	}
	out, err := r.Render(input)
	if err != nil {
		return input
	}
	out = xansi.Hardwrap(strings.TrimRight(out, "\n"), width, true)
	return strings.TrimRight(out, "\n")
}

func markdownRenderer(width int, dark bool) *glamour.TermRenderer {
	rendererMu.Lock()
	defer rendererMu.Unlock()
	key := rendererKey{width: width, dark: dark}
	if r, ok := renderers[key]; ok {
		return r
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(noteStyleConfig(dark)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	renderers[key] = r
	return r
}

func noteStyleConfig(dark bool) glamouransi.StyleConfig {
	base := styles.LightStyleConfig
	if dark {
		base = styles.DarkStyleConfig
	}
	// The content pane draws its own padding.
	base.Document.StylePrimitive.BlockPrefix = ""
	base.Document.StylePrimitive.BlockSuffix = ""
	zero := uint(0)
	base.Document.Margin = &zero
	return base
}

// noteMarkdown turns note content into the markdown shown in the content
// pane. Code notes become a fenced block tagged with their language.
func noteMarkdown(noteType types.NoteType, mime string, content string) string {
	switch noteType {
	case types.NoteTypeCode:
		fence := "```"
		for strings.Contains(content, fence) {
			fence += "`"
		}
		return fence + codeLanguage(mime) + "\n" + strings.TrimRight(content, "\n") + "\n" + fence
	case types.NoteTypeText:
		return content
	default:
		return "_" + string(noteType) + " note_"
	}
}

// codeLanguage maps a mime such as "text/x-go" or "application/javascript;env=frontend"
// to the language tag used for highlighting.
func codeLanguage(mime string) string {
	mime = strings.TrimSpace(mime)
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = mime[:idx]
	}
	if idx := strings.LastIndexByte(mime, '/'); idx >= 0 {
		mime = mime[idx+1:]
	}
	mime = strings.TrimPrefix(mime, "x-")
	switch mime {
	case "plain":
		return ""
	case "javascript", "ecmascript":
		return "js"
	case "sh", "shellscript":
		return "bash"
	}
	return mime
}

// tableOfContents collects the markdown headings of content, skipping
// fenced code.
func tableOfContents(content string) notecontext.TableOfContents {
	toc := notecontext.TableOfContents{}
	inFence := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence || !strings.HasPrefix(trimmed, "#") {
			continue
		}
		level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
		text := strings.TrimSpace(trimmed[level:])
		if level > 6 || text == "" || trimmed[level] != ' ' {
			continue
		}
		toc.Headings = append(toc.Headings, notecontext.Heading{
			ID:    headingAnchor(text),
			Level: level,
			Text:  text,
		})
	}
	return toc
}

func headingAnchor(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteByte('-')
		}
	}
	return b.String()
}
