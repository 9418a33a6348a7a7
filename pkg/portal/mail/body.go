package mail

import (
	"bytes"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset" // register common charsets
)

var (
	scriptRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
	spaceRe  = regexp.MustCompile(`[ \t\r\n]+`)
)

// ExtractBody returns the text content of a raw RFC 5322 message.
// Multipart messages are walked picking a text/plain part preferentially;
// an HTML-only message is stripped down to its text. Extraction is best
// effort: on a parse failure the raw bytes are returned so a code pattern
// buried in them can still match.
func ExtractBody(raw []byte) string {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return string(raw)
	}

	plain, htmlBody := collectParts(entity)
	if strings.TrimSpace(plain) != "" {
		return plain
	}
	return StripHTML(htmlBody)
}

func collectParts(entity *message.Entity) (plain, htmlBody string) {
	if mr := entity.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			p, h := collectParts(part)
			if plain == "" {
				plain = p
			}
			if htmlBody == "" {
				htmlBody = h
			}
		}
		return plain, htmlBody
	}

	mediaType, _, _ := entity.Header.ContentType()
	switch {
	case strings.EqualFold(mediaType, "text/html"):
		body, _ := io.ReadAll(entity.Body)
		return "", string(body)
	case strings.EqualFold(mediaType, "text/plain") || mediaType == "":
		body, _ := io.ReadAll(entity.Body)
		return string(body), ""
	}
	return "", ""
}

// StripHTML reduces an HTML document to its visible text.
func StripHTML(s string) string {
	s = scriptRe.ReplaceAllString(s, " ")
	s = styleRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
