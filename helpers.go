package email

import (
	"html"
	"regexp"
	"strings"
)

// The rewrite passes htmlToText applies, in order. Replacements use the
// regexp $-group syntax; \xa0 (non-breaking space) counts as whitespace
// throughout. Assumes correctly formed HTML, with properly escaped
// attribute values.
var htmlToTextPasses = []struct {
	re   *regexp.Regexp
	with string
}{
	// reduce runs of whitespace (and &nbsp;) to a single space
	{regexp.MustCompile(`(\s|\xa0|&nbsp;)+`), " "},
	// drop these tags completely, contents included
	{regexp.MustCompile(`(?i)<head[^a-z].*</head>|<style[^a-z].*</style>|<script[^a-z].*</script>`), ""},
	// line break before these tags
	{regexp.MustCompile(`(?i)<(/h\d|/p|p|br|/ul|/ol|/li|/div|/table|/td)[^a-z]`), "\n$0"},
	// white space before these tags
	{regexp.MustCompile(`(?i)<(/?p|br|/?ul|/?ol|/?li|/?div|/?table|/?td|hr|img)`), " $0"},
	// surface the alt text from images
	{regexp.MustCompile(`(?is)<img [^>]*alt\s*=\s*"([^"]+)"`), "$1$0"},
	// surface the "href" url from links
	{regexp.MustCompile(`(?is)<a [^>]*href\s*=\s*"([^"]+)".*</a>`), "$0 [ $1 ] "},
}

var (
	// whatever tags remain after the passes above
	reHtmlTags = regexp.MustCompile(`<[^>]+>`)
	// whitespace, including \xa0 (non-breaking space)
	reWhitespace = regexp.MustCompile(`[\s\xa0]+`)
)

func htmlToText(src string) string {
	for _, p := range htmlToTextPasses {
		src = p.re.ReplaceAllString(src, p.with)
	}
	// strip tags
	src = reHtmlTags.ReplaceAllString(src, "")
	// convert html entities to UTF-8 characters
	src = html.UnescapeString(src)
	// reduce whitespace again; preserve the number of newline chars, or at least a space
	src = reWhitespace.ReplaceAllStringFunc(src, func(m string) string {
		if n := strings.Count(m, "\n"); n > 0 {
			return strings.Repeat("\n", n)
		}
		return " "
	})
	return strings.TrimSpace(src)
}
