// Package address translates between social-network identities (screen
// names, mentions) and canonical bus addresses. Pure functions, no state.
package address

import "strings"

// NoUser is the sentinel address for a post with no leading mention.
const NoUser = "NO_USER"

// FromScreenName encodes an author screen name as a bus address.
func FromScreenName(screenName string) string {
	return "@" + screenName
}

// Mention is the slice of a mention the codec needs: who, and where the
// mention starts in the text.
type Mention struct {
	ScreenName string
	Start      int
}

// ToAddrFromMentions returns the first mention whose index range starts at
// position 0, i.e. the post begins with it. First match wins; no leading
// mention yields NoUser.
func ToAddrFromMentions(mentions []Mention) string {
	for _, m := range mentions {
		if m.Start == 0 {
			return FromScreenName(m.ScreenName)
		}
	}
	return NoUser
}

// StripLeadingMention removes the recipient's mention from the front of the
// content once it has been extracted into toAddr, together with the
// whitespace separating it from the body. Content without the leading
// mention comes back unchanged.
func StripLeadingMention(content, toAddr string) string {
	if toAddr == NoUser || toAddr == "" {
		return content
	}
	if !strings.HasPrefix(content, toAddr) {
		return content
	}
	return strings.TrimLeft(content[len(toAddr):], " \t")
}

// FormatOutbound is the inverse of StripLeadingMention: it re-encodes the
// recipient as a leading mention.
func FormatOutbound(toAddr, content string) string {
	if toAddr == NoUser || toAddr == "" {
		return content
	}
	return toAddr + " " + content
}
