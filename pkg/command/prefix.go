package command

import (
	"strings"

	"boardbot/pkg/bus"
	"boardbot/pkg/store"
)

// Prefixes returns every prefix that invokes commands for msg: the bot's
// mention forms, the sender's personal prefixes, and the chat prefix or the
// default one.
func Prefixes(msg bus.InboundMessage, user store.User, chat store.Chat, defaultPrefix string) []string {
	out := make([]string, 0, len(msg.Mentions)+len(user.Prefixes)+1)
	out = append(out, msg.Mentions...)
	out = append(out, user.Prefixes...)
	if chat.Prefix != "" {
		out = append(out, chat.Prefix)
	} else if defaultPrefix != "" {
		out = append(out, defaultPrefix)
	}
	return out
}

// StripPrefix removes the longest matching prefix from content, ignoring
// case. Direct messages may omit the prefix entirely.
func StripPrefix(content string, prefixes []string, direct bool) (prefix string, rest string, ok bool) {
	for _, candidate := range prefixes {
		if candidate == "" || len(candidate) <= len(prefix) || len(content) < len(candidate) {
			continue
		}
		if strings.EqualFold(content[:len(candidate)], candidate) {
			prefix = candidate
		}
	}

	if prefix != "" {
		return prefix, content[len(prefix):], true
	}
	if direct {
		return "", content, true
	}
	return "", "", false
}
