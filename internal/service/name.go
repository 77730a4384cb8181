package service

import (
	"regexp"
	"strings"
)

const channelNamePrefix = "ticket-"

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// DeriveChannelName maps a Discord display handle to the ticket channel name:
// the portion before any discriminator separator, lower-cased, stripped to
// [a-z0-9], prefixed "ticket-". Deterministic on purpose: the same user
// always derives the same name, which is what the duplicate guard keys on.
func DeriveChannelName(displayHandle string) string {
	base := displayHandle
	if idx := strings.Index(base, "#"); idx >= 0 {
		base = base[:idx]
	}
	base = strings.ToLower(base)
	base = nonAlnum.ReplaceAllString(base, "")
	return channelNamePrefix + base
}
