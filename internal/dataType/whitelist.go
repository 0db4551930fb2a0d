package dataType

import (
	"strconv"
	"strings"
)

type EntryKind int

const (
	EntryInvalid EntryKind = iota // 0：never matches
	EntryExact                    // 1：string equality
	EntryCIDR                     // 2：network/mask containment
)

// WhitelistEntry is one parsed whitelist line
type WhitelistEntry struct {
	Raw     string
	Kind    EntryKind
	Network string
	MaskLen int
}

// ParseWhitelistEntry classifies raw as exact address or CIDR block.
// Anything that does not parse is kept as EntryInvalid.
func ParseWhitelistEntry(raw string) WhitelistEntry {
	line := strings.TrimSpace(raw)
	entry := WhitelistEntry{Raw: line, Kind: EntryInvalid}
	if line == "" {
		return entry
	}

	if !strings.Contains(line, "/") {
		if _, ok := ParseIPv4(line); ok {
			entry.Kind = EntryExact
			entry.Network = line
		}
		return entry
	}

	parts := strings.Split(line, "/")
	if len(parts) != 2 {
		return entry
	}
	maskLen, err := strconv.Atoi(parts[1])
	if err != nil {
		return entry
	}
	if _, ok := MaskFor(maskLen); !ok {
		return entry
	}
	if _, ok := ParseIPv4(parts[0]); !ok {
		return entry
	}
	entry.Kind = EntryCIDR
	entry.Network = parts[0]
	entry.MaskLen = maskLen
	return entry
}

// Match reports whether ip is covered by this entry
func (e WhitelistEntry) Match(ip string) bool {
	switch e.Kind {
	case EntryExact:
		if _, ok := ParseIPv4(ip); !ok {
			return false
		}
		return ip == e.Network
	case EntryCIDR:
		return IsInCIDR(ip, e.Network, e.MaskLen)
	default:
		return false
	}
}

// Whitelist is the ordered set of permitted address patterns, immutable after parsing
type Whitelist struct {
	entries []WhitelistEntry
	policy  EmptyPolicy
}

// NewWhitelist parses every raw entry once
func NewWhitelist(raw []string, policy EmptyPolicy) *Whitelist {
	wl := &Whitelist{
		entries: make([]WhitelistEntry, 0, len(raw)),
		policy:  policy,
	}
	for _, r := range raw {
		wl.entries = append(wl.entries, ParseWhitelistEntry(r))
	}
	return wl
}

func (wl *Whitelist) Len() int {
	return len(wl.entries)
}

func (wl *Whitelist) Policy() EmptyPolicy {
	return wl.policy
}

// Entries returns a copy of the parsed entries
func (wl *Whitelist) Entries() []WhitelistEntry {
	out := make([]WhitelistEntry, len(wl.entries))
	copy(out, wl.entries)
	return out
}

// Invalid lists the raw text of entries that will never match
func (wl *Whitelist) Invalid() []string {
	if wl == nil {
		return nil
	}
	var bad []string
	for _, e := range wl.entries {
		if e.Kind == EntryInvalid {
			bad = append(bad, e.Raw)
		}
	}
	return bad
}

// IsWhitelisted check if the ip matches any entry, stopping at the first hit.
// With no configured entries the empty policy decides.
func (wl *Whitelist) IsWhitelisted(ip string) bool {
	if wl == nil || len(wl.entries) == 0 {
		return wl != nil && wl.policy == EmptyAllowAll
	}
	for _, e := range wl.entries {
		if e.Match(ip) {
			return true
		}
	}
	return false
}
