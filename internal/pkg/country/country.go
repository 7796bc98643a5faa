// Package country maps phone numbers to country metadata via their
// international dialing prefix.
package country

import "sort"

// Info is the display metadata for one dialing code.
type Info struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Flag      string `json:"flag"`
	ShortName string `json:"shortName"`
}

// Table resolves dialing-code prefixes. Read-only after construction.
type Table struct {
	byCode map[string]Info
	// prefixes sorted longest-first so "1242" can never be shadowed by "1".
	prefixes []string
}

// NewTable builds a Table from the given entries.
func NewTable(entries []Info) *Table {
	t := &Table{byCode: make(map[string]Info, len(entries))}
	for _, e := range entries {
		if _, dup := t.byCode[e.Code]; dup {
			continue
		}
		t.byCode[e.Code] = e
		t.prefixes = append(t.prefixes, e.Code)
	}
	sort.Slice(t.prefixes, func(i, j int) bool {
		if len(t.prefixes[i]) != len(t.prefixes[j]) {
			return len(t.prefixes[i]) > len(t.prefixes[j])
		}
		return t.prefixes[i] < t.prefixes[j]
	})
	return t
}

// Lookup returns the country whose dialing code is the longest prefix of
// phone, or nil when no registered prefix matches.
func (t *Table) Lookup(phone string) *Info {
	for _, p := range t.prefixes {
		if len(phone) >= len(p) && phone[:len(p)] == p {
			info := t.byCode[p]
			return &info
		}
	}
	return nil
}

// Default returns the built-in dialing table.
func Default() *Table {
	return NewTable([]Info{
		{Code: "62", Name: "Indonesia", Flag: "🇮🇩", ShortName: "ID"},
		{Code: "1", Name: "United States", Flag: "🇺🇸", ShortName: "US"},
		{Code: "44", Name: "United Kingdom", Flag: "🇬🇧", ShortName: "UK"},
		{Code: "33", Name: "France", Flag: "🇫🇷", ShortName: "FR"},
		{Code: "49", Name: "Germany", Flag: "🇩🇪", ShortName: "DE"},
		{Code: "7", Name: "Russia", Flag: "🇷🇺", ShortName: "RU"},
		{Code: "86", Name: "China", Flag: "🇨🇳", ShortName: "CN"},
		{Code: "91", Name: "India", Flag: "🇮🇳", ShortName: "IN"},
		{Code: "81", Name: "Japan", Flag: "🇯🇵", ShortName: "JP"},
		{Code: "82", Name: "South Korea", Flag: "🇰🇷", ShortName: "KR"},
		{Code: "234", Name: "Nigeria", Flag: "🇳🇬", ShortName: "NG"},
		{Code: "228", Name: "Togo", Flag: "🇹🇬", ShortName: "TG"},
		{Code: "58", Name: "Venezuela", Flag: "🇻🇪", ShortName: "VE"},
		{Code: "55", Name: "Brazil", Flag: "🇧🇷", ShortName: "BR"},
		{Code: "225", Name: "Ivory Coast", Flag: "🇨🇮", ShortName: "CI"},
		{Code: "229", Name: "Benin", Flag: "🇧🇯", ShortName: "BJ"},
	})
}
