package market

import (
	"sort"
	"strconv"
	"strings"
)

// Location is a market id as stored by the ingestion pipeline.
type Location uint16

const (
	MorganasRest       Location = 8
	Thetford           Location = 7
	ThetfordPortal     Location = 301
	Lymhurst           Location = 1002
	MerlynsRest        Location = 1012
	LymhurstPortal     Location = 1301
	Bridgewatch        Location = 2004
	BridgewatchPortal  Location = 2301
	BlackMarket        Location = 3003
	Caerleon           Location = 3005
	Martlock           Location = 3008
	MartlockPortal     Location = 3301
	FortSterling       Location = 4002
	ArthursRest        Location = 4300
	FortSterlingPortal Location = 4301
	Brecilien          Location = 5003
)

type locationInfo struct {
	key  string // enumeration name, matched case-insensitively
	name string // display name
}

var locations = map[Location]locationInfo{
	Thetford:           {"Thetford", "Thetford"},
	MorganasRest:       {"MorganasRest", "Morganas Rest"},
	ThetfordPortal:     {"ThetfordPortal", "Thetford Portal"},
	Lymhurst:           {"Lymhurst", "Lymhurst"},
	MerlynsRest:        {"MerlynsRest", "Merlyns Rest"},
	LymhurstPortal:     {"LymhurstPortal", "Lymhurst Portal"},
	Bridgewatch:        {"Bridgewatch", "Bridgewatch"},
	BridgewatchPortal:  {"BridgewatchPortal", "Bridgewatch Portal"},
	BlackMarket:        {"BlackMarket", "Black Market"},
	Caerleon:           {"Caerleon", "Caerleon"},
	Martlock:           {"Martlock", "Martlock"},
	MartlockPortal:     {"MartlockPortal", "Martlock Portal"},
	FortSterling:       {"FortSterling", "Fort Sterling"},
	ArthursRest:        {"ArthursRest", "Arthurs Rest"},
	FortSterlingPortal: {"FortSterlingPortal", "Fort Sterling Portal"},
	Brecilien:          {"Brecilien", "Brecilien"},
}

var locationsByKey = func() map[string]Location {
	m := make(map[string]Location, len(locations))
	for id, info := range locations {
		m[strings.ToLower(info.key)] = id
	}
	return m
}()

// String returns the display name, or the numeric id for unknown values.
func (l Location) String() string {
	if info, ok := locations[l]; ok {
		return info.name
	}
	return strconv.Itoa(int(l))
}

// Known reports whether l belongs to the enumeration.
func (l Location) Known() bool {
	_, ok := locations[l]
	return ok
}

// AllLocations returns every known location ascending by id.
func AllLocations() []Location {
	out := make([]Location, 0, len(locations))
	for id := range locations {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PrimaryLocations returns the seven main markets, Black Market included.
func PrimaryLocations() []Location {
	return []Location{Thetford, Lymhurst, Bridgewatch, BlackMarket, Caerleon, Martlock, FortSterling}
}

// ParseLocation maps one free-text token onto the enumeration.
func ParseLocation(token string) (Location, bool) {
	token = strings.TrimSpace(token)
	if !strings.EqualFold(token, "Black Market") {
		token = removeFold(token, " Market")
	}
	token = strings.ReplaceAll(token, " ", "")
	if token == "" {
		return 0, false
	}
	if id, ok := locationsByKey[strings.ToLower(token)]; ok {
		return id, true
	}
	if n, err := strconv.ParseUint(token, 10, 16); err == nil && Location(n).Known() {
		return Location(n), true
	}
	return 0, false
}

// ParseLocationList parses a comma separated location list. Unknown tokens
// are dropped; the result is de-duplicated and ascending by id.
func ParseLocationList(list string) []Location {
	seen := make(map[Location]struct{})
	out := make([]Location, 0)
	for _, token := range strings.Split(list, ",") {
		id, ok := ParseLocation(token)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// removeFold removes every case-insensitive occurrence of sub from s.
func removeFold(s, sub string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		if i+len(sub) <= len(s) && strings.EqualFold(s[i:i+len(sub)], sub) {
			i += len(sub)
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}
