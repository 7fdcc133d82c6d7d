package utils

import (
	"strings"
)

// makeAliases maps spellings users type to the latin make names used in the
// catalog. Ordered so that longer spellings win over their prefixes.
var makeAliases = []struct {
	alias string
	make  string
}{
	{"โตโยต้า", "toyota"},
	{"ฮอนด้า", "honda"},
	{"นิสสัน", "nissan"},
	{"มาสด้า", "mazda"},
	{"อีซูซุ", "isuzu"},
	{"มิตซูบิชิ", "mitsubishi"},
	{"มิตซู", "mitsubishi"},
	{"ซูซูกิ", "suzuki"},
	{"ฟอร์ด", "ford"},
	{"เชฟโรเลต", "chevrolet"},
	{"เชฟ", "chevrolet"},
	{"ซูบารุ", "subaru"},
	{"ฮุนได", "hyundai"},
	{"เอ็มจี", "mg"},
	{"บีเอ็มดับเบิลยู", "bmw"},
	{"บีเอ็ม", "bmw"},
	{"เบนซ์", "mercedes-benz"},
	{"เมอร์เซเดส", "mercedes-benz"},
	{"วอลโว่", "volvo"},
	{"ออดี้", "audi"},
	{"เล็กซัส", "lexus"},
	{"บีวายดี", "byd"},
	{"เกรทวอลล์", "gwm"},
	{"ฮาวาล", "haval"},
	{"เปอโยต์", "peugeot"},
	{"โฟล์ค", "volkswagen"},
	{"mercedes", "mercedes-benz"},
	{"benz", "mercedes-benz"},
	{"vw", "volkswagen"},
	{"chevy", "chevrolet"},
}

// ExpandMakeAliases appends the catalog make name after every alias found in
// text, so substring make detection sees the canonical spelling.
// "อยากได้โตโยต้า" becomes "อยากได้โตโยต้า toyota".
func ExpandMakeAliases(text string) string {
	lower := strings.ToLower(text)
	var extra []string
	seen := map[string]bool{}
	for _, a := range makeAliases {
		if seen[a.make] || !ContainsKeyword(lower, a.alias) {
			continue
		}
		if strings.Contains(lower, a.make) {
			continue
		}
		seen[a.make] = true
		extra = append(extra, a.make)
	}
	if len(extra) == 0 {
		return text
	}
	return text + " " + strings.Join(extra, " ")
}

// NormalizeMake returns the canonical make for an alias, or the lower-cased
// input when it is not an alias.
func NormalizeMake(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, a := range makeAliases {
		if n == a.alias {
			return a.make
		}
	}
	return n
}
