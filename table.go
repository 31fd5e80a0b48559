package cw

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxRepresentationLength is the longest representation string in the
// table (spec §3: "≤ 7 symbols").
const MaxRepresentationLength = 7

var upper = cases.Upper(language.Und)

type entry struct {
	char           rune
	representation string
}

// table is the compile-time character table. Representations drawn
// from the ITU/ARRL set, the same symbol set the teacher's own
// morseTable carries (madpsy-ka9q_ubersdr/audio_extensions/morse/morse_table.go),
// extended with the procedural signs unixcw ships.
var table = []entry{
	{'A', ".-"}, {'B', "-..."}, {'C', "-.-."}, {'D', "-.."}, {'E', "."},
	{'F', "..-."}, {'G', "--."}, {'H', "...."}, {'I', ".."}, {'J', ".---"},
	{'K', "-.-"}, {'L', ".-.."}, {'M', "--"}, {'N', "-."}, {'O', "---"},
	{'P', ".--."}, {'Q', "--.-"}, {'R', ".-."}, {'S', "..."}, {'T', "-"},
	{'U', "..-"}, {'V', "...-"}, {'W', ".--"}, {'X', "-..-"}, {'Y', "-.--"},
	{'Z', "--.."},
	{'0', "-----"}, {'1', ".----"}, {'2', "..---"}, {'3', "...--"},
	{'4', "....-"}, {'5', "....."}, {'6', "-...."}, {'7', "--..."},
	{'8', "---.."}, {'9', "----."},
	{'.', ".-.-.-"}, {',', "--..--"}, {'?', "..--.."}, {'\'', ".----."},
	{'!', "-.-.--"}, {'/', "-..-."}, {'(', "-.--."}, {')', "-.--.-"},
	{'&', ".-..."}, {':', "---..."}, {';', "-.-.-."}, {'=', "-...-"},
	{'+', ".-.-."}, {'-', "-....-"}, {'_', "..--.-"}, {'"', ".-..-."},
	{'$', "...-..-"}, {'@', ".--.-."},
}

// procEntry maps a procedural sign to its expanded letter-pair
// representation and whether it is conventionally sent as the
// expanded pair rather than a single prosign glyph (spec §4.A).
type procEntry struct {
	sign          string
	expansion     string
	usuallyExpand bool
}

var procTable = []procEntry{
	{"AR", "AR", true},  // end of message
	{"AS", "AS", true},  // wait
	{"BT", "BT", true},  // break / new paragraph
	{"KN", "KN", true},  // invite a specific station to transmit
	{"SK", "SK", true},  // end of contact
	{"SN", "SN", false}, // understood, usually sent as one prosign
	{"HH", "HH", true},  // error / correction
}

var phoneticTable = map[rune]string{
	'A': "Alfa", 'B': "Bravo", 'C': "Charlie", 'D': "Delta", 'E': "Echo",
	'F': "Foxtrot", 'G': "Golf", 'H': "Hotel", 'I': "India", 'J': "Juliett",
	'K': "Kilo", 'L': "Lima", 'M': "Mike", 'N': "November", 'O': "Oscar",
	'P': "Papa", 'Q': "Quebec", 'R': "Romeo", 'S': "Sierra", 'T': "Tango",
	'U': "Uniform", 'V': "Victor", 'W': "Whiskey", 'X': "X-ray",
	'Y': "Yankee", 'Z': "Zulu",
	'0': "Zero", '1': "One", '2': "Two", '3': "Three", '4': "Four",
	'5': "Five", '6': "Six", '7': "Seven", '8': "Eight", '9': "Nine",
}

var (
	charToRep map[rune]string
	repToChar []entry // sorted by representation, binary-searched
)

func init() {
	charToRep = make(map[rune]string, len(table))
	repToChar = make([]entry, len(table))
	copy(repToChar, table)
	sort.Slice(repToChar, func(i, j int) bool {
		return repToChar[i].representation < repToChar[j].representation
	})

	seenChar := make(map[rune]bool, len(table))
	seenRep := make(map[string]bool, len(table))
	for _, e := range table {
		if seenChar[e.char] {
			panic("cw: duplicate character in morse table: " + string(e.char))
		}
		if seenRep[e.representation] {
			panic("cw: duplicate representation in morse table: " + e.representation)
		}
		if len(e.representation) == 0 || len(e.representation) > MaxRepresentationLength {
			panic("cw: representation length out of range for " + string(e.char))
		}
		seenChar[e.char] = true
		seenRep[e.representation] = true
		charToRep[e.char] = e.representation
	}

	// Validate every representation round-trips, per spec §4.A ("All
	// lookup tables MUST be validated at process start").
	for _, e := range table {
		c, ok := RepresentationToChar(e.representation)
		if !ok || c != e.char {
			panic("cw: morse table does not round-trip for " + string(e.char))
		}
	}
}

// CharToRepresentation looks up the dot/dash representation of c.
// Lookup is case-insensitive; ok is false if c has no table entry.
func CharToRepresentation(c rune) (representation string, ok bool) {
	c = foldChar(c)
	representation, ok = charToRep[c]
	return representation, ok
}

// RepresentationToChar looks up the upper-case character whose
// representation is s, via binary search over the sorted table
// (O(log n), per spec §4.A).
func RepresentationToChar(s string) (c rune, ok bool) {
	i := sort.Search(len(repToChar), func(i int) bool {
		return repToChar[i].representation >= s
	})
	if i < len(repToChar) && repToChar[i].representation == s {
		return repToChar[i].char, true
	}
	return 0, false
}

// CharIsValid reports whether c is present in the table, or is the
// word-separator space.
func CharIsValid(c rune) bool {
	if c == ' ' {
		return true
	}
	_, ok := CharToRepresentation(c)
	return ok
}

// StringIsValid reports whether every character in s is valid.
func StringIsValid(s string) bool {
	for _, c := range s {
		if !CharIsValid(c) {
			return false
		}
	}
	return true
}

// RepresentationIsValid reports whether s is non-empty, contains only
// '.'/'-', is no longer than MaxRepresentationLength, and has a table
// entry.
func RepresentationIsValid(s string) bool {
	if len(s) == 0 || len(s) > MaxRepresentationLength {
		return false
	}
	for _, r := range s {
		if r != '.' && r != '-' {
			return false
		}
	}
	_, ok := RepresentationToChar(s)
	return ok
}

// ProceduralExpansion returns the expansion of a procedural sign
// (e.g. "AR", "SK") and whether it is conventionally sent expanded
// rather than as a single compact prosign glyph.
func ProceduralExpansion(sign string) (expansion string, usuallyExpanded bool, ok bool) {
	sign = strings.ToUpper(sign)
	for _, p := range procTable {
		if p.sign == sign {
			return p.expansion, p.usuallyExpand, true
		}
	}
	return "", false, false
}

// Phonetic returns the ICAO phonetic word for a letter or digit.
func Phonetic(c rune) (string, bool) {
	c = foldChar(c)
	word, ok := phoneticTable[c]
	return word, ok
}

func foldChar(c rune) rune {
	folded := []rune(upper.String(string(c)))
	if len(folded) != 1 {
		return c
	}
	return folded[0]
}
