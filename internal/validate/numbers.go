package validate

import (
	"strconv"
	"strings"
	"unicode"
)

const numberWordThreshold = 0.80

type lexeme struct {
	word  string
	value int
}

// Lexicon order matters: fuzzy lookup returns the first entry over the
// threshold. Misspellings are common transcription slips.
var numberLexicon = []lexeme{
	{"cero", 0}, {"sero", 0}, {"xero", 0},
	{"uno", 1}, {"un", 1}, {"una", 1}, {"primero", 1}, {"primer", 1}, {"primera", 1}, {"ino", 1},
	{"dos", 2}, {"segundo", 2}, {"segunda", 2},
	{"tres", 3}, {"tercero", 3}, {"tercer", 3}, {"tercera", 3},
	{"cuatro", 4}, {"cuarto", 4}, {"kuatro", 4}, {"quatro", 4},
	{"cinco", 5}, {"quinto", 5}, {"sinko", 5}, {"zinko", 5},
	{"seis", 6}, {"sexto", 6}, {"seyis", 6},
	{"siete", 7}, {"septimo", 7}, {"ciete", 7},
	{"ocho", 8}, {"octavo", 8}, {"otcho", 8},
	{"nueve", 9}, {"noveno", 9}, {"nuebe", 9},
	{"diez", 10}, {"decimo", 10}, {"dies", 10},
	{"once", 11}, {"undecimo", 11}, {"onse", 11},
	{"doce", 12}, {"duodecimo", 12}, {"dose", 12},
	{"trece", 13}, {"trese", 13},
	{"catorce", 14}, {"katorce", 14},
	{"quince", 15}, {"kinse", 15},
	{"dieciseis", 16}, {"diez y seis", 16},
	{"diecisiete", 17}, {"diez y siete", 17},
	{"dieciocho", 18}, {"diez y ocho", 18},
	{"diecinueve", 19}, {"diez y nueve", 19},
	{"veinte", 20}, {"veintiuno", 21}, {"veintiun", 21}, {"veintiuna", 21},
	{"veintidos", 22}, {"veintitres", 23}, {"veinticuatro", 24},
	{"veinticinco", 25}, {"veintiseis", 26}, {"veintisiete", 27},
	{"veintiocho", 28}, {"veintinueve", 29},
	{"treinta", 30}, {"cuarenta", 40}, {"cincuenta", 50},
	{"sesenta", 60}, {"setenta", 70}, {"ochenta", 80},
	{"noventa", 90}, {"cien", 100}, {"ciento", 100},
	{"doscientos", 200}, {"trescientos", 300}, {"cuatrocientos", 400},
	{"quinientos", 500}, {"seiscientos", 600}, {"setecientos", 700},
	{"ochocientos", 800}, {"novecientos", 900}, {"mil", 1000},
}

var exactNumbers = func() map[string]int {
	m := make(map[string]int, len(numberLexicon))
	for _, l := range numberLexicon {
		if _, dup := m[l.word]; !dup {
			m[l.word] = l.value
		}
	}
	return m
}()

// letterPhrase keeps only letters and single spaces.
func letterPhrase(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return ' '
	}, Normalize(text))
	return strings.Join(strings.Fields(cleaned), " ")
}

func lookupNumberWord(phrase string) (int, bool) {
	if phrase == "" {
		return 0, false
	}
	if v, ok := exactNumbers[phrase]; ok {
		return v, true
	}
	for _, l := range numberLexicon {
		if Similarity(phrase, l.word) >= numberWordThreshold {
			return l.value, true
		}
	}
	return 0, false
}

// ParseNumberWords converts a spoken Spanish number phrase to an integer.
// "<tens> y <units>" is summed; an unknown half counts as zero, but at least
// one half must be recognized.
func ParseNumberWords(text string) (int, bool) {
	phrase := letterPhrase(text)
	if v, ok := lookupNumberWord(phrase); ok {
		return v, true
	}

	parts := strings.Split(phrase, " y ")
	if len(parts) != 2 {
		return 0, false
	}
	tens, okTens := lookupCompoundPart(parts[0], lastWord)
	units, okUnits := lookupCompoundPart(parts[1], firstWord)
	if !okTens && !okUnits {
		return 0, false
	}
	return tens + units, true
}

// lookupCompoundPart tries the whole part, then the word next to "y", so
// "veinte y cinco cuadros" still reads as 25.
func lookupCompoundPart(part string, pick func([]string) string) (int, bool) {
	part = strings.TrimSpace(part)
	if v, ok := lookupNumberWord(part); ok {
		return v, true
	}
	fields := strings.Fields(part)
	if len(fields) < 2 {
		return 0, false
	}
	return lookupNumberWord(pick(fields))
}

func firstWord(fields []string) string { return fields[0] }
func lastWord(fields []string) string  { return fields[len(fields)-1] }

const trimmedPunct = ".,;:!?¿¡\"'()"

// ParseInteger accepts a reply that is a literal integer, ignoring
// surrounding punctuation the transcriber tends to add.
func ParseInteger(text string) (int, bool) {
	t := strings.Trim(strings.TrimSpace(text), trimmedPunct+" ")
	n, err := strconv.Atoi(t)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FindNumber extracts a number from a longer reply: the whole reply as an
// integer or number phrase, else a single integer token, else a single
// number word.
func FindNumber(text string) (int, bool) {
	if n, ok := ParseInteger(text); ok {
		return n, true
	}
	if n, ok := ParseNumberWords(text); ok {
		return n, true
	}

	fields := strings.Fields(text)
	var found []int
	for _, f := range fields {
		if n, ok := ParseInteger(f); ok {
			found = append(found, n)
		}
	}
	if len(found) == 1 {
		return found[0], true
	}
	if len(found) > 1 {
		return 0, false
	}

	for _, w := range strings.Fields(letterPhrase(text)) {
		if v, ok := exactNumbers[w]; ok {
			found = append(found, v)
		}
	}
	if len(found) == 1 {
		return found[0], true
	}
	return 0, false
}
