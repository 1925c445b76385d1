package validate

import "strings"

const (
	KeywordConfirm = "confirmar"
	KeywordCancel  = "cancelar"
)

const confirmThreshold = 0.70

var keywordVariants = map[string][]string{
	KeywordConfirm: {"confirmar", "confirma", "confirmo", "confirmado", "confirmad", "conforme", "confirmas"},
	KeywordCancel:  {"cancelar", "cancela", "cancelado", "cancelo", "cancelad", "cancelen"},
}

// Recognized reports whether reply expresses keyword, tolerating
// transcription noise.
func Recognized(reply, keyword string) bool {
	r := Normalize(reply)
	if r == "" {
		return false
	}
	k := Normalize(keyword)
	if strings.Contains(r, k) {
		return true
	}

	variants := keywordVariants[k]
	for _, v := range variants {
		if strings.Contains(r, v) {
			return true
		}
	}

	if Similarity(r, k) > confirmThreshold {
		return true
	}
	for _, v := range variants {
		if Similarity(r, v) > confirmThreshold {
			return true
		}
	}
	return false
}

type Decision int

const (
	Undecided Decision = iota
	Confirmed
	Cancelled
)

// Decide classifies a confirm/cancel reply. Confirmation wins when both match.
func Decide(reply string) Decision {
	switch {
	case Recognized(reply, KeywordConfirm):
		return Confirmed
	case Recognized(reply, KeywordCancel):
		return Cancelled
	default:
		return Undecided
	}
}
