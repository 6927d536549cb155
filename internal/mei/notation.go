package mei

import (
	"fmt"
	"regexp"
	"strings"
)

// NotationType classifies an encoding as diplomatic or edited, and as
// tablature-style or common music notation.
type NotationType string

const (
	DiplGLT NotationType = "dipl_GLT"
	EdGLT   NotationType = "ed_GLT"
	DiplCMN NotationType = "dipl_CMN"
	EdCMN   NotationType = "ed_CMN"
	FLT     NotationType = "FLT"
	ILT     NotationType = "ILT"
)

// ErrUnrecognizedNaming reports a filename that does not follow the
// corpus naming convention and therefore cannot be classified.
var ErrUnrecognizedNaming = fmt.Errorf("unrecognized naming convention")

// stemPattern is the corpus filename convention (without extension):
//
//	<work>_n<N>_<folio-range>_enc_<dipl|ed>_<GLT|CMN|FLT|ILT>
//
// e.g. "A-Wn_Mus.Hs._18688_n06_5v-6r_enc_dipl_GLT".
var stemPattern = regexp.MustCompile(`^.+_n\d+_[0-9rv-]+_enc_(dipl|ed)_(GLT|CMN|FLT|ILT)$`)

// ClassifyStem derives the notation type from a filename stem (base name
// without extension). Non-conforming names are a hard error: the corpus
// convention is the only source of notation typing.
func ClassifyStem(stem string) (NotationType, error) {
	m := stemPattern.FindStringSubmatch(stem)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrUnrecognizedNaming, stem)
	}
	layer, system := m[1], m[2]
	switch system {
	case "GLT", "CMN":
		return NotationType(layer + "_" + system), nil
	default:
		// French and Italian lute tablature are not split into
		// diplomatic/edited layers in the corpus.
		return NotationType(system), nil
	}
}

// Diplomatic reports whether the notation is a diplomatic transcription.
func (n NotationType) Diplomatic() bool {
	return strings.HasPrefix(string(n), "dipl_")
}

// Edited reports whether the notation is an edited transcription.
func (n NotationType) Edited() bool {
	return strings.HasPrefix(string(n), "ed_")
}
