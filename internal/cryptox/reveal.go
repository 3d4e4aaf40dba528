package cryptox

import "errors"

// RevealStatus tells a reader what happened to a field.
type RevealStatus string

const (
	RevealEmpty     RevealStatus = "empty"
	RevealPlain     RevealStatus = "plain"
	RevealDecrypted RevealStatus = "decrypted"
	RevealFailed    RevealStatus = "failed"
)

// Revealed is a field as the reader sees it.
type Revealed struct {
	Status RevealStatus
	Text   string
	Err    error
}

// Reveal decrypts value for display, keeping "no content", "not encrypted"
// and "cannot decrypt" distinct.
func (c *Codec) Reveal(value string) Revealed {
	if value == "" {
		return Revealed{Status: RevealEmpty}
	}
	if !IsEncrypted(value) {
		return Revealed{Status: RevealPlain, Text: value}
	}
	plain, err := c.DecryptString(value)
	if err != nil {
		if !errors.Is(err, ErrDecryptFailed) {
			err = errors.Join(ErrDecryptFailed, err)
		}
		return Revealed{Status: RevealFailed, Err: err}
	}
	return Revealed{Status: RevealDecrypted, Text: plain}
}
