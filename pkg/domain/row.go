package domain

// Row is one (character, quote) pair read from the dataset.
type Row struct {
	Character string `json:"character"`
	Quote     string `json:"quote"`
}

const (
	ColumnCharacter = "Character"
	ColumnQuote     = "Quote"
)
