package model

// Account is a row of the card serial directory that payments post against.
type Account struct {
	SerialNumber string
	CardNumber   string
	CardName     string
}
