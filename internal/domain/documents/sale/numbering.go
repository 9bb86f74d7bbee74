package sale

import (
	"magasin/internal/core/numerator"
)

var prefixes = map[DocumentType]string{
	TypeTicket:        "TIC",
	TypeInvoice:       "FAC",
	TypeQuote:         "DEV",
	TypeDeliveryNote:  "BL",
	TypeExpense:       "DEP",
	TypeCheckPayment:  "PAY-CHEQUE",
	TypeCreditPayment: "PAY-CREDIT",
}

// Prefix returns the numbering prefix of a document type.
func Prefix(t DocumentType) string {
	return prefixes[t]
}

// NumberingConfig returns the yearly sequence configuration of t.
func NumberingConfig(t DocumentType) numerator.Config {
	return numerator.DefaultConfig(Prefix(t))
}
