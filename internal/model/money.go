package model

import "github.com/shopspring/decimal"

func init() {
	// Amounts go over the wire as JSON numbers, e.g. 450.00 not "450".
	decimal.MarshalJSONWithoutQuotes = true
}
