package loan

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Credits renders n with thousands separators, e.g. "1,200 credits".
func Credits(n int64) string {
	return printer.Sprintf("%d credits", n)
}
