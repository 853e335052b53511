package services

import (
	"fmt"

	"github.com/osvaldoandrade/quotegen/pkg/domain"
)

// BuildPrompt formats a row into the image prompt. Field contents are passed
// through untouched; the model enforces its own limits.
func BuildPrompt(row domain.Row) string {
	return fmt.Sprintf("Please generate colorful picture of %s saying %s", row.Character, row.Quote)
}
