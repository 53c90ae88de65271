// Package llm holds what the AI extractors share: the statement prompts and
// the validation and decoding of the model's JSON answer.
package llm

import (
	"fmt"
	"unicode/utf8"
)

// maxPromptChars keeps long statements inside the model context window.
const maxPromptChars = 100000

const SystemPrompt = `You are an auditor of UK card-processing (merchant services) statements.
Extract exact figures and keep "Gross Sales", "Net Settlement" and "Total Fees" apart.

Reply with one JSON object of exactly this shape:
{
  "_thought_process": string,    // where on the statement each figure was found
  "monthTurnover": number,       // total card sales processed in the month (gross)
  "currentFeesMonthly": number,  // everything the merchant paid the provider this month
  "currentFixedMonthly": number, // fixed monthly charges only (terminal rental, PCI, minimum charge, service fee)
  "providerGuess": string,       // e.g. Worldpay, Barclaycard, Elavon, Dojo, Zettle
  "mix": {
    "debitTurnover": number,
    "creditTurnover": number,
    "businessTurnover": number,
    "internationalTurnover": number,
    "amexTurnover": number,
    "txCount": number            // number of card transactions
  }
}

Rules:
1. monthTurnover: use "Total Card Turnover", "Total Sales", "Gross Value" or "Total Submitted". Never "Net Settlement".
2. currentFeesMonthly is the bill: "Total Charges", "Total Fees", "Invoice Total" or "Amount to be Debited".
   It includes service charges, authorisation fees, terminal rental, PCI fees and VAT.
   Never use "Net Deposit" or "Total Paid to Merchant". Fees are normally 0.5% to 5% of turnover;
   above 20% you are reading the wrong figure. If no total is printed, add up the charge lines.
3. currentFixedMonthly: terminal hire or rental, PCI compliance, management fee, minimum monthly service charge.
   Exclude percentage-based service charges.
4. mix: use the statement's debit, credit and commercial split when present. Otherwise estimate
   debit 80%, credit 18%, other 2%. Without a transaction count estimate turnover / 30.

Numbers only, no currency symbols. Use 0 when a figure is entirely absent.`

const ImagePrompt = "Analyse this image of a merchant statement. Read the summary or totals section for the total fees and the turnover."

// TextPrompt wraps extracted statement text for the user message.
func TextPrompt(text string) string {
	if len(text) > maxPromptChars {
		cut := maxPromptChars
		// never split a multi-byte rune such as £
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return fmt.Sprintf("Analyse this text extracted from a merchant statement:\n\n%s", text)
}
