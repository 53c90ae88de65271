package notify

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"github.com/cardmachinequote/quote-engine/internal/domain"
)

var strictPolicy = bluemonday.StrictPolicy()

const analysisTmpl = `<div style="font-family: system-ui, sans-serif; font-size:14px; line-height:1.5; color:#333;">
  <h2>New statement upload</h2>
  <p>
    <strong>Analysis:</strong> {{.AnalysisID}}<br/>
    <strong>Business name:</strong> {{orNone .BusinessName}}<br/>
    <strong>User email:</strong> {{orNone .UserEmail}}<br/>
    <strong>Provider (detected):</strong> {{.ProviderName}}<br/>
    <strong>Parsing status:</strong> {{upper (print .ParsingStatus)}}<br/>
    <strong>Manual quote required:</strong> {{if .ManualRequired}}YES{{else}}NO{{end}}
    {{- if .Reason}}<br/><strong>Reason:</strong> {{.Reason}}{{end}}
  </p>
  <hr style="margin:16px 0; border:0; border-top:1px solid #eee;" />
  <h3>Estimated savings</h3>
  <p>
    <strong>Current monthly cost:</strong> £{{money .CurrentMonthlyCost}}<br/>
    <strong>New monthly cost:</strong> £{{money .NewMonthlyCost}}<br/>
    <strong>Monthly saving:</strong> £{{money .MonthlySaving}}<br/>
    <strong>Annual saving:</strong> £{{money .AnnualSaving}}
  </p>
  <h3>Current provider fees</h3>
  <ul>
    <li>Transaction fees: £{{money .CurrentTransactionFees}}</li>
    <li>Terminal fees: £{{money .CurrentTerminalFees}}</li>
    <li>Other charges: £{{money .CurrentOtherFees}}</li>
    <li><strong>Total:</strong> £{{money .CurrentMonthlyCost}}</li>
  </ul>
  <h3>Our quote{{if .TierName}} ({{.TierName}}){{end}}</h3>
  <ul>
    <li>Transaction fees: £{{money .CMQTransactionFees}}</li>
    <li>Authorisation fees: £{{money .CMQAuthFees}}</li>
    <li>Other fees: £{{money .CMQOtherFees}}</li>
    <li>Qualified debit rate: {{money .MatchedDebitRate}}%</li>
    <li>Qualified credit rate: {{money .MatchedCreditRate}}%</li>
    <li>Other/International rate: {{money .MatchedOtherRate}}%</li>
    <li>Terminal fee (per month): £{{money .TerminalFee}}</li>
    <li>Authorisation fee (per tx): £{{printf "%.3f" .AuthFee}}</li>
    {{- if gt .OneOff 0.0}}
    <li>One-off terminal purchase: £{{money .OneOff}}</li>
    {{- end}}
    <li><strong>Total estimated monthly cost:</strong> £{{money .NewMonthlyCost}}</li>
  </ul>
  <p style="margin-top:16px; font-size:12px; color:#666;">
    The customer's original statement is attached.<br/>
    If a manual quote is required, review the statement, recalculate if needed
    and email a quote to the customer.
  </p>
</div>`

const manualReviewTmpl = `<h2>Manual quote request</h2>
<p>The user asked for a manual quote for the attached statement.</p>
<ul>
  <li><strong>User email:</strong> {{orNone .UserEmail}}</li>
  <li><strong>Business name:</strong> {{orNone .BusinessName}}</li>
  <li><strong>File name:</strong> {{.FileName}}</li>
</ul>
<p>Please review the attachment and contact the user.</p>`

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"upper": strings.ToUpper,
	"orNone": func(s string) string {
		if s == "" {
			return "Not provided"
		}
		return s
	},
}

var (
	analysisTemplate     = template.Must(template.New("analysis").Funcs(funcs).Parse(analysisTmpl))
	manualReviewTemplate = template.Must(template.New("manual_review").Funcs(funcs).Parse(manualReviewTmpl))
)

// Render builds the subject and HTML body for a notification.
func Render(n domain.Notification) (subject, body string, err error) {
	res := n.Result
	res.BusinessName = SanitizeText(res.BusinessName)
	res.UserEmail = SanitizeText(res.UserEmail)

	business := res.BusinessName
	if business == "" {
		business = "Unknown business"
	}

	var buf bytes.Buffer
	switch n.Kind {
	case domain.NotifyManualReview:
		subject = "ACTION REQUIRED: Manual Review Request"
		fileName := ""
		if n.Attachment != nil {
			fileName = SanitizeText(n.Attachment.Name)
		}
		err = manualReviewTemplate.Execute(&buf, struct {
			domain.SavingsResult
			FileName string
		}{res, fileName})
	default:
		if res.ParsingStatus == domain.ParsingSuccess {
			subject = "New statement uploaded: " + business
		} else {
			subject = "UNREADABLE statement - manual quote required (" + business + ")"
		}
		err = analysisTemplate.Execute(&buf, res)
	}
	if err != nil {
		return "", "", fmt.Errorf("render %s notification: %w", n.Kind, err)
	}
	return subject, buf.String(), nil
}

// SanitizeText strips markup and unprintable runes from user supplied text.
// The result is plain text; html/template escapes it again on output.
func SanitizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == ' ' {
			return r
		}
		return -1
	}, s)
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}
