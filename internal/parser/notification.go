package parser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"finetract/internal/models"
)

// Parse rejections. A notification with no recognizable amount is not a
// transaction; everything else resolves through fallbacks.
var (
	ErrNoAmount  = errors.New("no amount found")
	ErrBadAmount = errors.New("amount not numeric")
)

// NotificationParser turns payment-app notification text into a structured
// transaction. It is the single parse entry point; all downstream consumers
// go through Parse.
type NotificationParser struct{}

func NewNotificationParser() *NotificationParser {
	return &NotificationParser{}
}

// Parse combines title and body (title first) and runs the extractors.
// Only amount extraction can reject; type, description and category always
// resolve with fallbacks. timestampMillis is the event time reported by the
// notification platform, not the time of parsing.
func (p *NotificationParser) Parse(source, title, body string, timestampMillis int64) (*models.ParsedTransaction, error) {
	combined := strings.TrimSpace(title + " " + body)

	amount, err := ExtractAmount(combined)
	if err != nil {
		return nil, err
	}

	if timestampMillis <= 0 {
		timestampMillis = time.Now().UnixMilli()
	}

	return &models.ParsedTransaction{
		Amount:      amount,
		Type:        ClassifyType(combined),
		Description: ExtractDescription(combined, source),
		Source:      source,
		Category:    InferCategory(combined),
		RawText:     combined,
		Timestamp:   timestampMillis,
	}, nil
}

// Amount patterns, most specific first. The first matching pattern wins;
// a numeric failure after the match rejects the whole notification rather
// than falling through to a less specific pattern.
var amountPatterns = []*regexp.Regexp{
	// Currency-symbol-prefixed number: "Rs.2,500.00", "₹1,250", "INR 349.00"
	regexp.MustCompile(`(?i)(?:rs\.?|₹|inr)\s*([0-9,]+\.?[0-9]*)`),
	// Labelled amount: "Amount: 2500", "Amt 120.50"
	regexp.MustCompile(`(?i)(?:amount|amt)[:\s]+(?:rs\.?|₹|inr)?\s*([0-9,]+\.?[0-9]*)`),
	// Verb-adjacent: "debited by 3,200", "paid 120"
	regexp.MustCompile(`(?i)(?:debited|credited|paid|received|sent|added)\s+(?:by|of|for)?\s*(?:rs\.?|₹|inr)?\s*([0-9,]+\.?[0-9]*)`),
	// "for Rs 500"
	regexp.MustCompile(`(?i)for\s+(?:rs\.?|₹|inr)\s*([0-9,]+\.?[0-9]*)`),
	// "withdrawn 2000", "deposited Rs.500"
	regexp.MustCompile(`(?i)(?:withdrawn|deposited)\s*(?:rs\.?|₹|inr)?\s*([0-9,]+\.?[0-9]*)`),
	// Trailing currency: "500 INR"
	regexp.MustCompile(`([0-9,]+\.?[0-9]*)\s*(?:rs\.?|₹|inr)`),
}

// ExtractAmount returns the numeric value of the first pattern match with
// thousands separators stripped.
func ExtractAmount(text string) (float64, error) {
	for _, pattern := range amountPatterns {
		match := pattern.FindStringSubmatch(text)
		if len(match) < 2 {
			continue
		}
		raw := strings.ReplaceAll(match[1], ",", "")
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value <= 0 {
			return 0, ErrBadAmount
		}
		return value, nil
	}
	return 0, ErrNoAmount
}

var debitKeywords = []string{
	"debited", "deducted", "spent", "paid", "payment",
	"withdrawn", "sent", "transferred to", "charged",
	"purchase", "pos ", "upi txn", "txn for", "payment of",
}

var creditKeywords = []string{
	"credited", "received", "added", "deposited",
	"refund", "cashback", "transferred from", "salary",
	"reversed", "returned",
}

// ClassifyType scores debit vs credit keywords. Cashback, refund and
// reversal mentions force CREDIT even when the text also says "debited",
// since such messages describe the original debit being undone.
func ClassifyType(text string) models.TxnType {
	lower := strings.ToLower(text)

	if strings.Contains(lower, "cashback") || strings.Contains(lower, "refund") || strings.Contains(lower, "reversed") {
		return models.TxnCredit
	}

	debitScore := countKeywords(lower, debitKeywords)
	creditScore := countKeywords(lower, creditKeywords)

	switch {
	case debitScore > creditScore:
		return models.TxnDebit
	case creditScore > debitScore:
		return models.TxnCredit
	default:
		return models.TxnUnknown
	}
}

func countKeywords(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

// Description patterns, tried in order. First candidate surviving cleanup
// with length >= 3 wins.
var descriptionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:at|to|from|towards|merchant|info)[:\s]+([A-Za-z0-9 &'\-]{3,30})(?:\s|\.|,|$)`),
	regexp.MustCompile(`([a-zA-Z0-9._\-]+@[a-zA-Z]+)`),
	regexp.MustCompile(`(?i)for[:\s]+([A-Za-z0-9 ]{3,30})(?:\s|\.|,|$)`),
	regexp.MustCompile(`(?i)info:\s*([A-Za-z0-9/\- ]+)`),
}

// Connector words terminate a merchant candidate: "Swiggy via Google Pay"
// names Swiggy, not the rail it rode on.
var descriptionConnectors = map[string]bool{
	"via": true, "using": true, "through": true, "on": true, "dated": true,
}

// Noise words that regex capture occasionally latches onto ("to your A/c").
// A candidate starting with one is skipped in favor of the next match.
var descriptionNoise = map[string]bool{
	"your": true, "you": true, "the": true, "account": true, "dear": true, "a/c": true,
}

// ExtractDescription pulls a merchant or counterparty name out of the text,
// falling back to a friendly name for the source app when nothing matches.
func ExtractDescription(text, source string) string {
	for _, pattern := range descriptionPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			candidate := cleanDescription(match[1])
			if len(candidate) >= 3 {
				return candidate
			}
		}
	}
	return FriendlySourceName(source)
}

func cleanDescription(raw string) string {
	words := strings.Fields(strings.TrimSpace(raw))
	if len(words) == 0 {
		return ""
	}
	if descriptionNoise[strings.ToLower(words[0])] {
		return ""
	}
	kept := words[:0]
	for _, w := range words {
		if descriptionConnectors[strings.ToLower(w)] {
			break
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// categoryRule pairs a category with its trigger keywords. Slice order is
// the tie-break: the first category with any keyword present wins.
type categoryRule struct {
	category string
	keywords []string
}

var categoryRules = []categoryRule{
	{"Food", []string{"swiggy", "zomato", "restaurant", "cafe", "food", "pizza", "burger", "hotel", "dining"}},
	{"Transport", []string{"uber", "ola", "rapido", "metro", "fuel", "petrol", "irctc", "railway", "cab", "auto"}},
	{"Shopping", []string{"amazon", "flipkart", "myntra", "ajio", "meesho", "mall", "store", "shop"}},
	{"Utilities", []string{"electricity", "water", "gas", "bill", "recharge", "broadband", "dth", "wifi"}},
	{"Health", []string{"hospital", "pharmacy", "medicine", "doctor", "clinic", "apollo", "medplus"}},
	{"Entertainment", []string{"netflix", "hotstar", "spotify", "prime", "cinema", "movie", "bookmyshow"}},
	{"Transfer", []string{"transfer", "sent to", "upi", "neft", "imps", "rtgs"}},
}

// InferCategory returns the first category with a keyword present in the
// text, or "Other".
func InferCategory(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return "Other"
}

// sourceNames maps known payment-app identifiers to display names used when
// no merchant could be extracted from the text.
var sourceNames = map[string]string{
	"com.google.android.apps.nbu.paisa.user": "Google Pay",
	"net.one97.paytm":                        "Paytm",
	"com.phonepe.app":                        "PhonePe",
	"in.org.npci.upiapp":                     "BHIM",
	"com.android.mms":                        "SMS",
	"com.google.android.apps.messaging":      "SMS",
	"com.samsung.android.messaging":          "SMS",
}

// FriendlySourceName resolves a source identifier to a display name.
func FriendlySourceName(source string) string {
	if name, ok := sourceNames[source]; ok {
		return name
	}
	return "Unknown"
}
