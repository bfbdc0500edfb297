// Package statement extracts recurring charges from bank statement PDFs
// and folds them into the profile's tracked subscriptions.
package statement

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
)

const (
	maxTextLength = 50000
	// A merchant needs at least this many similar charges in one
	// statement to count as recurring.
	minOccurrences = 2
	// Charges for the same merchant must be within this fraction of each
	// other to be treated as the same subscription.
	amountTolerance = 0.15
)

// chargeLine matches a merchant description followed by an amount, the
// shape most statement exports reduce to as plain text.
var chargeLine = regexp.MustCompile(`(?m)^\s*(?:\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?\s+)?([A-Za-z][A-Za-z0-9 .&'*-]{2,40}?)\s+\$?(-?\d{1,3}(?:,\d{3})*\.\d{2})\s*$`)

// Importer implements interfaces.StatementImporter over PDF text
// extraction and a recurring-charge scan.
type Importer struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewImporter creates the statement importer.
func NewImporter(storage interfaces.StorageManager, logger *common.Logger) *Importer {
	return &Importer{storage: storage, logger: logger}
}

var _ interfaces.StatementImporter = (*Importer)(nil)

// Import parses the statement at pdfPath, detects recurring charges and
// merges them into uid's tracked subscriptions. Returns the full merged
// list.
func (s *Importer) Import(ctx context.Context, uid, pdfPath string) ([]models.TrackedSubscription, error) {
	text, err := extractPDFText(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("extract statement text: %w", err)
	}

	detected := DetectRecurring(text)
	s.logger.Info().Str("user", uid).Int("detected", len(detected)).Msg("Statement scan complete")

	profile, err := s.storage.ProfileStore().Get(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	merged := mergeSubscriptions(profile.Subscriptions, detected)
	if _, err := s.storage.ProfileStore().Patch(ctx, uid, &models.ProfilePatch{Subscriptions: &merged}); err != nil {
		return nil, fmt.Errorf("save subscriptions: %w", err)
	}
	return merged, nil
}

// extractPDFText extracts text content from a PDF file.
func extractPDFText(pdfPath string) (string, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	totalPages := r.NumPage()

	for i := 1; i <= totalPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")

		if sb.Len() > maxTextLength {
			break
		}
	}

	result := sb.String()
	if len(result) > maxTextLength {
		result = result[:maxTextLength]
	}

	return result, nil
}

// DetectRecurring scans statement text for merchants that charge a
// similar amount more than once. Exported for direct use on text that
// did not arrive as a PDF.
func DetectRecurring(text string) []models.TrackedSubscription {
	charges := make(map[string][]float64)
	labels := make(map[string]string)

	for _, match := range chargeLine.FindAllStringSubmatch(text, -1) {
		merchant := normalizeMerchant(match[1])
		if merchant == "" {
			continue
		}
		amount, err := strconv.ParseFloat(strings.ReplaceAll(match[2], ",", ""), 64)
		if err != nil || amount <= 0 {
			continue
		}
		charges[merchant] = append(charges[merchant], amount)
		if _, ok := labels[merchant]; !ok {
			labels[merchant] = strings.TrimSpace(match[1])
		}
	}

	now := time.Now().UTC()
	var subs []models.TrackedSubscription
	for merchant, amounts := range charges {
		amount, n := dominantAmount(amounts)
		if n < minOccurrences {
			continue
		}
		subs = append(subs, models.TrackedSubscription{
			ID:            "sub_" + sanitizeID(merchant),
			Name:          labels[merchant],
			MonthlyAmount: amount,
			FirstSeen:     now,
			LastSeen:      now,
			Source:        models.SubscriptionSourceStatement,
		})
	}

	sort.Slice(subs, func(i, j int) bool { return subs[i].Name < subs[j].Name })
	return subs
}

// dominantAmount finds the largest cluster of near-equal amounts and
// returns its mean and size.
func dominantAmount(amounts []float64) (float64, int) {
	bestMean, bestCount := 0.0, 0
	for _, center := range amounts {
		sum, count := 0.0, 0
		for _, a := range amounts {
			if withinTolerance(a, center) {
				sum += a
				count++
			}
		}
		if count > bestCount {
			bestMean = sum / float64(count)
			bestCount = count
		}
	}
	return bestMean, bestCount
}

func withinTolerance(a, center float64) bool {
	if center == 0 {
		return a == 0
	}
	diff := a - center
	if diff < 0 {
		diff = -diff
	}
	return diff/center <= amountTolerance
}

func normalizeMerchant(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, "*-. ")
	if len(s) < 3 {
		return ""
	}
	// Statement noise rather than merchants.
	for _, skip := range []string{"balance", "total", "payment received", "opening", "closing", "interest"} {
		if strings.Contains(s, skip) {
			return ""
		}
	}
	return s
}

func sanitizeID(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

// mergeSubscriptions folds detected charges into the existing list.
// Manual entries are never touched; statement entries matching by name
// get a refreshed amount and LastSeen instead of a duplicate.
func mergeSubscriptions(existing, detected []models.TrackedSubscription) []models.TrackedSubscription {
	merged := make([]models.TrackedSubscription, len(existing))
	copy(merged, existing)

	byName := make(map[string]int)
	for i, sub := range merged {
		byName[strings.ToLower(sub.Name)] = i
	}

	for _, sub := range detected {
		key := strings.ToLower(sub.Name)
		if i, ok := byName[key]; ok {
			if merged[i].Source == models.SubscriptionSourceManual {
				continue
			}
			merged[i].MonthlyAmount = sub.MonthlyAmount
			merged[i].LastSeen = sub.LastSeen
			continue
		}
		merged = append(merged, sub)
		byName[key] = len(merged) - 1
	}
	return merged
}
