package dataprocessing

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"bankflow/pkg/contracts/domain"
)

// NoMatch is the literal marker recorded for transactions with no IP record
// inside the window. Downstream consumers parse this value, so it is part of
// the external contract.
const NoMatch = "N/A"

// multiIPSeparator joins the annotated entries of a multi-IP match. Its
// presence in an encoded result is how downstream code detects ambiguous IP
// provenance.
const multiIPSeparator = " | "

// TimeWindow is the asymmetric match window in seconds around a transaction,
// measured as (IP record time - transaction time).
type TimeWindow struct {
	Before int64
	After  int64
}

// DefaultTimeWindow returns the production window: one second before, two
// seconds after.
func DefaultTimeWindow() TimeWindow {
	return TimeWindow{Before: 1, After: 2}
}

// MatchStats aggregates match outcomes over a transaction collection.
type MatchStats struct {
	Total     int `json:"total"`
	Matched   int `json:"matched"`
	MultiIP   int `json:"multi_ip"`
	Unmatched int `json:"unmatched"`
}

type ipRecordRef struct {
	instant   time.Time
	ipAddress string
	rowIndex  int
}

type ipMatch struct {
	ip            string
	offsetSeconds int64
	rowIndex      int
}

// IPMatcher joins transactions to IP records sharing an account within the
// configured time window. The account index is built once at construction and
// is read-only afterwards, so matching is safe to run concurrently.
type IPMatcher struct {
	window       TimeWindow
	accountIndex map[string][]ipRecordRef
}

// NewIPMatcher indexes the given IP records by account, time-sorted. Records
// whose timestamp never parsed carry no instant and are excluded from the
// index: they can never be matched.
func NewIPMatcher(records []domain.IPRecord, window TimeWindow) *IPMatcher {
	accountIndex := make(map[string][]ipRecordRef)

	for _, rec := range records {
		if rec.Instant == nil {
			continue
		}
		accountIndex[rec.Account] = append(accountIndex[rec.Account], ipRecordRef{
			instant:   *rec.Instant,
			ipAddress: rec.IPAddress,
			rowIndex:  rec.RowIndex,
		})
	}

	for _, refs := range accountIndex {
		sort.Slice(refs, func(i, j int) bool {
			return refs[i].instant.Before(refs[j].instant)
		})
	}

	return &IPMatcher{window: window, accountIndex: accountIndex}
}

// NewIPMatcherWithDefaults indexes records using the default window.
func NewIPMatcherWithDefaults(records []domain.IPRecord) *IPMatcher {
	return NewIPMatcher(records, DefaultTimeWindow())
}

// MatchSingle computes the encoded match result for one transaction. A single
// unique IP encodes as the bare address; multiple unique IPs encode as
// "<signed-offset>s:<ip>" entries joined by " | " in first-seen order.
func (m *IPMatcher) MatchSingle(tx *domain.Transaction) string {
	if tx.Instant == nil {
		return NoMatch
	}

	refs, ok := m.accountIndex[tx.Account]
	if !ok {
		return NoMatch
	}

	var matches []ipMatch
	for _, ref := range refs {
		offset := int64(ref.instant.Sub(*tx.Instant) / time.Second)
		if offset >= -m.window.Before && offset <= m.window.After {
			matches = append(matches, ipMatch{
				ip:            ref.ipAddress,
				offsetSeconds: offset,
				rowIndex:      ref.rowIndex,
			})
		}
	}

	if len(matches) == 0 {
		return NoMatch
	}
	return formatMatches(matches)
}

// MatchAll annotates every transaction in place. Each transaction's match is
// independent and only reads the frozen index, so the work is spread over a
// bounded worker group.
func (m *IPMatcher) MatchAll(ctx context.Context, transactions []domain.Transaction) {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range transactions {
		g.Go(func() error {
			transactions[i].MatchedIP = m.MatchSingle(&transactions[i])
			return nil
		})
	}

	// Workers never return an error; Wait is only a barrier.
	_ = g.Wait()
}

// Stats counts match outcomes. A transaction counts as matched when its
// encoded result is a real IP value, not the N/A marker.
func (m *IPMatcher) Stats(transactions []domain.Transaction) MatchStats {
	stats := MatchStats{Total: len(transactions)}

	for i := range transactions {
		ip := transactions[i].MatchedIP
		if ip == "" || ip == NoMatch || strings.HasPrefix(ip, NoMatch) {
			continue
		}
		stats.Matched++
		if strings.Contains(ip, multiIPSeparator) {
			stats.MultiIP++
		}
	}

	stats.Unmatched = stats.Total - stats.Matched
	return stats
}

// formatMatches deduplicates by IP address preserving first-seen order, then
// encodes per the single/multi contract.
func formatMatches(matches []ipMatch) string {
	seen := make(map[string]struct{}, len(matches))
	unique := matches[:0:0]
	for _, m := range matches {
		if _, dup := seen[m.ip]; dup {
			continue
		}
		seen[m.ip] = struct{}{}
		unique = append(unique, m)
	}

	if len(unique) == 1 {
		return unique[0].ip
	}

	parts := make([]string, len(unique))
	for i, m := range unique {
		parts[i] = fmt.Sprintf("%s:%s", formatOffset(m.offsetSeconds), m.ip)
	}
	return strings.Join(parts, multiIPSeparator)
}

func formatOffset(seconds int64) string {
	switch {
	case seconds == 0:
		return "0s"
	case seconds > 0:
		return fmt.Sprintf("+%ds", seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

var offsetPrefixRe = regexp.MustCompile(`^[+-]?\d+s$`)

// FirstIP recovers the first IP address from an encoded match result, for the
// whois collaborator. Offset annotations are stripped; unmatched results yield
// the empty string.
func FirstIP(encoded string) string {
	if encoded == "" || encoded == NoMatch || strings.HasPrefix(encoded, NoMatch) {
		return ""
	}

	first := encoded
	if i := strings.Index(first, multiIPSeparator); i >= 0 {
		first = first[:i]
	}
	if i := strings.Index(first, ":"); i > 0 && offsetPrefixRe.MatchString(first[:i]) {
		first = first[i+1:]
	}
	return strings.TrimSpace(first)
}
