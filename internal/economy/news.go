package economy

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"

	"github.com/talgya/valley-farm/internal/crops"
)

// NewsLimit is the number of headlines the news log keeps.
const NewsLimit = 20

// WelcomeNews seeds an empty news log.
const WelcomeNews = "Welcome to the Alluvial Valley Farm. Practice sustainability and watch markets."

// PriceNewsThreshold is the minimum rounded price move that makes the news.
const PriceNewsThreshold = 2

// NewsLog is a bounded list of headlines, oldest first.
type NewsLog struct {
	items []string
	limit int
}

// NewNewsLog creates a log holding at most limit entries.
func NewNewsLog(limit int, items []string) *NewsLog {
	if limit <= 0 {
		limit = NewsLimit
	}
	n := &NewsLog{limit: limit}
	for _, it := range items {
		n.Add(it)
	}
	return n
}

// Add appends a headline, dropping the oldest beyond the limit.
func (n *NewsLog) Add(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	n.items = append(n.items, text)
	if len(n.items) > n.limit {
		n.items = append([]string(nil), n.items[len(n.items)-n.limit:]...)
	}
}

// Items returns a copy of the headlines.
func (n *NewsLog) Items() []string {
	return append([]string(nil), n.items...)
}

// Len is the number of headlines held.
func (n *NewsLog) Len() int { return len(n.items) }

// PriceNews produces headlines for crops whose price moved at least the threshold.
func PriceNews(prev, now PriceMap) []string {
	ids := make([]crops.ID, 0, len(now))
	for id := range now {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var lines []string
	for _, id := range ids {
		a, ok := prev[id]
		if !ok {
			continue
		}
		b := now[id]
		diff := int(math.Round(b - a))
		if abs(diff) < PriceNewsThreshold {
			continue
		}
		dir := "up"
		if diff < 0 {
			dir = "down"
		}
		lines = append(lines, fmt.Sprintf("%s prices %s ₹%d/kg to ₹%s.", TitleCase(string(id)), dir, abs(diff), humanize.Comma(int64(math.Round(b)))))
	}
	return lines
}

// SaleNews is the headline for a sell-all.
func SaleNews(coins int) string {
	return fmt.Sprintf("Farmers sell produce, earning ₹%s.", humanize.Comma(int64(coins)))
}

// StorageNews is the headline for a storage move.
func StorageNews(b Bin, kg int) string {
	return fmt.Sprintf("%s stocks increased by %s kg.", TitleCase(string(b)), humanize.Comma(int64(kg)))
}

// TitleCase upper-cases the first letter of each word.
func TitleCase(s string) string {
	out := []rune(s)
	start := true
	for i, r := range out {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start {
				out[i] = unicode.ToUpper(r)
			}
			start = false
			continue
		}
		start = true
	}
	return string(out)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
