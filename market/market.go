// Package market projects raw registry records into a display-ready
// collection with derived fields and filtered views. Everything here is
// read-only and derived; a rebuild from the same records yields the same
// projection.
package market

import (
	"encoding/json"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ticketbase/ticketd/ticket"
)

// DefaultImage is the fallback artwork for events whose metadata names no
// usable image.
const DefaultImage = "/images/event-placeholder.png"

// DefaultCategory is used when metadata carries no category.
const DefaultCategory = "Event"

// Options tune how records are projected.
type Options struct {
	Now          time.Time // zero means time.Now()
	Currency     string    // price suffix, e.g. "ETH"
	UploadsBase  string    // host serving relative banner paths
	DefaultImage string    // overrides DefaultImage when set
}

// Entry is one display-ready event.
type Entry struct {
	ID          uint64
	Name        string
	Description string
	Location    string
	Date        time.Time
	Status      ticket.Status
	PriceWei    *big.Int
	Price       string
	TicketsLeft int64
	Sold        int64
	Trending    bool
	Image       string
	Category    string
}

// metaFields is the best-effort shape of the free-form metadata string.
type metaFields struct {
	Image       string `json:"image"`
	BannerImage string `json:"bannerImage"`
	Category    string `json:"category"`
}

// Project maps records to entries. A malformed metadata string never
// fails the projection; that record just falls back to defaults.
func Project(records []*ticket.Record, opts Options) []*Entry {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	entries := make([]*Entry, 0, len(records))
	for _, rec := range records {
		sold := int64(0)
		if rec.Sold != nil {
			sold = rec.Sold.Int64()
		}

		meta := parseMetadata(rec.Metadata)
		entries = append(entries, &Entry{
			ID:          rec.ID,
			Name:        rec.EventName,
			Description: rec.Description,
			Location:    rec.Location,
			Date:        ticket.EventTime(rec),
			Status:      ticket.Classify(rec, now),
			PriceWei:    rec.Price,
			Price:       FormatPrice(rec.Price, opts.Currency),
			TicketsLeft: ticket.Remaining(rec),
			Sold:        sold,
			Trending:    ticket.Trending(rec),
			Image:       resolveImage(meta, opts),
			Category:    resolveCategory(meta),
		})
	}
	return entries
}

// Featured returns up to limit upcoming entries, trending first, then by
// units sold descending. Ties keep projection order.
func Featured(entries []*Entry, limit int) []*Entry {
	upcoming := Upcoming(entries)
	sort.SliceStable(upcoming, func(i, j int) bool {
		if upcoming[i].Trending != upcoming[j].Trending {
			return upcoming[i].Trending
		}
		return upcoming[i].Sold > upcoming[j].Sold
	})
	if limit > 0 && len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return upcoming
}

// Upcoming filters to entries still open for sale.
func Upcoming(entries []*Entry) []*Entry {
	out := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if e.Status == ticket.StatusUpcoming {
			out = append(out, e)
		}
	}
	return out
}

// Trending filters to upcoming entries with a high sell-through ratio.
func Trending(entries []*Entry) []*Entry {
	out := make([]*Entry, 0, len(entries))
	for _, e := range Upcoming(entries) {
		if e.Trending {
			out = append(out, e)
		}
	}
	return out
}

// FormatPrice renders a wei amount with trailing zeros trimmed and the
// currency suffix appended. Zero and nil both render as "Free".
func FormatPrice(wei *big.Int, currency string) string {
	if wei == nil || wei.Sign() == 0 {
		return "Free"
	}
	s := decimal.NewFromBigInt(wei, -18).String()
	if currency == "" {
		return s
	}
	return s + " " + currency
}

func parseMetadata(raw string) metaFields {
	var meta metaFields
	if raw == "" {
		return meta
	}
	// Parse errors leave the zero value, which maps to defaults below.
	_ = json.Unmarshal([]byte(raw), &meta)
	return meta
}

func resolveImage(meta metaFields, opts Options) string {
	fallback := opts.DefaultImage
	if fallback == "" {
		fallback = DefaultImage
	}

	if meta.Image != "" {
		return meta.Image
	}
	if meta.BannerImage == "" {
		return fallback
	}
	if strings.HasPrefix(meta.BannerImage, "http") {
		return meta.BannerImage
	}
	return strings.TrimSuffix(opts.UploadsBase, "/") + "/" + strings.TrimPrefix(meta.BannerImage, "/")
}

func resolveCategory(meta metaFields) string {
	if meta.Category == "" {
		return DefaultCategory
	}
	return meta.Category
}
