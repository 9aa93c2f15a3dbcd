package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"bookkar-cli/errs"
	"bookkar-cli/model"
)

// VenueInput is the payload of POST /venues.
type VenueInput struct {
	Name          string           `json:"name"`
	Location      string           `json:"location"`
	ImageUrl      string           `json:"image_url"`
	Capacity      int              `json:"capacity"`
	VenueType     string           `json:"venue_type"`
	Facilities    []string         `json:"facilities"`
	TimeSlots     []model.TimeSlot `json:"-"`
	Pricing       string           `json:"pricing"`
	BookingStatus string           `json:"booking_status"`
	Address       string           `json:"address"`
	Description   string           `json:"description"`
	OwnerId       string           `json:"owner_id"`
}

type remoteSlot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (in VenueInput) MarshalJSON() ([]byte, error) {
	type plain VenueInput
	slots := make([]remoteSlot, 0, len(in.TimeSlots))
	for _, slot := range in.TimeSlots {
		slots = append(slots, remoteSlot{
			StartTime: slot.Start.Format(time.RFC3339),
			EndTime:   slot.End.Format(time.RFC3339),
		})
	}
	return json.Marshal(struct {
		plain
		AvailableTimeSlots []remoteSlot `json:"available_time_slots"`
	}{plain: plain(in), AvailableTimeSlots: slots})
}

// GetVenues returns the full venue catalog.
func (c *Client) GetVenues(ctx context.Context) ([]model.Venue, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, c.endpoint("/venues"), &raw); err != nil {
		return nil, err
	}
	return DecodeVenues(raw)
}

// GetOwnerVenues returns the venues owned by ownerID.
func (c *Client) GetOwnerVenues(ctx context.Context, ownerID string) ([]model.Venue, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, errs.Validation("owner id is required")
	}
	var raw json.RawMessage
	endpoint := c.endpoint("/venues") + "?owner_id=" + url.QueryEscape(ownerID)
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, err
	}
	venues, err := DecodeVenues(raw)
	if err != nil {
		return nil, err
	}
	owned := venues[:0]
	for _, v := range venues {
		if v.OwnerId == ownerID {
			owned = append(owned, v)
		}
	}
	return owned, nil
}

// CreateVenue posts a new venue and returns it as stored by the backend. When
// the backend answers without a venue body, the input is echoed back.
func (c *Client) CreateVenue(ctx context.Context, in VenueInput) (model.Venue, error) {
	if strings.TrimSpace(in.Name) == "" {
		return model.Venue{}, errs.Validation("venue name is required")
	}
	if in.Capacity < 0 {
		return model.Venue{}, errs.Validation("capacity must not be negative")
	}

	var raw json.RawMessage
	if err := c.sendJSON(ctx, http.MethodPost, c.endpoint("/venues"), in, &raw); err != nil {
		return model.Venue{}, err
	}

	if record, ok := extractVenueRecord(raw); ok {
		venue := AdaptVenue(record)
		if venue.Name != "" {
			return venue, nil
		}
	}
	return model.Venue{
		Name:          in.Name,
		Location:      in.Location,
		ImageUrl:      in.ImageUrl,
		Capacity:      in.Capacity,
		VenueType:     in.VenueType,
		Facilities:    normalizeFacilities(in.Facilities),
		TimeSlots:     in.TimeSlots,
		Price:         in.Pricing,
		BookingStatus: in.BookingStatus,
		Address:       in.Address,
		Description:   in.Description,
		OwnerId:       in.OwnerId,
	}, nil
}

// DecodeVenues accepts {data:{venues:[...]}}, {venues:[...]}, {data:[...]} or a bare array.
func DecodeVenues(raw []byte) ([]model.Venue, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errs.Network(fmt.Errorf("decode venues: %w", err), "unexpected response")
	}
	records, ok := venueRecords(payload)
	if !ok {
		return nil, errs.Network(errors.New("decode venues: unexpected response shape"), "unexpected response")
	}
	venues := make([]model.Venue, 0, len(records))
	for _, r := range records {
		record, ok := r.(map[string]any)
		if !ok {
			continue
		}
		venues = append(venues, AdaptVenue(record))
	}
	return venues, nil
}

func venueRecords(payload any) ([]any, bool) {
	switch p := payload.(type) {
	case []any:
		return p, true
	case map[string]any:
		if data, ok := p["data"]; ok {
			return venueRecords(data)
		}
		if venues, ok := p["venues"]; ok {
			return venueRecords(venues)
		}
	case nil:
		return nil, true
	}
	return nil, false
}

func extractVenueRecord(raw []byte) (map[string]any, bool) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}
	for depth := 0; depth < 3; depth++ {
		obj, ok := payload.(map[string]any)
		if !ok {
			return nil, false
		}
		if next, ok := obj["data"]; ok {
			payload = next
			continue
		}
		if next, ok := obj["venue"]; ok {
			payload = next
			continue
		}
		return obj, true
	}
	return nil, false
}

// AdaptVenue maps one backend venue record onto model.Venue. It never fails:
// missing or malformed fields fall back to their zero values.
func AdaptVenue(r map[string]any) model.Venue {
	return model.Venue{
		Id:            firstString(r, "venue_id", "id", "_id"),
		Name:          firstString(r, "name", "venue_name"),
		Location:      firstString(r, "location"),
		ImageUrl:      firstString(r, "image_url", "imageUrl"),
		Capacity:      parseCapacity(r["capacity"]),
		VenueType:     firstString(r, "venue_type", "venueType"),
		Facilities:    parseFacilities(r["facilities"]),
		TimeSlots:     parseTimeSlots(r["available_time_slots"]),
		Price:         firstString(r, "pricing", "price"),
		Rating:        cast.ToFloat64(r["ratings"]),
		BookingStatus: firstString(r, "booking_status", "bookingStatus"),
		Address:       firstString(r, "address"),
		Description:   firstString(r, "description"),
		OwnerId:       firstString(r, "owner_id", "ownerId"),
	}
}

func firstString(r map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := r[key]
		if !ok || v == nil {
			continue
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func parseCapacity(v any) int {
	if s, ok := v.(string); ok {
		v = strings.TrimLeft(strings.TrimSpace(s), "0")
		if v == "" && s != "" {
			return 0
		}
	}
	n, err := cast.ToIntE(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseFacilities(v any) []string {
	switch f := v.(type) {
	case string:
		return normalizeFacilities(strings.Split(f, ","))
	case []any:
		out := make([]string, 0, len(f))
		for _, item := range f {
			if s, err := cast.ToStringE(item); err == nil {
				out = append(out, s)
			}
		}
		return normalizeFacilities(out)
	default:
		return nil
	}
}

func normalizeFacilities(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, f := range in {
		f = strings.TrimSpace(f)
		key := strings.ToLower(f)
		if f == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, err := cast.ToTimeE(s); err == nil && !t.IsZero() {
		return t, true
	}
	return time.Time{}, false
}

func parseTimeSlots(v any) []model.TimeSlot {
	var slots []model.TimeSlot
	switch raw := v.(type) {
	case []any:
		for _, item := range raw {
			if slot, ok := parseSlotItem(item); ok {
				slots = append(slots, slot)
			}
		}
	case map[string]any:
		slots = parseSlotsByDate(raw)
	}
	if slots == nil {
		return []model.TimeSlot{}
	}
	return slots
}

func parseSlotItem(item any) (model.TimeSlot, bool) {
	switch it := item.(type) {
	case map[string]any:
		start, ok := parseTimestamp(firstString(it, "start_time", "start"))
		if !ok {
			return model.TimeSlot{}, false
		}
		end, ok := parseTimestamp(firstString(it, "end_time", "end"))
		if !ok {
			return model.TimeSlot{}, false
		}
		slot := model.TimeSlot{Start: start, End: end}
		return slot, slot.Valid()
	case string:
		// ISO 8601 interval: start/end
		parts := strings.SplitN(it, "/", 2)
		if len(parts) != 2 {
			return model.TimeSlot{}, false
		}
		start, ok := parseTimestamp(parts[0])
		if !ok {
			return model.TimeSlot{}, false
		}
		end, ok := parseTimestamp(parts[1])
		if !ok {
			return model.TimeSlot{}, false
		}
		slot := model.TimeSlot{Start: start, End: end}
		return slot, slot.Valid()
	default:
		return model.TimeSlot{}, false
	}
}

// parseSlotsByDate reads the {"2024-06-01": ["9:00", "10:00"]} form; each entry
// is a one-hour slot.
func parseSlotsByDate(raw map[string]any) []model.TimeSlot {
	dates := make([]string, 0, len(raw))
	for date := range raw {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var slots []model.TimeSlot
	for _, date := range dates {
		day, err := time.Parse(time.DateOnly, strings.TrimSpace(date))
		if err != nil {
			continue
		}
		starts, ok := raw[date].([]any)
		if !ok {
			continue
		}
		for _, s := range starts {
			text, err := cast.ToStringE(s)
			if err != nil {
				continue
			}
			clock, err := time.Parse("15:04", strings.TrimSpace(text))
			if err != nil {
				continue
			}
			begin := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
			slots = append(slots, model.TimeSlot{Start: begin, End: begin.Add(time.Hour)})
		}
	}
	return slots
}
