package clubs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"padelbot/internal/config"
	"padelbot/internal/models"
	"padelbot/internal/rank"

	"github.com/rs/zerolog"
)

// slotDurationSeconds is the only slot length booked: 90 minutes.
const slotDurationSeconds = 5400

// DoinSport books through the club's REST API ("allin" white label app).
// One account, bearer token cached for an hour, two-phase booking: create
// the ClubBooking resource, then confirm it.
type DoinSport struct {
	base

	apiURL          string
	clubID          string
	whiteLabel      string
	activityID      string
	accountID       string
	accountName     string
	user            string
	password        string
	daysBefore      int
	playgroundOrder []string

	client    *http.Client
	token     string
	lastLogin time.Time
	now       func() time.Time
}

func NewDoinSport(cfg config.ClubConfig, logger zerolog.Logger) *DoinSport {
	return &DoinSport{
		base:            newBase(cfg, 777*time.Millisecond, logger),
		apiURL:          strings.TrimRight(cfg.APIURL, "/"),
		clubID:          cfg.ClubID,
		whiteLabel:      cfg.ClubWhiteLabel,
		activityID:      cfg.ActivityID,
		accountID:       cfg.AccountID,
		accountName:     cfg.AccountName,
		user:            cfg.User,
		password:        cfg.Password,
		daysBefore:      cfg.DaysBeforeBooking,
		playgroundOrder: cfg.PlaygroundOrder,
		client:          &http.Client{Timeout: callTimeout},
		now:             time.Now,
	}
}

func (d *DoinSport) DaysBeforeBooking() int { return d.daysBefore }

func (d *DoinSport) ListBookings(ctx context.Context) ([]models.RemoteBooking, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log.Reset()

	token, err := d.login(ctx)
	if err != nil {
		return nil, err
	}
	return d.getBookings(ctx, token)
}

func (d *DoinSport) ListAvailableSlots(ctx context.Context, date, startTime, endTime string) ([]models.AvailableSlot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log.Reset()

	token, err := d.login(ctx)
	if err != nil {
		return nil, err
	}
	slots, alreadyBooked, err := d.getAvailableSlots(ctx, date, startTime, endTime, token)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		if alreadyBooked {
			d.log.Add("notify", "Everything is booked, no need to try again")
			return []models.AvailableSlot{}, nil
		}
		d.log.Add("error", "No available slots found, but no booked slot found. This is unexpected")
		return nil, fmt.Errorf("no slots and no booked slot for %s %s", date, startTime)
	}

	// Weekend slots are noise for the monitor proposals.
	out := make([]models.AvailableSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.DayOfWeek == 6 || slot.DayOfWeek == 0 {
			d.logger.Info().Str("date", slot.Date).Str("playground", slot.Playground).Msg("Skipping weekend slot")
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}

func (d *DoinSport) CancelBooking(ctx context.Context, booking models.RemoteBooking) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log.Reset()

	token, err := d.login(ctx)
	if err != nil {
		return false
	}

	d.logger.Info().Str("booking_id", booking.ID).Msg("Canceling booking")
	reply, err := d.call(ctx, "/clubs/bookings/"+booking.ID, map[string]any{"canceled": true}, http.MethodPut, token)
	if err != nil {
		d.log.Add("error", "Error while canceling booking: "+err.Error())
		return false
	}
	if reply.status != http.StatusOK || !reply.isJSON {
		d.log.Add("error", "Error while canceling booking: "+reply.errText)
		d.logger.Error().Str("error", reply.errText).Msg("Error while canceling booking")
		return false
	}
	return true
}

func (d *DoinSport) TryBooking(ctx context.Context, date, startTime, endTime string) models.ExecResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log.Reset()

	token, err := d.login(ctx)
	if err != nil {
		return models.ResultRetry
	}

	slots, alreadyBooked, err := d.getAvailableSlots(ctx, date, startTime, endTime, token)
	if err != nil {
		return models.ResultRetry
	}
	if len(slots) == 0 {
		if alreadyBooked {
			d.log.Add("notify", "Everything is booked, no need to try again")
			return models.ResultAbort
		}
		return models.ResultRetry
	}

	bestSlot := d.selectBestSlot(slots)
	if bestSlot == nil {
		return models.ResultAbort
	}

	clubBooking, err := d.createBooking(ctx, *bestSlot, token)
	if err != nil || clubBooking == nil {
		return models.ResultAbort
	}

	if !d.confirmBooking(ctx, clubBooking, token) {
		return models.ResultAbort
	}
	return models.ResultDone
}

// selectBestSlot picks among same-time slots by the configured playground
// preference order; a court missing from the order is never picked.
func (d *DoinSport) selectBestSlot(slots []models.AvailableSlot) *models.AvailableSlot {
	playgrounds := make([]string, len(slots))
	for i, s := range slots {
		playgrounds[i] = s.Playground
	}
	best := rank.Best(playgrounds, d.playgroundOrder, nil)
	if best == -1 {
		d.log.Add("error", fmt.Sprintf("No best slot decided among %d available slots", len(slots)))
		return nil
	}
	d.log.Add("ok", fmt.Sprintf("Best slot is: %s at %s", slots[best].Playground, slots[best].StartAt))
	return &slots[best]
}

func (d *DoinSport) login(ctx context.Context) (string, error) {
	if d.token != "" && d.now().Sub(d.lastLogin) < models.SessionTTLSeconds*time.Second {
		d.log.Add("notify", "Already logged in, re-use token")
		d.logger.Info().Msg("Already logged in, re-use token")
		return d.token, nil
	}

	reply, err := d.call(ctx, "/client_login_check", map[string]any{
		"username":       d.user,
		"password":       d.password,
		"club":           "/clubs/" + d.clubID,
		"clubWhiteLabel": "/clubs/white-labels/" + d.whiteLabel,
		"origin":         "white_label_app",
	}, http.MethodPost, "")
	if err != nil {
		d.log.Add("error", "Error logging in: "+err.Error())
		return "", err
	}
	if reply.status != http.StatusOK || !reply.isJSON {
		d.log.Add("error", "Error logging in: "+reply.errText)
		d.logger.Error().Str("error", reply.errText).Msg("Error logging in")
		return "", fmt.Errorf("login rejected: %s", reply.errText)
	}

	var loginBody struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(reply.body, &loginBody); err != nil || loginBody.Token == "" {
		d.log.Add("error", "Login reply without token")
		return "", fmt.Errorf("login reply without token")
	}

	d.log.Add("ok", "Logged in successfully as "+d.user)
	d.lastLogin = d.now()
	d.token = loginBody.Token
	return d.token, nil
}

func (d *DoinSport) getBookings(ctx context.Context, token string) ([]models.RemoteBooking, error) {
	url := "/clubs/bookings?activityType[]=sport&activityType[]=lesson&activityType[]=event&activityType[]=leisure&activityType[]=formula"
	url += "&canceled=false&startAt[after]=" + d.now().UTC().Format("2006-01-02T15:04:05") + "&order[startAt]=ASC"
	url += "&club.id[]=" + d.clubID + "&participants.user.id=" + d.accountID + "&itemsPerPage=10&page=1&confirmed=true"

	reply, err := d.call(ctx, url, nil, http.MethodGet, token)
	if err != nil {
		d.log.Add("error", "Error while retrieving bookings: "+err.Error())
		return nil, err
	}
	if reply.status != http.StatusOK || !reply.isJSON {
		d.log.Add("error", "Error while retrieving bookings: "+reply.errText)
		d.logger.Error().Str("error", reply.errText).Msg("Error while retrieving bookings")
		return nil, fmt.Errorf("bookings query failed: %s", reply.errText)
	}

	var body struct {
		Members []struct {
			ID          string `json:"id"`
			StartAt     string `json:"startAt"`
			EndAt       string `json:"endAt"`
			Playgrounds []struct {
				Name string `json:"name"`
			} `json:"playgrounds"`
		} `json:"hydra:member"`
	}
	if err := json.Unmarshal(reply.body, &body); err != nil {
		d.logger.Error().Err(err).Msg("Error while parsing bookings")
		d.log.Add("error", "Error while parsing bookings: "+err.Error())
		return nil, err
	}

	bookings := make([]models.RemoteBooking, 0, len(body.Members))
	for _, m := range body.Members {
		startDate, startTime := splitAPITime(m.StartAt)
		endDate, endTime := splitAPITime(m.EndAt)
		playground := ""
		if len(m.Playgrounds) > 0 {
			playground = m.Playgrounds[0].Name
		}
		bookings = append(bookings, models.RemoteBooking{
			ID:          m.ID,
			Title:       startDate + " on " + playground,
			Description: fmt.Sprintf("From %s to %s", startTime, endTime),
			Date:        startDate,
			Time:        startTime,
			EndDate:     endDate,
			EndTime:     endTime,
			Playground:  playground,
		})
	}
	return bookings, nil
}

// getAvailableSlots queries the planning for the exact start time. The
// second return distinguishes "someone already booked everything" from "the
// query found nothing at all".
func (d *DoinSport) getAvailableSlots(ctx context.Context, date, startTime, endTime, token string) ([]models.AvailableSlot, bool, error) {
	url := "/clubs/playgrounds/plannings/" + date
	url += "?club.id=" + d.clubID
	url += "&from=" + startTime + ":00"
	url += "&to=22:29:00"
	url += "&activities.id=" + d.activityID
	url += "&bookingType=unique"

	reply, err := d.call(ctx, url, nil, http.MethodGet, token)
	if err != nil {
		d.log.Add("error", "Error while retrieving availabilities: "+err.Error())
		return nil, false, err
	}
	if reply.status != http.StatusOK || !reply.isJSON {
		d.log.Add("error", "Error while retrieving availabilities: "+reply.errText)
		d.logger.Error().Str("error", reply.errText).Msg("Error while retrieving availabilities")
		return nil, false, fmt.Errorf("availability query failed: %s", reply.errText)
	}

	var body struct {
		Members []struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			Activities []struct {
				ID    string `json:"id"`
				Slots []struct {
					StartAt string `json:"startAt"`
					Prices  []struct {
						ID       string `json:"id"`
						Bookable bool   `json:"bookable"`
						Duration int    `json:"duration"`
					} `json:"prices"`
				} `json:"slots"`
			} `json:"activities"`
		} `json:"hydra:member"`
	}
	if err := json.Unmarshal(reply.body, &body); err != nil {
		d.logger.Error().Err(err).Msg("Error while parsing available slots")
		d.log.Add("error", "Error while parsing available slots: "+err.Error())
		return nil, false, err
	}

	alreadyBooked := false
	var available []models.AvailableSlot
	for _, playground := range body.Members {
		for _, activity := range playground.Activities {
			if activity.ID != d.activityID {
				continue
			}
			for _, slot := range activity.Slots {
				if slot.StartAt != startTime {
					continue
				}
				for _, price := range slot.Prices {
					if price.Duration != slotDurationSeconds {
						continue
					}
					if !price.Bookable {
						alreadyBooked = true
						continue
					}
					d.log.Add("notify", fmt.Sprintf("Playground '%s' is available at %s", playground.Name, startTime))
					day, _ := time.Parse(models.DateLayout, date)
					available = append(available, models.AvailableSlot{
						PlaygroundID: playground.ID,
						Playground:   playground.Name,
						Date:         date,
						DayOfWeek:    int(day.Weekday()),
						StartAt:      startTime + ":00",
						EndAt:        endTime + ":00",
						Duration:     slotDurationSeconds,
						PriceID:      price.ID,
					})
				}
			}
		}
	}
	d.log.Add("notify", fmt.Sprintf("Found %d available slots", len(available)))
	return available, alreadyBooked, nil
}

// createBooking is phase one: create the ClubBooking resource (expects 201).
// The raw reply is kept as a map because confirmation echoes it back with
// relations collapsed to IRIs.
func (d *DoinSport) createBooking(ctx context.Context, slot models.AvailableSlot, token string) (map[string]any, error) {
	d.log.Add("info", fmt.Sprintf("Preparing booking request for slot at %s from %s to %s on %s",
		slot.Playground, slot.StartAt, slot.EndAt, slot.Date))

	reply, err := d.call(ctx, "/clubs/bookings", map[string]any{
		"timetableBlockPrice": "/clubs/playgrounds/timetables/blocks/prices/" + slot.PriceID,
		"activity":            "/activities/" + d.activityID,
		"canceled":            false,
		"club":                "/clubs/" + d.clubID,
		"startAt":             slot.Date + " " + slot.StartAt,
		"payments":            []any{},
		"endAt":               slot.Date + " " + slot.EndAt,
		"name":                d.accountName,
		"playgroundOptions":   []any{},
		"playgrounds": []string{
			"/clubs/playgrounds/" + slot.PlaygroundID,
		},
		"maxParticipantsCountLimit": 4,
		"userClient":                "/user-clients/" + d.accountID,
		"participants": []map[string]any{
			{
				"user":         "/user-clients/" + d.accountID,
				"restToPay":    450,
				"bookingOwner": true,
			},
		},
		"pricePerParticipant": 450,
		"paymentMethod":       "on_the_spot",
		"creationOrigin":      "white_label_app",
	}, http.MethodPost, token)
	if err != nil {
		d.log.Add("error", "Error creating ClubBooking: "+err.Error())
		return nil, err
	}
	if reply.status != http.StatusCreated || !reply.isJSON {
		d.log.Add("error", "Error creating ClubBooking: "+reply.errText)
		d.logger.Error().Str("error", reply.errText).Msg("Error creating ClubBooking")
		return nil, fmt.Errorf("booking creation failed: %s", reply.errText)
	}

	var created map[string]any
	if err := json.Unmarshal(reply.body, &created); err != nil {
		d.log.Add("error", "Error decoding ClubBooking: "+err.Error())
		return nil, err
	}
	return created, nil
}

// confirmBooking is phase two: flip confirmed on the created resource,
// rewriting embedded relations to their IRI form the API expects on PUT.
func (d *DoinSport) confirmBooking(ctx context.Context, clubBooking map[string]any, token string) bool {
	clubBooking["confirmed"] = true
	clubBooking["club"] = "/clubs/" + d.clubID
	clubBooking["activity"] = "/activities/" + d.activityID
	if iri := firstIRI(clubBooking["playgrounds"]); iri != "" {
		clubBooking["playgrounds"] = []string{iri}
	}
	if iri := firstIRI(clubBooking["participants"]); iri != "" {
		clubBooking["participants"] = []string{iri}
	}
	if iri := embeddedIRI(clubBooking["timetableBlockPrice"]); iri != "" {
		clubBooking["timetableBlockPrice"] = iri
	}
	if iri := embeddedIRI(clubBooking["userClient"]); iri != "" {
		clubBooking["userClient"] = iri
	}

	id, _ := clubBooking["id"].(string)
	d.log.Add("info", "Confirming booking ...")
	reply, err := d.call(ctx, "/clubs/bookings/"+id, clubBooking, http.MethodPut, token)
	if err != nil {
		d.log.Add("error", "Error confirming booking: "+err.Error())
		return false
	}
	if reply.status != http.StatusOK || !reply.isJSON {
		d.log.Add("error", "Error confirming booking: "+reply.errText)
		d.logger.Error().Str("error", reply.errText).Msg("Error confirming booking")
		return false
	}

	var confirmed struct {
		Confirmed bool `json:"confirmed"`
	}
	if err := json.Unmarshal(reply.body, &confirmed); err != nil || !confirmed.Confirmed {
		d.log.Add("error", "Server replied booking without confirmed state. Abort")
		d.logger.Error().Msg("Booking reply missing confirmed state")
		return false
	}
	d.log.Add("ok", "Confirmed properly")
	return true
}

type dsReply struct {
	status  int
	errText string
	isJSON  bool
	body    []byte
}

func (d *DoinSport) call(ctx context.Context, path string, body any, method, token string) (*dsReply, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(callCtx, method, d.apiURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("User-Agent", bjUserAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	reply := &dsReply{status: resp.StatusCode, body: raw}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		reply.errText = resp.Status + " - " + string(raw)
		return reply, nil
	}
	reply.isJSON = json.Valid(raw)
	return reply, nil
}

// splitAPITime turns "2026-03-25T18:30:00+01:00" into date and HH:MM.
func splitAPITime(v string) (date, clock string) {
	parts := strings.SplitN(v, "T", 2)
	if len(parts) != 2 {
		return v, ""
	}
	date = parts[0]
	clock = strings.SplitN(parts[1], "+", 2)[0]
	clock = strings.TrimSuffix(clock, ":00")
	return date, clock
}

// firstIRI extracts the "@id" of the first element of an embedded relation
// collection.
func firstIRI(v any) string {
	items, _ := v.([]any)
	if len(items) == 0 {
		return ""
	}
	return embeddedIRI(items[0])
}

func embeddedIRI(v any) string {
	m, _ := v.(map[string]any)
	iri, _ := m["@id"].(string)
	return iri
}
