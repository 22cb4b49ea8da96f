package clubs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"padelbot/internal/config"
	"padelbot/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

const bjUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxLoginAttempts bounds the CSRF login chain: one blind attempt to harvest
// the dynamic anti-forgery token, one retry carrying it.
const maxLoginAttempts = 2

// BalleJaune books through the club's web reservation pages. A pool of named
// credentials is tried in order within a single attempt; quota exhaustion of
// every account still reads as retry-later. Sessions are not cached: each
// attempt logs in fresh through the cookie/CSRF chain.
type BalleJaune struct {
	base

	apiURL      string
	clubID      string
	daysBefore  int
	duration    int
	credentials []config.Credential
	schedules   []config.Schedule
}

func NewBalleJaune(cfg config.ClubConfig, logger zerolog.Logger) *BalleJaune {
	return &BalleJaune{
		base:        newBase(cfg, 500*time.Millisecond, logger),
		apiURL:      strings.TrimRight(cfg.APIURL, "/"),
		clubID:      cfg.ClubID,
		daysBefore:  cfg.DaysBeforeBooking,
		duration:    models.DefaultDurationMinutes,
		credentials: cfg.Credentials,
		schedules:   cfg.Schedules,
	}
}

func (b *BalleJaune) DaysBeforeBooking() int { return b.daysBefore }

func (b *BalleJaune) ListBookings(ctx context.Context) ([]models.RemoteBooking, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log.Reset()
	b.log.Add("error", "Not yet implemented for BalleJaune API")
	return nil, errors.New("listing bookings is not implemented for ballejaune")
}

func (b *BalleJaune) ListAvailableSlots(ctx context.Context, date, startTime, endTime string) ([]models.AvailableSlot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log.Reset()
	b.log.Add("error", "Not yet implemented for BalleJaune API")
	return nil, errors.New("listing slots is not implemented for ballejaune")
}

func (b *BalleJaune) CancelBooking(ctx context.Context, booking models.RemoteBooking) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log.Reset()
	b.log.Add("error", "Not yet implemented for BalleJaune API")
	return false
}

func (b *BalleJaune) TryBooking(ctx context.Context, date, startTime, endTime string) models.ExecResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log.Reset()

	for _, cred := range b.credentials {
		b.log.Add("info", fmt.Sprintf("Trying to book with '%s' credentials", cred.Name))
		b.logger.Debug().Str("credential", cred.Name).Msg("Trying to book")

		booked, err := b.tryBookingWithCred(ctx, cred, date, startTime, endTime)
		if err != nil {
			if isTransient(err) {
				b.log.Add("error", "Transient failure while trying to book: "+err.Error())
				return models.ResultRetry
			}
			b.logger.Error().Err(err).Msg("Unknown error while trying to book")
			b.log.Add("error", "Unknown error while trying to book: "+err.Error())
			return models.ResultAbort
		}
		if booked {
			b.log.Add("notify", "Booked successfully with '"+cred.Name+"' account")
			return models.ResultDone
		}
	}

	b.log.Add("info", "No credential could book this attempt")
	return models.ResultRetry
}

func (b *BalleJaune) tryBookingWithCred(ctx context.Context, cred config.Credential, date, startTime, endTime string) (bool, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return false, err
	}
	session := &bjSession{
		backend: b,
		client:  &http.Client{Jar: jar, Timeout: callTimeout},
	}

	loggedIn, err := session.login(ctx, cred)
	if err != nil {
		return false, err
	}
	if !loggedIn {
		b.logger.Warn().Str("credential", cred.Name).Msg("Unable to login")
		return false, nil
	}

	parts := strings.SplitN(startTime, ":", 2)
	if len(parts) != 2 {
		return false, fmt.Errorf("malformed start time %q", startTime)
	}
	hours, _ := strconv.Atoi(parts[0])
	minutes, _ := strconv.Atoi(parts[1])
	timeInMinutes := hours*60 + minutes

	daysDiff, err := models.DaysUntil(date, time.Now())
	if err != nil {
		return false, err
	}

	for _, schedule := range b.schedules {
		token, err := session.reservationToken(ctx, daysDiff, timeInMinutes, schedule.Value, cred.Login)
		if err != nil {
			return false, err
		}
		if token == "" {
			continue
		}
		b.logger.Info().
			Str("date", date).Str("time", startTime).Str("schedule", schedule.Name).
			Msg("Trying to reserve with fresh token")
		booked, err := session.reserve(ctx, date, startTime, endTime, schedule.Value, token)
		if err != nil {
			return false, err
		}
		if booked {
			return true, nil
		}
	}
	return false, nil
}

// bjSession is one credential's login attempt: its own cookie jar and the
// referrer chain the site expects.
type bjSession struct {
	backend  *BalleJaune
	client   *http.Client
	referrer string
}

func (s *bjSession) login(ctx context.Context, cred config.Credential) (bool, error) {
	b := s.backend
	csrf := ""
	for attempt := 0; attempt < maxLoginAttempts; attempt++ {
		form := url.Values{}
		form.Set("username", cred.Login)
		form.Set("password", cred.Password)
		form.Set("cookie_enabled", "true")
		form.Set("club_id", b.clubID)
		form.Set("csrf_auth_login"+b.clubID, csrf)
		form.Set("remember", "1")

		reply, err := s.call(ctx, "/auth/login/from/club-home", form, "")
		if err != nil {
			return false, err
		}
		if reply.status != http.StatusOK {
			b.log.Add("error", "Error logging in: "+reply.errText)
			b.logger.Error().Str("status", reply.errText).Msg("Error logging in")
			return false, nil
		}
		if reply.isJSON && boolField(reply.data, "success") {
			b.logger.Info().Msg("Logged in successfully")
			b.log.Add("ok", "Logged in successfully !!!")
			return true, nil
		}

		next := csrfLoginToken(reply.data)
		if next == "" {
			b.log.Add("error", "Error logging in, no csrf token in reply")
			b.logger.Warn().Msg("Error logging in, unable to find csrf_auth_login token")
			return false, nil
		}
		b.logger.Debug().Str("csrf", next).Msg("Retrying login with csrf token")
		csrf = next
	}
	b.log.Add("error", "Error logging in after csrf retry")
	return false, nil
}

// reservationToken asks the reservation switch page for the csrf_reservation
// token guarding the booking form. An empty token with nil error means this
// schedule cannot be booked right now (quota or availability).
func (s *bjSession) reservationToken(ctx context.Context, daysDiff, timeInMinutes int, schedule, loginUsed string) (string, error) {
	b := s.backend
	b.logger.Debug().
		Int("date_diff", daysDiff).Int("time", timeInMinutes).Str("schedule", schedule).
		Msg("Checking availability for schedule")

	form := url.Values{}
	form.Set("date", strconv.Itoa(daysDiff))
	form.Set("schedule", schedule)
	form.Set("timestart", strconv.Itoa(timeInMinutes))
	form.Set("duration", strconv.Itoa(b.duration))

	reply, err := s.call(ctx, "/reservation/switch", form, "/reservation")
	if err != nil {
		return "", err
	}
	if reply.status != http.StatusOK {
		b.logger.Warn().Str("schedule", schedule).Str("status", reply.errText).Msg("Error getting availability")
		b.log.Add("error", fmt.Sprintf("Error getting availability for schedule %s: %s", schedule, reply.errText))
		return "", nil
	}

	if !reply.isJSON {
		// The booking form came back as HTML; the token is a hidden input.
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(reply.body))
		if err != nil {
			return "", err
		}
		token, ok := doc.Find(`input[name="csrf_reservation"]`).Attr("value")
		if !ok {
			b.log.Add("error", "Reservation page without csrf_reservation input")
			return "", nil
		}
		return token, nil
	}

	if alertTitle(reply.data) == "Quota de réservation" {
		b.log.Add("notify", fmt.Sprintf("'%s' is not able to book slot, quota reached for this account", loginUsed))
		b.logger.Info().Str("login", loginUsed).Msg("Quota reached for this account")
		return "", nil
	}
	b.log.Add("error", "Unable to get reservation token")
	b.logger.Warn().Msg("Unable to get reservation token")
	return "", nil
}

func (s *bjSession) reserve(ctx context.Context, date, startTime, endTime, schedule, token string) (bool, error) {
	b := s.backend
	form := url.Values{}
	form.Set("action_type", "create")
	form.Set("choice", "with_none")
	form.Set("default_date", date)
	form.Set("default_timestart", startTime)
	form.Set("default_timeend", endTime)
	form.Set("default_duration", strconv.Itoa(b.duration))
	form.Set("default_schedule", schedule)
	form.Set("default_row", "0")
	form.Set("poll_request_id", "0")
	form.Set("csrf_reservation", token)

	reply, err := s.call(ctx, "/reservation/process", form, "")
	if err != nil {
		return false, err
	}

	switch {
	case reply.status == http.StatusOK && reply.isJSON && boolField(reply.data, "success"):
		b.logger.Info().Msg("Booked successfully")
		b.log.Add("ok", "Booked successfully !!!")
		return true, nil
	case reply.status == http.StatusOK && reply.isJSON && alertTitle(reply.data) != "":
		b.log.Add("error", "Not possible to book slot: "+alertTitle(reply.data))
		return false, nil
	default:
		b.log.Add("error", fmt.Sprintf("Unable to book slot: %d %s", reply.status, reply.errText))
		b.logger.Error().Int("status", reply.status).Str("error", reply.errText).Msg("Unable to book slot")
		return false, nil
	}
}

type bjReply struct {
	status  int
	errText string
	isJSON  bool
	body    []byte
	data    map[string]any
}

func (s *bjSession) call(ctx context.Context, path string, form url.Values, referrer string) (*bjReply, error) {
	b := s.backend
	if referrer != "" {
		s.referrer = b.apiURL + referrer
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, b.apiURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("User-Agent", bjUserAgent)
	if s.referrer != "" {
		req.Header.Set("Referer", s.referrer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	s.referrer = b.apiURL + path

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	reply := &bjReply{status: resp.StatusCode, body: body}
	if resp.StatusCode != http.StatusOK {
		reply.errText = resp.Status
		return reply, nil
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err == nil {
		reply.isJSON = true
		reply.data = data
	}
	return reply, nil
}

// csrfLoginToken digs the dynamic anti-forgery token out of the login reply:
// handlers[0].args[1].
func csrfLoginToken(data map[string]any) string {
	handlers, _ := data["handlers"].([]any)
	if len(handlers) == 0 {
		return ""
	}
	first, _ := handlers[0].(map[string]any)
	args, _ := first["args"].([]any)
	if len(args) < 2 {
		return ""
	}
	token, _ := args[1].(string)
	return token
}

func alertTitle(data map[string]any) string {
	alert, _ := data["alert"].(map[string]any)
	title, _ := alert["title"].(string)
	return title
}

func boolField(data map[string]any, key string) bool {
	v, _ := data[key].(bool)
	return v
}

// isTransient classifies timeouts and temporary network conditions, which
// the scheduler should absorb as a retry.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
