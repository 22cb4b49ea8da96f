package clubs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"padelbot/internal/config"
	"padelbot/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestBalleJaune(t *testing.T, handler http.Handler, creds []config.Credential) (*BalleJaune, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	b := NewBalleJaune(config.ClubConfig{
		APIType:           "ballejaune",
		Fullname:          "Tennis Club",
		APIURL:            srv.URL,
		ClubID:            "42",
		DaysBeforeBooking: 14,
		Credentials:       creds,
		Schedules: []config.Schedule{
			{Name: "indoor", Value: "100"},
			{Name: "outdoor", Value: "200"},
		},
	}, zerolog.Nop())
	b.limiter = rate.NewLimiter(rate.Inf, 1)
	return b, srv
}

func bookingDate() string {
	return time.Now().AddDate(0, 0, 3).Format(models.DateLayout)
}

func loginHandlers(token string) map[string]any {
	return map[string]any{
		"handlers": []any{
			map[string]any{"args": []any{"ignored", token}},
		},
	}
}

func TestBalleJauneTryBookingDone(t *testing.T) {
	var loginCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login/from/club-home", func(w http.ResponseWriter, r *http.Request) {
		loginCalls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "alice-login", r.PostForm.Get("username"))
		assert.Equal(t, "42", r.PostForm.Get("club_id"))
		if r.PostForm.Get("csrf_auth_login42") != "csrf-tok" {
			// First pass has no token yet; hand one out.
			json.NewEncoder(w).Encode(loginHandlers("csrf-tok"))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	mux.HandleFunc("/reservation/switch", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "3", r.PostForm.Get("date"))
		assert.Equal(t, "1110", r.PostForm.Get("timestart"))
		assert.Equal(t, "90", r.PostForm.Get("duration"))
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><form><input type="hidden" name="csrf_reservation" value="resa-tok"></form></body></html>`))
	})
	mux.HandleFunc("/reservation/process", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "create", r.PostForm.Get("action_type"))
		assert.Equal(t, "resa-tok", r.PostForm.Get("csrf_reservation"))
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	b, _ := newTestBalleJaune(t, mux, []config.Credential{
		{Name: "alice", Login: "alice-login", Password: "pw"},
	})

	result := b.TryBooking(context.Background(), bookingDate(), "18:30", "20:00")

	assert.Equal(t, models.ResultDone, result)
	assert.Equal(t, 2, loginCalls, "one blind pass plus one carrying the csrf token")
	fields := b.Logs()
	require.NotEmpty(t, fields)
	assert.Equal(t, "Booked successfully with 'alice' account", fields[len(fields)-1].Value)
}

func TestBalleJauneTryBookingQuotaExhaustedRetries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login/from/club-home", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	mux.HandleFunc("/reservation/switch", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"alert": map[string]any{"title": "Quota de réservation"},
		})
	})

	b, _ := newTestBalleJaune(t, mux, []config.Credential{
		{Name: "alice", Login: "alice-login", Password: "pw"},
		{Name: "bob", Login: "bob-login", Password: "pw"},
	})

	result := b.TryBooking(context.Background(), bookingDate(), "18:30", "20:00")

	assert.Equal(t, models.ResultRetry, result)
	fields := b.Logs()
	require.NotEmpty(t, fields)
	assert.Equal(t, "No credential could book this attempt", fields[len(fields)-1].Value)

	var quotaNotices int
	for _, f := range fields {
		if f.Value == "'alice-login' is not able to book slot, quota reached for this account" ||
			f.Value == "'bob-login' is not able to book slot, quota reached for this account" {
			quotaNotices++
		}
	}
	assert.Equal(t, 4, quotaNotices, "both accounts, both schedules")
}

func TestBalleJauneLoginLoopIsBounded(t *testing.T) {
	var loginCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login/from/club-home", func(w http.ResponseWriter, r *http.Request) {
		loginCalls++
		// Never succeed: always answer with yet another token.
		json.NewEncoder(w).Encode(loginHandlers("another-token"))
	})

	b, _ := newTestBalleJaune(t, mux, []config.Credential{
		{Name: "alice", Login: "alice-login", Password: "pw"},
	})

	result := b.TryBooking(context.Background(), bookingDate(), "18:30", "20:00")

	assert.Equal(t, models.ResultRetry, result)
	assert.Equal(t, maxLoginAttempts, loginCalls)
}

func TestBalleJauneTryBookingAbortsOnHardFailure(t *testing.T) {
	b, srv := newTestBalleJaune(t, http.NewServeMux(), []config.Credential{
		{Name: "alice", Login: "alice-login", Password: "pw"},
	})
	srv.Close()

	result := b.TryBooking(context.Background(), bookingDate(), "18:30", "20:00")

	assert.Equal(t, models.ResultAbort, result)
}

func TestBalleJauneUnsupportedOperations(t *testing.T) {
	b, _ := newTestBalleJaune(t, http.NewServeMux(), nil)
	ctx := context.Background()

	bookings, err := b.ListBookings(ctx)
	assert.Error(t, err)
	assert.Nil(t, bookings)

	slots, err := b.ListAvailableSlots(ctx, bookingDate(), "18:30", "20:00")
	assert.Error(t, err)
	assert.Nil(t, slots)

	assert.False(t, b.CancelBooking(ctx, models.RemoteBooking{ID: "x"}))

	fields := b.Logs()
	require.NotEmpty(t, fields)
	assert.Equal(t, "Not yet implemented for BalleJaune API", fields[len(fields)-1].Value)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(context.DeadlineExceeded))
	assert.True(t, isTransient(timeoutErr{}))
	assert.False(t, isTransient(errors.New("401 Unauthorized")))
}

func TestCsrfLoginToken(t *testing.T) {
	assert.Equal(t, "tok", csrfLoginToken(loginHandlers("tok")))
	assert.Empty(t, csrfLoginToken(map[string]any{}))
	assert.Empty(t, csrfLoginToken(map[string]any{"handlers": []any{map[string]any{"args": []any{"only-one"}}}}))
}

func TestRegistry(t *testing.T) {
	logger := zerolog.Nop()
	reg, err := NewRegistry(map[string]config.ClubConfig{
		"forest": {APIType: "ballejaune", Fullname: "Forest Club"},
		"allin":  {APIType: "allin"},
	}, &logger)
	require.NoError(t, err)

	assert.Equal(t, []string{"allin", "forest"}, reg.Names())

	backend, ok := reg.Get("forest")
	require.True(t, ok)
	assert.IsType(t, &BalleJaune{}, backend)

	backend, ok = reg.Get("allin")
	require.True(t, ok)
	assert.IsType(t, &DoinSport{}, backend)

	_, ok = reg.Get("nope")
	assert.False(t, ok)

	assert.Equal(t, "Forest Club", reg.FullName("forest"))
	assert.Equal(t, "allin", reg.FullName("allin"))
	assert.Equal(t, "missing", reg.FullName("missing"))

	_, err = NewRegistry(map[string]config.ClubConfig{
		"bad": {APIType: "mystery"},
	}, &logger)
	assert.Error(t, err)
}
