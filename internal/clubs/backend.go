// Package clubs implements the reservation site integrations behind the
// uniform ClubBackend contract: a form/cookie scraping client for BalleJaune
// and a REST client for DoinSport ("allin").
package clubs

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"padelbot/internal/config"
	"padelbot/internal/domain"
	"padelbot/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// callTimeout bounds every outbound HTTP call; a timeout surfaces as a
// transient failure, never a hang of the scheduler tick.
const callTimeout = 20 * time.Second

// base carries what both backends share: descriptive metadata, the per
// operation execution log, outbound pacing and the mutex serializing public
// operations (session cache and log have a single writer at a time).
type base struct {
	fullname string
	address  string

	mu      sync.Mutex
	log     *models.ExecLog
	limiter *rate.Limiter
	logger  zerolog.Logger
}

func newBase(cfg config.ClubConfig, pace time.Duration, logger zerolog.Logger) base {
	return base{
		fullname: cfg.Fullname,
		address:  cfg.Address,
		log:      models.NewExecLog(),
		limiter:  rate.NewLimiter(rate.Every(pace), 1),
		logger:   logger,
	}
}

func (b *base) Fullname() string { return b.fullname }
func (b *base) Address() string  { return b.address }

func (b *base) Logs() []models.LogField {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.log.Fields()
}

// Registry maps club names to their backend, built once from configuration.
type Registry struct {
	names []string
	clubs map[string]domain.ClubBackend
}

// NewRegistry builds all configured backends. An unknown api type is a
// configuration error.
func NewRegistry(cfgs map[string]config.ClubConfig, logger *zerolog.Logger) (*Registry, error) {
	r := &Registry{clubs: make(map[string]domain.ClubBackend)}

	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := cfgs[name]
		l := logger.With().Str("club", name).Logger()
		logger.Info().Str("club", name).Str("api_type", cfg.APIType).Msg("Loading club")

		switch cfg.APIType {
		case "ballejaune":
			r.clubs[name] = NewBalleJaune(cfg, l)
		case "allin":
			r.clubs[name] = NewDoinSport(cfg, l)
		default:
			return nil, fmt.Errorf("club '%s': unknown api type '%s'", name, cfg.APIType)
		}
		r.names = append(r.names, name)
	}

	return r, nil
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (domain.ClubBackend, bool) {
	b, ok := r.clubs[name]
	return b, ok
}

// Names returns the club names in deterministic order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// FullName returns the display name of a club, falling back to its key.
func (r *Registry) FullName(name string) string {
	b, ok := r.clubs[name]
	if !ok || b.Fullname() == "" {
		return name
	}
	return b.Fullname()
}
