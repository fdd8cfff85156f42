package survival

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/jsonapi"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// Common errors for fetch operations
var (
	ErrFetchFailed = errors.New("fetch failed")
	ErrInvalidJSON = errors.New("response body is not valid JSON")
	ErrMissingURL  = errors.New("endpoint URL not configured")
)

const fallbackMonster = `{"monster_id":"unknown","lat":0,"lon":0}`

// Default upstream endpoints.
const (
	DefaultMonstersURL  = "https://api.mlsakiit.com/monsters"
	DefaultSurvivorsURL = "https://api.mlsakiit.com/survivors"
	DefaultResourcesURL = "https://api.mlsakiit.com/resources"
)

// Endpoints lists the upstream URLs queried by a Fetcher.
type Endpoints struct {
	MonstersURL  string
	SurvivorsURL string
	ResourcesURL string
}

// DefaultEndpoints returns the public survival API endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		MonstersURL:  DefaultMonstersURL,
		SurvivorsURL: DefaultSurvivorsURL,
		ResourcesURL: DefaultResourcesURL,
	}
}

// Fetcher reads records from the upstream survival APIs.
//
// Every fetch degrades instead of failing: the returned records are always
// usable, and a non-nil error only reports that a fallback was substituted.
type Fetcher struct {
	endpoints Endpoints
	timeout   time.Duration
	log       *slog.Logger
}

// NewFetcher creates a fetcher. A zero timeout leaves requests bounded only by ctx.
func NewFetcher(endpoints Endpoints, timeout time.Duration, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{
		endpoints: endpoints,
		timeout:   timeout,
		log:       log,
	}
}

// FallbackMonster is returned in place of the monster list when the monster API is unreachable.
func FallbackMonster() Record {
	return NewRecord(KindMonster, fallbackMonster)
}

// Monsters fetches the monster list from the "monsters" key of the response.
// On failure it returns a single placeholder monster.
func (f *Fetcher) Monsters(ctx context.Context) ([]Record, error) {
	body, err := f.get(ctx, f.endpoints.MonstersURL)
	if err != nil {
		f.log.Error("error fetching monster data", slog.String("url", f.endpoints.MonstersURL), slog.Any("error", err))
		return []Record{FallbackMonster()}, fmt.Errorf("%w: monster data: %w", ErrFetchFailed, err)
	}
	return records(KindMonster, gjson.Get(body, "monsters")), nil
}

// Survivors fetches the survivor list, which the API returns as a bare array.
// On failure it returns an empty list.
func (f *Fetcher) Survivors(ctx context.Context) ([]Record, error) {
	body, err := f.get(ctx, f.endpoints.SurvivorsURL)
	if err != nil {
		f.log.Error("error fetching survivor data", slog.String("url", f.endpoints.SurvivorsURL), slog.Any("error", err))
		return []Record{}, fmt.Errorf("%w: survivor data: %w", ErrFetchFailed, err)
	}
	return records(KindSurvivor, gjson.Parse(body)), nil
}

// Resources fetches the "features" of the resource feature collection.
// On failure it returns an empty list.
func (f *Fetcher) Resources(ctx context.Context) ([]Record, error) {
	body, err := f.get(ctx, f.endpoints.ResourcesURL)
	if err != nil {
		f.log.Error("error fetching resource data", slog.String("url", f.endpoints.ResourcesURL), slog.Any("error", err))
		return []Record{}, fmt.Errorf("%w: resource data: %w", ErrFetchFailed, err)
	}
	return records(KindResource, gjson.Get(body, "features")), nil
}

// FetchAll queries the three APIs concurrently and collects the results.
// Warnings are ordered monsters, survivors, resources.
func (f *Fetcher) FetchAll(ctx context.Context) *Snapshot {
	snap := &Snapshot{}
	var errs [3]error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap.Monsters, errs[0] = f.Monsters(gctx)
		return nil
	})
	g.Go(func() error {
		snap.Survivors, errs[1] = f.Survivors(gctx)
		return nil
	})
	g.Go(func() error {
		snap.Resources, errs[2] = f.Resources(gctx)
		return nil
	})
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			snap.Warnings = append(snap.Warnings, err)
		}
	}
	snap.FetchedAt = time.Now()

	f.log.Info("fetched survival data",
		slog.Int("monsters", len(snap.Monsters)),
		slog.Int("survivors", len(snap.Survivors)),
		slog.Int("resources", len(snap.Resources)),
		slog.Int("warnings", len(snap.Warnings)))

	return snap
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", ErrMissingURL
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	res, err := jsonapi.Raw(req, jsonapi.WithRequestHeader("accept", "application/json"))
	if err != nil {
		return "", fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", jsonapi.InvalidStatusError{
			Status: res.StatusCode,
			Body:   string(body),
		}
	}
	if !gjson.ValidBytes(body) {
		return "", ErrInvalidJSON
	}
	return string(body), nil
}

// records converts a JSON array into records. Anything that is not an array yields no records.
func records(kind Kind, list gjson.Result) []Record {
	if !list.IsArray() {
		return []Record{}
	}
	out := make([]Record, 0, len(list.Array()))
	list.ForEach(func(_, value gjson.Result) bool {
		out = append(out, Record{Kind: kind, Fields: value})
		return true
	})
	return out
}
