// Package taskdef implements the reference task-workload variants used by
// the happy-path end-to-end scenario and the worker-loop tests. The task
// body itself is an opaque collaborator as far as the coordination layer
// is concerned (spec.md §1); this package exists only so there is
// something concrete to dispatch and run.
package taskdef

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/churro/scheduler/internal/coordination"
	"github.com/rs/zerolog"
)

// Kind discriminates the tagged-union variants below.
type Kind string

const (
	KindEcho      Kind = "echo"
	KindHTTPProbe Kind = "http-probe"
	KindRandom    Kind = "random"
)

// Context carries the identity of the task being run. It deliberately
// carries nothing about scheduling state — a task body cannot see or
// affect the coordination layer beyond its own success/failure.
type Context struct {
	TaskID coordination.TaskID
	Logger zerolog.Logger
}

// Def is a closed sum type over the three reference task-workload
// variants. Exactly one of the Echo/HTTPProbe/Random fields is
// meaningful, selected by Kind.
type Def struct {
	Kind Kind

	Echo      EchoDef
	HTTPProbe HTTPProbeDef
	Random    RandomDef
}

// EchoDef sleeps for Delay then logs Message. The Go analogue of the
// original program's Foo variant.
type EchoDef struct {
	Message string        `json:"message"`
	Delay   time.Duration `json:"delay"`
}

// HTTPProbeDef issues an HTTP GET against URL and logs the response
// status code. The Go analogue of the original program's Bar variant —
// the literal def used by the happy-path end-to-end scenario.
type HTTPProbeDef struct {
	URL string `json:"url"`
}

// RandomDef generates a pseudo-random integer in [0, Max] and logs it.
// The Go analogue of the original program's Baz variant.
type RandomDef struct {
	Max int `json:"max"`
}

// Run executes the task body, matching the worker loop's contract in
// spec.md §4.6: the caller records success/failure by whether Run
// returns an error, and that error is never propagated further than the
// local `failed` transition.
func (d Def) Run(ctx context.Context, tctx Context) error {
	switch d.Kind {
	case KindEcho:
		select {
		case <-time.After(d.Echo.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		tctx.Logger.Info().Str("task_id", tctx.TaskID.String()).Msg(d.Echo.Message)
		return nil
	case KindHTTPProbe:
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.HTTPProbe.URL, nil)
		if err != nil {
			return fmt.Errorf("build probe request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("probe %s: %w", d.HTTPProbe.URL, err)
		}
		defer resp.Body.Close()
		tctx.Logger.Info().Str("task_id", tctx.TaskID.String()).Int("status", resp.StatusCode).Msg("http probe done")
		if resp.StatusCode >= 500 {
			return fmt.Errorf("probe %s returned %d", d.HTTPProbe.URL, resp.StatusCode)
		}
		return nil
	case KindRandom:
		n := rand.IntN(d.Random.Max + 1)
		tctx.Logger.Info().Str("task_id", tctx.TaskID.String()).Int("value", n).Msg("random")
		return nil
	default:
		return fmt.Errorf("taskdef: unknown kind %q", d.Kind)
	}
}

type wire struct {
	Ty      Kind            `json:"ty"`
	Message string          `json:"message,omitempty"`
	Delay   string          `json:"delay,omitempty"`
	URL     string          `json:"url,omitempty"`
	Max     int             `json:"max,omitempty"`
}

func (d Def) MarshalJSON() ([]byte, error) {
	w := wire{Ty: d.Kind}
	switch d.Kind {
	case KindEcho:
		w.Message = d.Echo.Message
		w.Delay = d.Echo.Delay.String()
	case KindHTTPProbe:
		w.URL = d.HTTPProbe.URL
	case KindRandom:
		w.Max = d.Random.Max
	default:
		return nil, fmt.Errorf("taskdef: unknown kind %q", d.Kind)
	}
	return json.Marshal(w)
}

func (d *Def) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Ty {
	case KindEcho:
		delay, err := time.ParseDuration(w.Delay)
		if err != nil && w.Delay != "" {
			return fmt.Errorf("taskdef: parse echo delay: %w", err)
		}
		*d = Def{Kind: KindEcho, Echo: EchoDef{Message: w.Message, Delay: delay}}
	case KindHTTPProbe:
		*d = Def{Kind: KindHTTPProbe, HTTPProbe: HTTPProbeDef{URL: w.URL}}
	case KindRandom:
		*d = Def{Kind: KindRandom, Random: RandomDef{Max: w.Max}}
	default:
		return fmt.Errorf("taskdef: unknown kind %q", w.Ty)
	}
	return nil
}
