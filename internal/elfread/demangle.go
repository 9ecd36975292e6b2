package elfread

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/priyagupta108/bdx/pkg/metrics"
	"github.com/priyagupta108/bdx/pkg/resilience"
)

// Demangler invokes an external c++filt-equivalent per unique raw name,
// per §1/§9: demangling is an external collaborator, not part of the core.
// A circuit breaker ensures a missing or broken binary is detected once and
// not re-attempted for every symbol in a result set.
type Demangler struct {
	path    string
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics

	mu    sync.Mutex
	cache map[string]string
}

func NewDemangler(path string) *Demangler {
	return NewDemanglerWithMetrics(path, nil)
}

// NewDemanglerWithMetrics is NewDemangler with an optional metrics sink. A
// nil m disables circuit-breaker state reporting.
func NewDemanglerWithMetrics(path string, m *metrics.Metrics) *Demangler {
	if path == "" {
		path = "c++filt"
	}
	return &Demangler{
		path:    path,
		breaker: resilience.NewCircuitBreaker("demangler", resilience.CircuitBreakerConfig{FailureThreshold: 1}),
		metrics: m,
		cache:   make(map[string]string),
	}
}

func (d *Demangler) reportBreakerState() {
	if d.metrics != nil {
		d.metrics.CircuitBreakerState.WithLabelValues("demangler").Set(float64(d.breaker.GetState()))
	}
}

// Demangle returns the demangled form of name, or name itself (with ok=false)
// if demangling is unavailable or fails.
func (d *Demangler) Demangle(name string) (demangled string, ok bool) {
	d.mu.Lock()
	if cached, found := d.cache[name]; found {
		d.mu.Unlock()
		return cached, cached != name
	}
	d.mu.Unlock()

	var result string
	err := d.breaker.Execute(func() error {
		out, err := exec.Command(d.path, name).Output()
		if err != nil {
			return fmt.Errorf("running %s: %w", d.path, err)
		}
		result = strings.TrimSpace(string(out))
		return nil
	})
	d.reportBreakerState()

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil || result == "" {
		d.cache[name] = name
		return name, false
	}
	d.cache[name] = result
	return result, result != name
}

// DemangleBatch demangles every unique name in names in one subprocess
// invocation, which is considerably cheaper than one process per symbol
// for a large result set.
func (d *Demangler) DemangleBatch(names []string) map[string]string {
	out := make(map[string]string, len(names))
	unique := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		unique = append(unique, n)
	}
	if len(unique) == 0 {
		return out
	}

	var buf bytes.Buffer
	err := d.breaker.Execute(func() error {
		cmd := exec.Command(d.path)
		cmd.Stdin = strings.NewReader(strings.Join(unique, "\n") + "\n")
		cmd.Stdout = &buf
		return cmd.Run()
	})
	d.reportBreakerState()
	if err != nil {
		for _, n := range unique {
			out[n] = n
		}
		return out
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	for i, n := range unique {
		if i < len(lines) && lines[i] != "" {
			out[n] = lines[i]
		} else {
			out[n] = n
		}
	}
	return out
}
