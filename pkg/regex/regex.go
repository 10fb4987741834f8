package regex

import (
	"fmt"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

// matchTimeout bounds user-supplied patterns so a pathological expression
// cannot stall a search pass.
const matchTimeout = 500 * time.Millisecond

type Pattern struct {
	Expression *regexp2.Regexp
	Text       string
}

var (
	cacheMu sync.RWMutex
	cache   = map[string]*Pattern{}
)

// Compile compiles a case-insensitive pattern, reusing previously compiled
// patterns across calls.
func Compile(expression string) (*Pattern, error) {
	cacheMu.RLock()
	p, ok := cache[expression]
	cacheMu.RUnlock()
	if ok {
		return p, nil
	}

	re, err := regexp2.Compile(expression, regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", expression, err)
	}
	re.MatchTimeout = matchTimeout

	p = &Pattern{Expression: re, Text: expression}

	cacheMu.Lock()
	cache[expression] = p
	cacheMu.Unlock()

	return p, nil
}

// Match reports whether the subject matches the pattern. Timeouts are treated
// as non-matches with an error so callers can decide whether to skip or abort.
func Match(p *Pattern, subject string) (bool, error) {
	if p == nil || p.Expression == nil {
		return false, nil
	}

	ok, err := p.Expression.MatchString(subject)
	if err != nil {
		return false, fmt.Errorf("match pattern %q: %w", p.Text, err)
	}

	return ok, nil
}
