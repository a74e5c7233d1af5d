// Package rewrites proxies matching request paths to alternate origin
// servers instead of the documentation bucket.
package rewrites

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/lsst-sqre/ltd-proxy/pkg/apis/options"
)

// RuleFile is the file representation of a single rewrite rule. The
// substitution is a fixed target URL, pattern captures are not
// interpolated into it.
type RuleFile struct {
	Pattern      string `json:"pattern"`
	Substitution string `json:"substitution"`
}

// RulesFile is the file representation of the rewrite rules file.
type RulesFile struct {
	Rewrites []RuleFile `json:"rewrites"`
}

// Rule is a rewrite rule with its pattern compiled.
type Rule struct {
	Pattern      *regexp.Regexp
	Substitution string
}

// Engine holds the ordered rewrite rules and the shared HTTP client used
// to fetch from the rewrite origins. It is immutable after construction.
type Engine struct {
	rules  []Rule
	client *http.Client
}

// ErrNotInitialized is returned when a nil Engine is asked to build a
// response.
var ErrNotInitialized = errors.New("rewrite engine is not initialized")

// LoadEngine reads and compiles the rewrite rules file at the given path.
func LoadEngine(path string, client *http.Client) (*Engine, error) {
	file := &RulesFile{}
	if err := options.LoadYAML(path, file); err != nil {
		return nil, fmt.Errorf("could not load rewrite rules: %w", err)
	}
	return NewEngine(file, client)
}

// NewEngine compiles a RulesFile into an Engine.
func NewEngine(file *RulesFile, client *http.Client) (*Engine, error) {
	if client == nil {
		return nil, errors.New("rewrite engine requires an HTTP client")
	}

	e := &Engine{client: client}
	for i, rf := range file.Rewrites {
		if rf.Pattern == "" || rf.Substitution == "" {
			return nil, fmt.Errorf("rewrite rule %d must set both pattern and substitution", i)
		}
		re, err := regexp.Compile("^(?:" + rf.Pattern + ")")
		if err != nil {
			return nil, fmt.Errorf("rewrite rule %d pattern %q: %w", i, rf.Pattern, err)
		}
		e.rules = append(e.rules, Rule{Pattern: re, Substitution: rf.Substitution})
	}
	return e, nil
}

// FindMatchingRule returns the first rule whose pattern matches the start
// of the path, in file order.
func (e *Engine) FindMatchingRule(path string) (*Rule, bool) {
	if e == nil {
		return nil, false
	}
	for i := range e.rules {
		if e.rules[i].Pattern.MatchString(path) {
			return &e.rules[i], true
		}
	}
	return nil, false
}

// BuildResponse fetches the substitution URL of the first matching rule
// and returns the streaming response. It returns (nil, nil) when no rule
// matches and callers fall through to the bucket. The caller owns the
// response body and must close it.
func (e *Engine) BuildResponse(req *http.Request, path string) (*http.Response, error) {
	if e == nil {
		return nil, ErrNotInitialized
	}

	rule, ok := e.FindMatchingRule(path)
	if !ok {
		return nil, nil
	}

	upstream, err := http.NewRequestWithContext(req.Context(), http.MethodGet, rule.Substitution, nil)
	if err != nil {
		return nil, fmt.Errorf("building rewrite request for %q: %w", rule.Substitution, err)
	}

	resp, err := e.client.Do(upstream)
	if err != nil {
		return nil, fmt.Errorf("fetching rewrite origin %q: %w", rule.Substitution, err)
	}
	return resp, nil
}
