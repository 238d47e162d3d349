// File: internal/portal/state.go
package portal

import (
	"context"
	"strings"
)

// PageState identifies one of the fixed set of recognized screens the
// automated session can be in. Classification is signal-based (URL substring
// plus an optional DOM probe), so every unrecognized location maps to
// StateUnknown rather than an error.
type PageState int

const (
	StateUnknown PageState = iota
	StateLoginForm
	StateSsoChallenge
	StatePortalHome
	StateSurveyInterstitial
	StateContactInfoConfirmation
	StateTaskList
	StateTimetableQuarterView
	StateScheduleCalendarView
)

var stateNames = map[PageState]string{
	StateUnknown:                 "Unknown",
	StateLoginForm:               "LoginForm",
	StateSsoChallenge:            "SsoChallenge",
	StatePortalHome:              "PortalHome",
	StateSurveyInterstitial:      "SurveyInterstitial",
	StateContactInfoConfirmation: "ContactInfoConfirmation",
	StateTaskList:                "TaskList",
	StateTimetableQuarterView:    "TimetableQuarterView",
	StateScheduleCalendarView:    "ScheduleCalendarView",
}

func (s PageState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Prober answers cheap existence checks against the currently rendered page.
// The production implementation evaluates a querySelector in the page context;
// tests substitute a snapshot-backed prober.
type Prober interface {
	HasElement(ctx context.Context, selector string) (bool, error)
}

// Classifier maps the browser's current location to a PageState.
type Classifier interface {
	Classify(ctx context.Context, location string, probe Prober) PageState
}

// rule matches a location by URL substring and, when the URL alone is
// ambiguous, by the presence of a marker element.
type rule struct {
	state       PageState
	urlContains string
	probe       string // when set, the rule matches only if this element exists
}

// RuleClassifier is the production classifier: an ordered rule table over the
// last-observed URL with a DOM-probe fallback for the reused portal root.
type RuleClassifier struct {
	rules []rule
}

// Selectors the classifier probes for. The portal reuses its root URL for the
// authenticated home, the survey interstitial, and the contact-info
// confirmation page, so those are distinguished by marker elements.
const (
	ProbeContactInfoForm = "#address-confirm-form"
	ProbeSurveyList      = "#enquete-list"
	ProbeHomeMain        = "#home-main"
)

// NewRuleClassifier builds the classifier for the recognized portal layout.
// The contact-info confirmation check is deliberately first: the portal can
// interject that page after login regardless of where the pipeline thinks it
// is, and scripting past it could corrupt portal-side state.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{
		rules: []rule{
			{state: StateContactInfoConfirmation, urlContains: "/addressConfirm"},
			{state: StateContactInfoConfirmation, urlContains: "/campusweb", probe: ProbeContactInfoForm},
			{state: StateLoginForm, urlContains: "/idp/profile"},
			{state: StateLoginForm, urlContains: "/login"},
			{state: StateSsoChallenge, urlContains: "/Shibboleth.sso"},
			{state: StateSsoChallenge, urlContains: "SAMLRequest="},
			{state: StateTaskList, urlContains: "/lms/tasklist"},
			{state: StateTimetableQuarterView, urlContains: "/lms/timetable"},
			{state: StateScheduleCalendarView, urlContains: "/schedule/monthly"},
			{state: StateSurveyInterstitial, urlContains: "/enquete"},
			{state: StateSurveyInterstitial, urlContains: "/campusweb", probe: ProbeSurveyList},
			{state: StatePortalHome, urlContains: "/campusweb/top"},
			{state: StatePortalHome, urlContains: "/campusweb", probe: ProbeHomeMain},
		},
	}
}

// Classify resolves the current location to a PageState. Rules are evaluated
// in order; a rule carrying a probe selector only matches when the marker
// element exists. Probe errors are treated as "marker absent" so a flaky
// evaluation degrades to StateUnknown instead of failing the run.
func (c *RuleClassifier) Classify(ctx context.Context, location string, probe Prober) PageState {
	for _, r := range c.rules {
		if r.urlContains != "" && !strings.Contains(location, r.urlContains) {
			continue
		}
		if r.probe != "" {
			if probe == nil {
				continue
			}
			found, err := probe.HasElement(ctx, r.probe)
			if err != nil || !found {
				continue
			}
		}
		return r.state
	}
	return StateUnknown
}
