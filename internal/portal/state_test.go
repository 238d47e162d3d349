// File: internal/portal/state_test.go
package portal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(t *testing.T, html string) *SnapshotProber {
	t.Helper()
	p, err := NewSnapshotProber(html)
	require.NoError(t, err)
	return p
}

func TestRuleClassifierByURL(t *testing.T) {
	c := NewRuleClassifier()
	empty := snapshot(t, "<html><body></body></html>")

	cases := []struct {
		location string
		expect   PageState
	}{
		{location: "https://idp.example.ac.jp/idp/profile/SAML2/Redirect/SSO", expect: StateLoginForm},
		{location: "https://portal.example.ac.jp/login", expect: StateLoginForm},
		{location: "https://portal.example.ac.jp/Shibboleth.sso/SAML2/POST", expect: StateSsoChallenge},
		{location: "https://idp.example.ac.jp/sso?SAMLRequest=abc", expect: StateSsoChallenge},
		{location: "https://portal.example.ac.jp/campusweb/lms/tasklist", expect: StateTaskList},
		{location: "https://portal.example.ac.jp/campusweb/lms/timetable", expect: StateTimetableQuarterView},
		{location: "https://portal.example.ac.jp/campusweb/schedule/monthly", expect: StateScheduleCalendarView},
		{location: "https://portal.example.ac.jp/campusweb/enquete", expect: StateSurveyInterstitial},
		{location: "https://portal.example.ac.jp/campusweb/top", expect: StatePortalHome},
		{location: "https://portal.example.ac.jp/campusweb/addressConfirm", expect: StateContactInfoConfirmation},
		{location: "https://somewhere.else.example.com/", expect: StateUnknown},
		{location: "", expect: StateUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.location, func(t *testing.T) {
			got := c.Classify(context.Background(), tc.location, empty)
			assert.Equal(t, tc.expect, got)
		})
	}
}

func TestRuleClassifierProbesAmbiguousRoot(t *testing.T) {
	c := NewRuleClassifier()
	root := "https://portal.example.ac.jp/campusweb/menu"

	cases := []struct {
		name   string
		html   string
		expect PageState
	}{
		{name: "contact form wins over everything", html: `<form id="address-confirm-form"></form><div id="home-main"></div>`, expect: StateContactInfoConfirmation},
		{name: "survey list", html: `<ul id="enquete-list"></ul>`, expect: StateSurveyInterstitial},
		{name: "home main", html: `<div id="home-main"></div>`, expect: StatePortalHome},
		{name: "no markers", html: `<p>loading...</p>`, expect: StateUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(context.Background(), root, snapshot(t, tc.html))
			assert.Equal(t, tc.expect, got)
		})
	}
}

type failingProber struct{}

func (failingProber) HasElement(context.Context, string) (bool, error) {
	return false, errors.New("evaluation failed")
}

func TestRuleClassifierProbeErrorMeansAbsent(t *testing.T) {
	c := NewRuleClassifier()

	// A flaky probe must degrade to Unknown, never to a wrong positive.
	got := c.Classify(context.Background(), "https://portal.example.ac.jp/campusweb/menu", failingProber{})
	assert.Equal(t, StateUnknown, got)

	// URL-only rules are unaffected by probe failures.
	got = c.Classify(context.Background(), "https://portal.example.ac.jp/campusweb/top", failingProber{})
	assert.Equal(t, StatePortalHome, got)
}

func TestRuleClassifierNilProber(t *testing.T) {
	c := NewRuleClassifier()
	got := c.Classify(context.Background(), "https://portal.example.ac.jp/campusweb/menu", nil)
	assert.Equal(t, StateUnknown, got)
}

func TestPageStateString(t *testing.T) {
	assert.Equal(t, "LoginForm", StateLoginForm.String())
	assert.Equal(t, "Unknown", StateUnknown.String())
	assert.Equal(t, "Unknown", PageState(99).String())
}
