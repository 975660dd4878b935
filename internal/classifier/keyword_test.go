package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyword_Classify(t *testing.T) {
	k := NewKeyword()

	cases := []struct {
		text     string
		category string
		intent   string
	}{
		{"My API key is giving 401 unauthorized errors", CategoryTechnical, IntentAPIAuthFailure},
		{"The whole platform is down for us", CategoryTechnical, IntentServiceOutage},
		{"I want to downgrade next month", CategoryBilling, "subscription_downgrade"},
		{"Requests keep timing out, latency is huge", CategoryTechnical, IntentPerformanceIssue},
		{"Please cancel my subscription", CategoryBilling, IntentSubscriptionCancel},
		{"I want my money back", CategoryComplaint, IntentRefundRequest},
		{"My card was declined", CategoryBilling, IntentPaymentIssue},
		{"This is the worst service ever", CategoryComplaint, IntentServiceDissatisfaction},
		{"I'm locked out after a password reset", CategoryAccount, "account_access"},
		{"Something seems off with my account", CategoryAccount, "account_general"},
		{"What is your data retention policy?", CategoryGeneral, "policy_question"},
		{"Hello there", CategoryGeneral, IntentGeneralQuestion},
	}
	for _, tc := range cases {
		got, err := k.Classify(context.Background(), tc.text)
		require.NoError(t, err)
		assert.Equal(t, tc.category, got.Category, tc.text)
		assert.Equal(t, tc.intent, got.Intent, tc.text)
		assert.True(t, Known(got.Category, got.Intent), tc.text)
	}
}

func TestKeyword_CertaintyForAmbiguousAccountText(t *testing.T) {
	got, err := NewKeyword().Classify(context.Background(), "Something seems off with my account")

	require.NoError(t, err)
	assert.Equal(t, 0.5, got.Certainty)
}

func TestKnown(t *testing.T) {
	assert.True(t, Known(CategoryTechnical, IntentBugReport))
	assert.False(t, Known(CategoryBilling, IntentBugReport))
	assert.False(t, Known("weather", "rain"))
}
