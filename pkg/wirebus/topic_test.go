package wirebus_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/wirebus/pkg/wirebus"
)

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		pattern string
		want    bool
	}{
		{"exact match", "maidos.config", "maidos.config", true},
		{"exact mismatch", "maidos.config", "maidos.state", false},
		{"global wildcard", "anything.at.all", "*", true},
		{"prefix wildcard match", "maidos.config.changed", "maidos.*", true},
		{"prefix wildcard deep", "maidos.a.b.c", "maidos.*", true},
		{"prefix wildcard excludes bare prefix", "orders", "orders.*", false},
		{"prefix wildcard mismatch", "billing.created", "orders.*", false},
		{"prefix must end on segment", "ordersextra.created", "orders.*", false},
		{"star only matches as prefix pattern", "maidos.config", "other.*", false},
		{"empty topic vs wildcard", "", "*", true},
		{"empty pattern", "maidos.config", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wirebus.MatchTopic(tt.topic, tt.pattern))
		})
	}
}

func TestMatchAnyTopic(t *testing.T) {
	assert.True(t, wirebus.MatchAnyTopic("maidos.config", nil),
		"empty pattern list matches everything")
	assert.True(t, wirebus.MatchAnyTopic("maidos.config", []string{"other", "maidos.*"}))
	assert.False(t, wirebus.MatchAnyTopic("maidos.config", []string{"other", "billing.*"}))
}

func TestValidateTopic(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		wantErr bool
	}{
		{"simple", "orders", false},
		{"dots underscores hyphens", "a.b-c_1", false},
		{"digits", "v2.events.42", false},
		{"max length", strings.Repeat("x", wirebus.MaxTopicLength), false},
		{"empty", "", true},
		{"over max length", strings.Repeat("x", wirebus.MaxTopicLength+1), true},
		{"slash", "has/slash", true},
		{"space", "has space", true},
		{"colon", "has:colon", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wirebus.ValidateTopic(tt.topic)
			if tt.wantErr {
				assert.True(t, wirebus.IsKind(err, wirebus.KindInvalidTopic))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
