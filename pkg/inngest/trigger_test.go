package inngest

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/inngest/inngestsdk/pkg/consts"
	"github.com/stretchr/testify/require"
)

func TestMultipleTriggersValidate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		triggers MultipleTriggers
		err      string
	}{
		{
			name:     "single event",
			triggers: MultipleTriggers{NewEventTrigger("foo", nil)},
		},
		{
			name: "event and cron",
			triggers: MultipleTriggers{
				NewEventTrigger("foo", StrPtr("event.data.ok == true")),
				NewCronTrigger("0 * * * *"),
			},
		},
		{
			name:     "none",
			triggers: MultipleTriggers{},
			err:      "At least one trigger is required",
		},
		{
			name: "duplicates",
			triggers: MultipleTriggers{
				NewEventTrigger("foo", nil),
				NewEventTrigger("foo", nil),
			},
			err: "duplicate trigger event: foo",
		},
		{
			name:     "invalid cron",
			triggers: MultipleTriggers{NewCronTrigger("every day")},
			err:      "'every day' isn't a valid cron schedule",
		},
		{
			name:     "invalid expression",
			triggers: MultipleTriggers{NewEventTrigger("foo", StrPtr("5 + 4"))},
			err:      "invalid trigger expression on 'foo'",
		},
		{
			name:     "empty trigger",
			triggers: MultipleTriggers{{}},
			err:      "A trigger must supply an event name or a cron schedule",
		},
		{
			name: "both kinds in one trigger",
			triggers: MultipleTriggers{{
				EventTrigger: &EventTrigger{Event: "foo"},
				CronTrigger:  &CronTrigger{Cron: "* * * * *"},
			}},
			err: "A trigger cannot have both an event and a cron trigger",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.triggers.Validate(ctx)
			if tt.err == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.err)
		})
	}

	t.Run("too many triggers", func(t *testing.T) {
		m := MultipleTriggers{}
		for i := 0; i <= consts.MaxTriggers; i++ {
			m = append(m, NewCronTrigger("* * * * *"))
		}
		require.ErrorContains(t, m.Validate(ctx), "exceeds the max number of triggers")
	})
}

func TestTriggerJSON(t *testing.T) {
	byt, err := json.Marshal(NewEventTrigger("foo", nil))
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"foo"}`, string(byt))

	byt, err = json.Marshal(NewCronTrigger("@daily"))
	require.NoError(t, err)
	require.JSONEq(t, `{"cron":"@daily"}`, string(byt))
	require.NoError(t, NewCronTrigger("@daily").Validate(context.Background()))

	a, err := NewEventTrigger("foo", nil).Hash()
	require.NoError(t, err)
	b, err := NewEventTrigger("foo", StrPtr("event.data.ok")).Hash()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestCancelExpression(t *testing.T) {
	tests := []struct {
		name   string
		cancel Cancel
		want   *string
	}{
		{name: "event only", cancel: Cancel{Event: "baz"}},
		{
			name:   "match",
			cancel: Cancel{Event: "baz", Match: "data.title"},
			want:   StrPtr("event.data.title == async.data.title"),
		},
		{
			name:   "if",
			cancel: Cancel{Event: "baz", If: StrPtr("async.data.ok == true")},
			want:   StrPtr("async.data.ok == true"),
		},
		{
			name:   "match and if",
			cancel: Cancel{Event: "baz", Match: "data.id", If: StrPtr("async.data.ok == true")},
			want:   StrPtr("(event.data.id == async.data.id) && (async.data.ok == true)"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.cancel.Expression())
			require.NoError(t, tt.cancel.Validate(context.Background()))
		})
	}

	byt, err := json.Marshal(Cancel{Event: "baz", Match: "data.title"}.Config())
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"baz","if":"event.data.title == async.data.title"}`, string(byt))

	require.Error(t, Cancel{}.Validate(context.Background()))
	require.Error(t, Cancel{Event: "baz", Timeout: StrPtr("soon")}.Validate(context.Background()))
	require.NoError(t, Cancel{Event: "baz", Timeout: StrPtr("1h30m")}.Validate(context.Background()))
}

func TestConcurrencyValidate(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, Concurrency{Limit: 1}.Validate(ctx))
	require.NoError(t, Concurrency{Limit: 2, Key: StrPtr("event.data.user_id"), Scope: ConcurrencyScopeEnv}.Validate(ctx))
	require.Error(t, Concurrency{}.Validate(ctx))
	require.Error(t, Concurrency{Limit: 1, Scope: "nope"}.Validate(ctx))
	require.Error(t, Concurrency{Limit: 1, Key: StrPtr("event.data. ==")}.Validate(ctx))
}

func TestRuntimeHTTP(t *testing.T) {
	u, err := url.Parse("https://example.com")
	require.NoError(t, err)

	rt := NewRuntimeHTTP(u, "test", consts.DefaultStepID)
	require.Equal(t, "https://example.com/?fnId=test&stepId=step", rt.URL)
	require.Equal(t, map[string]any{"type": "http", "url": rt.URL}, rt.Map())

	u, err = url.Parse("http://localhost:3000/api/inngest?env=dev")
	require.NoError(t, err)
	rt = NewRuntimeHTTP(u, "a-failure", "step")
	require.Equal(t, "http://localhost:3000/api/inngest?env=dev&fnId=a-failure&stepId=step", rt.URL)
	require.Equal(t, "a-failure", GetFailureHandlerSlug("a"))
	require.Equal(t, "a (failure)", GetFailureHandlerName("a"))
}
