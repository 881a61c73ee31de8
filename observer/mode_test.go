package observer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/observers/observer"
)

func TestParseTransactionPhase(t *testing.T) {
	t.Parallel()

	tests := map[string]observer.TransactionPhase{
		"in_progress":       observer.InProgress,
		"BEFORE_COMPLETION": observer.BeforeCompletion,
		"after-completion":  observer.AfterCompletion,
		"AfterFailure":      observer.AfterFailure,
		" after_success ":   observer.AfterSuccess,
	}
	for in, want := range tests {
		got, err := observer.ParseTransactionPhase(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := observer.ParseTransactionPhase("after_lunch")
	assert.Error(t, err)
}

func TestParseReception(t *testing.T) {
	t.Parallel()

	r, err := observer.ParseReception("IF_EXISTS")
	require.NoError(t, err)
	assert.Equal(t, observer.ReceptionIfExists, r)

	r, err = observer.ParseReception("always")
	require.NoError(t, err)
	assert.Equal(t, observer.ReceptionAlways, r)

	_, err = observer.ParseReception("sometimes")
	assert.Error(t, err)
}

func TestTransactionPhase_Text(t *testing.T) {
	t.Parallel()

	b, err := observer.AfterSuccess.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "after_success", string(b))

	var p observer.TransactionPhase
	require.NoError(t, p.UnmarshalText([]byte("before_completion")))
	assert.Equal(t, observer.BeforeCompletion, p)

	_, err = observer.TransactionPhase(42).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "TransactionPhase(42)", observer.TransactionPhase(42).String())
}

func TestTransactionPhase_IsTransactional(t *testing.T) {
	t.Parallel()

	assert.False(t, observer.InProgress.IsTransactional())
	for _, p := range []observer.TransactionPhase{observer.BeforeCompletion, observer.AfterCompletion, observer.AfterFailure, observer.AfterSuccess} {
		assert.True(t, p.IsTransactional(), p.String())
	}
}
