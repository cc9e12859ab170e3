package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(guessTotal.WithLabelValues("correct"))
	Guess(true)
	Guess(false)
	assert.Equal(t, before+1, testutil.ToFloat64(guessTotal.WithLabelValues("correct")))

	spent := testutil.ToFloat64(tokensSpent.WithLabelValues("reveal"))
	TokensSpent("reveal", 3)
	assert.Equal(t, spent+3, testutil.ToFloat64(tokensSpent.WithLabelValues("reveal")))

	ops := testutil.ToFloat64(operationTotal.WithLabelValues("guess", "ok"))
	ObserveOperation("guess", "ok", 5*time.Millisecond)
	assert.Equal(t, ops+1, testutil.ToFloat64(operationTotal.WithLabelValues("guess", "ok")))
}
