package failure_test

import (
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/isseis/go-wcc/internal/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(s string) failure.Result[int] {
	n, err := strconv.Atoi(s)
	if err != nil {
		return failure.Fail[int](failure.Wrap(failure.KindConversion, err))
	}
	return failure.Ok(n)
}

func TestResult_OkAndFail(t *testing.T) {
	ok := failure.Ok("value")
	assert.True(t, ok.IsOk())
	assert.Equal(t, "value", ok.Value())
	assert.Nil(t, ok.Err())
	v, err := ok.Get()
	assert.Equal(t, "value", v)
	assert.NoError(t, err)
	assert.True(t, err == nil, "Get must return a nil interface on success")

	bad := failure.Fail[string](failure.New(failure.KindOptionUnwrap))
	assert.False(t, bad.IsOk())
	assert.Empty(t, bad.Value())
	v, err = bad.Get()
	assert.Empty(t, v)
	assert.True(t, failure.Is(err, failure.KindOptionUnwrap))
}

func TestResult_FailNilPanics(t *testing.T) {
	assert.Panics(t, func() { failure.Fail[int](nil) })
}

func TestResult_Of(t *testing.T) {
	r := failure.Of(3, nil)
	assert.True(t, r.IsOk())

	r = failure.Of(0, failure.New(failure.KindMapLookup))
	assert.Equal(t, failure.KindMapLookup, r.Err().Kind())

	assert.Panics(t, func() { failure.Of(0, errors.New("foreign")) })
}

func TestThen_ShortCircuits(t *testing.T) {
	calls := 0
	double := func(n int) failure.Result[int] {
		calls++
		return failure.Ok(n * 2)
	}

	r := failure.Then(failure.Then(parse("21"), double), double)
	require.True(t, r.IsOk())
	assert.Equal(t, 84, r.Value())
	assert.Equal(t, 2, calls)

	calls = 0
	r = failure.Then(failure.Then(parse("x"), double), double)
	assert.False(t, r.IsOk())
	assert.Equal(t, failure.KindConversion, r.Err().Kind())
	assert.Zero(t, calls)
}

func TestMap(t *testing.T) {
	r := failure.Map(parse("5"), strconv.Itoa)
	assert.Equal(t, "5", r.Value())

	r = failure.Map(parse(""), strconv.Itoa)
	assert.Equal(t, failure.KindConversion, r.Err().Kind())
}

func TestResult_CrossesGoroutines(t *testing.T) {
	ch := make(chan failure.Result[int])
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ch <- failure.Fail[int](failure.New(failure.KindLanguageDetect))
	}()
	go func() {
		defer wg.Done()
		ch <- failure.Fail[int](failure.New(failure.KindMetricsCompute))
	}()
	go func() {
		wg.Wait()
		close(ch)
	}()

	kinds := make(map[failure.Kind]int)
	for r := range ch {
		require.False(t, r.IsOk())
		kinds[r.Err().Kind()]++
	}
	assert.Equal(t, map[failure.Kind]int{
		failure.KindLanguageDetect: 1,
		failure.KindMetricsCompute: 1,
	}, kinds)
}
