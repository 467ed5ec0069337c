package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/matryer/is"
)

func TestLoadOnce(t *testing.T) {
	is := is.New(t)
	var calls atomic.Int32
	load := func(key string) (any, error) {
		calls.Add(1)
		return "value of " + key, nil
	}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			obj, err := Load("test:once", load)
			is.NoErr(err)
			is.Equal(obj, "value of test:once")
		}()
	}
	wg.Wait()
	is.Equal(calls.Load(), int32(1))

	Forget("test:once")
	_, err := Load("test:once", load)
	is.NoErr(err)
	is.Equal(calls.Load(), int32(2))
}

func TestFailedLoadNotCached(t *testing.T) {
	is := is.New(t)
	boom := errors.New("boom")
	_, err := Load("test:fail", func(string) (any, error) { return nil, boom })
	is.True(errors.Is(err, boom))
	obj, err := Load("test:fail", func(string) (any, error) { return 42, nil })
	is.NoErr(err)
	is.Equal(obj, 42)
}
