package treebranch

import (
	"fmt"
)

// CatchPanicOrError runs f and returns either its error or the value it panicked with.
// Builder functions of a language panic on values which can't be marshalled, this is
// the way to get an error back
func CatchPanicOrError(f func() error) error {
	var err error
	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			var ok bool
			if err, ok = r.(error); !ok {
				err = fmt.Errorf("%v", r)
			}
		}()
		err = f()
	}()
	return err
}

// Must panics if err is not nil, otherwise returns v
func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
